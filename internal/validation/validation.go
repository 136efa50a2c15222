package validation

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"deck-backend/internal/models"
)

const (
	MaxImageSize  = 8 * 1024 * 1024  // 8MB
	MaxSourceSize = 50 * 1024 * 1024 // 50MB
	MaxFilename   = 255
)

var (
	ErrImageTooLarge     = errors.New("file too large - maximum 8MB allowed")
	ErrInvalidImageType  = errors.New("unsupported file type - please upload a PNG or JPG image")
	ErrSourceTooLarge    = errors.New("file too large - maximum 50MB allowed")
	ErrInvalidSourceType = errors.New("invalid file type - only .pptx allowed")
	ErrFilenameTooLong   = errors.New("filename too long - maximum 255 characters")
	ErrEmptyFile         = errors.New("file is empty")
)

var AllowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
}

// ImageReadError reports an image upload that could not be accepted or decoded.
// It concerns a single field and never affects the others.
type ImageReadError struct {
	Filename string
	Err      error
}

func (e *ImageReadError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("failed to read image: %v", e.Err)
	}
	return fmt.Sprintf("failed to read image %q: %v", e.Filename, e.Err)
}

func (e *ImageReadError) Unwrap() error { return e.Err }

// Validate checks every required field of t against c. Errors follow slide order,
// then field order, and are the same for the same input.
func Validate(t models.TemplateSchema, c models.Content) []models.ValidationError {
	var errs []models.ValidationError
	for _, slide := range t.Slides {
		for _, field := range slide.Fields {
			if !field.Required {
				continue
			}
			v, ok := c.Get(slide.ID, field.Key)
			if ok && !IsEmpty(v) {
				continue
			}
			label := field.Label
			if label == "" {
				label = field.Key
			}
			errs = append(errs, models.ValidationError{
				SlideID:  slide.ID,
				FieldKey: field.Key,
				Message:  fmt.Sprintf("“%s” is required.", label),
			})
		}
	}
	return errs
}

// IsEmpty reports whether v holds nothing but whitespace: a blank string, or a
// list whose every element is blank.
func IsEmpty(v models.Value) bool {
	if !v.IsList() {
		return strings.TrimSpace(v.String()) == ""
	}
	for _, item := range v.Items() {
		if strings.TrimSpace(item) != "" {
			return false
		}
	}
	return true
}

// ValidateImageUpload accepts PNG and JPEG images up to MaxImageSize.
func ValidateImageUpload(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size == 0 {
		return &ImageReadError{Filename: fileHeader.Filename, Err: ErrEmptyFile}
	}

	if fileHeader.Size > MaxImageSize {
		return &ImageReadError{Filename: fileHeader.Filename, Err: ErrImageTooLarge}
	}

	if len(fileHeader.Filename) > MaxFilename {
		return &ImageReadError{Filename: fileHeader.Filename[:32] + "...", Err: ErrFilenameTooLong}
	}

	contentType := fileHeader.Header.Get("Content-Type")

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = guessContentType(fileHeader.Filename)
	}

	if !AllowedImageTypes[contentType] {
		return &ImageReadError{Filename: fileHeader.Filename, Err: ErrInvalidImageType}
	}

	return nil
}

// ValidateSourceUpload accepts a .pptx file by name and size only; its contents are
// never inspected.
func ValidateSourceUpload(fileHeader *multipart.FileHeader) error {

	if fileHeader.Size == 0 {
		return ErrEmptyFile
	}

	if fileHeader.Size > MaxSourceSize {
		return ErrSourceTooLarge
	}

	if len(fileHeader.Filename) > MaxFilename {
		return ErrFilenameTooLong
	}

	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pptx") {
		return ErrInvalidSourceType
	}

	return nil
}

// ReadImageDataURL reads an uploaded image into a data URI. The declared type is
// checked against the sniffed bytes so a renamed file is rejected here rather than
// when the deck is generated.
func ReadImageDataURL(file multipart.File, fileHeader *multipart.FileHeader) (string, error) {
	if err := ValidateImageUpload(fileHeader); err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		return "", &ImageReadError{Filename: fileHeader.Filename, Err: err}
	}
	if len(data) == 0 {
		return "", &ImageReadError{Filename: fileHeader.Filename, Err: ErrEmptyFile}
	}
	if len(data) > MaxImageSize {
		return "", &ImageReadError{Filename: fileHeader.Filename, Err: ErrImageTooLarge}
	}

	sniffed := http.DetectContentType(data)
	if !AllowedImageTypes[sniffed] {
		return "", &ImageReadError{Filename: fileHeader.Filename, Err: ErrInvalidImageType}
	}

	return "data:" + sniffed + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func guessContentType(filename string) string {

	idx := strings.LastIndex(filename, ".")
	if idx == -1 {
		return "application/octet-stream"
	}

	ext := strings.ToLower(filename[idx+1:])

	typeMap := map[string]string{
		"png":  "image/png",
		"jpg":  "image/jpeg",
		"jpeg": "image/jpeg",
		"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	}

	if ct, ok := typeMap[ext]; ok {
		return ct
	}

	return "application/octet-stream"
}
