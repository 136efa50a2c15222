package generator

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	ppt "github.com/VantageDataChat/GoPPT"

	"deck-backend/internal/models"
)

// DefaultFileName is used when sanitizing leaves nothing.
const DefaultFileName = "presentation"

const fileExt = ".pptx"

// ContentType is the MIME type of the output file.
const ContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

var (
	unsafeFileChars = regexp.MustCompile(`[^\w\- ]+`)
	fileSpaces      = regexp.MustCompile(`\s+`)
)

// Document is a built presentation, not yet serialized.
type Document struct {
	pres   *ppt.Presentation
	title  string
	slides int
}

func (d *Document) Presentation() *ppt.Presentation { return d.pres }

func (d *Document) Title() string { return d.title }

// SlideCount is the number of slides drawn, including the global first slide.
func (d *Document) SlideCount() int { return d.slides }

// Bytes serializes the presentation as .pptx.
func (d *Document) Bytes() ([]byte, error) {
	w, err := ppt.NewWriter(d.pres, ppt.WriterPowerPoint2007)
	if err != nil {
		return nil, &GenerationError{Op: OpWrite, Err: err}
	}
	var buf bytes.Buffer
	if err := w.(*ppt.PPTXWriter).WriteTo(&buf); err != nil {
		return nil, &GenerationError{Op: OpWrite, Err: err}
	}
	return buf.Bytes(), nil
}

// WriteTo serializes the presentation into w. The file is built in memory first,
// so a serialization failure writes nothing.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	data, err := d.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	if err != nil {
		return int64(n), &GenerationError{Op: OpWrite, Err: err}
	}
	return int64(n), nil
}

// Outline lists the non-blank paragraphs of each slide, in drawing order.
func (d *Document) Outline() [][]string {
	return outline(d.pres)
}

func outline(p *ppt.Presentation) [][]string {
	slides := p.GetAllSlides()
	out := make([][]string, 0, len(slides))
	for _, slide := range slides {
		var lines []string
		for _, shape := range slide.GetShapes() {
			rts, ok := shape.(*ppt.RichTextShape)
			if !ok {
				continue
			}
			for _, para := range rts.GetParagraphs() {
				var text string
				for _, elem := range para.GetElements() {
					if run, ok := elem.(*ppt.TextRun); ok {
						text += run.GetText()
					}
				}
				if text = strings.TrimSpace(text); text != "" {
					lines = append(lines, text)
				}
			}
		}
		out = append(out, lines)
	}
	return out
}

// ReadOutline opens a .pptx file and returns its outline.
func ReadOutline(path string) ([][]string, error) {
	reader := &ppt.PPTXReader{}
	pres, err := reader.Read(path)
	if err != nil {
		return nil, fmt.Errorf("open presentation: %w", err)
	}
	return outline(pres), nil
}

// SanitizeFileName turns name into a safe output file name: characters other than
// word characters, hyphen and space are dropped, the rest is trimmed and runs of
// whitespace become "_". The .pptx extension is always appended.
func SanitizeFileName(name string) string {
	s := unsafeFileChars.ReplaceAllString(name, "")
	s = strings.TrimSpace(s)
	s = fileSpaces.ReplaceAllString(s, "_")
	if s == "" {
		s = DefaultFileName
	}
	return s + fileExt
}

// FileName derives the output name: the uploaded source file's name without its
// extension, else the template name.
func FileName(t models.TemplateSchema, source *models.SourceFile) string {
	if source != nil {
		base := strings.TrimSpace(source.Name)
		if strings.HasSuffix(strings.ToLower(base), fileExt) {
			base = base[:len(base)-len(fileExt)]
		}
		if strings.TrimSpace(base) != "" {
			return SanitizeFileName(base)
		}
	}
	return SanitizeFileName(t.Name)
}

// ExportFile writes doc to dir/fileName through a temporary file in the same
// directory, so a failed export never leaves a partial file behind. It returns the
// final path.
func ExportFile(doc *Document, dir, fileName string) (string, error) {
	data, err := doc.Bytes()
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".deck-*.pptx")
	if err != nil {
		return "", &GenerationError{Op: OpWrite, Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", &GenerationError{Op: OpWrite, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &GenerationError{Op: OpWrite, Err: err}
	}

	dst := filepath.Join(dir, fileName)
	if err := os.Rename(tmpPath, dst); err != nil {
		return "", &GenerationError{Op: OpWrite, Err: err}
	}
	return dst, nil
}
