package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"
)

const maxRemoteImage = 16 * 1024 * 1024

var (
	ErrUnsupportedImage = errors.New("unsupported image reference")
	ErrImageFormat      = errors.New("image is not a PNG, JPEG or GIF")
)

// Image is a decoded image ready to embed.
type Image struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// ImageResolver turns an image reference from content (a data URI, an asset path
// or a URL) into image bytes.
type ImageResolver interface {
	Resolve(ctx context.Context, ref string) (Image, error)
}

// Resolver is the default ImageResolver. Assets serves "/assets/..." paths;
// Client fetches http(s) URLs.
type Resolver struct {
	Assets fs.FS
	Client *http.Client
}

func NewResolver(assets fs.FS, fetchTimeout time.Duration) *Resolver {
	return &Resolver{
		Assets: assets,
		Client: &http.Client{Timeout: fetchTimeout},
	}
}

func (r *Resolver) Resolve(ctx context.Context, ref string) (Image, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref)
	case strings.HasPrefix(ref, "/assets/"):
		return r.asset(strings.TrimPrefix(ref, "/assets/"))
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return r.fetch(ctx, ref)
	default:
		return Image{}, fmt.Errorf("%w: %.40q", ErrUnsupportedImage, ref)
	}
}

func decodeDataURI(uri string) (Image, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return Image{}, fmt.Errorf("%w: data URI must be base64", ErrUnsupportedImage)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("decode data URI: %w", err)
	}
	return sniff(data)
}

func (r *Resolver) asset(name string) (Image, error) {
	if r.Assets == nil {
		return Image{}, fmt.Errorf("%w: no asset store", ErrUnsupportedImage)
	}
	data, err := fs.ReadFile(r.Assets, path.Clean(name))
	if err != nil {
		return Image{}, fmt.Errorf("read asset %s: %w", name, err)
	}
	return sniff(data)
}

func (r *Resolver) fetch(ctx context.Context, url string) (Image, error) {
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Image{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("fetch image: %s returned %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteImage+1))
	if err != nil {
		return Image{}, fmt.Errorf("fetch image: %w", err)
	}
	if len(data) > maxRemoteImage {
		return Image{}, fmt.Errorf("fetch image: %s is larger than %d bytes", url, maxRemoteImage)
	}
	return sniff(data)
}

// sniff checks the bytes really are an image we can embed and reads its size.
// The declared type of a data URI or response is not trusted.
func sniff(data []byte) (Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrImageFormat, err)
	}
	img := Image{Data: data, Width: cfg.Width, Height: cfg.Height}
	switch format {
	case "png":
		img.MIME = "image/png"
	case "jpeg":
		img.MIME = "image/jpeg"
	case "gif":
		img.MIME = "image/gif"
	default:
		return Image{}, fmt.Errorf("%w: %s", ErrImageFormat, format)
	}
	return img, nil
}
