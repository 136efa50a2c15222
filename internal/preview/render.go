package preview

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"deck-backend/internal/content"
	"deck-backend/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	thumbBulletLimit = 6
	fullBulletLimit  = 12
)

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// slideView is what the slide template sees.
type slideView struct {
	models.PreviewSlide
	Index       int
	Number      int
	Full        bool
	Src         template.URL
	Items       []string
	ShowImage   bool
	ImageFirst  bool
	ShowSummary bool
}

func newSlideView(s models.PreviewSlide, index int, full bool) slideView {
	limit := thumbBulletLimit
	if full {
		limit = fullBulletLimit
	}
	items := content.NormalizeBullets(s.Bullets)
	if len(items) > limit {
		items = items[:limit]
	}

	src := safeImageURL(s.Image)
	v := slideView{
		PreviewSlide: s,
		Index:        index,
		Number:       index + 1,
		Full:         full,
		Src:          src,
		Items:        items,
		ShowSummary:  s.Layout == models.LayoutTitleContent && s.Summary != "",
	}
	if v.Title == "" {
		v.Title = s.Name
	}

	switch s.Layout {
	case models.LayoutImageLeft:
		v.ShowImage = src != ""
		v.ImageFirst = true
	case models.LayoutImageRight:
		v.ShowImage = src != ""
	case models.LayoutImageOnly:
		v.ShowImage = src != ""
	case models.LayoutTitle, models.LayoutTitleContent, models.LayoutTitleBullets:
	default:
	}
	return v
}

// safeImageURL lets through image data URIs, embedded asset paths and http(s)
// URLs; anything else renders as no image.
func safeImageURL(s string) template.URL {
	switch {
	case strings.HasPrefix(s, "data:image/"),
		strings.HasPrefix(s, "/assets/"),
		strings.HasPrefix(s, "https://"),
		strings.HasPrefix(s, "http://"):
		return template.URL(s)
	default:
		return ""
	}
}

type panelPage struct {
	Title  string
	Base   string
	Slides []slideView
}

type fullscreenPage struct {
	Title   string
	Base    string
	Close   string
	Slide   *slideView
	Number  int
	Count   int
	Prev    int
	Next    int
	HasPrev bool
	HasNext bool
}

// RenderPanel writes the thumbnail panel. base is the URL prefix of the fullscreen
// pages: slide i lives at base + "/" + i + ".html".
func RenderPanel(w io.Writer, title, base string, slides []models.PreviewSlide) error {
	page := panelPage{Title: title, Base: base, Slides: make([]slideView, len(slides))}
	for i, s := range slides {
		page.Slides[i] = newSlideView(s, i, false)
	}
	if err := pageTemplates.ExecuteTemplate(w, "panel", page); err != nil {
		return fmt.Errorf("render preview panel: %w", err)
	}
	return nil
}

// RenderFullscreen writes the carousel page for the carousel's current slide.
// closeURL is where the Close button leads.
func RenderFullscreen(w io.Writer, title, base, closeURL string, slides []models.PreviewSlide, c *Carousel) error {
	page := fullscreenPage{
		Title:  title,
		Base:   base,
		Close:  closeURL,
		Number: c.Index() + 1,
		Count:  len(slides),
	}
	if c.Index() < len(slides) {
		v := newSlideView(slides[c.Index()], c.Index(), true)
		page.Slide = &v
	}
	page.HasPrev, page.HasNext = c.HasPrev(), c.HasNext()
	if page.HasPrev {
		page.Prev = c.Index() - 1
	}
	if page.HasNext {
		page.Next = c.Index() + 1
	}
	if err := pageTemplates.ExecuteTemplate(w, "fullscreen", page); err != nil {
		return fmt.Errorf("render fullscreen preview: %w", err)
	}
	return nil
}
