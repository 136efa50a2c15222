// Package preview projects a template and its content into render-ready slide
// view-models and renders them as HTML approximations of the final deck.
package preview

import (
	"deck-backend/internal/content"
	"deck-backend/internal/models"
)

const (
	FirstSlideID   = "global-first-slide"
	FirstSlideName = "Global First Slide"
)

// Build derives the preview slides from (t, c, theme) and the optional global first
// slide. It holds no state and may be called again at any time.
func Build(t models.TemplateSchema, c models.Content, theme models.Theme, first *models.GlobalFirstSlide) []models.PreviewSlide {
	slides := make([]models.PreviewSlide, 0, len(t.Slides)+1)

	if first != nil && first.Visible() {
		slides = append(slides, models.PreviewSlide{
			ID:      FirstSlideID,
			Name:    FirstSlideName,
			Layout:  models.LayoutImageOnly,
			Bullets: []string{},
			Image:   first.ImageDataURL,
			Theme:   theme,
		})
	}

	for _, def := range t.Slides {
		data := c[def.ID]
		slides = append(slides, models.PreviewSlide{
			ID:       def.ID,
			Name:     def.Name,
			Layout:   def.Layout,
			Title:    content.Title(def, data),
			Subtitle: content.Subtitle(data),
			Summary:  content.Summary(data),
			Bullets:  content.Bullets(data),
			Image:    content.Image(data),
			Theme:    theme,
		})
	}
	return slides
}
