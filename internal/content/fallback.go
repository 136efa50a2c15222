package content

import (
	"sort"
	"strings"

	"deck-backend/internal/models"
)

// Display fallbacks. Each display field reads its sources in order and takes the
// first one holding non-blank text; when none does it uses the listed default.
//
//	title     content.title                    else slide.name
//	subtitle  content.subtitle                 else ""
//	summary   content.summary, content.content else ""
//	bullets   content.bullets (as a list)      else []
//	image     content.image_1                  else ""
//	body      first non-blank text field, in field order, else ""
//
// Preview and generator both read through these functions.
var (
	TitleSources    = []string{"title"}
	SubtitleSources = []string{"subtitle"}
	SummarySources  = []string{"summary", "content"}
	BulletsSources  = []string{"bullets"}
	ImageSources    = []string{"image_1"}
)

// Title is the display title of a slide.
func Title(def models.SlideDefinition, data models.SlideContent) string {
	if s := firstText(data, TitleSources); s != "" {
		return s
	}
	return def.Name
}

func Subtitle(data models.SlideContent) string { return firstText(data, SubtitleSources) }

func Summary(data models.SlideContent) string { return firstText(data, SummarySources) }

func Image(data models.SlideContent) string { return firstText(data, ImageSources) }

// Bullets returns the raw bullet list, or an empty list when the slide has none.
func Bullets(data models.SlideContent) []string {
	for _, key := range BulletsSources {
		if v, ok := data[key]; ok {
			return v.Items()
		}
	}
	return []string{}
}

// Body is the text used by layouts the generator has no dedicated recipe for: the
// first non-blank text value among the declared non-image fields in field order,
// then among undeclared keys in sorted order. Data URIs never count as text.
func Body(def models.SlideDefinition, data models.SlideContent) string {
	declared := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		declared[f.Key] = true
		if f.Type == models.FieldImage {
			continue
		}
		if s := bodyText(data[f.Key]); s != "" {
			return s
		}
	}

	extra := make([]string, 0, len(data))
	for k := range data {
		if !declared[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		if s := bodyText(data[k]); s != "" {
			return s
		}
	}
	return ""
}

func bodyText(v models.Value) string {
	s := v.String()
	if v.IsList() || strings.TrimSpace(s) == "" || strings.HasPrefix(s, "data:") {
		return ""
	}
	return s
}

func firstText(data models.SlideContent, keys []string) string {
	for _, key := range keys {
		v, ok := data[key]
		if !ok || v.IsList() {
			continue
		}
		if strings.TrimSpace(v.String()) != "" {
			return v.String()
		}
	}
	return ""
}
