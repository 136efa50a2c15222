// Package editor projects a template, its content and the current validation
// errors into the description of the schema-driven editing form.
package editor

import (
	"deck-backend/internal/content"
	"deck-backend/internal/models"
)

// Control is the input widget a field is edited with.
type Control string

const (
	ControlInput    Control = "input"
	ControlTextarea Control = "textarea"
	ControlList     Control = "list"
	ControlImage    Control = "image"
)

type Field struct {
	Key      string           `json:"key"`
	Label    string           `json:"label"`
	Type     models.FieldType `json:"type"`
	Control  Control          `json:"control"`
	Required bool             `json:"required"`
	// Exactly one of Value and Items is meaningful, depending on Type.
	Value string   `json:"value,omitempty"`
	Items []string `json:"items,omitempty"`
	Error string   `json:"error,omitempty"`
}

type Section struct {
	SlideID string        `json:"slide_id"`
	Name    string        `json:"name"`
	Layout  models.Layout `json:"layout"`
	Fields  []Field       `json:"fields"`
}

type Form struct {
	TemplateID   string    `json:"template_id"`
	TemplateName string    `json:"template_name"`
	Sections     []Section `json:"sections"`
	ErrorCount   int       `json:"error_count"`
}

// BuildForm lays out one section per slide and one field per definition, in
// schema order. A bullets field always carries at least one item.
func BuildForm(t models.TemplateSchema, c models.Content, errs []models.ValidationError) Form {
	messages := make(map[[2]string]string, len(errs))
	for _, e := range errs {
		messages[[2]string{e.SlideID, e.FieldKey}] = e.Message
	}

	form := Form{
		TemplateID:   t.ID,
		TemplateName: t.Name,
		Sections:     make([]Section, 0, len(t.Slides)),
		ErrorCount:   len(errs),
	}
	for _, def := range t.Slides {
		section := Section{
			SlideID: def.ID,
			Name:    def.Name,
			Layout:  def.Layout,
			Fields:  make([]Field, 0, len(def.Fields)),
		}
		for _, fd := range def.Fields {
			f := Field{
				Key:      fd.Key,
				Label:    fd.Label,
				Type:     fd.Type,
				Control:  controlFor(fd.Type),
				Required: fd.Required,
				Error:    messages[[2]string{def.ID, fd.Key}],
			}
			if fd.Type.IsList() {
				f.Items = content.ReadBullets(c, def.ID, fd.Key)
			} else if v, ok := c.Get(def.ID, fd.Key); ok {
				f.Value = v.String()
			}
			section.Fields = append(section.Fields, f)
		}
		form.Sections = append(form.Sections, section)
	}
	return form
}

func controlFor(t models.FieldType) Control {
	switch t {
	case models.FieldText:
		return ControlInput
	case models.FieldMultiline:
		return ControlTextarea
	case models.FieldBullets:
		return ControlList
	case models.FieldImage:
		return ControlImage
	default:
		return ControlInput
	}
}
