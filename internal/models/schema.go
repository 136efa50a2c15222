package models

// Aspect selects the output canvas aspect ratio.
type Aspect string

const (
	AspectWide     Aspect = "WIDE"
	AspectStandard Aspect = "STANDARD"
)

// Valid reports whether a is one of the declared aspects.
func (a Aspect) Valid() bool {
	switch a {
	case AspectWide, AspectStandard:
		return true
	default:
		return false
	}
}

// Layout selects both the editor affordances and the generated arrangement of a slide.
type Layout string

const (
	LayoutTitle        Layout = "title"
	LayoutTitleContent Layout = "title+content"
	LayoutTitleBullets Layout = "title+bullets"
	LayoutImageLeft    Layout = "image-left"
	LayoutImageRight   Layout = "image-right"
	LayoutImageOnly    Layout = "image-only"
)

// AllLayouts lists every declared layout in declaration order.
var AllLayouts = []Layout{
	LayoutTitle,
	LayoutTitleContent,
	LayoutTitleBullets,
	LayoutImageLeft,
	LayoutImageRight,
	LayoutImageOnly,
}

func (l Layout) Valid() bool {
	switch l {
	case LayoutTitle, LayoutTitleContent, LayoutTitleBullets,
		LayoutImageLeft, LayoutImageRight, LayoutImageOnly:
		return true
	default:
		return false
	}
}

// HasImage reports whether the layout places an image block.
func (l Layout) HasImage() bool {
	switch l {
	case LayoutImageLeft, LayoutImageRight, LayoutImageOnly:
		return true
	case LayoutTitle, LayoutTitleContent, LayoutTitleBullets:
		return false
	default:
		return false
	}
}

// FieldType is the shape of a single editable field.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldMultiline FieldType = "multiline"
	FieldBullets   FieldType = "bullets"
	FieldImage     FieldType = "image"
)

// AllFieldTypes lists every declared field type in declaration order.
var AllFieldTypes = []FieldType{FieldText, FieldMultiline, FieldBullets, FieldImage}

func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldMultiline, FieldBullets, FieldImage:
		return true
	default:
		return false
	}
}

// IsList reports whether values of this type are bullet lists rather than text.
func (t FieldType) IsList() bool {
	switch t {
	case FieldBullets:
		return true
	case FieldText, FieldMultiline, FieldImage:
		return false
	default:
		return false
	}
}

type FieldDefinition struct {
	Key      string    `json:"key" yaml:"key"`
	Label    string    `json:"label" yaml:"label"`
	Type     FieldType `json:"type" yaml:"type"`
	Required bool      `json:"required,omitempty" yaml:"required,omitempty"`
}

type SlideDefinition struct {
	ID     string            `json:"id" yaml:"id"`
	Name   string            `json:"name" yaml:"name"`
	Layout Layout            `json:"layout" yaml:"layout"`
	Fields []FieldDefinition `json:"fields" yaml:"fields"`
}

// Field returns the definition for key, if the slide declares it.
func (s SlideDefinition) Field(key string) (FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// TemplateSchema describes a deck: its slides, their layouts and editable fields.
// A schema is never mutated once it becomes a session's active template.
type TemplateSchema struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Aspect      Aspect            `json:"aspect" yaml:"aspect"`
	Slides      []SlideDefinition `json:"slides" yaml:"slides"`
}

// Slide returns the slide definition with the given id.
func (t TemplateSchema) Slide(id string) (SlideDefinition, bool) {
	for _, s := range t.Slides {
		if s.ID == id {
			return s, true
		}
	}
	return SlideDefinition{}, false
}
