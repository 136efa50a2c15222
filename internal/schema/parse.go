// Package schema holds the template catalog and the interchange format for
// template schemas.
//
// Parse accepts JSON with this shape:
//
//	{"id", "name", "description", "aspect", "slides": [
//	    {"id", "name", "layout", "fields": [{"key", "label", "type", "required"}]}
//	]}
//
// Missing identifiers are defaulted deterministically: a template without an id
// gets "tpl-" plus a name-based UUID of the input text, a template without a name
// is "Untitled template", a slide without an id is "s<n>" and without a name
// "Slide <n>", a field without a label uses its key. Everything else that is
// missing or unknown is a *ParseError.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"deck-backend/internal/models"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DefaultTemplateName is used when imported text carries no usable name.
const DefaultTemplateName = "Untitled template"

// schemaNamespace seeds the name-based ids of imported templates.
var schemaNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("deck-backend/template"))

var (
	ErrMissingSlides  = errors.New(`"slides" is required`)
	ErrDuplicateSlide = errors.New("duplicate slide id")
	ErrDuplicateField = errors.New("duplicate field key")
	ErrMissingKey     = errors.New("field key is required")
	ErrUnknownLayout  = errors.New("unknown layout")
	ErrUnknownType    = errors.New("unknown field type")
	ErrUnknownAspect  = errors.New("unknown aspect")
)

// ParseError reports interchange text that could not be turned into a schema.
// The message is meant to be shown to the user verbatim.
type ParseError struct {
	Path string // location inside the document, e.g. "slides[2].fields[0]"
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid template: %v", e.Err)
	}
	return fmt.Sprintf("invalid template: %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// raw mirrors the interchange shape with every field optional so that absence can
// be told apart from an empty value.
type rawTemplate struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Aspect      string      `json:"aspect" yaml:"aspect"`
	Slides      *[]rawSlide `json:"slides" yaml:"slides"`
}

type rawSlide struct {
	ID     string     `json:"id" yaml:"id"`
	Name   string     `json:"name" yaml:"name"`
	Layout string     `json:"layout" yaml:"layout"`
	Fields []rawField `json:"fields" yaml:"fields"`
}

type rawField struct {
	Key      string `json:"key" yaml:"key"`
	Label    string `json:"label" yaml:"label"`
	Type     string `json:"type" yaml:"type"`
	Required bool   `json:"required" yaml:"required"`
}

// Parse decodes JSON interchange text into a schema.
func Parse(text string) (models.TemplateSchema, error) {
	var raw rawTemplate
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&raw); err != nil {
		return models.TemplateSchema{}, &ParseError{Err: err}
	}
	if dec.More() {
		return models.TemplateSchema{}, &ParseError{Err: errors.New("unexpected data after template")}
	}
	return build(raw, text)
}

// ParseYAML decodes YAML interchange text into a schema. The rules match Parse.
func ParseYAML(text string) (models.TemplateSchema, error) {
	var raw rawTemplate
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		return models.TemplateSchema{}, &ParseError{Err: err}
	}
	return build(raw, text)
}

// Decode picks the format from the file extension: YAML for .yaml and .yml,
// JSON for everything else.
func Decode(fileName string, data []byte) (models.TemplateSchema, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".yaml", ".yml":
		return ParseYAML(string(data))
	default:
		return Parse(string(data))
	}
}

// Serialize renders a schema as indented JSON interchange text. Empty slide and
// field lists are written as [], never null.
//
// Parse(Serialize(s)) is structurally equal to s for every schema Parse returns.
// A schema built in code may come back in that canonical form instead: nil
// slices as empty ones, names and keys trimmed, blank labels set to the key.
// Serializing the parsed result again gives the same text.
func Serialize(t models.TemplateSchema) (string, error) {
	slides := make([]models.SlideDefinition, len(t.Slides))
	for i, s := range t.Slides {
		if s.Fields == nil {
			s.Fields = []models.FieldDefinition{}
		}
		slides[i] = s
	}
	t.Slides = slides

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(t); err != nil {
		return "", fmt.Errorf("serialize template %q: %w", t.ID, err)
	}
	return buf.String(), nil
}

func build(raw rawTemplate, source string) (models.TemplateSchema, error) {
	if raw.Slides == nil {
		return models.TemplateSchema{}, &ParseError{Err: ErrMissingSlides}
	}

	aspect, err := parseAspect(raw.Aspect)
	if err != nil {
		return models.TemplateSchema{}, &ParseError{Path: "aspect", Err: err}
	}

	t := models.TemplateSchema{
		ID:          strings.TrimSpace(raw.ID),
		Name:        strings.TrimSpace(raw.Name),
		Description: raw.Description,
		Aspect:      aspect,
		Slides:      make([]models.SlideDefinition, 0, len(*raw.Slides)),
	}
	if t.ID == "" {
		t.ID = "tpl-" + uuid.NewSHA1(schemaNamespace, []byte(source)).String()
	}
	if t.Name == "" {
		t.Name = DefaultTemplateName
	}

	seenSlides := make(map[string]bool, len(*raw.Slides))
	for i, rs := range *raw.Slides {
		path := fmt.Sprintf("slides[%d]", i)

		slide := models.SlideDefinition{
			ID:     strings.TrimSpace(rs.ID),
			Name:   strings.TrimSpace(rs.Name),
			Layout: models.Layout(strings.TrimSpace(rs.Layout)),
			Fields: make([]models.FieldDefinition, 0, len(rs.Fields)),
		}
		if slide.ID == "" {
			slide.ID = fmt.Sprintf("s%d", i+1)
		}
		if slide.Name == "" {
			slide.Name = fmt.Sprintf("Slide %d", i+1)
		}
		if seenSlides[slide.ID] {
			return models.TemplateSchema{}, &ParseError{Path: path, Err: fmt.Errorf("%w %q", ErrDuplicateSlide, slide.ID)}
		}
		seenSlides[slide.ID] = true
		if !slide.Layout.Valid() {
			return models.TemplateSchema{}, &ParseError{Path: path, Err: fmt.Errorf("%w %q", ErrUnknownLayout, rs.Layout)}
		}

		seenFields := make(map[string]bool, len(rs.Fields))
		for j, rf := range rs.Fields {
			fpath := fmt.Sprintf("%s.fields[%d]", path, j)
			field := models.FieldDefinition{
				Key:      strings.TrimSpace(rf.Key),
				Label:    strings.TrimSpace(rf.Label),
				Type:     models.FieldType(strings.TrimSpace(rf.Type)),
				Required: rf.Required,
			}
			if field.Key == "" {
				return models.TemplateSchema{}, &ParseError{Path: fpath, Err: ErrMissingKey}
			}
			if seenFields[field.Key] {
				return models.TemplateSchema{}, &ParseError{Path: fpath, Err: fmt.Errorf("%w %q", ErrDuplicateField, field.Key)}
			}
			seenFields[field.Key] = true
			if !field.Type.Valid() {
				return models.TemplateSchema{}, &ParseError{Path: fpath, Err: fmt.Errorf("%w %q", ErrUnknownType, rf.Type)}
			}
			if field.Label == "" {
				field.Label = field.Key
			}
			slide.Fields = append(slide.Fields, field)
		}

		t.Slides = append(t.Slides, slide)
	}

	return t, nil
}

func parseAspect(s string) (models.Aspect, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "WIDE", "LAYOUT_WIDE", "LAYOUT_16X9":
		return models.AspectWide, nil
	case "STANDARD", "LAYOUT_4X3":
		return models.AspectStandard, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownAspect, s)
	}
}

// Placeholders lists placeholder tokens for a schema: {{key}} for scalar fields and
// {{key_1}}, {{key_2}}, {{key_n}} for bullet fields, de-duplicated in first-seen order.
func Placeholders(t models.TemplateSchema) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(tokens ...string) {
		for _, tok := range tokens {
			if !seen[tok] {
				seen[tok] = true
				out = append(out, tok)
			}
		}
	}
	for _, s := range t.Slides {
		for _, f := range s.Fields {
			if f.Type.IsList() {
				add("{{"+f.Key+"_1}}", "{{"+f.Key+"_2}}", "{{"+f.Key+"_n}}")
			} else {
				add("{{" + f.Key + "}}")
			}
		}
	}
	return out
}
