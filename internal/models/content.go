package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Value is a single field value: text for text, multiline and image fields,
// a list of strings for bullets fields.
type Value struct {
	text  string
	items []string
	list  bool
}

// Text builds a text value.
func Text(s string) Value {
	return Value{text: s}
}

// List builds a bullet list value. The items are copied.
func List(items ...string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{items: cp, list: true}
}

// EmptyValue returns the type-appropriate empty value: [""] for bullets, "" otherwise.
func EmptyValue(t FieldType) Value {
	if t.IsList() {
		return List("")
	}
	return Text("")
}

func (v Value) IsList() bool { return v.list }

// String returns the text of a text value and "" for a list.
func (v Value) String() string {
	if v.list {
		return ""
	}
	return v.text
}

// Items returns a copy of the list items. A text value reads as a one-element list
// so that bullets fields always read as a sequence.
func (v Value) Items() []string {
	if !v.list {
		return []string{v.text}
	}
	cp := make([]string, len(v.items))
	copy(cp, v.items)
	return cp
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.list {
		items := v.items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(v.text)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Text("")
		return nil
	case len(data) > 0 && data[0] == '[':
		var raw []*string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("bullet list: %w", err)
		}
		items := make([]string, len(raw))
		for i, s := range raw {
			if s != nil {
				items[i] = *s
			}
		}
		*v = Value{items: items, list: true}
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("text value: %w", err)
		}
		*v = Text(s)
		return nil
	}
}

// SlideContent maps field key to value for one slide.
type SlideContent map[string]Value

// Content maps slide id to that slide's field values.
type Content map[string]SlideContent

// Get returns the value stored at (slideID, key).
func (c Content) Get(slideID, key string) (Value, bool) {
	slide, ok := c[slideID]
	if !ok {
		return Value{}, false
	}
	v, ok := slide[key]
	return v, ok
}
