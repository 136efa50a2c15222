// Package content builds and edits the per-slide, per-field values a user enters.
//
// Content is treated as immutable: every setter returns a new Content that shares
// the untouched slides with its input, so a reader holding the old value never sees
// a half-applied edit.
package content

import (
	"errors"
	"fmt"
	"strings"

	"deck-backend/internal/models"
)

// ErrBulletIndex is returned for bullet edits addressing a position that does not exist.
var ErrBulletIndex = errors.New("bullet index out of range")

// Empty returns content holding the type-appropriate empty value for every field
// of every slide in t.
func Empty(t models.TemplateSchema) models.Content {
	c := make(models.Content, len(t.Slides))
	for _, s := range t.Slides {
		slide := make(models.SlideContent, len(s.Fields))
		for _, f := range s.Fields {
			slide[f.Key] = models.EmptyValue(f.Type)
		}
		c[s.ID] = slide
	}
	return c
}

// SetField returns a copy of c with exactly one value replaced.
func SetField(c models.Content, slideID, key string, v models.Value) models.Content {
	next := make(models.Content, len(c)+1)
	for id, slide := range c {
		next[id] = slide
	}
	old := c[slideID]
	slide := make(models.SlideContent, len(old)+1)
	for k, val := range old {
		slide[k] = val
	}
	slide[key] = v
	next[slideID] = slide
	return next
}

// ReadBullets returns the bullets stored at (slideID, key), always as a list with
// at least one entry.
func ReadBullets(c models.Content, slideID, key string) []string {
	v, ok := c.Get(slideID, key)
	if !ok {
		return []string{""}
	}
	items := v.Items()
	if len(items) == 0 {
		return []string{""}
	}
	return items
}

// AddBullet appends one empty bullet.
func AddBullet(c models.Content, slideID, key string) models.Content {
	items := append(ReadBullets(c, slideID, key), "")
	return SetField(c, slideID, key, models.List(items...))
}

// RemoveBullet drops the bullet at index. Removing the last one leaves a single
// empty bullet, never an empty list.
func RemoveBullet(c models.Content, slideID, key string, index int) (models.Content, error) {
	items := ReadBullets(c, slideID, key)
	if index < 0 || index >= len(items) {
		return nil, fmt.Errorf("%w: %d of %d", ErrBulletIndex, index, len(items))
	}
	next := make([]string, 0, len(items)-1)
	next = append(next, items[:index]...)
	next = append(next, items[index+1:]...)
	if len(next) == 0 {
		next = []string{""}
	}
	return SetField(c, slideID, key, models.List(next...)), nil
}

// SetBullet replaces the bullet at index.
func SetBullet(c models.Content, slideID, key string, index int, value string) (models.Content, error) {
	items := ReadBullets(c, slideID, key)
	if index < 0 || index >= len(items) {
		return nil, fmt.Errorf("%w: %d of %d", ErrBulletIndex, index, len(items))
	}
	items[index] = value
	return SetField(c, slideID, key, models.List(items...)), nil
}

// NormalizeBullets trims every bullet and drops the empty ones.
func NormalizeBullets(bullets []string) []string {
	out := make([]string, 0, len(bullets))
	for _, b := range bullets {
		if t := strings.TrimSpace(b); t != "" {
			out = append(out, t)
		}
	}
	return out
}
