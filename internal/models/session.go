package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SnapshotVersion tags every snapshot written by this build.
const SnapshotVersion = 2

// DefaultFirstSlideImage is served from the embedded assets and used whenever the
// global first slide image is cleared.
const DefaultFirstSlideImage = "/assets/global-first-slide-default.png"

// GlobalFirstSlide is an optional image-only slide prepended ahead of every
// schema-defined slide.
type GlobalFirstSlide struct {
	Enabled      bool   `json:"enabled"`
	ImageDataURL string `json:"image_data_url"`
}

// Visible reports whether the slide should be prepended to preview and output.
func (g GlobalFirstSlide) Visible() bool {
	return g.Enabled && strings.TrimSpace(g.ImageDataURL) != ""
}

// IsDefault reports whether the slide still uses the bundled default image.
func (g GlobalFirstSlide) IsDefault() bool {
	return g.ImageDataURL == DefaultFirstSlideImage
}

// DefaultGlobalFirstSlide is the state of a fresh session.
func DefaultGlobalFirstSlide() GlobalFirstSlide {
	return GlobalFirstSlide{Enabled: true, ImageDataURL: DefaultFirstSlideImage}
}

// SourceFile is an uploaded .pptx kept for its name only; it is never parsed.
type SourceFile struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	URL        string    `json:"url,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Snapshot is everything persisted for one editor session.
type Snapshot struct {
	V                int              `json:"v"`
	Template         TemplateSchema   `json:"template"`
	Content          Content          `json:"content"`
	GlobalFirstSlide GlobalFirstSlide `json:"global_first_slide"`
	SourceFile       *SourceFile      `json:"source_file,omitempty"`
}

type EditorSession struct {
	SessionID uuid.UUID `json:"session_id"`
	Snapshot  Snapshot  `json:"snapshot"`

	// Version counts saves.
	Version int `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// legacySnapshot is the untagged shape written by the browser-only editor
// under the "ppt_generator_session_v1" key.
type legacySnapshot struct {
	UploadedPptxTemplate *struct {
		Name         string `json:"name"`
		Size         *int64 `json:"size"`
		LastModified *int64 `json:"lastModified"`
	} `json:"uploadedPptxTemplate"`
	ActiveTemplate   *TemplateSchema `json:"activeTemplate"`
	Content          Content         `json:"content"`
	GlobalFirstSlide *struct {
		Enabled      bool   `json:"enabled"`
		ImageDataURL string `json:"imageDataUrl"`
	} `json:"globalFirstSlide"`
}

// Migrate decodes a persisted snapshot of any known version and returns it in the
// current shape. It returns nil for empty, corrupt or unknown-version input, which
// callers treat as "no session".
func Migrate(raw []byte) *Snapshot {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}

	var probe struct {
		V *int `json:"v"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}

	if probe.V == nil {
		return migrateLegacy(raw)
	}

	switch *probe.V {
	case SnapshotVersion:
		var snap Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil
		}
		if snap.Template.ID == "" {
			return nil
		}
		if snap.Content == nil {
			snap.Content = Content{}
		}
		return &snap
	default:
		return nil
	}
}

func migrateLegacy(raw []byte) *Snapshot {
	var old legacySnapshot
	if err := json.Unmarshal(raw, &old); err != nil {
		return nil
	}
	if old.ActiveTemplate == nil || old.ActiveTemplate.ID == "" {
		return nil
	}

	snap := &Snapshot{
		V:                SnapshotVersion,
		Template:         *old.ActiveTemplate,
		Content:          old.Content,
		GlobalFirstSlide: DefaultGlobalFirstSlide(),
	}
	if snap.Template.Aspect == "LAYOUT_4X3" {
		snap.Template.Aspect = AspectStandard
	} else if !snap.Template.Aspect.Valid() {
		snap.Template.Aspect = AspectWide
	}
	if snap.Content == nil {
		snap.Content = Content{}
	}
	if g := old.GlobalFirstSlide; g != nil {
		snap.GlobalFirstSlide.Enabled = g.Enabled
		if g.ImageDataURL != "" {
			snap.GlobalFirstSlide.ImageDataURL = g.ImageDataURL
		}
	}
	if u := old.UploadedPptxTemplate; u != nil && u.Name != "" {
		src := &SourceFile{Name: u.Name}
		if u.Size != nil {
			src.Size = *u.Size
		}
		if u.LastModified != nil {
			src.UploadedAt = time.UnixMilli(*u.LastModified).UTC()
		}
		snap.SourceFile = src
	}
	return snap
}
