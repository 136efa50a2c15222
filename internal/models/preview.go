package models

// PreviewSlide is the render-ready view-model of one slide, distinct from both the
// schema and the generated slide objects.
type PreviewSlide struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Layout   Layout   `json:"layout"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	Summary  string   `json:"summary"`
	Bullets  []string `json:"bullets"`
	Image    string   `json:"image_1"`
	Theme    Theme    `json:"theme"`
}

// ValidationError reports one required field left empty. It is recomputed on every
// content change and never persisted.
type ValidationError struct {
	SlideID  string `json:"slide_id"`
	FieldKey string `json:"field_key"`
	Message  string `json:"message"`
}
