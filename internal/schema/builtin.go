package schema

import "deck-backend/internal/models"

// DefaultTemplateID is the template a new session starts with.
const DefaultTemplateID = "demo_pitch_deck"

// BuiltIn returns the hardcoded sample catalog. Callers get fresh copies and may
// keep them without sharing state.
func BuiltIn() []models.TemplateSchema {
	return []models.TemplateSchema{
		{
			ID:          DefaultTemplateID,
			Name:        "Pitch Deck (Demo)",
			Description: "Classic pitch: title, problem, solution, traction, team.",
			Aspect:      models.AspectWide,
			Slides: []models.SlideDefinition{
				{
					ID:     "s1",
					Name:   "Cover",
					Layout: models.LayoutTitle,
					Fields: []models.FieldDefinition{
						{Key: "title", Label: "Title", Type: models.FieldText, Required: true},
						{Key: "subtitle", Label: "Subtitle", Type: models.FieldText},
					},
				},
				{
					ID:     "s2",
					Name:   "Problem",
					Layout: models.LayoutTitleBullets,
					Fields: []models.FieldDefinition{
						{Key: "title", Label: "Slide title", Type: models.FieldText, Required: true},
						{Key: "bullets", Label: "Key points", Type: models.FieldBullets},
					},
				},
				{
					ID:     "s3",
					Name:   "Solution (Image Right)",
					Layout: models.LayoutImageRight,
					Fields: []models.FieldDefinition{
						{Key: "title", Label: "Slide title", Type: models.FieldText, Required: true},
						{Key: "bullets", Label: "Highlights", Type: models.FieldBullets},
						{Key: "image_1", Label: "Product image", Type: models.FieldImage},
					},
				},
				{
					ID:     "s4",
					Name:   "Traction",
					Layout: models.LayoutTitleBullets,
					Fields: []models.FieldDefinition{
						{Key: "title", Label: "Slide title", Type: models.FieldText, Required: true},
						{Key: "bullets", Label: "Metrics", Type: models.FieldBullets},
					},
				},
				{
					ID:     "s5",
					Name:   "Team",
					Layout: models.LayoutImageLeft,
					Fields: []models.FieldDefinition{
						{Key: "title", Label: "Slide title", Type: models.FieldText, Required: true},
						{Key: "bullets", Label: "Team highlights", Type: models.FieldBullets},
						{Key: "image_1", Label: "Team photo", Type: models.FieldImage},
					},
				},
			},
		},
		{
			ID:          "demo_report",
			Name:        "Report (Demo)",
			Description: "Executive summary + section pages; good for weekly reports.",
			Aspect:      models.AspectWide,
			Slides: []models.SlideDefinition{
				{
					ID:     "r1",
					Name:   "Executive Summary",
					Layout: models.LayoutTitleContent,
					Fields: []models.FieldDefinition{
						{Key: "title", Label: "Title", Type: models.FieldText, Required: true},
						{Key: "summary", Label: "Summary", Type: models.FieldMultiline},
					},
				},
				{
					ID:     "r2",
					Name:   "Highlights",
					Layout: models.LayoutTitleBullets,
					Fields: []models.FieldDefinition{
						{Key: "title", Label: "Slide title", Type: models.FieldText, Required: true},
						{Key: "bullets", Label: "Highlights", Type: models.FieldBullets},
					},
				},
				{
					ID:     "r3",
					Name:   "Risks (Image Right)",
					Layout: models.LayoutImageRight,
					Fields: []models.FieldDefinition{
						{Key: "title", Label: "Slide title", Type: models.FieldText, Required: true},
						{Key: "bullets", Label: "Risks", Type: models.FieldBullets},
						{Key: "image_1", Label: "Chart / Screenshot", Type: models.FieldImage},
					},
				},
			},
		},
	}
}
