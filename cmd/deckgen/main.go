// Command deckgen renders a template and a content file to a .pptx without the
// HTTP service.
//
//	deckgen -template demo_report -content report.json -out ./out
//	deckgen -schema pitch.yaml -content pitch.json -first-slide cover.png -outline
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"deck-backend/internal/assets"
	"deck-backend/internal/content"
	"deck-backend/internal/generator"
	"deck-backend/internal/models"
	"deck-backend/internal/schema"
	"deck-backend/internal/validation"
)

func main() {
	var (
		schemaPath  = flag.String("schema", "", "schema file (.json, .yaml or .yml)")
		templateID  = flag.String("template", schema.DefaultTemplateID, "built-in template id, used when -schema is empty")
		contentPath = flag.String("content", "", "content JSON: {slideId: {fieldKey: value}}")
		firstSlide  = flag.String("first-slide", "", `global first slide image: a file, URL, data URI or "default"`)
		outDir      = flag.String("out", ".", "output directory")
		name        = flag.String("name", "", "output file name (default: template name)")
		outline     = flag.Bool("outline", false, "print the text of every slide after writing")
		timeout     = flag.Duration("timeout", 30*time.Second, "overall time limit, including image fetches")
	)
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("deckgen: ")

	t, err := loadSchema(*schemaPath, *templateID)
	if err != nil {
		log.Fatal(err)
	}

	c := content.Empty(t)
	if *contentPath != "" {
		data, err := os.ReadFile(*contentPath)
		if err != nil {
			log.Fatal(err)
		}
		var loaded models.Content
		if err := json.Unmarshal(data, &loaded); err != nil {
			log.Fatalf("content %s: %v", *contentPath, err)
		}
		for slideID, fields := range loaded {
			for key, v := range fields {
				c = content.SetField(c, slideID, key, v)
			}
		}
	}

	if errs := validation.Validate(t, c); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "%s.%s: %s\n", e.SlideID, e.FieldKey, e.Message)
		}
		os.Exit(1)
	}

	first, err := firstSlideConfig(*firstSlide)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	gen := generator.New(generator.NewResolver(assets.FS, *timeout))
	doc, err := gen.Generate(ctx, t, c, models.OceanTheme, first)
	if err != nil {
		log.Fatal(err)
	}

	fileName := generator.SanitizeFileName(t.Name)
	if *name != "" {
		fileName = generator.SanitizeFileName(strings.TrimSuffix(*name, ".pptx"))
	}
	path, err := generator.ExportFile(doc, *outDir, fileName)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s (%d slides)\n", path, doc.SlideCount())

	if *outline {
		slides, err := generator.ReadOutline(path)
		if err != nil {
			log.Fatal(err)
		}
		for i, lines := range slides {
			fmt.Printf("%d.\n", i+1)
			for _, l := range lines {
				fmt.Printf("   %s\n", l)
			}
		}
	}
}

func loadSchema(path, id string) (models.TemplateSchema, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return models.TemplateSchema{}, err
		}
		return schema.Decode(filepath.Base(path), data)
	}
	for _, t := range schema.BuiltIn() {
		if t.ID == id {
			return t, nil
		}
	}
	return models.TemplateSchema{}, fmt.Errorf("%w: %q", schema.ErrTemplateNotFound, id)
}

// firstSlideConfig turns the -first-slide flag into a first slide setting. Local
// files are inlined as data URIs.
func firstSlideConfig(ref string) (*models.GlobalFirstSlide, error) {
	switch {
	case ref == "":
		return nil, nil
	case ref == "default":
		first := models.DefaultGlobalFirstSlide()
		return &first, nil
	case strings.HasPrefix(ref, "data:"), strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return &models.GlobalFirstSlide{Enabled: true, ImageDataURL: ref}, nil
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, err
	}
	uri := "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
	return &models.GlobalFirstSlide{Enabled: true, ImageDataURL: uri}, nil
}
