// Package generator renders a template and its content into a .pptx presentation.
//
// Every slide starts with an accent bar in the theme's primary colour, then the
// recipe for its layout:
//
//	title          title and subtitle, centred
//	title+content  title and one body block (summary, else content)
//	title+bullets  title and a bulleted list
//	image-left     title, image at the left margin, bullets to its right
//	image-right    title, bullets at the left margin, image at the right margin
//	image-only     full-bleed image, no text
//	anything else  title and the first non-blank text field
//
// Empty text blocks hold a single space so every placeholder exists in the file.
// A missing image is left out.
package generator

import (
	"context"
	"fmt"
	"strings"

	ppt "github.com/VantageDataChat/GoPPT"

	"deck-backend/internal/content"
	"deck-backend/internal/models"
)

// Creator is written to the document properties of every deck.
const Creator = "deck-backend"

const bulletPrefix = "• "

// Generation stages reported by GenerationError.
const (
	OpResolveImage = "resolve image"
	OpBuild        = "build presentation"
	OpWrite        = "write presentation"
)

// GenerationError reports a failure while producing or saving a deck. Nothing is
// written when it is returned.
type GenerationError struct {
	Op      string
	SlideID string
	// Remote is set when the failing image was fetched over the network.
	Remote bool
	Err    error
}

func (e *GenerationError) Error() string {
	if e.SlideID != "" {
		return fmt.Sprintf("%s (slide %s): %v", e.Op, e.SlideID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator builds presentations. The zero value cannot resolve images; use New.
type Generator struct {
	images ImageResolver
}

func New(images ImageResolver) *Generator {
	return &Generator{images: images}
}

// Generate builds one slide per template slide, preceded by an image-only slide
// when first is visible. All images are resolved before any slide is built.
func (g *Generator) Generate(ctx context.Context, t models.TemplateSchema, c models.Content, theme models.Theme, first *models.GlobalFirstSlide) (*Document, error) {
	var cover *Image
	if first != nil && first.Visible() {
		img, err := g.resolve(ctx, "", first.ImageDataURL)
		if err != nil {
			return nil, err
		}
		cover = img
	}

	images := make(map[string]*Image, len(t.Slides))
	for _, def := range t.Slides {
		if !def.Layout.HasImage() {
			continue
		}
		ref := content.Image(c[def.ID])
		if ref == "" {
			continue
		}
		img, err := g.resolve(ctx, def.ID, ref)
		if err != nil {
			return nil, err
		}
		images[def.ID] = img
	}

	p := ppt.New()
	p.GetDocumentProperties().Title = t.Name
	p.GetDocumentProperties().Creator = Creator

	b := &builder{
		pres:   p,
		frame:  frameFor(t.Aspect),
		accent: models.ARGB(theme.Colors.Primary, "FF2563EB"),
		text:   models.ARGB(theme.Colors.Text, "FF111827"),
		muted:  "FF475569",
	}

	if cover != nil {
		slide := b.next()
		b.accentBar(slide)
		b.image(slide, b.frame.bleed(), cover, anchorCenter)
	}

	for _, def := range t.Slides {
		if err := ctx.Err(); err != nil {
			return nil, &GenerationError{Op: OpBuild, SlideID: def.ID, Err: err}
		}
		b.slide(def, c[def.ID], images[def.ID])
	}

	return &Document{pres: p, title: t.Name, slides: b.count}, nil
}

func (g *Generator) resolve(ctx context.Context, slideID, ref string) (*Image, error) {
	remote := strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
	if g.images == nil {
		return nil, &GenerationError{Op: OpResolveImage, SlideID: slideID, Remote: remote, Err: ErrUnsupportedImage}
	}
	img, err := g.images.Resolve(ctx, ref)
	if err != nil {
		return nil, &GenerationError{Op: OpResolveImage, SlideID: slideID, Remote: remote, Err: err}
	}
	return &img, nil
}

type builder struct {
	pres   *ppt.Presentation
	frame  frame
	accent string
	text   string
	muted  string
	count  int
}

// next returns the slide to draw on. ppt.New starts with one slide, which is used
// for the first output slide.
func (b *builder) next() *ppt.Slide {
	b.count++
	if b.count == 1 {
		return b.pres.GetActiveSlide()
	}
	return b.pres.CreateSlide()
}

func (b *builder) slide(def models.SlideDefinition, data models.SlideContent, img *Image) {
	slide := b.next()
	b.accentBar(slide)

	switch def.Layout {
	case models.LayoutTitle:
		b.textBlock(slide, b.frame.coverTitle(), content.Title(def, data), roleCoverTitle)
		b.textBlock(slide, b.frame.coverSubtitle(), content.Subtitle(data), roleSubtitle)
	case models.LayoutTitleContent:
		b.title(slide, def, data)
		b.textBlock(slide, b.frame.body(), content.Summary(data), roleBody)
	case models.LayoutTitleBullets:
		b.title(slide, def, data)
		b.bullets(slide, b.frame.body(), content.Bullets(data))
	case models.LayoutImageLeft:
		b.title(slide, def, data)
		text, box := b.frame.columns(true)
		b.bullets(slide, text, content.Bullets(data))
		b.image(slide, box, img, anchorLeft)
	case models.LayoutImageRight:
		b.title(slide, def, data)
		text, box := b.frame.columns(false)
		b.bullets(slide, text, content.Bullets(data))
		b.image(slide, box, img, anchorRight)
	case models.LayoutImageOnly:
		b.image(slide, b.frame.bleed(), img, anchorCenter)
	default:
		b.title(slide, def, data)
		b.textBlock(slide, b.frame.body(), content.Body(def, data), roleBody)
	}
}

func (b *builder) accentBar(slide *ppt.Slide) {
	bar := slide.CreateRichTextShape()
	bar.SetOffsetX(0).SetOffsetY(0)
	bar.SetWidth(slideWidth).SetHeight(accentHeight)
	bar.SetFill(ppt.NewFill().SetSolid(ppt.NewColor(b.accent)))
}

func (b *builder) title(slide *ppt.Slide, def models.SlideDefinition, data models.SlideContent) {
	b.textBlock(slide, b.frame.title(), content.Title(def, data), roleTitle)
}

// textRole selects the font and alignment of a text block.
type textRole int

const (
	roleCoverTitle textRole = iota
	roleSubtitle
	roleTitle
	roleBody
	roleBullet
)

func (b *builder) style(run *ppt.TextRun, role textRole) {
	font := run.GetFont()
	switch role {
	case roleCoverTitle:
		font.SetSize(fontCoverTitle).SetBold(true).SetColor(ppt.NewColor(b.text))
	case roleSubtitle:
		font.SetSize(fontSubtitle).SetColor(ppt.NewColor(b.muted))
	case roleTitle:
		font.SetSize(fontTitle).SetBold(true).SetColor(ppt.NewColor(b.text))
	case roleBullet:
		font.SetSize(fontBullet).SetColor(ppt.NewColor(b.text))
	default:
		font.SetSize(fontBody).SetColor(ppt.NewColor(b.text))
	}
}

func (b *builder) textBlock(slide *ppt.Slide, r rect, text string, role textRole) {
	shape := slide.CreateRichTextShape()
	shape.SetOffsetX(r.X).SetOffsetY(r.Y)
	shape.SetWidth(r.W).SetHeight(r.H)

	lines := strings.Split(blankAsSpace(text), "\n")
	for i, line := range lines {
		if i > 0 {
			shape.CreateParagraph()
		}
		b.style(shape.CreateTextRun(blankAsSpace(line)), role)
		if role == roleCoverTitle || role == roleSubtitle {
			shape.GetActiveParagraph().SetAlignment(ppt.NewAlignment().SetHorizontal(ppt.HorizontalCenter))
		}
	}
}

// bullets renders one paragraph per normalized item. With nothing left after
// normalization the block is a blank body.
func (b *builder) bullets(slide *ppt.Slide, r rect, items []string) {
	items = content.NormalizeBullets(items)
	if len(items) == 0 {
		b.textBlock(slide, r, "", roleBullet)
		return
	}

	shape := slide.CreateRichTextShape()
	shape.SetOffsetX(r.X).SetOffsetY(r.Y)
	shape.SetWidth(r.W).SetHeight(r.H)
	for i, item := range items {
		if i > 0 {
			shape.CreateParagraph()
		}
		b.style(shape.CreateTextRun(bulletPrefix+item), roleBullet)
	}
}

func (b *builder) image(slide *ppt.Slide, box rect, img *Image, a anchor) {
	if img == nil {
		return
	}
	r := fit(box, img.Width, img.Height, a)
	shape := slide.CreateDrawingShape()
	shape.SetImageData(img.Data, img.MIME)
	shape.SetOffsetX(r.X).SetOffsetY(r.Y)
	shape.SetWidth(r.W).SetHeight(r.H)
}

func blankAsSpace(s string) string {
	if strings.TrimSpace(s) == "" {
		return " "
	}
	return s
}
