package generator

import "deck-backend/internal/models"

// Slide canvas, 16:9 widescreen. Positions are EMU.
const (
	emuPerInch = 914400

	slideWidth  = int64(10.0 * emuPerInch)
	slideHeight = int64(5.625 * emuPerInch)

	// 4:3 decks are laid out in a centred box of this width.
	standardWidth = int64(7.5 * emuPerInch)

	accentHeight = int64(0.08 * emuPerInch)
	margin       = int64(0.5 * emuPerInch)
	columnGap    = int64(0.3 * emuPerInch)

	titleTop    = int64(0.35 * emuPerInch)
	titleHeight = int64(0.75 * emuPerInch)
	bodyTop     = int64(1.35 * emuPerInch)
	bodyBottom  = int64(5.2 * emuPerInch)

	// title slides centre the title block vertically
	coverTitleTop    = int64(1.8 * emuPerInch)
	coverTitleHeight = int64(1.0 * emuPerInch)
	coverSubTop      = int64(2.9 * emuPerInch)
	coverSubHeight   = int64(0.6 * emuPerInch)
)

// Font sizes (pt).
const (
	fontCoverTitle = 36
	fontTitle      = 28
	fontSubtitle   = 18
	fontBody       = 16
	fontBullet     = 18
)

// rect is a placement on the slide in EMU.
type rect struct {
	X, Y, W, H int64
}

// frame is the horizontal band a deck is laid out in.
type frame struct {
	Left  int64
	Width int64
}

func frameFor(a models.Aspect) frame {
	switch a {
	case models.AspectStandard:
		return frame{Left: (slideWidth - standardWidth) / 2, Width: standardWidth}
	case models.AspectWide:
		return frame{Left: 0, Width: slideWidth}
	default:
		return frame{Left: 0, Width: slideWidth}
	}
}

func (f frame) inner() (left, width int64) {
	return f.Left + margin, f.Width - 2*margin
}

func (f frame) title() rect {
	x, w := f.inner()
	return rect{X: x, Y: titleTop, W: w, H: titleHeight}
}

func (f frame) body() rect {
	x, w := f.inner()
	return rect{X: x, Y: bodyTop, W: w, H: bodyBottom - bodyTop}
}

func (f frame) coverTitle() rect {
	x, w := f.inner()
	return rect{X: x, Y: coverTitleTop, W: w, H: coverTitleHeight}
}

func (f frame) coverSubtitle() rect {
	x, w := f.inner()
	return rect{X: x, Y: coverSubTop, W: w, H: coverSubHeight}
}

// columns splits the body into a text column and an image column. With imageLeft
// the image column starts at the left margin, otherwise it ends at the right margin.
func (f frame) columns(imageLeft bool) (text, image rect) {
	body := f.body()
	textW := (body.W - columnGap) * 55 / 100
	imageW := body.W - columnGap - textW
	if imageLeft {
		image = rect{X: body.X, Y: body.Y, W: imageW, H: body.H}
		text = rect{X: body.X + imageW + columnGap, Y: body.Y, W: textW, H: body.H}
		return text, image
	}
	text = rect{X: body.X, Y: body.Y, W: textW, H: body.H}
	image = rect{X: body.X + textW + columnGap, Y: body.Y, W: imageW, H: body.H}
	return text, image
}

// bleed is the whole frame below the accent bar.
func (f frame) bleed() rect {
	return rect{X: f.Left, Y: accentHeight, W: f.Width, H: slideHeight - accentHeight}
}

type anchor int

const (
	anchorCenter anchor = iota
	anchorLeft
	anchorRight
)

// fit scales a w×h image to fit inside box, keeping its aspect ratio. The image is
// centred vertically and placed horizontally by a. Unknown dimensions fill the box.
func fit(box rect, w, h int, a anchor) rect {
	if w <= 0 || h <= 0 {
		return box
	}
	scaledW := box.W
	scaledH := box.W * int64(h) / int64(w)
	if scaledH > box.H {
		scaledH = box.H
		scaledW = box.H * int64(w) / int64(h)
	}
	x := box.X + (box.W-scaledW)/2
	switch a {
	case anchorLeft:
		x = box.X
	case anchorRight:
		x = box.X + box.W - scaledW
	case anchorCenter:
	}
	return rect{
		X: x,
		Y: box.Y + (box.H-scaledH)/2,
		W: scaledW,
		H: scaledH,
	}
}
