package ui

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// RotatedLabel shows text rotated 90° counter-clockwise, used for panel
// captions beside the band sliders. The bitmap is rendered on SetText only.
type RotatedLabel struct {
	text string
	col  color.Color
	img  *canvas.Image
}

// NewRotatedLabel creates a rotated caption in the theme foreground colour.
func NewRotatedLabel(text string) *RotatedLabel {
	r := &RotatedLabel{col: theme.ForegroundColor()}
	r.img = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	r.img.FillMode = canvas.ImageFillContain
	r.SetText(text)
	return r
}

// CanvasObject exposes the underlying canvas.Image for layout containers.
func (r *RotatedLabel) CanvasObject() fyne.CanvasObject { return r.img }

// Text returns the caption.
func (r *RotatedLabel) Text() string { return r.text }

// SetText re-renders the caption when it changed.
func (r *RotatedLabel) SetText(text string) {
	if text == r.text && r.img.Image != nil && r.img.Image.Bounds().Dx() > 1 {
		return
	}
	r.text = text
	face := pickFace()
	if closer, ok := face.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	out := rotateCCW(rasterize(face, text, r.col))
	r.img.Image = out
	r.img.SetMinSize(fyne.NewSize(float32(out.Bounds().Dx()), float32(out.Bounds().Dy())))
	r.img.Refresh()
}

// rasterize draws text on a transparent bitmap with padding around it to
// avoid glyph clipping.
func rasterize(face font.Face, text string, col color.Color) *image.RGBA {
	const pad = 8
	d := &font.Drawer{Face: face}
	metrics := face.Metrics()
	w := max(int(d.MeasureString(text)>>6)+pad, 2)
	h := max(int((metrics.Ascent+metrics.Descent)>>6)+pad, 2)

	src := image.NewRGBA(image.Rect(0, 0, w, h))
	d.Dst = src
	d.Src = image.NewUniform(color.NRGBAModel.Convert(col))
	d.Dot = fixed.P(pad/2, int(metrics.Ascent>>6)+pad/2)
	d.DrawString(text)
	return src
}

// rotateCCW turns src 90° counter-clockwise; a w×h image becomes h×w.
func rotateCCW(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for dy := 0; dy < w; dy++ {
		for dx := 0; dx < h; dx++ {
			dst.SetRGBA(dx, dy, src.RGBAAt(b.Min.X+w-1-dy, b.Min.Y+dx))
		}
	}
	return dst
}

// pickFace loads the current theme font and falls back to a bitmap face.
func pickFace() font.Face {
	pt := float64(theme.TextSize())
	if pt <= 0 {
		pt = 14
	}
	pt *= currentScale() * 0.75
	if pt < 6 {
		pt = 6
	}
	if res := theme.TextFont(); res != nil {
		if data := res.Content(); len(data) > 0 {
			if ttf, err := opentype.Parse(data); err == nil {
				if face, err := opentype.NewFace(ttf, &opentype.FaceOptions{Size: pt, DPI: 96, Hinting: font.HintingFull}); err == nil {
					return face
				}
			}
		}
	}
	return basicfont.Face7x13
}
