package icon

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// placeholderColors are picked per label so an app keeps its color.
var placeholderColors = []color.RGBA{
	{R: 0x89, G: 0xb4, B: 0xfa, A: 0xff},
	{R: 0xa6, G: 0xe3, B: 0xa1, A: 0xff},
	{R: 0xf9, G: 0xe2, B: 0xaf, A: 0xff},
	{R: 0xf3, G: 0x8b, B: 0xa8, A: 0xff},
	{R: 0xcb, G: 0xa6, B: 0xf7, A: 0xff},
	{R: 0x94, G: 0xe2, B: 0xd5, A: 0xff},
}

var placeholderText = color.RGBA{R: 0x1e, G: 0x1e, B: 0x2e, A: 0xff}

// Initial returns the upper-cased first letter or digit of label, or "?".
func Initial(label string) string {
	for _, r := range label {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return strings.ToUpper(string(r))
		}
	}
	return "?"
}

// Placeholder draws a size x size tile with the label's initial, for apps
// whose icon cannot be found.
func Placeholder(label string, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	if size <= 0 {
		return dst
	}

	h := fnv.New32a()
	h.Write([]byte(label))
	bg := placeholderColors[h.Sum32()%uint32(len(placeholderColors))]
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	// Draw the glyph at the font's native size, then scale it up.
	face := basicfont.Face7x13
	text := Initial(label)
	if utf8.RuneCountInString(text) != 1 || !isASCII(text) {
		text = "?"
	}
	glyph := image.NewRGBA(image.Rect(0, 0, face.Advance, face.Height))
	d := &font.Drawer{
		Dst:  glyph,
		Src:  image.NewUniform(placeholderText),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: fixed.I(face.Ascent)},
	}
	d.DrawString(text)

	// The glyph fills about half the tile height.
	gh := max(1, size/2)
	gw := max(1, gh*face.Advance/face.Height)
	x0, y0 := (size-gw)/2, (size-gh)/2
	draw.ApproxBiLinear.Scale(dst, image.Rect(x0, y0, x0+gw, y0+gh), glyph, glyph.Bounds(), draw.Over, nil)
	return dst
}

// PlaceholderPNG encodes Placeholder as PNG.
func PlaceholderPNG(label string, size int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Placeholder(label, size)); err != nil {
		return nil, fmt.Errorf("failed to encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
