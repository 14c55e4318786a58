package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

type iconKind int

const (
	iconIdle iconKind = iota
	iconRecording
	iconBusy
	iconError
)

var icons = map[iconKind][]byte{}

var (
	red   = color.RGBA{R: 255, G: 59, B: 48, A: 255}
	amber = color.RGBA{R: 255, G: 159, B: 10, A: 255}
)

func init() {
	const size = 44
	dotR := size / 6.5
	icons[iconIdle] = platformIcon(renderIcon(size, nil, 0))
	icons[iconRecording] = platformIcon(renderIcon(size, &red, dotR))
	icons[iconBusy] = platformIcon(renderIcon(size, &amber, dotR))
	icons[iconError] = platformIcon(renderWarnIcon(size, &red, dotR))
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("encodePNG: " + err.Error())
	}
	return buf.Bytes()
}

// drawCircle paints a black disc with an optional colored center dot.
func drawCircle(img *image.RGBA, size int, dot *color.RGBA, dotR float64) {
	c := float64(size) / 2
	r := c - 1
	for y := range size {
		for x := range size {
			d := math.Hypot(float64(x)+0.5-c, float64(y)+0.5-c)
			switch {
			case dot != nil && d <= dotR:
				img.Set(x, y, dot)
			case d <= r:
				img.Set(x, y, color.Black)
			}
		}
	}
}

func renderIcon(size int, dot *color.RGBA, dotR float64) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	drawCircle(img, size, dot, dotR)
	return encodePNG(img)
}

// renderWarnIcon adds a yellow "!" badge in the bottom-right corner.
func renderWarnIcon(size int, dot *color.RGBA, dotR float64) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	drawCircle(img, size, dot, dotR)

	s := float64(size)
	badgeR := s * 0.34
	cx, cy := s-badgeR+0.5, s-badgeR+0.5
	dark := color.RGBA{R: 40, G: 40, B: 40, A: 255}
	yellow := color.RGBA{R: 255, G: 204, B: 0, A: 255}
	halfWidth := badgeR * 0.24

	for y := range size {
		for x := range size {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			if math.Hypot(fx-cx, fy-cy) > badgeR {
				continue
			}
			ly := (fy - (cy - badgeR*0.7)) / (badgeR * 1.4)
			lx := math.Abs(fx - cx)
			bar := lx <= halfWidth && ly >= 0.1 && ly <= 0.62
			point := lx <= halfWidth && ly >= 0.72 && ly <= 0.85
			if bar || point {
				img.Set(x, y, dark)
			} else {
				img.Set(x, y, yellow)
			}
		}
	}
	return encodePNG(img)
}
