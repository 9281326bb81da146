package tui

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const halfBlock = "▀"

// renderPreview draws image data as terminal cells. Each cell shows two
// vertically stacked pixels: the upper one as the foreground of a half block
// and the lower one as the background. The image is scaled to fit within
// cols x rows cells keeping its aspect ratio.
func renderPreview(data []byte, cols, rows int) (string, error) {
	if cols <= 0 || rows <= 0 {
		return "", nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}

	w, h := fitSize(src.Bounds().Dx(), src.Bounds().Dy(), cols, rows*2)
	if w == 0 || h == 0 {
		return "", nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var sb strings.Builder
	for y := 0; y < h; y += 2 {
		for x := 0; x < w; x++ {
			style := lipgloss.NewStyle().Foreground(hexColor(dst, x, y))
			if y+1 < h {
				style = style.Background(hexColor(dst, x, y+1))
			}
			sb.WriteString(style.Render(halfBlock))
		}
		if y+2 < h {
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// fitSize scales w x h down to fit maxW x maxH, keeping the aspect ratio.
// The height is rounded to an even number of pixels.
func fitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	outW, outH := maxW, h*maxW/w
	if outH > maxH {
		outW, outH = w*maxH/h, maxH
	}
	if outH%2 == 1 {
		outH--
	}
	if outW < 1 || outH < 2 {
		return 0, 0
	}
	return outW, outH
}

func hexColor(img *image.RGBA, x, y int) lipgloss.Color {
	c := img.RGBAAt(x, y)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
