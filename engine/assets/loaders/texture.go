package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// TextureData is a decoded image plus its downscaled mip chain, all in
// tightly packed RGBA.
type TextureData struct {
	Width        uint32
	Height       uint32
	ChannelCount uint8
	// Mips[0] is the full-resolution image, each following level halves
	// both dimensions (clamped at 1).
	Mips [][]byte
}

// MipLevels reports the length of the chain.
func (td *TextureData) MipLevels() uint32 {
	return uint32(len(td.Mips))
}

type TextureLoader struct {
	// Generate the full mip chain down to 1x1. When false only level 0 is
	// produced.
	GenerateMips bool
}

func (tl *TextureLoader) Load(path string) (*TextureData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture %s: %w", path, err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	full := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(full, full.Bounds(), src, bounds.Min, draw.Src)

	td := &TextureData{
		Width:        uint32(w),
		Height:       uint32(h),
		ChannelCount: 4,
		Mips:         [][]byte{full.Pix},
	}
	if !tl.GenerateMips {
		return td, nil
	}

	prev := full
	for w > 1 || h > 1 {
		w = max(w/2, 1)
		h = max(h/2, 1)
		level := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(level, level.Bounds(), prev, prev.Bounds(), draw.Src, nil)
		td.Mips = append(td.Mips, level.Pix)
		prev = level
	}
	return td, nil
}
