package processor

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/tiff"
)

// RasterLoader reads a raster file
type RasterLoader interface {
	Load(path string) (Raster, error)
}

// DecodeImage decodes a jpeg, png or tiff file
func DecodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("DecodeImage.Open: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("DecodeImage.Decode[%s]: %w", path, err)
	}
	return img, nil
}

// ImageLoader loads the files supported by DecodeImage.
// Gray images have one band, the others have three (red, green, blue).
type ImageLoader struct{}

func (ImageLoader) Load(path string) (Raster, error) {
	img, err := DecodeImage(path)
	if err != nil {
		return Raster{}, fmt.Errorf("ImageLoader.%w", err)
	}
	return FromImage(img), nil
}

// FromImage converts img into a raster
func FromImage(img image.Image) Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		r := NewRaster(w, h, 1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				r.Bands[0][y*w+x] = float64(g.Y)
			}
		}
		return r
	}
	r := NewRaster(w, h, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			r.Bands[0][y*w+x] = float64(c.R)
			r.Bands[1][y*w+x] = float64(c.G)
			r.Bands[2][y*w+x] = float64(c.B)
		}
	}
	return r
}
