package processor

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"strconv"
	"strings"
)

// Raster is a multi-band image. Each band holds Width*Height values in row-major order.
type Raster struct {
	Width  int
	Height int
	Bands  [][]float64
}

// NewRaster allocates a raster of nbands bands
func NewRaster(width, height, nbands int) Raster {
	r := Raster{Width: width, Height: height, Bands: make([][]float64, nbands)}
	for i := range r.Bands {
		r.Bands[i] = make([]float64, width*height)
	}
	return r
}

// BandIndices are the 1-based indices of the bands mapped to red, green and blue
type BandIndices [3]int

// DefaultBands is the natural color composite of Landsat 8-9
var DefaultBands = BandIndices{4, 3, 2}

// ParseBands parses "r,g,b" 1-based band indices
func ParseBands(s string) (BandIndices, error) {
	var b BandIndices
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return b, fmt.Errorf("ParseBands: expecting 3 bands, got '%s'", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 {
			return b, fmt.Errorf("ParseBands: invalid band '%s'", p)
		}
		b[i] = n
	}
	return b, nil
}

// Normalize scales the values linearly from [min, max] to [0, 255], truncating.
// min maps to 0 and max to 255.
// Non-finite values are ignored to compute the bounds and are mapped to 0.
// If all the finite values are equal, the result is all zeros.
func Normalize(values []float64) []uint8 {
	out := make([]uint8, len(values))
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if !(max > min) {
		return out
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = uint8((v - min) / (max - min) * 255)
	}
	return out
}

// Composite stacks the normalized bands of r into an RGB image
func Composite(r Raster, bands BandIndices) (*image.RGBA, error) {
	var channels [3][]uint8
	for c, b := range bands {
		if b < 1 || b > len(r.Bands) {
			return nil, fmt.Errorf("Composite: band %d out of range (%d bands)", b, len(r.Bands))
		}
		if len(r.Bands[b-1]) != r.Width*r.Height {
			return nil, fmt.Errorf("Composite: band %d has %d values, expected %dx%d", b, len(r.Bands[b-1]), r.Width, r.Height)
		}
		channels[c] = Normalize(r.Bands[b-1])
	}
	return stack(r.Width, r.Height, channels), nil
}

func stack(width, height int, channels [3][]uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		img.Pix[4*i] = channels[0][i]
		img.Pix[4*i+1] = channels[1][i]
		img.Pix[4*i+2] = channels[2][i]
		img.Pix[4*i+3] = 0xff
	}
	return img
}

// AlphaMask returns a copy of img where the pixels with red, green and blue equal to 0 are fully transparent.
// The other pixels keep their non-premultiplied values.
func AlphaMask(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R == 0 && c.G == 0 && c.B == 0 {
				c.A = 0
			}
			out.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return out
}

// SavePNG encodes img to path
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("SavePNG.Create: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("SavePNG.Encode: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("SavePNG.Close: %w", err)
	}
	return nil
}
