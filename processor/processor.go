package processor

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/airbusgeo/landsat-acquirer/common"
	"github.com/airbusgeo/landsat-acquirer/interface/provider"
	"github.com/airbusgeo/landsat-acquirer/service/log"
)

// ProcessingError is returned when a fetched file cannot be post-processed
type ProcessingError struct {
	Path string
	Err  error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Expander extracts archives
type Expander interface {
	IsArchive(path string) bool
	Expand(ctx context.Context, archive, destDir string) ([]string, error)
}

// DefaultCompositeName is the name pattern of the composite of an archive.
// {NAME} is the name of the raster without band suffix and extension. The keys of common.Info are also available.
const DefaultCompositeName = "{NAME}_rgb.png"

var browseExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".tif": true, ".tiff": true}

var bandFile = regexp.MustCompile(`^(.+)_B(\d{1,2})\.(?i:tiff?)$`)

// Processor post-processes fetched files.
// Archives are expanded and their rasters composited to RGB.
// Browse images are masked (black pixels become transparent).
type Processor struct {
	Loader        RasterLoader
	Expander      Expander
	Bands         BandIndices
	CompositeName string
}

// NewProcessor returns a processor with the default bands, using loader (ImageLoader if nil)
func NewProcessor(loader RasterLoader) *Processor {
	if loader == nil {
		loader = ImageLoader{}
	}
	return &Processor{
		Loader:        loader,
		Expander:      provider.ArchiveExpander{},
		Bands:         DefaultBands,
		CompositeName: DefaultCompositeName,
	}
}

// Process dispatches path according to its type and returns the paths of the outputs
func (p *Processor) Process(ctx context.Context, path string) ([]string, error) {
	if p.Expander != nil && p.Expander.IsArchive(path) {
		rasters, err := p.Expander.Expand(ctx, path, provider.ExtractDir(path))
		if err != nil {
			return nil, &ProcessingError{Path: path, Err: err}
		}
		outputs, err := p.CompositeRasters(ctx, rasters)
		if err != nil {
			return nil, &ProcessingError{Path: path, Err: err}
		}
		return outputs, nil
	}
	if browseExtensions[strings.ToLower(filepath.Ext(path))] {
		output, err := p.MaskBrowse(ctx, path)
		if err != nil {
			return nil, &ProcessingError{Path: path, Err: err}
		}
		return []string{output}, nil
	}
	return nil, &ProcessingError{Path: path, Err: fmt.Errorf("unsupported file type")}
}

// MaskedName returns the path of the masked version of a browse image:
// <name>.png, or <name>_masked.png if the browse image is already a png.
func MaskedName(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if strings.EqualFold(ext, ".png") {
		return base + "_masked.png"
	}
	return base + ".png"
}

// MaskBrowse writes the masked version of the image alongside (see MaskedName)
func (p *Processor) MaskBrowse(ctx context.Context, path string) (string, error) {
	img, err := DecodeImage(path)
	if err != nil {
		return "", fmt.Errorf("MaskBrowse.%w", err)
	}
	output := MaskedName(path)
	if err := SavePNG(AlphaMask(img), output); err != nil {
		return "", fmt.Errorf("MaskBrowse.%w", err)
	}
	log.Logger(ctx).Sugar().Infof("%s masked to %s", filepath.Base(path), filepath.Base(output))
	return output, nil
}

// CompositeRasters composites the single-band files (<name>_B<n>.TIF) sharing the same name
// and every other raster as a multi-band file.
func (p *Processor) CompositeRasters(ctx context.Context, rasters []string) ([]string, error) {
	groups := map[string]map[string]string{}
	var multiband []string
	for _, r := range rasters {
		m := bandFile.FindStringSubmatch(r)
		if m == nil {
			multiband = append(multiband, r)
			continue
		}
		band, _ := strconv.Atoi(m[2])
		if groups[m[1]] == nil {
			groups[m[1]] = map[string]string{}
		}
		groups[m[1]][common.BandSuffix(band)] = r
	}

	var outputs []string
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var files [3]string
		complete := true
		for i, b := range p.Bands {
			if files[i] = groups[name][common.BandSuffix(b)]; files[i] == "" {
				complete = false
			}
		}
		if !complete {
			log.Logger(ctx).Sugar().Warnf("%s: bands %v not all available", filepath.Base(name), p.Bands)
			continue
		}
		img, err := CompositeBandFiles(p.Loader, files)
		if err != nil {
			return outputs, fmt.Errorf("CompositeRasters.%w", err)
		}
		output, err := p.save(ctx, name, img)
		if err != nil {
			return outputs, fmt.Errorf("CompositeRasters.%w", err)
		}
		outputs = append(outputs, output)
	}

	for _, r := range multiband {
		raster, err := p.Loader.Load(r)
		if err != nil {
			return outputs, fmt.Errorf("CompositeRasters.%w", err)
		}
		img, err := Composite(raster, p.Bands)
		if err != nil {
			return outputs, fmt.Errorf("CompositeRasters[%s].%w", filepath.Base(r), err)
		}
		output, err := p.save(ctx, strings.TrimSuffix(r, filepath.Ext(r)), img)
		if err != nil {
			return outputs, fmt.Errorf("CompositeRasters.%w", err)
		}
		outputs = append(outputs, output)
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("CompositeRasters: no raster to composite with bands %v", p.Bands)
	}
	return outputs, nil
}

func (p *Processor) save(ctx context.Context, name string, img image.Image) (string, error) {
	pattern := p.CompositeName
	if pattern == "" {
		pattern = DefaultCompositeName
	}
	base := filepath.Base(name)
	info, err := common.Info(base)
	if err != nil {
		info = map[string]string{}
	} else if date, err := common.GetDateFromProductID(base); err == nil {
		log.Logger(ctx).Sugar().Debugf("%s: path %s row %s acquired on %s", base, info["PATH"], info["ROW"], date.Format(common.DateLayout))
	}
	output := filepath.Join(filepath.Dir(name), common.FormatBrackets(pattern, map[string]string{"NAME": base}, info))
	if err := SavePNG(img, output); err != nil {
		return "", err
	}
	log.Logger(ctx).Sugar().Infof("composite %v saved to %s", p.Bands, filepath.Base(output))
	return output, nil
}

// CompositeBandFiles stacks the first band of the red, green and blue files
func CompositeBandFiles(loader RasterLoader, files [3]string) (*image.RGBA, error) {
	var channels [3][]uint8
	var width, height int
	for i, f := range files {
		r, err := loader.Load(f)
		if err != nil {
			return nil, fmt.Errorf("CompositeBandFiles.%w", err)
		}
		if len(r.Bands) == 0 {
			return nil, fmt.Errorf("CompositeBandFiles: %s has no band", filepath.Base(f))
		}
		if i == 0 {
			width, height = r.Width, r.Height
		} else if r.Width != width || r.Height != height {
			return nil, fmt.Errorf("CompositeBandFiles: %s is %dx%d, expected %dx%d", filepath.Base(f), r.Width, r.Height, width, height)
		}
		channels[i] = Normalize(r.Bands[0])
	}
	return stack(width, height, channels), nil
}
