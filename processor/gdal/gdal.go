// Package gdal loads multi-band rasters with GDAL
package gdal

import (
	"fmt"
	"math"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/landsat-acquirer/processor"
)

var registerOnce sync.Once

// Loader implements processor.RasterLoader for any format supported by GDAL.
// Nodata values are loaded as NaN.
type Loader struct{}

// NewLoader registers the GDAL drivers and returns a loader
func NewLoader() Loader {
	registerOnce.Do(godal.RegisterAll)
	return Loader{}
}

func (Loader) Load(path string) (processor.Raster, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return processor.Raster{}, fmt.Errorf("Load.Open: %w", err)
	}
	defer ds.Close()

	st := ds.Structure()
	r := processor.NewRaster(st.SizeX, st.SizeY, st.NBands)
	for i, band := range ds.Bands() {
		if err := band.Read(0, 0, r.Bands[i], st.SizeX, st.SizeY); err != nil {
			return processor.Raster{}, fmt.Errorf("Load.Read[band %d]: %w", i+1, err)
		}
		if nodata, ok := band.NoData(); ok {
			for j, v := range r.Bands[i] {
				if v == nodata {
					r.Bands[i][j] = math.NaN()
				}
			}
		}
	}
	return r, nil
}
