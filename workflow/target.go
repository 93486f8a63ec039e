package workflow

import (
	"fmt"
	"strings"

	"github.com/airbusgeo/landsat-acquirer/common"
)

// Target is the geographic target of a run. Exactly one of its fields must be set.
type Target struct {
	Grid  *common.GridRef
	Point *common.GeoPoint
	// WKT is an area of interest. Scenes are searched around its centroid.
	WKT string
}

// GridTarget targets a WRS-2 path/row
func GridTarget(path, row int) Target {
	return Target{Grid: &common.GridRef{Path: path, Row: row}}
}

// PointTarget targets a latitude/longitude
func PointTarget(lat, lon float64) Target {
	return Target{Point: &common.GeoPoint{Lat: lat, Lon: lon}}
}

// AOITarget targets the centroid of an area
func AOITarget(wkt string) Target {
	return Target{WKT: wkt}
}

// Validate checks that exactly one target is defined and that it is in range
func (t Target) Validate() error {
	n := 0
	if t.Grid != nil {
		n++
		if t.Grid.Path < 1 || t.Grid.Path > 233 || t.Grid.Row < 1 || t.Grid.Row > 248 {
			return fmt.Errorf("Validate: invalid WRS-2 path/row %s", t.Grid)
		}
	}
	if t.Point != nil {
		n++
		if t.Point.Lat < -90 || t.Point.Lat > 90 || t.Point.Lon < -180 || t.Point.Lon > 180 {
			return fmt.Errorf("Validate: invalid point %s", t.Point)
		}
	}
	if strings.TrimSpace(t.WKT) != "" {
		n++
	}
	if n != 1 {
		return fmt.Errorf("Validate: exactly one of grid, point or aoi must be defined (%d found)", n)
	}
	return nil
}

func (t Target) String() string {
	switch {
	case t.Grid != nil:
		return "path/row " + t.Grid.String()
	case t.Point != nil:
		return "point " + t.Point.String()
	default:
		return "aoi"
	}
}
