package geometry

import (
	"fmt"
	"strings"

	"github.com/go-spatial/geom"
	geomwkt "github.com/go-spatial/geom/encoding/wkt"
	"github.com/paulsmith/gogeos/geos"
)

var TOLERANCE_GEOG = 0.000001

func WKTUnion(wkts []string, tolerance float64) (string, error) {
	var geoms []*geos.Geometry
	for _, wkt := range wkts {
		geo, err := geos.FromWKT(wkt)
		if err != nil {
			return "", fmt.Errorf("WKTUnion.FromWKT: %w", err)
		}
		geoms = append(geoms, geo)
	}
	aoi, err := Union(geoms, tolerance)
	if err != nil {
		return "", fmt.Errorf("WKTUnion.%w", err)
	}
	wkt, err := aoi.ToWKT()
	if err != nil {
		return "", fmt.Errorf("WKTUnion.ToWKT: %w", err)
	}
	return wkt, nil
}

func Union(geoms []*geos.Geometry, tolerance float64) (*geos.Geometry, error) {
	aoi, err := UnaryUnion(geoms)
	if err == nil {
		if aoi, err = aoi.Simplify(tolerance); err != nil {
			return nil, fmt.Errorf("Union.Simplify: %w", err)
		}
		return aoi, nil
	}
	// Union all failed, retry one by one with simplify
	for _, geom := range geoms {
		if geom, err = geom.Simplify(tolerance); err != nil {
			return nil, fmt.Errorf("Union.Simplify: %w", err)
		}
		if aoi, err = geom.Union(aoi); err != nil {
			return nil, fmt.Errorf("Union: %w", err)
		}
	}
	return aoi, nil
}

func UnaryUnion(geoms []*geos.Geometry) (*geos.Geometry, error) {
	aoi, err := geos.NewCollection(geos.MULTIPOLYGON, geoms...)
	if err != nil {
		return nil, fmt.Errorf("UnaryUnion.NewCollection: %w", err)
	}
	if aoi, err = aoi.UnaryUnion(); err != nil {
		return nil, fmt.Errorf("UnaryUnion.UnaryUnion: %w", err)
	}
	return aoi, nil
}

// DefaultMargin is the half-size in degrees of the search rectangle built around a point
const DefaultMargin = 0.01

// BoundingBox returns the rectangle [lon-margin, lat-margin, lon+margin, lat+margin]
func BoundingBox(lon, lat, margin float64) *geom.Extent {
	return &geom.Extent{lon - margin, lat - margin, lon + margin, lat + margin}
}

// ExtentWKT returns the WKT polygon of the extent
func ExtentWKT(e *geom.Extent) string {
	return geomwkt.MustEncode(e.AsPolygon())
}

// Centroid returns the lon/lat centroid of the union of the WKT geometries
func Centroid(wkts ...string) (lon, lat float64, err error) {
	if len(wkts) == 0 {
		return 0, 0, fmt.Errorf("Centroid: no geometry")
	}
	wkt := wkts[0]
	if len(wkts) > 1 {
		if wkt, err = WKTUnion(wkts, TOLERANCE_GEOG); err != nil {
			return 0, 0, fmt.Errorf("Centroid.%w", err)
		}
	}
	g, err := geos.FromWKT(strings.TrimSpace(wkt))
	if err != nil {
		return 0, 0, fmt.Errorf("Centroid.FromWKT: %w", err)
	}
	if empty, err := g.IsEmpty(); err != nil {
		return 0, 0, fmt.Errorf("Centroid.IsEmpty: %w", err)
	} else if empty {
		return 0, 0, fmt.Errorf("Centroid: empty geometry")
	}
	c, err := g.Centroid()
	if err != nil {
		return 0, 0, fmt.Errorf("Centroid.Centroid: %w", err)
	}
	if lon, err = c.X(); err != nil {
		return 0, 0, fmt.Errorf("Centroid.X: %w", err)
	}
	if lat, err = c.Y(); err != nil {
		return 0, 0, fmt.Errorf("Centroid.Y: %w", err)
	}
	return lon, lat, nil
}
