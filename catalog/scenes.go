package catalog

import (
	"context"
	"fmt"

	"github.com/airbusgeo/landsat-acquirer/common"
	"github.com/airbusgeo/landsat-acquirer/interface/catalog/m2m"
	"github.com/airbusgeo/landsat-acquirer/service"
	"github.com/airbusgeo/landsat-acquirer/service/geometry"
	"github.com/airbusgeo/landsat-acquirer/service/log"
)

// SceneSearcher searches datasets and scenes, and turns the matching products into download grants.
// Nil policies and a zero margin are replaced by their defaults.
type SceneSearcher struct {
	Client        Client
	DatasetPolicy DatasetPolicy
	ProductPolicy ProductPolicy
	// Margin is the half-size in degrees of the rectangle searched around a point
	Margin float64
}

func (s *SceneSearcher) datasetPolicy() DatasetPolicy {
	if s.DatasetPolicy == nil {
		return DefaultDatasetPolicy()
	}
	return s.DatasetPolicy
}

func (s *SceneSearcher) productPolicy() ProductPolicy {
	if s.ProductPolicy == nil {
		return DefaultProductPolicy()
	}
	return s.ProductPolicy
}

func (s *SceneSearcher) margin() float64 {
	if s.Margin <= 0 {
		return geometry.DefaultMargin
	}
	return s.Margin
}

func (s *SceneSearcher) spatialFilter(ctx context.Context, p common.GeoPoint) *m2m.SpatialFilter {
	bbox := geometry.BoundingBox(p.Lon, p.Lat, s.margin())
	log.Logger(ctx).Sugar().Debugf("spatial filter: %s", geometry.ExtentWKT(bbox))
	return &m2m.SpatialFilter{
		FilterType: "mbr",
		LowerLeft:  m2m.Coordinate{Latitude: bbox.MinY(), Longitude: bbox.MinX()},
		UpperRight: m2m.Coordinate{Latitude: bbox.MaxY(), Longitude: bbox.MaxX()},
	}
}

// SearchDatasets lists the datasets named name covering the time window.
// If point is not nil, the datasets are also filtered spatially.
func (s *SceneSearcher) SearchDatasets(ctx context.Context, name string, tw common.TimeWindow, point *common.GeoPoint) ([]common.DatasetDescriptor, error) {
	req := m2m.DatasetSearchRequest{
		DatasetName:    name,
		TemporalFilter: m2m.NewDateRange(tw),
	}
	if point != nil {
		req.SpatialFilter = s.spatialFilter(ctx, *point)
	}
	datasets, err := s.Client.DatasetSearch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("SearchDatasets.%w", err)
	}
	log.Logger(ctx).Sugar().Debugf("%d datasets found for %s", len(datasets), name)
	return datasets, nil
}

// SelectDatasets returns the datasets accepted by the dataset policy
func (s *SceneSearcher) SelectDatasets(ctx context.Context, datasets []common.DatasetDescriptor) []common.DatasetDescriptor {
	var selected []common.DatasetDescriptor
	policy := s.datasetPolicy()
	for _, d := range datasets {
		if policy.AcceptDataset(d) {
			selected = append(selected, d)
		} else {
			log.Logger(ctx).Sugar().Debugf("dataset %s (%s) skipped", d.Alias, d.CollectionName)
		}
	}
	return selected
}

// SearchScenes lists the scenes of the dataset around point, in the time window, whose cloud cover is at most cloudCeiling.
func (s *SceneSearcher) SearchScenes(ctx context.Context, alias string, point common.GeoPoint, tw common.TimeWindow, cloudCeiling, maxResults int) (common.SceneSearchResult, error) {
	if cloudCeiling < 0 || cloudCeiling > 100 {
		return common.SceneSearchResult{}, fmt.Errorf("SearchScenes: cloud cover must be in [0, 100], got %d", cloudCeiling)
	}
	if maxResults <= 0 {
		return common.SceneSearchResult{}, fmt.Errorf("SearchScenes: max results must be positive, got %d", maxResults)
	}
	req := m2m.SceneSearchRequest{
		DatasetName:    alias,
		MaxResults:     maxResults,
		StartingNumber: 1,
		SceneFilter: m2m.SceneFilter{
			AcquisitionFilter: m2m.NewDateRange(tw),
			SpatialFilter:     s.spatialFilter(ctx, point),
			CloudCoverFilter:  &m2m.CloudCoverFilter{Min: 0, Max: cloudCeiling},
			BrowseOnly:        true,
		},
	}
	res, err := s.Client.SceneSearch(ctx, req)
	if err != nil {
		return res, fmt.Errorf("SearchScenes.%w", err)
	}
	res.Results = removeDoubleEntries(res.Results)
	log.Logger(ctx).Sugar().Infof("%s: %d scenes returned (%d hits) around %s during %s", alias, len(res.Results), res.TotalHits, point, tw)
	return res, nil
}

// removeDoubleEntries keeps the first occurrence of each entity
func removeDoubleEntries(scenes []common.SceneResult) []common.SceneResult {
	ids := service.StringSet{}
	res := scenes[:0:0]
	for _, s := range scenes {
		if ids.Exists(s.EntityID) {
			continue
		}
		ids.Push(s.EntityID)
		res = append(res, s)
	}
	return res
}
