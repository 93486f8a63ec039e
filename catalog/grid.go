package catalog

import (
	"context"
	"fmt"

	"github.com/airbusgeo/landsat-acquirer/common"
	"github.com/airbusgeo/landsat-acquirer/service/log"
)

// ResolutionError is returned when the grid reference does not resolve to any coordinate
type ResolutionError struct {
	Ref common.GridRef
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no coordinate for WRS-2 path/row %s", e.Ref)
}

// GridResolver converts WRS-2 references into points
type GridResolver struct {
	Client Client
}

// Resolve returns the first coordinate returned by the service for ref
func (r GridResolver) Resolve(ctx context.Context, ref common.GridRef) (common.GeoPoint, error) {
	res, err := r.Client.Grid2LL(ctx, ref)
	if err != nil {
		return common.GeoPoint{}, fmt.Errorf("Resolve.%w", err)
	}
	if len(res.Coordinates) == 0 {
		return common.GeoPoint{}, fmt.Errorf("Resolve: %w", &ResolutionError{Ref: ref})
	}
	p := common.GeoPoint{Lat: res.Coordinates[0].Latitude, Lon: res.Coordinates[0].Longitude}
	log.Logger(ctx).Sugar().Debugf("path/row %s resolved to %s", ref, p)
	return p, nil
}
