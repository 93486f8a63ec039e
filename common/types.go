package common

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the date format of the catalog temporal filters
const DateLayout = "2006-01-02"

// GeoPoint is a latitude/longitude pair in degrees
type GeoPoint struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// GridRef is a WRS-2 path/row reference
type GridRef struct {
	Path int `json:"path"`
	Row  int `json:"row"`
}

func (g GridRef) String() string {
	return fmt.Sprintf("%03d/%03d", g.Path, g.Row)
}

// TimeWindow is an acquisition interval. Bounds are compared at day precision.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// NewTimeWindow returns a window between start and end. A zero end means today.
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		return TimeWindow{}, fmt.Errorf("NewTimeWindow: start date is required")
	}
	if end.Before(start) {
		return TimeWindow{}, fmt.Errorf("NewTimeWindow: end date %s is before start date %s", end.Format(DateLayout), start.Format(DateLayout))
	}
	return TimeWindow{Start: start, End: end}, nil
}

func (w TimeWindow) String() string {
	return w.Start.Format(DateLayout) + "/" + w.End.Format(DateLayout)
}

// DatasetDescriptor is a dataset returned by the catalog
type DatasetDescriptor struct {
	Alias          string `json:"datasetAlias"`
	CollectionName string `json:"collectionName"`
	DatasetID      string `json:"datasetId,omitempty"`
	Abstract       string `json:"abstractText,omitempty"`
}

// SceneResult is a scene matching a search
type SceneResult struct {
	EntityID        string      `json:"entityId"`
	DisplayID       string      `json:"displayId"`
	CloudCover      json.Number `json:"cloudCover"`
	AcquisitionDate string      `json:"acquisitionDate,omitempty"`
}

// SceneSearchResult holds the scenes and the search metadata
type SceneSearchResult struct {
	RecordsReturned int           `json:"recordsReturned"`
	TotalHits       int           `json:"totalHits"`
	Results         []SceneResult `json:"results"`
}

// EntityIDs returns the entity ids of the results
func (r SceneSearchResult) EntityIDs() []string {
	ids := make([]string, 0, len(r.Results))
	for _, s := range r.Results {
		ids = append(ids, s.EntityID)
	}
	return ids
}

// DownloadOption is a product that may be requested for a scene
type DownloadOption struct {
	ID           string `json:"id"`
	EntityID     string `json:"entityId"`
	DisplayID    string `json:"displayId"`
	Available    bool   `json:"available"`
	DownloadName string `json:"downloadName"`
	ProductName  string `json:"productName"`
	Filesize     int64  `json:"filesize"`
}

// DownloadGrant is an entity/product pair authorized for transfer
type DownloadGrant struct {
	EntityID  string `json:"entityId"`
	ProductID string `json:"productId"`
}

// FetchTask is one asset to transfer
type FetchTask struct {
	URL        string
	DownloadID string
	DestDir    string
}
