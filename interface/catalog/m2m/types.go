package m2m

import (
	"encoding/json"

	"github.com/airbusgeo/landsat-acquirer/common"
)

// Endpoints
const (
	EndpointLoginToken      = "login-token"
	EndpointLogout          = "logout"
	EndpointGrid2LL         = "grid2ll"
	EndpointDatasetSearch   = "dataset-search"
	EndpointSceneSearch     = "scene-search"
	EndpointDownloadOptions = "download-options"
	EndpointDownloadRequest = "download-request"
)

type envelope struct {
	RequestID    json.RawMessage `json:"requestId"`
	Version      string          `json:"version"`
	Data         json.RawMessage `json:"data"`
	ErrorCode    *string         `json:"errorCode"`
	ErrorMessage *string         `json:"errorMessage"`
}

type LoginTokenRequest struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type Grid2LLRequest struct {
	GridType      string `json:"gridType"`
	Path          string `json:"path"`
	Row           string `json:"row"`
	ResponseShape string `json:"responseShape"`
}

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Grid2LLResponse struct {
	Shape       string       `json:"shape,omitempty"`
	Coordinates []Coordinate `json:"coordinates"`
}

// DateRange is serialized with the YYYY-MM-DD layout
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// NewDateRange formats the time window
func NewDateRange(tw common.TimeWindow) DateRange {
	return DateRange{
		Start: tw.Start.Format(common.DateLayout),
		End:   tw.End.Format(common.DateLayout),
	}
}

// SpatialFilter is a minimum bounding rectangle filter
type SpatialFilter struct {
	FilterType string     `json:"filterType"`
	LowerLeft  Coordinate `json:"lowerLeft"`
	UpperRight Coordinate `json:"upperRight"`
}

type DatasetSearchRequest struct {
	DatasetName    string         `json:"datasetName"`
	TemporalFilter DateRange      `json:"temporalFilter"`
	SpatialFilter  *SpatialFilter `json:"spatialFilter,omitempty"`
}

type CloudCoverFilter struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type SceneFilter struct {
	AcquisitionFilter DateRange         `json:"acquisitionFilter"`
	SpatialFilter     *SpatialFilter    `json:"spatialFilter,omitempty"`
	CloudCoverFilter  *CloudCoverFilter `json:"cloudCoverFilter,omitempty"`
	// BrowseOnly restricts the results to the scenes having browse products
	BrowseOnly bool `json:"browseOnly"`
}

type SceneSearchRequest struct {
	DatasetName    string      `json:"datasetName"`
	MaxResults     int         `json:"maxResults"`
	StartingNumber int         `json:"startingNumber"`
	SceneFilter    SceneFilter `json:"sceneFilter"`
}

type DownloadOptionsRequest struct {
	DatasetName                string   `json:"datasetName"`
	EntityIDs                  []string `json:"entityIds"`
	IncludeSecondaryFileGroups bool     `json:"includeSecondaryFileGroups"`
}

type DownloadRequestRequest struct {
	Downloads []common.DownloadGrant `json:"downloads"`
	Label     string                 `json:"label"`
}

type AvailableDownload struct {
	DownloadID json.Number `json:"downloadId"`
	URL        string      `json:"url"`
}

type DownloadRequestResponse struct {
	AvailableDownloads []AvailableDownload `json:"availableDownloads"`
	PreparingDownloads []json.RawMessage   `json:"preparingDownloads"`
	FailedDownloads    []json.RawMessage   `json:"failed"`
}
