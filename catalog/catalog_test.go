package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/airbusgeo/landsat-acquirer/common"
	"github.com/airbusgeo/landsat-acquirer/interface/catalog/m2m"
)

type fakeClient struct {
	coordinates []m2m.Coordinate
	datasets    []common.DatasetDescriptor
	scenes      common.SceneSearchResult
	options     []common.DownloadOption
	downloads   m2m.DownloadRequestResponse
	err         error

	sceneReq    *m2m.SceneSearchRequest
	datasetReq  *m2m.DatasetSearchRequest
	optionsReq  *m2m.DownloadOptionsRequest
	downloadReq *m2m.DownloadRequestRequest
}

func (f *fakeClient) Grid2LL(ctx context.Context, ref common.GridRef) (m2m.Grid2LLResponse, error) {
	return m2m.Grid2LLResponse{Coordinates: f.coordinates}, f.err
}

func (f *fakeClient) DatasetSearch(ctx context.Context, req m2m.DatasetSearchRequest) ([]common.DatasetDescriptor, error) {
	f.datasetReq = &req
	return f.datasets, f.err
}

func (f *fakeClient) SceneSearch(ctx context.Context, req m2m.SceneSearchRequest) (common.SceneSearchResult, error) {
	f.sceneReq = &req
	return f.scenes, f.err
}

func (f *fakeClient) DownloadOptions(ctx context.Context, req m2m.DownloadOptionsRequest) ([]common.DownloadOption, error) {
	f.optionsReq = &req
	return f.options, f.err
}

func (f *fakeClient) DownloadRequest(ctx context.Context, req m2m.DownloadRequestRequest) (m2m.DownloadRequestResponse, error) {
	f.downloadReq = &req
	return f.downloads, f.err
}

func timeWindow(t *testing.T) common.TimeWindow {
	tw, err := common.NewTimeWindow(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	return tw
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	c := &fakeClient{coordinates: []m2m.Coordinate{{Latitude: 23.8, Longitude: 90.4}, {Latitude: 0, Longitude: 0}}}
	p, err := GridResolver{Client: c}.Resolve(ctx, common.GridRef{Path: 137, Row: 44})
	if err != nil {
		t.Fatal(err)
	}
	if p.Lat != 23.8 || p.Lon != 90.4 {
		t.Errorf("unexpected point %v", p)
	}

	c.coordinates = nil
	_, err = GridResolver{Client: c}.Resolve(ctx, common.GridRef{Path: 999, Row: 999})
	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("expecting a ResolutionError, got %v", err)
	}
	if rerr.Ref.Path != 999 {
		t.Errorf("unexpected ref %v", rerr.Ref)
	}

	c.err = errors.New("down")
	if _, err = (GridResolver{Client: c}).Resolve(ctx, common.GridRef{}); err == nil || errors.As(err, &rerr) {
		t.Errorf("expecting transport error, got %v", err)
	}
}

func TestSearchScenes(t *testing.T) {
	c := &fakeClient{scenes: common.SceneSearchResult{
		RecordsReturned: 3,
		TotalHits:       3,
		Results:         []common.SceneResult{{EntityID: "E1"}, {EntityID: "E2"}, {EntityID: "E1"}},
	}}
	s := SceneSearcher{Client: c}
	p := common.GeoPoint{Lat: 23.8, Lon: 90.4}
	res, err := s.SearchScenes(context.Background(), DefaultDatasetAlias, p, timeWindow(t), 20, 10)
	if err != nil {
		t.Fatal(err)
	}
	if ids := res.EntityIDs(); len(ids) != 2 || ids[0] != "E1" || ids[1] != "E2" {
		t.Errorf("unexpected results %v", ids)
	}

	req := c.sceneReq
	if req.DatasetName != DefaultDatasetAlias || req.MaxResults != 10 || req.StartingNumber != 1 {
		t.Errorf("unexpected request %+v", req)
	}
	sf := req.SceneFilter.SpatialFilter
	if sf == nil || sf.FilterType != "mbr" {
		t.Fatalf("unexpected spatial filter %+v", sf)
	}
	if sf.LowerLeft.Latitude != p.Lat-0.01 || sf.LowerLeft.Longitude != p.Lon-0.01 ||
		sf.UpperRight.Latitude != p.Lat+0.01 || sf.UpperRight.Longitude != p.Lon+0.01 {
		t.Errorf("unexpected rectangle %+v", sf)
	}
	if !req.SceneFilter.BrowseOnly {
		t.Errorf("scene search must be restricted to scenes with browse products")
	}
	if req.SceneFilter.CloudCoverFilter.Max != 20 {
		t.Errorf("unexpected cloud cover filter %+v", req.SceneFilter.CloudCoverFilter)
	}
	if af := req.SceneFilter.AcquisitionFilter; af.Start != "2023-01-01" || af.End != "2023-03-01" {
		t.Errorf("unexpected acquisition filter %+v", af)
	}
}

func TestSearchScenesInvalid(t *testing.T) {
	s := SceneSearcher{Client: &fakeClient{}}
	p := common.GeoPoint{}
	if _, err := s.SearchScenes(context.Background(), "ds", p, timeWindow(t), 101, 10); err == nil {
		t.Error("expecting an error for cloud cover > 100")
	}
	if _, err := s.SearchScenes(context.Background(), "ds", p, timeWindow(t), 10, 0); err == nil {
		t.Error("expecting an error for max results = 0")
	}
}

func TestSearchDatasets(t *testing.T) {
	c := &fakeClient{datasets: []common.DatasetDescriptor{
		{Alias: "landsat_ot_c2_l2", CollectionName: "Landsat 8-9 C2 L2"},
		{Alias: DefaultDatasetAlias, CollectionName: "Landsat 8-9 C2 L1"},
	}}
	s := SceneSearcher{Client: c, Margin: 0.5}
	ctx := context.Background()

	ds, err := s.SearchDatasets(ctx, "Landsat 8-9", timeWindow(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.datasetReq.SpatialFilter != nil {
		t.Error("no spatial filter expected")
	}
	selected := s.SelectDatasets(ctx, ds)
	if len(selected) != 1 || selected[0].Alias != DefaultDatasetAlias {
		t.Errorf("unexpected selection %v", selected)
	}

	if _, err = s.SearchDatasets(ctx, "Landsat 8-9", timeWindow(t), &common.GeoPoint{Lat: 1, Lon: 2}); err != nil {
		t.Fatal(err)
	}
	if sf := c.datasetReq.SpatialFilter; sf == nil || sf.LowerLeft.Latitude != 0.5 || sf.UpperRight.Longitude != 2.5 {
		t.Errorf("unexpected spatial filter %+v", sf)
	}

	s.DatasetPolicy = DatasetPolicyFunc(func(d common.DatasetDescriptor) bool { return true })
	if selected := s.SelectDatasets(ctx, ds); len(selected) != 2 {
		t.Errorf("expecting 2 datasets, got %d", len(selected))
	}
}

func TestGrants(t *testing.T) {
	c := &fakeClient{options: []common.DownloadOption{
		{ID: "P1", EntityID: "E1", Available: true, DownloadName: "LC08_L1TP_137044_20230101_20230110_02_T1 Full Resolution Browse (Reflective Color) JPEG"},
		{ID: "P2", EntityID: "E1", Available: true, DownloadName: "Full Resolution Browse (Reflective Color) JPEG_TIR"},
		{ID: "P3", EntityID: "E2", Available: false, DownloadName: "Full Resolution Browse (Reflective Color) JPEG"},
		{ID: "P4", EntityID: "E2", Available: true, DownloadName: "Level-1 GeoTIFF Data Product"},
		{ID: "P5", EntityID: "E3", Available: true, DownloadName: "Full Resolution Browse (Reflective Color) JPEG"},
		{ID: "P5", EntityID: "E3", Available: true, DownloadName: "Full Resolution Browse (Reflective Color) JPEG"},
		{ID: "P6", EntityID: "E3", Available: true, DownloadName: "Full Resolution Browse (Reflective Color) JPEG_QB"},
	}}
	s := SceneSearcher{Client: c}
	grants, err := s.Grants(context.Background(), DefaultDatasetAlias, []string{"E1", "E2", "E3", "E1"})
	if err != nil {
		t.Fatal(err)
	}
	expected := []common.DownloadGrant{{EntityID: "E1", ProductID: "P1"}, {EntityID: "E3", ProductID: "P5"}}
	if len(grants) != len(expected) {
		t.Fatalf("expecting %v, got %v", expected, grants)
	}
	for i := range expected {
		if grants[i] != expected[i] {
			t.Errorf("expecting %v, got %v", expected[i], grants[i])
		}
	}
	if len(c.optionsReq.EntityIDs) != 3 || c.optionsReq.IncludeSecondaryFileGroups {
		t.Errorf("unexpected request %+v", c.optionsReq)
	}
}

func TestGrantsEmpty(t *testing.T) {
	c := &fakeClient{}
	s := SceneSearcher{Client: c}
	grants, err := s.Grants(context.Background(), DefaultDatasetAlias, nil)
	if err != nil || len(grants) != 0 || c.optionsReq != nil {
		t.Errorf("expecting no call and no grant, got %v, %v", grants, err)
	}
	urls, err := s.RequestDownloads(context.Background(), nil, "label")
	if err != nil || len(urls) != 0 || c.downloadReq != nil {
		t.Errorf("expecting no call and no url, got %v, %v", urls, err)
	}
}

func TestRequestDownloads(t *testing.T) {
	c := &fakeClient{downloads: m2m.DownloadRequestResponse{
		AvailableDownloads: []m2m.AvailableDownload{{DownloadID: "1", URL: "https://dds/1"}, {DownloadID: "2", URL: "https://dds/2"}, {DownloadID: "3"}},
	}}
	s := SceneSearcher{Client: c}
	grants := []common.DownloadGrant{{EntityID: "E1", ProductID: "P1"}}
	urls, err := s.RequestDownloads(context.Background(), grants, "20230101_120000")
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 2 || urls[0] != "https://dds/1" || urls[1] != "https://dds/2" {
		t.Errorf("unexpected urls %v", urls)
	}
	if c.downloadReq.Label != "20230101_120000" || len(c.downloadReq.Downloads) != 1 {
		t.Errorf("unexpected request %+v", c.downloadReq)
	}
}

func TestProductNamePolicy(t *testing.T) {
	p := ProductNamePolicy{Pattern: "Browse", Exclude: []string{"", "_TIR"}}
	if !p.AcceptProduct(common.DownloadOption{Available: true, DownloadName: "Natural Browse"}) {
		t.Error("expecting acceptance")
	}
	if p.AcceptProduct(common.DownloadOption{Available: true, DownloadName: "Browse_TIR"}) {
		t.Error("expecting rejection of excluded token")
	}
}
