package workflow

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/airbusgeo/landsat-acquirer/catalog"
	"github.com/airbusgeo/landsat-acquirer/common"
	"github.com/airbusgeo/landsat-acquirer/downloader"
	"github.com/airbusgeo/landsat-acquirer/service"
	"github.com/airbusgeo/landsat-acquirer/service/geometry"
	"github.com/airbusgeo/landsat-acquirer/service/log"
	"go.uber.org/zap"
)

// LabelLayout is the time layout of the default run label
const LabelLayout = "20060102_150405"

// DefaultDatasetName is the dataset searched when none is configured
const DefaultDatasetName = "Landsat 8-9"

const logoutTimeout = 30 * time.Second

// CatalogClient is the catalog service used by a session. It is implemented by *m2m.Client.
type CatalogClient interface {
	catalog.Client
	Login(ctx context.Context, username, token string) (string, error)
	Logout(ctx context.Context) error
}

// Config of a session
type Config struct {
	Username    string
	Token       string
	DatasetName string
	TimeWindow  common.TimeWindow
	MaxResults  int
	// CloudCover is the maximum cloud cover in percent (inclusive)
	CloudCover int
	DestDir    string
	// Label of the download request. Defaults to the creation time of the session (LabelLayout)
	Label string
	// FilterDatasets adds the spatial filter to the dataset search
	FilterDatasets bool
	DatasetPolicy  catalog.DatasetPolicy
	ProductPolicy  catalog.ProductPolicy
	Margin         float64
}

// Report summarizes a run
type Report struct {
	Label       string                 `json:"label"`
	Stage       State                  `json:"stage"`
	Point       *common.GeoPoint       `json:"point,omitempty"`
	Datasets    []string               `json:"datasets,omitempty"`
	Scenes      int                    `json:"scenes"`
	Grants      []common.DownloadGrant `json:"grants,omitempty"`
	Batch       downloader.BatchResult `json:"batch"`
	LogoutError string                 `json:"logoutError,omitempty"`
}

// Session runs one acquisition: authentication, resolution, search, grants and downloads.
// The session logs out exactly once, whatever the outcome of the run.
type Session struct {
	cfg         Config
	client      CatalogClient
	resolver    catalog.GridResolver
	searcher    *catalog.SceneSearcher
	coordinator *downloader.Coordinator

	mu         sync.Mutex
	state      State
	logoutOnce sync.Once
	logoutErr  error
}

// NewSession creates a session in state Created
func NewSession(client CatalogClient, coordinator *downloader.Coordinator, cfg Config) (*Session, error) {
	if client == nil || coordinator == nil {
		return nil, fmt.Errorf("NewSession: client and coordinator are required")
	}
	if cfg.DatasetName == "" {
		cfg.DatasetName = DefaultDatasetName
	}
	if cfg.MaxResults <= 0 {
		return nil, fmt.Errorf("NewSession: max results must be positive")
	}
	if cfg.CloudCover < 0 || cfg.CloudCover > 100 {
		return nil, fmt.Errorf("NewSession: cloud cover must be in [0, 100]")
	}
	if cfg.TimeWindow.Start.IsZero() {
		return nil, fmt.Errorf("NewSession: time window is required")
	}
	if cfg.DestDir == "" {
		return nil, fmt.Errorf("NewSession: destination directory is required")
	}
	if cfg.Label == "" {
		cfg.Label = time.Now().Format(LabelLayout)
	}
	return &Session{
		cfg:      cfg,
		client:   client,
		resolver: catalog.GridResolver{Client: client},
		searcher: &catalog.SceneSearcher{
			Client:        client,
			DatasetPolicy: cfg.DatasetPolicy,
			ProductPolicy: cfg.ProductPolicy,
			Margin:        cfg.Margin,
		},
		coordinator: coordinator,
		state:       StateCreated,
	}, nil
}

// State returns the current state of the session
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Label returns the label of the run
func (s *Session) Label() string {
	return s.cfg.Label
}

func (s *Session) transition(ctx context.Context, next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CanTransition(next) {
		return fmt.Errorf("invalid transition %s->%s", s.state, next)
	}
	log.Logger(ctx).Sugar().Debugf("session %s: %s->%s", s.cfg.Label, s.state, next)
	s.state = next
	return nil
}

// Close logs out. It is called by Run and only the first call sends the logout request.
func (s *Session) Close(ctx context.Context) error {
	s.logoutOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		defer cancel()
		s.logoutErr = s.client.Logout(ctx)
		if s.logoutErr != nil {
			log.Logger(ctx).Warn("logout failed", zap.Error(s.logoutErr))
		}
		_ = s.transition(ctx, StateLoggedOut)
	})
	return s.logoutErr
}

// Run acquires the scenes around target.
// Control-plane failures abort the run and are returned. Transfer failures are reported in the batch.
// A logout failure is recorded in the report and only merged into an error the run already returns.
func (s *Session) Run(ctx context.Context, target Target) (report Report, err error) {
	report = Report{Label: s.cfg.Label, Stage: StateCreated}
	if err := target.Validate(); err != nil {
		return report, fmt.Errorf("Run.%w", err)
	}
	if st := s.State(); st != StateCreated {
		return report, fmt.Errorf("Run: session is %s", st)
	}
	if err := os.MkdirAll(s.cfg.DestDir, 0755); err != nil {
		return report, fmt.Errorf("Run.MkdirAll: %w", err)
	}
	ctx = log.With(ctx, "label", s.cfg.Label)

	defer func() {
		if lerr := s.Close(ctx); lerr != nil {
			report.LogoutError = lerr.Error()
			if err != nil {
				err = service.MergeErrors(true, err, lerr)
			}
		}
		if werr := service.ToJSON(report, s.cfg.DestDir, "report_"+s.cfg.Label+".json"); werr != nil {
			log.Logger(ctx).Warn("cannot write report", zap.Error(werr))
		}
	}()

	advance := func(next State) error {
		if err := s.transition(ctx, next); err != nil {
			return err
		}
		report.Stage = next
		return nil
	}

	// Authentication
	if _, err := s.client.Login(ctx, s.cfg.Username, s.cfg.Token); err != nil {
		return report, fmt.Errorf("Run.%w", err)
	}
	if err := advance(StateAuthenticated); err != nil {
		return report, fmt.Errorf("Run.%w", err)
	}

	// Resolution
	point, err := s.resolve(ctx, target)
	if err != nil {
		return report, fmt.Errorf("Run.%w", err)
	}
	report.Point = &point
	if err := advance(StateResolved); err != nil {
		return report, fmt.Errorf("Run.%w", err)
	}

	// Search
	var pointFilter *common.GeoPoint
	if s.cfg.FilterDatasets {
		pointFilter = &point
	}
	datasets, err := s.searcher.SearchDatasets(ctx, s.cfg.DatasetName, s.cfg.TimeWindow, pointFilter)
	if err != nil {
		return report, fmt.Errorf("Run.%w", err)
	}
	datasets = s.searcher.SelectDatasets(ctx, datasets)
	scenes := make([]common.SceneSearchResult, len(datasets))
	for i, d := range datasets {
		report.Datasets = append(report.Datasets, d.Alias)
		if scenes[i], err = s.searcher.SearchScenes(ctx, d.Alias, point, s.cfg.TimeWindow, s.cfg.CloudCover, s.cfg.MaxResults); err != nil {
			return report, fmt.Errorf("Run.%w", err)
		}
		report.Scenes += len(scenes[i].Results)
	}
	if err := advance(StateSearched); err != nil {
		return report, fmt.Errorf("Run.%w", err)
	}

	// Grants: all of them are collected before any transfer starts
	for i, d := range datasets {
		grants, err := s.searcher.Grants(ctx, d.Alias, scenes[i].EntityIDs())
		if err != nil {
			return report, fmt.Errorf("Run.%w", err)
		}
		report.Grants = append(report.Grants, grants...)
	}
	urls, err := s.searcher.RequestDownloads(ctx, report.Grants, s.cfg.Label)
	if err != nil {
		return report, fmt.Errorf("Run.%w", err)
	}
	if err := advance(StateGranted); err != nil {
		return report, fmt.Errorf("Run.%w", err)
	}

	// Downloads
	if err := advance(StateDownloading); err != nil {
		return report, fmt.Errorf("Run.%w", err)
	}
	tasks := make([]common.FetchTask, len(urls))
	for i, u := range urls {
		tasks[i] = common.FetchTask{URL: u, DownloadID: strconv.Itoa(i + 1), DestDir: s.cfg.DestDir}
	}
	report.Batch = s.coordinator.FetchAll(ctx, tasks)
	if err := advance(StateCompleted); err != nil {
		return report, fmt.Errorf("Run.%w", err)
	}
	log.Logger(ctx).Sugar().Infof("session %s completed: %d scenes, %d grants, %d downloads succeeded, %d failed",
		s.cfg.Label, report.Scenes, len(report.Grants), report.Batch.Succeeded, report.Batch.Failed)
	return report, nil
}

func (s *Session) resolve(ctx context.Context, target Target) (common.GeoPoint, error) {
	switch {
	case target.Grid != nil:
		p, err := s.resolver.Resolve(ctx, *target.Grid)
		if err != nil {
			return p, fmt.Errorf("resolve.%w", err)
		}
		return p, nil
	case target.Point != nil:
		return *target.Point, nil
	default:
		lon, lat, err := geometry.Centroid(target.WKT)
		if err != nil {
			return common.GeoPoint{}, fmt.Errorf("resolve.%w", err)
		}
		log.Logger(ctx).Sugar().Debugf("aoi centroid: %f,%f", lat, lon)
		return common.GeoPoint{Lat: lat, Lon: lon}, nil
	}
}
