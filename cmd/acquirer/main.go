package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/airbusgeo/landsat-acquirer/common"
	"github.com/airbusgeo/landsat-acquirer/downloader"
	"github.com/airbusgeo/landsat-acquirer/interface/catalog/m2m"
	"github.com/airbusgeo/landsat-acquirer/interface/provider"
	"github.com/airbusgeo/landsat-acquirer/processor"
	"github.com/airbusgeo/landsat-acquirer/processor/gdal"
	"github.com/airbusgeo/landsat-acquirer/service"
	"github.com/airbusgeo/landsat-acquirer/service/geometry"
	"github.com/airbusgeo/landsat-acquirer/service/log"
	"github.com/airbusgeo/landsat-acquirer/workflow"
	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type config struct {
	Username    string `validate:"required"`
	Token       string `validate:"required"`
	ServiceURL  string `validate:"required,url"`
	ErrorPolicy string `validate:"oneof=strict lenient"`
	MaxRetries  int    `validate:"gte=0"`

	DatasetName    string `validate:"required"`
	FilterDatasets bool
	StartDate      string `validate:"required"`
	EndDate        string
	MaxResults     int     `validate:"gte=1"`
	CloudCover     int     `validate:"gte=0,lte=100"`
	Margin         float64 `validate:"gt=0"`

	Path    int
	Row     int
	Lat     float64
	Lon     float64
	AOI     string
	AOIFile string

	DestDir        string `validate:"required"`
	Label          string
	Concurrency    int           `validate:"gte=1"`
	Timeout        time.Duration `validate:"gt=0"`
	WithGDAL       bool
	CompositeBands string
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func newAppConfig() (*config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("godotenv.Load: %w", err)
	}
	config := config{}
	// Catalog service
	flag.StringVar(&config.Username, "username", os.Getenv("M2M_USERNAME"), "machine-to-machine account username (env M2M_USERNAME)")
	flag.StringVar(&config.Token, "token", os.Getenv("M2M_TOKEN"), "machine-to-machine application token (env M2M_TOKEN)")
	flag.StringVar(&config.ServiceURL, "service-url", envString("M2M_URL", m2m.DefaultBaseURL), "base url of the machine-to-machine api (env M2M_URL)")
	flag.StringVar(&config.ErrorPolicy, "error-policy", envString("M2M_ERROR_POLICY", "strict"), "handling of the error codes returned by the service: strict (abort) or lenient (log and continue)")
	flag.IntVar(&config.MaxRetries, "max-retries", envInt("M2M_MAX_RETRIES", 3), "retries of a request after a transient transport error")

	// Search
	flag.StringVar(&config.DatasetName, "dataset", envString("DATASET_NAME", workflow.DefaultDatasetName), "name of the dataset to search")
	flag.BoolVar(&config.FilterDatasets, "filter-datasets", false, "apply the spatial filter to the dataset search")
	flag.StringVar(&config.StartDate, "start-date", os.Getenv("START_DATE"), "start of the acquisition window (any date format)")
	flag.StringVar(&config.EndDate, "end-date", os.Getenv("END_DATE"), "end of the acquisition window (default: today)")
	flag.IntVar(&config.MaxResults, "max-results", envInt("MAX_RESULTS", 10), "maximum number of scenes per dataset")
	flag.IntVar(&config.CloudCover, "cloud-cover", envInt("CLOUD_COVER", 100), "maximum cloud cover in percent")
	flag.Float64Var(&config.Margin, "margin", envMargin(), "half-size in degrees of the search box around the target")

	// Target
	flag.IntVar(&config.Path, "path", 0, "WRS-2 path")
	flag.IntVar(&config.Row, "row", 0, "WRS-2 row")
	flag.Float64Var(&config.Lat, "lat", 0, "latitude of the target")
	flag.Float64Var(&config.Lon, "lon", 0, "longitude of the target")
	flag.StringVar(&config.AOI, "aoi", "", "WKT of the area of interest")
	flag.StringVar(&config.AOIFile, "aoi-file", "", "geojson file of the area of interest")

	// Downloads
	flag.StringVar(&config.DestDir, "dest", envString("DEST_DIR", "."), "destination directory")
	flag.StringVar(&config.Label, "label", "", "label of the download request (default: "+workflow.LabelLayout+")")
	flag.IntVar(&config.Concurrency, "concurrency", envInt("CONCURRENCY", downloader.DefaultConcurrency), "maximum number of parallel downloads")
	flag.DurationVar(&config.Timeout, "timeout", downloader.DefaultTaskTimeout, "timeout of a download and its post-processing")
	flag.BoolVar(&config.WithGDAL, "gdal", false, "load the rasters of archives with gdal (multi-band GeoTIFF)")
	flag.StringVar(&config.CompositeBands, "bands", "4,3,2", "1-based red,green,blue bands of the composites")

	flag.Parse()

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func envMargin() float64 {
	if v, err := strconv.ParseFloat(os.Getenv("SEARCH_MARGIN"), 64); err == nil {
		return v
	}
	return geometry.DefaultMargin
}

// target returns the target defined by the flags.
func (c *config) target() (workflow.Target, error) {
	var t workflow.Target
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["path"] || set["row"] {
		t.Grid = &common.GridRef{Path: c.Path, Row: c.Row}
	}
	if set["lat"] || set["lon"] {
		t.Point = &common.GeoPoint{Lat: c.Lat, Lon: c.Lon}
	}
	t.WKT = c.AOI
	if c.AOIFile != "" {
		if t.WKT != "" {
			return t, fmt.Errorf("aoi and aoi-file are mutually exclusive")
		}
		b, err := os.ReadFile(c.AOIFile)
		if err != nil {
			return t, fmt.Errorf("aoi-file: %w", err)
		}
		g, err := service.UnmarshalGeometry(b)
		if err != nil {
			return t, fmt.Errorf("aoi-file: %w", err)
		}
		if t.WKT, err = wkt.EncodeString(g); err != nil {
			return t, fmt.Errorf("aoi-file: %w", err)
		}
	}
	return t, t.Validate()
}

func (c *config) timeWindow() (common.TimeWindow, error) {
	start, err := dateparse.ParseIn(c.StartDate, time.UTC)
	if err != nil {
		return common.TimeWindow{}, fmt.Errorf("start-date: %w", err)
	}
	var end time.Time
	if c.EndDate != "" {
		if end, err = dateparse.ParseIn(c.EndDate, time.UTC); err != nil {
			return common.TimeWindow{}, fmt.Errorf("end-date: %w", err)
		}
	}
	return common.NewTimeWindow(start, end)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := run(ctx)
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}
	target, err := config.target()
	if err != nil {
		return err
	}
	tw, err := config.timeWindow()
	if err != nil {
		return err
	}
	policy, err := m2m.ParseErrorPolicy(config.ErrorPolicy)
	if err != nil {
		return err
	}
	bands, err := processor.ParseBands(config.CompositeBands)
	if err != nil {
		return err
	}

	client := m2m.New(
		m2m.WithBaseURL(config.ServiceURL),
		m2m.WithErrorPolicy(policy),
		m2m.WithMaxRetries(config.MaxRetries),
	)

	var loader processor.RasterLoader
	if config.WithGDAL {
		loader = gdal.NewLoader()
	}
	proc := processor.NewProcessor(loader)
	proc.Bands = bands

	coordinator := &downloader.Coordinator{
		Fetcher:     provider.NewHTTPFetcher(nil),
		Processor:   proc,
		Concurrency: config.Concurrency,
		TaskTimeout: config.Timeout,
	}

	session, err := workflow.NewSession(client, coordinator, workflow.Config{
		Username:       config.Username,
		Token:          config.Token,
		DatasetName:    config.DatasetName,
		TimeWindow:     tw,
		MaxResults:     config.MaxResults,
		CloudCover:     config.CloudCover,
		DestDir:        config.DestDir,
		Label:          config.Label,
		FilterDatasets: config.FilterDatasets,
		Margin:         config.Margin,
	})
	if err != nil {
		return err
	}

	log.Logger(ctx).Sugar().Infof("acquiring %s over %s into %s", target, tw, config.DestDir)
	report, err := session.Run(ctx, target)
	if err != nil {
		return fmt.Errorf("session %s failed at stage %s: %w", session.Label(), report.Stage, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	for _, e := range report.Batch.Errors() {
		log.Logger(ctx).Warn("download failed", zap.Error(e))
	}
	return nil
}
