package workflow

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/airbusgeo/landsat-acquirer/common"
	"github.com/airbusgeo/landsat-acquirer/downloader"
	"github.com/airbusgeo/landsat-acquirer/service/log"
	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	defaultNumScenes  = 1
	defaultCloudCover = 30
	defaultWindowDays = 30
)

// ErrNoImage is returned by the handler when a run produces no masked image
var ErrNoImage = errors.New("no image found")

// Acquirer serves acquisitions over HTTP. Each request runs its own Session.
type Acquirer struct {
	// NewClient returns a fresh catalog client. A client holds the api key of one session.
	NewClient      func() CatalogClient
	NewCoordinator func() *downloader.Coordinator
	// Config is the template of the sessions (credentials, dataset, policies)
	Config  Config
	WorkDir string
}

var validate = validator.New()

type imageQuery struct {
	Latitude   float64   `validate:"gte=-90,lte=90"`
	Longitude  float64   `validate:"gte=-180,lte=180"`
	Start      time.Time `validate:"required"`
	End        time.Time `validate:"required,gtefield=Start"`
	NumScenes  int       `validate:"gte=1,lte=100"`
	CloudCover int       `validate:"gte=0,lte=100"`
}

// AddHandler registers the routes of the acquirer
func (a *Acquirer) AddHandler(r *mux.Router) {
	r.HandleFunc("/landsat-image", a.ImageHandler).Methods("GET")
}

func parseQuery(req *http.Request) (imageQuery, error) {
	q := imageQuery{NumScenes: defaultNumScenes, CloudCover: defaultCloudCover}
	values := req.URL.Query()
	var err error
	for _, f := range []struct {
		name string
		dst  *float64
	}{{"latitude", &q.Latitude}, {"longitude", &q.Longitude}} {
		v := values.Get(f.name)
		if v == "" {
			return q, fmt.Errorf("missing required parameter: '%s'", f.name)
		}
		if *f.dst, err = strconv.ParseFloat(v, 64); err != nil {
			return q, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	for _, f := range []struct {
		name string
		dst  *int
	}{{"num_scenes", &q.NumScenes}, {"cloud_cover", &q.CloudCover}} {
		if v := values.Get(f.name); v != "" {
			if *f.dst, err = strconv.Atoi(v); err != nil {
				return q, fmt.Errorf("%s: %w", f.name, err)
			}
		}
	}
	q.End = time.Now().UTC()
	if v := values.Get("end_date"); v != "" {
		if q.End, err = dateparse.ParseIn(v, time.UTC); err != nil {
			return q, fmt.Errorf("end_date: %w", err)
		}
	}
	q.Start = q.End.AddDate(0, 0, -defaultWindowDays)
	if v := values.Get("start_date"); v != "" {
		if q.Start, err = dateparse.ParseIn(v, time.UTC); err != nil {
			return q, fmt.Errorf("start_date: %w", err)
		}
	}
	return q, nil
}

// ImageHandler acquires the scenes around a point and returns the first masked image (image/png)
func (a *Acquirer) ImageHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	q, err := parseQuery(req)
	if err == nil {
		err = validate.Struct(q)
	}
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintf(w, "%v", err)
		return
	}

	dir, err := os.MkdirTemp(a.WorkDir, "landsat-image-")
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("MkdirTemp: %v", err)
		w.WriteHeader(500)
		return
	}
	defer os.RemoveAll(dir)

	cfg := a.Config
	cfg.TimeWindow = common.TimeWindow{Start: q.Start, End: q.End}
	cfg.MaxResults = q.NumScenes
	cfg.CloudCover = q.CloudCover
	cfg.DestDir = dir
	cfg.Label = ""
	session, err := NewSession(a.NewClient(), a.NewCoordinator(), cfg)
	if err != nil {
		w.WriteHeader(500)
		fmt.Fprintf(w, "%v", err)
		return
	}
	report, err := session.Run(ctx, PointTarget(q.Latitude, q.Longitude))
	if err != nil {
		log.Logger(ctx).Warn("acquisition failed", zap.Error(err))
		w.WriteHeader(500)
		fmt.Fprintf(w, "%v", err)
		return
	}

	for _, output := range report.Batch.Outputs() {
		if strings.HasSuffix(output, ".png") {
			w.Header().Set("Content-Type", "image/png")
			http.ServeFile(w, req, output)
			return
		}
	}
	w.WriteHeader(404)
	fmt.Fprintf(w, "%v", ErrNoImage)
}
