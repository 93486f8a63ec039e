package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/airbusgeo/landsat-acquirer/downloader"
	"github.com/airbusgeo/landsat-acquirer/interface/catalog/m2m"
	"github.com/airbusgeo/landsat-acquirer/interface/provider"
	"github.com/airbusgeo/landsat-acquirer/processor"
	"github.com/airbusgeo/landsat-acquirer/service/log"
	"github.com/airbusgeo/landsat-acquirer/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type config struct {
	AppPort     string `validate:"required,numeric"`
	Username    string `validate:"required"`
	Token       string `validate:"required"`
	ServiceURL  string `validate:"required,url"`
	ErrorPolicy string `validate:"oneof=strict lenient"`
	DatasetName string `validate:"required"`
	WorkDir     string
	Concurrency int           `validate:"gte=1"`
	Timeout     time.Duration `validate:"gt=0"`
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newAppConfig() (*config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("godotenv.Load: %w", err)
	}
	concurrency := downloader.DefaultConcurrency
	if v, err := strconv.Atoi(os.Getenv("CONCURRENCY")); err == nil {
		concurrency = v
	}
	config := config{}
	flag.StringVar(&config.AppPort, "port", envString("PORT", "8080"), "port to serve on")
	flag.StringVar(&config.Username, "username", os.Getenv("M2M_USERNAME"), "machine-to-machine account username (env M2M_USERNAME)")
	flag.StringVar(&config.Token, "token", os.Getenv("M2M_TOKEN"), "machine-to-machine application token (env M2M_TOKEN)")
	flag.StringVar(&config.ServiceURL, "service-url", envString("M2M_URL", m2m.DefaultBaseURL), "base url of the machine-to-machine api (env M2M_URL)")
	flag.StringVar(&config.ErrorPolicy, "error-policy", envString("M2M_ERROR_POLICY", "lenient"), "handling of the error codes returned by the service: strict or lenient")
	flag.StringVar(&config.DatasetName, "dataset", envString("DATASET_NAME", workflow.DefaultDatasetName), "name of the dataset to search")
	flag.StringVar(&config.WorkDir, "workdir", os.Getenv("WORKDIR"), "working directory of the acquisitions (default: system temporary directory)")
	flag.IntVar(&config.Concurrency, "concurrency", concurrency, "maximum number of parallel downloads per request")
	flag.DurationVar(&config.Timeout, "timeout", downloader.DefaultTaskTimeout, "timeout of a download and its post-processing")
	flag.Parse()

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
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
	policy, err := m2m.ParseErrorPolicy(config.ErrorPolicy)
	if err != nil {
		return err
	}

	fetcher := provider.NewHTTPFetcher(nil)
	acquirer := &workflow.Acquirer{
		NewClient: func() workflow.CatalogClient {
			return m2m.New(m2m.WithBaseURL(config.ServiceURL), m2m.WithErrorPolicy(policy))
		},
		NewCoordinator: func() *downloader.Coordinator {
			return &downloader.Coordinator{
				Fetcher:     fetcher,
				Processor:   processor.NewProcessor(nil),
				Concurrency: config.Concurrency,
				TaskTimeout: config.Timeout,
			}
		},
		Config: workflow.Config{
			Username:    config.Username,
			Token:       config.Token,
			DatasetName: config.DatasetName,
		},
		WorkDir: config.WorkDir,
	}

	router := mux.NewRouter()
	acquirer.AddHandler(router)
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	headersOk := handlers.AllowedHeaders([]string{"*"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "OPTIONS"})
	s := http.Server{
		Addr:    ":" + config.AppPort,
		Handler: handlers.LoggingHandler(os.Stdout, handlers.CORS(originsOk, headersOk, methodsOk)(router)),
	}
	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Logger(ctx).Fatal("server.ListenAndServe", zap.Error(err))
		}
	}()

	log.Logger(ctx).Sugar().Infof("server listening on :%s", config.AppPort)
	<-ctx.Done()
	sctx, cncl := context.WithTimeout(context.Background(), 30*time.Second)
	defer cncl()
	return s.Shutdown(sctx)
}
