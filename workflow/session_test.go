package workflow_test

import (
	"context"
	"errors"
	"image"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/airbusgeo/landsat-acquirer/catalog"
	"github.com/airbusgeo/landsat-acquirer/common"
	"github.com/airbusgeo/landsat-acquirer/downloader"
	"github.com/airbusgeo/landsat-acquirer/interface/catalog/m2m"
	"github.com/airbusgeo/landsat-acquirer/interface/provider"
	"github.com/airbusgeo/landsat-acquirer/processor"
	"github.com/airbusgeo/landsat-acquirer/workflow"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func decodePNG(path string) image.Image {
	f, err := os.Open(path)
	Expect(err).NotTo(HaveOccurred())
	defer f.Close()
	img, err := png.Decode(f)
	Expect(err).NotTo(HaveOccurred())
	return img
}

var _ = Describe("Session", func() {
	var (
		ctx         context.Context
		fake        *FakeCatalog
		catalogSrv  *httptest.Server
		assetSrv    *httptest.Server
		client      *m2m.Client
		coordinator *downloader.Coordinator
		destDir     string
		cfg         workflow.Config
		withHeader  bool
	)

	newSession := func() *workflow.Session {
		s, err := workflow.NewSession(client, coordinator, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.State()).To(Equal(workflow.StateCreated))
		return s
	}

	BeforeEach(func() {
		withHeader = true
	})

	JustBeforeEach(func() {
		ctx = context.Background()
		fake = NewFakeCatalog()
		catalogSrv = httptest.NewServer(fake)
		assetSrv = NewAssetServer(withHeader)
		fake.AssetURL = assetSrv.URL
		client = m2m.New(m2m.WithBaseURL(catalogSrv.URL+"/api/json/stable"), m2m.WithRetryWait(time.Millisecond))
		coordinator = &downloader.Coordinator{
			Fetcher:   provider.NewHTTPFetcher(assetSrv.Client()),
			Processor: processor.NewProcessor(nil),
		}
		var err error
		destDir, err = os.MkdirTemp("", "acquirer")
		Expect(err).NotTo(HaveOccurred())
		tw, err := common.NewTimeWindow(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC))
		Expect(err).NotTo(HaveOccurred())
		cfg = workflow.Config{
			Username:   "user",
			Token:      "apptoken",
			TimeWindow: tw,
			MaxResults: 5,
			CloudCover: 20,
			DestDir:    destDir,
			Label:      "20230201_120000",
		}
	})

	AfterEach(func() {
		catalogSrv.Close()
		assetSrv.Close()
		os.RemoveAll(destDir)
	})

	Context("when every stage succeeds", func() {
		It("should download and mask the granted browse images", func() {
			s := newSession()
			report, err := s.Run(ctx, workflow.GridTarget(137, 44))
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Stage).To(Equal(workflow.StateCompleted))
			Expect(s.State()).To(Equal(workflow.StateLoggedOut))
			Expect(*report.Point).To(Equal(common.GeoPoint{Lat: 23.8, Lon: 90.4}))
			Expect(report.Datasets).To(Equal([]string{catalog.DefaultDatasetAlias}))
			Expect(report.Scenes).To(Equal(2))
			Expect(report.Grants).To(Equal([]common.DownloadGrant{{EntityID: "E1", ProductID: "P1"}, {EntityID: "E2", ProductID: "P2"}}))
			Expect(report.Batch.Succeeded).To(Equal(2))
			Expect(report.Batch.Failed).To(Equal(0))

			for _, e := range []string{"E1", "E2"} {
				Expect(filepath.Join(destDir, e+".jpg")).To(BeAnExistingFile())
				img := decodePNG(filepath.Join(destDir, e+".png"))
				Expect(img.Bounds()).To(Equal(image.Rect(0, 0, 16, 16)))
				for y := 0; y < 16; y++ {
					for x := 0; x < 16; x++ {
						_, _, _, a := img.At(x, y).RGBA()
						Expect(a).To(BeZero())
					}
				}
			}
			Expect(filepath.Join(destDir, "report_20230201_120000.json")).To(BeAnExistingFile())

			Expect(fake.Calls("login-token")).To(Equal(1))
			Expect(fake.Calls("logout")).To(Equal(1))
			Expect(fake.Calls("scene-search")).To(Equal(1))
			Expect(fake.Calls("download-request")).To(Equal(1))

			req := fake.Requests("scene-search")[0]
			Expect(req["datasetName"]).To(Equal(catalog.DefaultDatasetAlias))
			Expect(req["startingNumber"]).To(BeNumerically("==", 1))
			Expect(req["maxResults"]).To(BeNumerically("==", 5))
			filter := req["sceneFilter"].(map[string]interface{})
			Expect(filter["cloudCoverFilter"].(map[string]interface{})["max"]).To(BeNumerically("==", 20))
			Expect(filter["acquisitionFilter"]).To(Equal(map[string]interface{}{"start": "2023-01-01", "end": "2023-02-01"}))
			ll := filter["spatialFilter"].(map[string]interface{})["lowerLeft"].(map[string]interface{})
			Expect(ll["latitude"]).To(BeNumerically("~", 23.79, 1e-9))
			Expect(ll["longitude"]).To(BeNumerically("~", 90.39, 1e-9))

			dl := fake.Requests("download-request")[0]
			Expect(dl["label"]).To(Equal("20230201_120000"))
			Expect(dl["downloads"]).To(HaveLen(2))
		})

		It("should search around the centroid of an area", func() {
			s := newSession()
			report, err := s.Run(ctx, workflow.AOITarget("POLYGON ((10 40, 12 40, 12 42, 10 42, 10 40))"))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Point.Lat).To(BeNumerically("~", 41, 1e-9))
			Expect(report.Point.Lon).To(BeNumerically("~", 11, 1e-9))
			Expect(fake.Calls("grid2ll")).To(BeZero())
		})

		It("should not run twice", func() {
			s := newSession()
			_, err := s.Run(ctx, workflow.PointTarget(23.8, 90.4))
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Run(ctx, workflow.PointTarget(23.8, 90.4))
			Expect(err).To(HaveOccurred())
			Expect(fake.Calls("login-token")).To(Equal(1))
			Expect(fake.Calls("logout")).To(Equal(1))
		})
	})

	Context("when the scene search fails", func() {
		It("should log out exactly once and return the service error", func() {
			fake.SetError("scene-search", "SEARCH_ERROR")
			s := newSession()
			report, err := s.Run(ctx, workflow.GridTarget(137, 44))

			var serr *m2m.ServiceError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Code).To(Equal("SEARCH_ERROR"))
			Expect(report.Stage).To(Equal(workflow.StateResolved))
			Expect(s.State()).To(Equal(workflow.StateLoggedOut))
			Expect(fake.Calls("logout")).To(Equal(1))
			Expect(fake.Calls("download-options")).To(BeZero())

			Expect(s.Close(ctx)).To(Succeed())
			Expect(fake.Calls("logout")).To(Equal(1))
		})
	})

	Context("when the logout fails", func() {
		BeforeEach(func() {
			fake.SetError("logout", "LOGOUT_ERROR")
		})

		It("should record the failure without failing a completed run", func() {
			s := newSession()
			report, err := s.Run(ctx, workflow.GridTarget(137, 44))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Stage).To(Equal(workflow.StateCompleted))
			Expect(report.LogoutError).To(ContainSubstring("LOGOUT_ERROR"))
			Expect(s.State()).To(Equal(workflow.StateLoggedOut))
		})

		It("should append the failure to the run error", func() {
			fake.SetError("scene-search", "SEARCH_ERROR")
			s := newSession()
			report, err := s.Run(ctx, workflow.GridTarget(137, 44))
			var serr *m2m.ServiceError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Code).To(Equal("SEARCH_ERROR"))
			Expect(err.Error()).To(ContainSubstring("LOGOUT_ERROR"))
			Expect(report.LogoutError).To(ContainSubstring("LOGOUT_ERROR"))
			Expect(fake.Calls("logout")).To(Equal(1))
		})
	})

	Context("when the grid reference does not resolve", func() {
		It("should return a resolution error", func() {
			fake.SetResponse("grid2ll", map[string]interface{}{"coordinates": []interface{}{}})
			s := newSession()
			report, err := s.Run(ctx, workflow.GridTarget(200, 200))
			var rerr *catalog.ResolutionError
			Expect(errors.As(err, &rerr)).To(BeTrue())
			Expect(report.Stage).To(Equal(workflow.StateAuthenticated))
			Expect(fake.Calls("logout")).To(Equal(1))
		})
	})

	Context("when the login fails", func() {
		It("should not search", func() {
			fake.SetError("login-token", "AUTH_INVALID")
			s := newSession()
			report, err := s.Run(ctx, workflow.PointTarget(1, 2))
			Expect(err).To(HaveOccurred())
			Expect(report.Stage).To(Equal(workflow.StateCreated))
			Expect(s.State()).To(Equal(workflow.StateLoggedOut))
			Expect(fake.Calls("dataset-search")).To(BeZero())
			Expect(fake.Calls("logout")).To(BeZero())
		})
	})

	Context("when no scene matches", func() {
		It("should complete with an empty batch", func() {
			fake.SetResponse("scene-search", map[string]interface{}{"recordsReturned": 0, "totalHits": 0, "results": []interface{}{}})
			s := newSession()
			report, err := s.Run(ctx, workflow.PointTarget(1, 2))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Stage).To(Equal(workflow.StateCompleted))
			Expect(report.Batch.Results).To(BeEmpty())
			Expect(fake.Calls("download-options")).To(BeZero())
			Expect(fake.Calls("download-request")).To(BeZero())
			Expect(fake.Calls("logout")).To(Equal(1))
		})
	})

	Context("when every transfer fails", func() {
		BeforeEach(func() {
			withHeader = false
		})

		It("should complete, report the failures and log out once", func() {
			s := newSession()
			report, err := s.Run(ctx, workflow.GridTarget(137, 44))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Stage).To(Equal(workflow.StateCompleted))
			Expect(report.Batch.Succeeded).To(BeZero())
			Expect(report.Batch.Failed).To(Equal(2))
			for _, r := range report.Batch.Results {
				Expect(r.Status).To(Equal(common.StatusFAILED))
				var ferr *provider.FetchError
				Expect(errors.As(r.Err, &ferr)).To(BeTrue())
			}
			Expect(fake.Calls("logout")).To(Equal(1))
		})
	})

	Context("with an invalid target", func() {
		It("should fail before authenticating", func() {
			s := newSession()
			_, err := s.Run(ctx, workflow.Target{})
			Expect(err).To(HaveOccurred())
			_, err = s.Run(ctx, workflow.PointTarget(91, 0))
			Expect(err).To(HaveOccurred())
			Expect(fake.Calls("login-token")).To(BeZero())
		})
	})
})
