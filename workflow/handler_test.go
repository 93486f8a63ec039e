package workflow_test

import (
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/airbusgeo/landsat-acquirer/downloader"
	"github.com/airbusgeo/landsat-acquirer/interface/catalog/m2m"
	"github.com/airbusgeo/landsat-acquirer/interface/provider"
	"github.com/airbusgeo/landsat-acquirer/processor"
	"github.com/airbusgeo/landsat-acquirer/workflow"
	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ImageHandler", func() {
	var (
		fake       *FakeCatalog
		catalogSrv *httptest.Server
		assetSrv   *httptest.Server
		router     *mux.Router
		workDir    string
	)

	get := func(query string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/landsat-image?"+query, nil))
		return rec
	}

	BeforeEach(func() {
		fake = NewFakeCatalog()
		catalogSrv = httptest.NewServer(fake)
		assetSrv = NewAssetServer(true)
		fake.AssetURL = assetSrv.URL
		var err error
		workDir, err = os.MkdirTemp("", "acquirer-handler")
		Expect(err).NotTo(HaveOccurred())

		a := &workflow.Acquirer{
			NewClient: func() workflow.CatalogClient {
				return m2m.New(m2m.WithBaseURL(catalogSrv.URL+"/api/json/stable"), m2m.WithRetryWait(time.Millisecond))
			},
			NewCoordinator: func() *downloader.Coordinator {
				return &downloader.Coordinator{Fetcher: provider.NewHTTPFetcher(assetSrv.Client()), Processor: processor.NewProcessor(nil)}
			},
			Config:  workflow.Config{Username: "user", Token: "apptoken"},
			WorkDir: workDir,
		}
		router = mux.NewRouter()
		a.AddHandler(router)
	})

	AfterEach(func() {
		catalogSrv.Close()
		assetSrv.Close()
		os.RemoveAll(workDir)
	})

	It("should return the first masked image", func() {
		rec := get("latitude=23.8041&longitude=90.4152&start_date=2023-01-01&end_date=2023-02-01&num_scenes=2&cloud_cover=20")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("image/png"))
		img, err := png.Decode(rec.Body)
		Expect(err).NotTo(HaveOccurred())
		_, _, _, a := img.At(0, 0).RGBA()
		Expect(a).To(BeZero())

		req := fake.Requests("scene-search")[0]
		Expect(req["maxResults"]).To(BeNumerically("==", 2))
		Expect(fake.Calls("logout")).To(Equal(1))

		entries, err := os.ReadDir(workDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("should use the default parameters", func() {
		rec := get("latitude=23.8041&longitude=90.4152")
		Expect(rec.Code).To(Equal(http.StatusOK))
		req := fake.Requests("scene-search")[0]
		Expect(req["maxResults"]).To(BeNumerically("==", 1))
		filter := req["sceneFilter"].(map[string]interface{})
		Expect(filter["cloudCoverFilter"].(map[string]interface{})["max"]).To(BeNumerically("==", 30))
		Expect(filter["browseOnly"]).To(BeTrue())
	})

	It("should reject invalid queries", func() {
		Expect(get("longitude=90").Code).To(Equal(http.StatusBadRequest))
		Expect(get("latitude=100&longitude=90").Code).To(Equal(http.StatusBadRequest))
		Expect(get("latitude=10&longitude=90&cloud_cover=101").Code).To(Equal(http.StatusBadRequest))
		Expect(get("latitude=10&longitude=90&num_scenes=0").Code).To(Equal(http.StatusBadRequest))
		Expect(get("latitude=10&longitude=90&start_date=2023-02-01&end_date=2023-01-01").Code).To(Equal(http.StatusBadRequest))
		Expect(get("latitude=10&longitude=90&start_date=notadate").Code).To(Equal(http.StatusBadRequest))
		Expect(fake.Calls("login-token")).To(BeZero())
	})

	It("should return 404 when no scene matches", func() {
		fake.SetResponse("scene-search", map[string]interface{}{"recordsReturned": 0, "totalHits": 0, "results": []interface{}{}})
		Expect(get("latitude=10&longitude=90").Code).To(Equal(http.StatusNotFound))
		Expect(fake.Calls("logout")).To(Equal(1))
	})

	It("should return 500 when the pipeline fails", func() {
		fake.SetError("dataset-search", "DATASET_ERROR")
		rec := get("latitude=10&longitude=90")
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(ContainSubstring("DATASET_ERROR"))
		Expect(fake.Calls("logout")).To(Equal(1))
	})
})
