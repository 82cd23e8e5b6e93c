package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/Baruah123/Pinnacle-Paints-Client-sub000/common/errors"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/media"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/repository"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/services"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUploader struct{}

func (stubUploader) Ready(ctx context.Context) error { return nil }

func (stubUploader) UploadSingle(ctx context.Context, ref string) (string, error) {
	return "https://cdn.test/" + ref, nil
}

func (stubUploader) UploadMany(ctx context.Context, items []media.Item) media.BulkResult {
	var res media.BulkResult
	for i, it := range items {
		res.Succeeded = append(res.Succeeded, media.Uploaded{Index: i, Reference: it.Reference, URL: "https://cdn.test/" + it.Reference})
	}
	return res
}

func newTestRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       "localhost:0",
		MaxRetries: -1,
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, errors.New("redis disabled in tests")
		},
	})
}

const sampleCSV = "name,description,price,category,imageUrl\n" +
	"Ocean Mist,Satin finish,24.99,Interior,ocean.png\n" +
	"Sand Dune,Matte finish,19.50,Exterior,\n"

type importFixture struct {
	router  *gin.Engine
	manager *services.Manager
	shop    *repository.MemoryCatalog
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	admin := repository.NewMemoryCatalog("admin")
	shop := repository.NewMemoryCatalog("shop")
	m := services.NewManager(ctx, stubUploader{}, repository.NewCatalogSet(admin, shop, nil), services.Options{}, services.ManagerDeps{}, nil)
	ic := NewImportController(m, nil)

	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	jobs := r.Group("/imports")
	jobs.GET("/template", ic.Template)
	jobs.POST("", ic.CreateImport)
	jobs.GET("", ic.ListImports)
	jobs.GET("/:id", ic.GetImport)
	jobs.GET("/:id/result", ic.GetImportResult)
	jobs.GET("/:id/events", ic.StreamImport)
	jobs.POST("/:id/pause", ic.PauseImport)
	jobs.POST("/:id/resume", ic.ResumeImport)
	jobs.POST("/:id/cancel", ic.CancelImport)

	return &importFixture{router: r, manager: m, shop: shop}
}

func (f *importFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// start posts body as text/csv and waits for the job to finish.
func (f *importFixture) start(t *testing.T, body string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/imports", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	rec := f.do(req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp struct {
		JobID  string `json:"job_id"`
		Queued bool   `json:"queued"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.JobID)
	assert.False(t, resp.Queued)

	job, ok := f.manager.Get(resp.JobID)
	require.True(t, ok)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, job.Wait(ctx))
	return resp.JobID
}

func TestTemplate(t *testing.T) {
	f := newImportFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/imports/template", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "product_import_template.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "name,description,price"))
}

func TestCreateImportFromBody(t *testing.T) {
	f := newImportFixture(t)
	id := f.start(t, sampleCSV)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/imports/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status models.JobStatusRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.JobStatusCompleted, status.State.Status)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/imports/"+id+"/result", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.JobResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 2, result.Total)

	n, err := f.shop.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCreateImportFromMultipart(t *testing.T) {
	f := newImportFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "products.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/imports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := f.do(req)
	assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
}

func TestCreateImportRejectsBadPayloads(t *testing.T) {
	f := newImportFixture(t)

	cases := []struct {
		name        string
		contentType string
		body        string
	}{
		{"json body", "application/json", `{"name":"x"}`},
		{"empty csv body", "text/csv", "  \n"},
		{"multipart without file", "multipart/form-data; boundary=xyz", "--xyz--\r\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/imports", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			rec := f.do(req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
	assert.Empty(t, f.manager.List())
}

func TestCreateImportQueuedWithoutQueue(t *testing.T) {
	f := newImportFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/imports?queue=true", strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")

	rec := f.do(req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownJob(t *testing.T) {
	f := newImportFixture(t)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/imports/nope", nil),
		httptest.NewRequest(http.MethodGet, "/imports/nope/result", nil),
		httptest.NewRequest(http.MethodGet, "/imports/nope/events", nil),
		httptest.NewRequest(http.MethodPost, "/imports/nope/pause", nil),
		httptest.NewRequest(http.MethodPost, "/imports/nope/cancel", nil),
	} {
		rec := f.do(req)
		assert.Equal(t, http.StatusNotFound, rec.Code, req.URL.Path)
	}
}

func TestControlOnFinishedJobConflicts(t *testing.T) {
	f := newImportFixture(t)
	id := f.start(t, sampleCSV)

	for _, action := range []string{"pause", "resume", "cancel"} {
		rec := f.do(httptest.NewRequest(http.MethodPost, "/imports/"+id+"/"+action, nil))
		assert.Equal(t, http.StatusConflict, rec.Code, action)
	}
}

func TestResultOfFailedJob(t *testing.T) {
	f := newImportFixture(t)
	id := f.start(t, "name,description,price\n")

	rec := f.do(httptest.NewRequest(http.MethodGet, "/imports/"+id+"/result", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fault"`)
}

func TestListImports(t *testing.T) {
	f := newImportFixture(t)
	f.start(t, sampleCSV)
	f.start(t, sampleCSV)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/imports", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Jobs  []models.JobStatusRecord `json:"jobs"`
		Count int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Jobs, 2)
}

func TestStreamFinishedJob(t *testing.T) {
	f := newImportFixture(t)
	id := f.start(t, sampleCSV)

	rec := newTestResponseRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/imports/"+id+"/events", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event:done")
	assert.NotContains(t, rec.Body.String(), "event:progress")
}

func TestMapJobError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, mapJobError(services.ErrJobNotFound).Code)
	assert.Equal(t, http.StatusConflict, mapJobError(services.ErrInvalidTransition).Code)
	assert.Equal(t, http.StatusServiceUnavailable, mapJobError(services.ErrQueueUnavailable).Code)
	assert.Equal(t, http.StatusInternalServerError, mapJobError(errors.New("disk full")).Code)
}

// testResponseRecorder is a local copy of gin's unexported test recorder; it
// adds CloseNotify so gin's streaming helpers can run against httptest.
type testResponseRecorder struct {
	*httptest.ResponseRecorder
	closeChannel chan bool
}

func (r *testResponseRecorder) CloseNotify() <-chan bool {
	return r.closeChannel
}

func newTestResponseRecorder() *testResponseRecorder {
	return &testResponseRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}
