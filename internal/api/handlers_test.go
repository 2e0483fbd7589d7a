package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/khatadev/khata/internal/api"
	"github.com/khatadev/khata/internal/config"
	"github.com/khatadev/khata/internal/live"
	"github.com/khatadev/khata/internal/media"
	"github.com/khatadev/khata/internal/models"
	"github.com/khatadev/khata/internal/repository"
	"github.com/khatadev/khata/internal/services"
	"github.com/khatadev/khata/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	router *gin.Engine
	store  *store.Store
	repo   *repository.StateListingRepository
	clock  *services.MockClock
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Storage.DataFile = filepath.Join(dir, "data.json")
	cfg.Storage.StaticDir = filepath.Join(dir, "static")
	cfg.Storage.IndexFile = filepath.Join(dir, "index.html")

	s, err := store.Open(cfg.Storage.DataFile)
	require.NoError(t, err)
	m, err := media.NewManager(cfg.Storage.StaticDir)
	require.NoError(t, err)
	repo := repository.NewListingRepository(s)
	pub := live.NewPublisher(live.NewHub(), s, m, "http://localhost:8000")
	clock := services.NewMockClock(time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC))
	moderation := services.NewModerationService(s, m, pub, clock,
		services.Tariffs{Banner: 999, Hot: 299, Normal: 39}, 30,
		"https://picsum.photos/seed/new/1200/800", "http://localhost:8000")
	engagement := services.NewEngagementService(s, pub, clock, 10*time.Minute)

	api.EventsChannel = make(chan models.EventRecord, 64)
	router := gin.New()
	api.SetupRoutes(router, &api.Handlers{
		Cfg:        cfg,
		Store:      s,
		Repo:       repo,
		Moderation: moderation,
		Engagement: engagement,
		Publisher:  pub,
		Media:      m,
		Clock:      clock,
	}, 64)

	return &apiFixture{router: router, store: s, repo: repo, clock: clock}
}

func (f *apiFixture) seedListing(t *testing.T, a *models.Listing, kind string) {
	t.Helper()
	require.NoError(t, f.repo.Insert(a, kind))
}

func (f *apiFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestList(t *testing.T) {
	f := newAPIFixture(t)
	f.seedListing(t, &models.Listing{ID: "ad_1", Code: "51370", Title: "Квартира"}, "normal")

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/list", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	data := body["data"].(map[string]any)
	assert.Len(t, data["normal"], 1)
	assert.Empty(t, data["hot"])
	banner := body["banner"].(map[string]any)
	assert.Equal(t, true, banner["enabled"])
}

func TestList_PurgesExpired(t *testing.T) {
	f := newAPIFixture(t)
	expired := &models.Listing{ID: "ad_1", Code: "51370", ActiveTill: f.clock.Now().Add(-time.Hour).UnixMilli()}
	f.seedListing(t, expired, "normal")

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/list", nil))
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Empty(t, data["normal"])
}

func TestSearch(t *testing.T) {
	f := newAPIFixture(t)
	f.seedListing(t, &models.Listing{ID: "ad_1", Code: "51370", Title: "Квартира в центрі", Price: 400}, "normal")
	f.seedListing(t, &models.Listing{ID: "ad_2", Code: "51371", Title: "Будинок", Price: 900}, "normal")

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/search?q=kvartyra&price_band=500", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	normal := body["data"].(map[string]any)["normal"].([]any)
	require.Len(t, normal, 1)
	assert.Equal(t, "ad_1", normal[0].(map[string]any)["id"])
}

func TestView_AlwaysNoContent(t *testing.T) {
	f := newAPIFixture(t)
	f.seedListing(t, &models.Listing{ID: "ad_1", Code: "51370"}, "normal")

	req := httptest.NewRequest(http.MethodPost, "/api/view/ad_1", nil)
	req.Header.Set("X-KOLO-UID", "uid-a")
	assert.Equal(t, http.StatusNoContent, f.do(req).Code)

	// Unknown listing is still a 204.
	req = httptest.NewRequest(http.MethodPost, "/api/view/ad_missing", nil)
	req.Header.Set("X-KOLO-UID", "uid-a")
	assert.Equal(t, http.StatusNoContent, f.do(req).Code)

	got, err := f.repo.FindByIDOrCode("ad_1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Views)
}

func TestLike(t *testing.T) {
	f := newAPIFixture(t)
	f.seedListing(t, &models.Listing{ID: "ad_1", Code: "51370"}, "normal")

	req := httptest.NewRequest(http.MethodPost, "/api/like/ad_1", nil)
	req.Header.Set("X-KOLO-UID", "uid-a")
	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.EqualValues(t, 1, body["likes"])
	assert.Equal(t, true, body["liked"])

	// Repeating the like does not move the counter.
	req = httptest.NewRequest(http.MethodPost, "/api/like/ad_1", nil)
	req.Header.Set("X-KOLO-UID", "uid-a")
	body = decodeBody(t, f.do(req))
	assert.EqualValues(t, 1, body["likes"])
	assert.Equal(t, true, body["liked"])
}

func TestCreate(t *testing.T) {
	f := newAPIFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("type", "hot"))
	require.NoError(t, mw.WriteField("title", "Терміново здам"))
	require.NoError(t, mw.WriteField("price", "7 500 грн"))
	part, err := mw.CreateFormFile("images", "photo.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/create", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "hot", body["kind"])
	assert.EqualValues(t, 299, body["amount"])
	assert.Equal(t, "51369", body["code"])
	assert.Equal(t, "Терміново здам", body["title"])

	f.store.View(func(st *models.State) {
		require.Len(t, st.Pending, 1)
		assert.Equal(t, 7500, st.Pending[0].Data.Price)
		assert.Len(t, st.Pending[0].OrderFiles, 1)
	})
}

func TestOrder_AlwaysNoContent(t *testing.T) {
	f := newAPIFixture(t)

	payload := bytes.NewBufferString(`{"code":"51369","kind":"hot","amount":299}`)
	req := httptest.NewRequest(http.MethodPost, "/api/order", payload)
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusNoContent, f.do(req).Code)

	// Malformed JSON gets the same answer.
	req = httptest.NewRequest(http.MethodPost, "/api/order", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusNoContent, f.do(req).Code)
}

func TestLogEvent_EnqueuesRecord(t *testing.T) {
	f := newAPIFixture(t)

	payload := bytes.NewBufferString(`{"action":"open_listing","extra":{"id":"ad_1"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/log", payload)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-KOLO-UID", "uid-a")
	req.Header.Set("CF-Connecting-IP", "203.0.113.9")
	assert.Equal(t, http.StatusNoContent, f.do(req).Code)

	select {
	case rec := <-api.EventsChannel:
		assert.Equal(t, "open_listing", rec.Action)
		assert.Equal(t, "uid-a", rec.UID)
		assert.Equal(t, "203.0.113.9", rec.IPAddress)
	default:
		t.Fatal("expected an event record on the channel")
	}
}

func TestHeaders(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/list", nil)
	req.Header.Set("Origin", "https://khata.example")
	w := f.do(req)

	assert.Equal(t, "https://khata.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-KOLO-UID")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))
}

func TestHeaders_Preflight(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/like/ad_1", nil)
	req.Header.Set("Origin", "https://khata.example")
	w := f.do(req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://khata.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestIndex_FallbackPage(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "KHATA")
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
}

func TestRobots(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "User-agent: *")
}
