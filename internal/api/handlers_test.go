package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ristorino-api/internal/common/config"
	"ristorino-api/internal/common/errors"
	"ristorino-api/internal/common/logger"
	"ristorino-api/internal/models"
	"ristorino-api/internal/notify"
)

type fakePromotions struct {
	result       *models.RestaurantPromotions
	err          error
	lastID       int
	lastCurrent  *bool
	lastBranchID *int
}

func (f *fakePromotions) GetRestaurantPromotions(ctx context.Context, restaurantID int, onlyCurrent *bool, branchID *int) (*models.RestaurantPromotions, error) {
	f.lastID = restaurantID
	f.lastCurrent = onlyCurrent
	f.lastBranchID = branchID
	return f.result, f.err
}

type fakeDetails struct {
	result json.RawMessage
	err    error
}

func (f *fakeDetails) GetRestaurantDetail(ctx context.Context, restaurantID, languageID int) (json.RawMessage, error) {
	return f.result, f.err
}

type fakeRegistrar struct {
	lastReq models.ClickRequest
	result  map[string]interface{}
	err     error
}

func (f *fakeRegistrar) RegisterClick(ctx context.Context, req models.ClickRequest) (map[string]interface{}, error) {
	f.lastReq = req
	return f.result, f.err
}

type fakeNotifier struct {
	report     *notify.Report
	err        error
	lastFilter *int
}

func (f *fakeNotifier) NotifyAllPending(ctx context.Context, restaurantID *int) (*notify.Report, error) {
	f.lastFilter = restaurantID
	return f.report, f.err
}

type serverFakes struct {
	promotions *fakePromotions
	details    *fakeDetails
	registrar  *fakeRegistrar
	notifier   *fakeNotifier
}

func newTestServer(t *testing.T) (*Server, *serverFakes) {
	t.Helper()

	fakes := &serverFakes{
		promotions: &fakePromotions{},
		details:    &fakeDetails{},
		registrar:  &fakeRegistrar{result: map[string]interface{}{}},
		notifier:   &fakeNotifier{report: &notify.Report{}},
	}

	cfg := config.ServerConfig{
		Port:              8080,
		AllowedOrigins:    []string{"http://localhost:4200"},
		DefaultLanguage:   1,
		DefaultRestaurant: 1,
	}

	server := NewServer(cfg, fakes.promotions, fakes.details, fakes.registrar, fakes.notifier, logger.NewTestLogger(t))
	return server, fakes
}

func doRequest(server *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetRestaurantPromotions(t *testing.T) {
	server, fakes := newTestServer(t)
	fakes.promotions.result = &models.RestaurantPromotions{
		RestaurantID: 5,
		LegalName:    "Trattoria Roma",
	}

	rec := doRequest(server, http.MethodGet, "/api/promotions/5?soloVigentes=true&nroSucursal=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 5, fakes.promotions.lastID)
	require.NotNil(t, fakes.promotions.lastCurrent)
	assert.True(t, *fakes.promotions.lastCurrent)
	require.NotNil(t, fakes.promotions.lastBranchID)
	assert.Equal(t, 3, *fakes.promotions.lastBranchID)

	var body models.RestaurantPromotions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Trattoria Roma", body.LegalName)
}

func TestGetRestaurantPromotions_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodGet, "/api/promotions/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRestaurantPromotions_BadPathParam(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodGet, "/api/promotions/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDefaultPromotions(t *testing.T) {
	server, fakes := newTestServer(t)
	fakes.promotions.result = &models.RestaurantPromotions{
		RestaurantID: 1,
		Contents:     []models.RestaurantContent{{ContentID: 10}},
	}

	rec := doRequest(server, http.MethodGet, "/api/promotions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fakes.promotions.lastID)

	var contents []models.RestaurantContent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contents))
	require.Len(t, contents, 1)
	assert.Equal(t, 10, contents[0].ContentID)
}

func TestRegisterClick(t *testing.T) {
	server, fakes := newTestServer(t)
	fakes.registrar.result = map[string]interface{}{"click": map[string]interface{}{"nro_click": float64(200)}}

	rec := doRequest(server, http.MethodPost, "/api/promotions/clicks", `{"nroContenido":10,"nroRestaurante":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, 10, fakes.registrar.lastReq.ContentID)
	require.NotNil(t, fakes.registrar.lastReq.RestaurantID)
	assert.Equal(t, 5, *fakes.registrar.lastReq.RestaurantID)
}

func TestRegisterClick_UnresolvedContent(t *testing.T) {
	server, fakes := newTestServer(t)
	fakes.registrar.err = errors.NewContentUnresolvedError(999)

	rec := doRequest(server, http.MethodPost, "/api/promotions/999/click", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterClick_InvalidBody(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(server, http.MethodPost, "/api/promotions/clicks", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterClickByContent(t *testing.T) {
	server, fakes := newTestServer(t)

	rec := doRequest(server, http.MethodPost, "/api/promotions/10/click", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 10, fakes.registrar.lastReq.ContentID)
	assert.Nil(t, fakes.registrar.lastReq.RestaurantID)
}

func TestGetRestaurantDetail(t *testing.T) {
	server, fakes := newTestServer(t)
	fakes.details.result = json.RawMessage(`{"nroRestaurante":5}`)

	rec := doRequest(server, http.MethodGet, "/api/restaurants/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"nroRestaurante":5}`, rec.Body.String())
}

func TestNotifyClicks(t *testing.T) {
	server, fakes := newTestServer(t)
	fakes.notifier.report = &notify.Report{Notified: 7}

	rec := doRequest(server, http.MethodPost, "/api/manual/notify-clicks?nroRestaurante=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["notificadosExitosos"])
	assert.Equal(t, float64(5), body["nroRestauranteFilter"])
	assert.NotEmpty(t, body["timestamp"])

	require.NotNil(t, fakes.notifier.lastFilter)
	assert.Equal(t, 5, *fakes.notifier.lastFilter)
}

func TestNotifyClicks_NoFilter(t *testing.T) {
	server, fakes := newTestServer(t)
	fakes.notifier.report = &notify.Report{Notified: 0}

	rec := doRequest(server, http.MethodPost, "/api/manual/notify-clicks", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	_, hasFilter := body["nroRestauranteFilter"]
	assert.False(t, hasFilter)
	assert.Nil(t, fakes.notifier.lastFilter)
}

func TestNotifyClicks_BatchError(t *testing.T) {
	server, fakes := newTestServer(t)
	fakes.notifier.err = stderrors.New("token signing failed")

	rec := doRequest(server, http.MethodPost, "/api/manual/notify-clicks", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestCORSPreflight(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/promotions/5", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:4200", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSUnknownOrigin(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
