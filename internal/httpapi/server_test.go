package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gro-garden-sync/internal/chainsync"
	"gro-garden-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"

type fakeGardens struct {
	err          error
	journalLimit int
}

func (f *fakeGardens) State(_ context.Context, w string) (*models.GardenState, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.GardenState{WalletAddress: w, Plants: []models.Plant{}, Weather: models.WeatherSunny}, nil
}

func (f *fakeGardens) Journal(_ context.Context, w string, limit int) ([]models.JournalEntry, error) {
	f.journalLimit = limit
	return []models.JournalEntry{{WalletAddress: w, Action: models.ActionDeposit, Details: "Deposited"}}, f.err
}

func (f *fakeGardens) WeeklySummary(_ context.Context, w string) (*models.WeeklySummary, error) {
	return &models.WeeklySummary{WalletAddress: w, Deposits: 3}, f.err
}

func (f *fakeGardens) Visit(_ context.Context, address string) (*models.VisitedGarden, error) {
	return &models.VisitedGarden{WalletAddress: address}, f.err
}

type fakeSyncer struct {
	synced []string
}

func (f *fakeSyncer) SyncAccount(_ context.Context, w string) (chainsync.SyncReport, error) {
	f.synced = append(f.synced, w)
	return chainsync.SyncReport{WalletAddress: w, PlantsChecked: 2, SyncedAt: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}, nil
}

func serve(t *testing.T, gardens *fakeGardens, syncer *fakeSyncer, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	server := NewServer(Config{Gardens: gardens, Syncer: syncer})
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(t, &fakeGardens{}, &fakeSyncer{}, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGardenState(t *testing.T) {
	rec := serve(t, &fakeGardens{}, &fakeSyncer{}, http.MethodGet, "/v1/gardens/"+wallet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var state models.GardenState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, wallet, state.WalletAddress)
	assert.Equal(t, models.WeatherSunny, state.Weather)
}

func TestInvalidAddress(t *testing.T) {
	for _, path := range []string{
		"/v1/gardens/not-a-wallet",
		"/v1/gardens/not-a-wallet/journal",
		"/v1/visit/0OIl",
	} {
		rec := serve(t, &fakeGardens{}, &fakeSyncer{}, http.MethodGet, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "invalid address")
	}
}

func TestSync(t *testing.T) {
	syncer := &fakeSyncer{}
	rec := serve(t, &fakeGardens{}, syncer, http.MethodPost, "/v1/gardens/"+wallet+"/sync")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{wallet}, syncer.synced)
	assert.Contains(t, rec.Body.String(), `"plants_checked":2`)

	rec = serve(t, &fakeGardens{}, syncer, http.MethodGet, "/v1/gardens/"+wallet+"/sync")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestJournalLimit(t *testing.T) {
	gardens := &fakeGardens{}
	rec := serve(t, gardens, &fakeSyncer{}, http.MethodGet, "/v1/gardens/"+wallet+"/journal")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DefaultJournalLimit, gardens.journalLimit)

	rec = serve(t, gardens, &fakeSyncer{}, http.MethodGet, "/v1/gardens/"+wallet+"/journal?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, gardens.journalLimit)

	for _, bad := range []string{"0", "-1", "abc", "501"} {
		rec = serve(t, gardens, &fakeSyncer{}, http.MethodGet, "/v1/gardens/"+wallet+"/journal?limit="+bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestSummaryAndVisit(t *testing.T) {
	rec := serve(t, &fakeGardens{}, &fakeSyncer{}, http.MethodGet, "/v1/gardens/"+wallet+"/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deposits":3`)

	rec = serve(t, &fakeGardens{}, &fakeSyncer{}, http.MethodGet, "/v1/visit/"+wallet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), wallet)
}

func TestServiceErrorIsHidden(t *testing.T) {
	rec := serve(t, &fakeGardens{err: errors.New("database is locked")}, &fakeSyncer{}, http.MethodGet, "/v1/gardens/"+wallet)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "locked"))
}

func TestMetricsEndpoint(t *testing.T) {
	serve(t, &fakeGardens{}, &fakeSyncer{}, http.MethodGet, "/healthz")
	rec := serve(t, &fakeGardens{}, &fakeSyncer{}, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gro_http_requests_total")
}
