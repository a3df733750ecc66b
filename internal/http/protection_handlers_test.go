package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"electrohub-protection/internal/domain"
	"electrohub-protection/internal/repository"
	"electrohub-protection/internal/service"
)

// stubAssist 固定返回一组整定值建议
type stubAssist struct{}

func (stubAssist) SuggestSettings(_ context.Context, _ service.SuggestSettingsRequest) (*service.SuggestedSettings, error) {
	ir := 0.9
	return &service.SuggestedSettings{Ir: &ir}, nil
}

type testEnv struct {
	repo   *repository.MemoryRepo
	router *Router
	site   string
	sbID   string
	devID  string
}

// newTestEnv 内存仓库 + 全部 handler 的端到端测试环境
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	repo := repository.NewMemoryRepo()

	site := "plant-a"
	sbID := repo.SeedSwitchboard(domain.Switchboard{
		Site:         site,
		Name:         "MSB-1",
		BuildingCode: sql.NullString{String: "B1", Valid: true},
		Floor:        sql.NullString{String: "G", Valid: true},
		VoltageV:     sql.NullFloat64{Float64: 400, Valid: true},
	})
	devID := repo.SeedDevice(domain.Device{
		Site:          site,
		SwitchboardID: sbID,
		Name:          "F1 Feeder",
		RatedCurrentA: 250,
	})
	repo.SeedFaultLevel(domain.FaultLevel{Site: site, SwitchboardID: sbID, FaultKA: 20})

	checkSvc := service.NewCheckService(repo, repo, nil, time.Minute, logger)
	pointSvc := service.NewPointService(repo, repo, nil, logger)
	autofillSvc := service.NewAutofillService(repo, stubAssist{}, logger)

	router := NewRouter(logger)
	router.RegisterProtectionRoutes(
		NewPointHandler(pointSvc, logger),
		NewCheckHandler(checkSvc, logger),
		NewAutofillHandler(autofillSvc, logger),
	)
	router.RegisterHealthRoute("electrohub-protection", "test")

	return &testEnv{repo: repo, router: router, site: site, sbID: sbID, devID: devID}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestHealthRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListPoints_EnvelopeAndItems(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/points?site="+env.site, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(ResultSuccess), envelope["code"])
	assert.Equal(t, "success", envelope["type"])

	result := envelope["result"].(map[string]any)
	items := result["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "F1 Feeder", item["name"])
	assert.Equal(t, "MSB-1", item["switchboard_name"])
	pagination := result["pagination"].(map[string]any)
	assert.Equal(t, float64(1), pagination["total"])

	// pageSize / switchboard 查询参数生效
	rec = env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/points?site=%s&switchboard=%s&pageSize=5", env.site, env.sbID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	envelope = decodeEnvelope(t, rec)
	pagination = envelope["result"].(map[string]any)["pagination"].(map[string]any)
	assert.Equal(t, float64(5), pagination["size"])
	assert.Equal(t, float64(1), pagination["total"])
}

func TestListPoints_MissingSite(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/points", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "error", envelope["type"])
}

func TestListPoints_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/points?site="+env.site, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func (e *testEnv) checkURL() string {
	return fmt.Sprintf("/api/v1/check?site=%s&switchboard=%s&device=%s", e.site, e.sbID, e.devID)
}

func TestRunCheck_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, env.checkURL(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(ResultSuccess), envelope["code"])
	result := envelope["result"].(map[string]any)
	assert.Equal(t, "at-risk", result["status"])
	assert.Equal(t, 62.80, result["incident_energy"])
	assert.Equal(t, float64(4), result["ppe_category"])
	zones := result["riskZones"].([]any)
	require.Len(t, zones, 1)

	// 结果出现在列表行里
	rec = env.do(t, http.MethodGet, "/api/v1/points?site="+env.site, nil)
	envelope = decodeEnvelope(t, rec)
	item := envelope["result"].(map[string]any)["items"].([]any)[0].(map[string]any)
	check := item["check"].(map[string]any)
	assert.Equal(t, "at-risk", check["status"])
}

func TestRunCheck_UnknownPoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/check?site=%s&switchboard=%s&device=missing", env.site, env.sbID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunCheck_MissingIdentifiers(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/check?site="+env.site, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunCheck_PostNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, env.checkURL(), nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUpdateParameters_ThenCurves(t *testing.T) {
	env := newTestEnv(t)

	wd := 600.0
	rec := env.do(t, http.MethodPost, "/api/v1/parameters", map[string]any{
		"site":             env.site,
		"switchboard_id":   env.sbID,
		"device_id":        env.devID,
		"working_distance": wd,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	params := envelope["result"].(map[string]any)
	assert.Equal(t, wd, params["working_distance_mm"])

	rec = env.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/curves?site=%s&switchboard=%s&device=%s", env.site, env.sbID, env.devID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	envelope = decodeEnvelope(t, rec)
	curve := envelope["result"].(map[string]any)["curve"].([]any)
	assert.Len(t, curve, 19)
	first := curve[0].(map[string]any)
	assert.Equal(t, float64(100), first["distance"])
}

func TestUpdateParameters_BadEnclosure(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/parameters", map[string]any{
		"site":           env.site,
		"switchboard_id": env.sbID,
		"device_id":      env.devID,
		"enclosure_type": "CUBE",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAutofillRoute_SiteFromQuery(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/autofill?site="+env.site, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(ResultSuccess), envelope["code"])
}

func TestAutofillRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/autofill", map[string]string{"site": env.site})
	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(ResultSuccess), envelope["code"])
	result := envelope["result"].(map[string]any)
	updates := result["updates"].([]any)
	require.NotEmpty(t, updates)
	first := updates[0].(map[string]any)
	assert.Equal(t, true, first["settings_filled"])
}

func TestResetRoute(t *testing.T) {
	env := newTestEnv(t)

	// 先跑一次检查
	rec := env.do(t, http.MethodGet, env.checkURL(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/reset", map[string]string{"site": env.site})
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := env.repo.GetCheck(context.Background(), env.site, env.sbID, env.devID)
	assert.Error(t, err)

	// 幂等
	rec = env.do(t, http.MethodPost, "/api/v1/reset", map[string]string{"site": env.site})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExportPoints(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/points/export?site="+env.site, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}
