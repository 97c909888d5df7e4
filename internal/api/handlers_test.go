package api

import (
	"bytes"
	"encoding/json"
	"math"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"cloneselect/adapters/rng"
	"cloneselect/app"
	"cloneselect/domain/core"
	"cloneselect/internal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer() *Server {
	logger := internal.NewLogger(internal.LogLevelError)
	rngAdapter := rng.NewSeededAdapter()
	simulation := app.NewSimulationService(rngAdapter, logger)
	sensitivity := app.NewSensitivityService(simulation, rngAdapter, 2, 40, logger)
	sweep := app.NewSweepService(simulation, logger)
	return NewServer(simulation, sensitivity, sweep, 42, logger)
}

func results(n int) []float64 {
	r := rand.New(rand.NewPCG(3, 5))
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Exp(0.5 * r.NormFloat64())
	}
	return out
}

func post(t *testing.T, s *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func simulationBody(n int, cfg map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data":   map[string]interface{}{"results": results(n)},
		"config": cfg,
	}
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "status").String())
}

func TestSimulate(t *testing.T) {
	w := post(t, newTestServer(), "/api/v1/simulate", simulationBody(300, map[string]interface{}{
		"step1_keep": 60, "step2_keep": 10, "n_rep": 100, "correlation": 0.7,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := w.Body.String()
	assert.NotEmpty(t, gjson.Get(body, "run_id").String())
	p := gjson.Get(body, "result.probability").Float()
	assert.GreaterOrEqual(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)
	assert.Equal(t, int64(100), gjson.Get(body, "result.n_rep").Int())
	assert.Equal(t, int64(10), gjson.Get(body, "result.final_keep").Int())
	assert.Equal(t, "lognormal", gjson.Get(body, "result.fitted_model.method").String())
	assert.Len(t, gjson.Get(body, "result.success_counts").Array(), 100)
}

func TestSimulate_Errors(t *testing.T) {
	s := newTestServer()

	w := post(t, s, "/api/v1/simulate", simulationBody(50, map[string]interface{}{"step1_keep": 51, "step2_keep": 10}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", gjson.Get(w.Body.String(), "code").String())
	assert.Contains(t, gjson.Get(w.Body.String(), "error").String(), "step 1 keep (51)")

	w = post(t, s, "/api/v1/simulate", simulationBody(50, map[string]interface{}{
		"step1_keep": 20, "step2_keep": 10, "distribution_method": "weibull",
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", gjson.Get(w.Body.String(), "code").String())

	w = post(t, s, "/api/v1/simulate", map[string]interface{}{"data": map[string]interface{}{"results": []float64{}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/simulate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSweep_JSONAndCSV(t *testing.T) {
	s := newTestServer()
	body := simulationBody(300, map[string]interface{}{"step1_keep": 60, "step2_keep": 10, "n_rep": 50})
	body["correlations"] = []float64{0.2, 0.8}

	w := post(t, s, "/api/v1/sweep", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, gjson.Get(w.Body.String(), "points").Array(), 2)
	assert.Equal(t, 0.8, gjson.Get(w.Body.String(), "points.1.correlation").Float())
	assert.True(t, gjson.Get(w.Body.String(), "summary.max_probability").Exists())

	w = post(t, s, "/api/v1/sweep?format=csv", body)
	require.Equal(t, http.StatusOK, w.Code)
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Equal(t, "Correlation,Success_Probability", lines[0])
	assert.Len(t, lines, 3)
}

func TestSweep_RangeAndMarkdown(t *testing.T) {
	body := simulationBody(300, map[string]interface{}{"step1_keep": 60, "step2_keep": 10, "n_rep": 20})
	body["correlation_range"] = map[string]float64{"min": 0.1, "max": 0.3, "step": 0.1}

	w := post(t, newTestServer(), "/api/v1/sweep?format=markdown", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "## Key Findings")
	assert.Contains(t, w.Body.String(), "## Data")
}

func TestSensitivity(t *testing.T) {
	body := simulationBody(300, map[string]interface{}{"step1_keep": 60, "step2_keep": 10})
	body["correlations"] = []float64{0.6}

	w := post(t, newTestServer(), "/api/v1/sensitivity", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := gjson.Get(w.Body.String(), "sensitivity")
	assert.Len(t, res.Get("top_x_percent.values").Array(), 5)
	assert.Equal(t, int64(30), res.Get("step1_keep.values.0").Int())
	assert.Len(t, res.Get("step2_keep.probabilities").Array(), 5)
}

func TestCompare(t *testing.T) {
	w := post(t, newTestServer(), "/api/v1/compare", simulationBody(300, map[string]interface{}{
		"step1_keep": 60, "step2_keep": 20, "step3_keep": 5, "n_rep": 50,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0.5, gjson.Get(w.Body.String(), "correlation").Float())
	assert.True(t, gjson.Get(w.Body.String(), "two_step").Exists())
	assert.True(t, gjson.Get(w.Body.String(), "three_step").Exists())
}

func TestSynthetic(t *testing.T) {
	s := newTestServer()
	w := post(t, s, "/api/v1/synthetic", map[string]interface{}{
		"data":                map[string]interface{}{"results": results(100)},
		"distribution_method": "kde",
		"count":               25,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, gjson.Get(w.Body.String(), "values").Array(), 25)

	w = post(t, s, "/api/v1/synthetic", map[string]interface{}{
		"data":         map[string]interface{}{"results": []float64{1}},
		"fitted_model": map[string]interface{}{"method": "lognormal", "shape": 0.5, "loc": 0, "scale": 2},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, gjson.Get(w.Body.String(), "values").Array(), app.SyntheticOverlaySize)

	w = post(t, s, "/api/v1/synthetic", map[string]interface{}{
		"data":                map[string]interface{}{"results": []float64{1}},
		"distribution_method": "beta",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEfficiency(t *testing.T) {
	s := newTestServer()
	w := post(t, s, "/api/v1/efficiency", map[string]int{"step1_keep": 96, "step2_keep": 48, "step3_keep": 6, "workflow_steps": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 16.0, gjson.Get(w.Body.String(), "reduction_ratio").Float())
	assert.Equal(t, 0.125, gjson.Get(w.Body.String(), "step2_efficiency").Float())

	w = post(t, s, "/api/v1/efficiency", map[string]int{"step1_keep": 0, "step2_keep": 48})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestValidate(t *testing.T) {
	w := post(t, newTestServer(), "/api/v1/validate", map[string]interface{}{
		"config":       map[string]interface{}{"step1_keep": 8, "step2_keep": 6, "step3_keep": 2, "workflow_steps": 3},
		"total_clones": 5,
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.False(t, gjson.Get(body, "ok").Bool())
	assert.Contains(t, gjson.Get(body, "errors.0").String(), "exceeds available clones")
	assert.GreaterOrEqual(t, len(gjson.Get(body, "warnings").Array()), 3)
}

func TestProfile(t *testing.T) {
	w := post(t, newTestServer(), "/api/v1/profile", map[string]interface{}{
		"results":  []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100},
		"criteria": map[string][]float64{"Criteria_A": {1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := w.Body.String()
	assert.Equal(t, int64(10), gjson.Get(body, "profile.summary.valid_results").Int())
	assert.Equal(t, int64(1), gjson.Get(body, "profile.quality.outliers").Int())
	assert.Equal(t, "kde", gjson.Get(body, "suggested_method").String())
	assert.Len(t, gjson.Get(body, "recommendations").Array(), 4)
}

func TestProfile_MismatchedCriteria(t *testing.T) {
	w := post(t, newTestServer(), "/api/v1/profile", map[string]interface{}{
		"results":  []float64{1, 2, 3},
		"criteria": map[string][]float64{"Criteria_A": {1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSweepAsync_StreamsProgress(t *testing.T) {
	s := newTestServer()
	body := simulationBody(300, map[string]interface{}{"step1_keep": 60, "step2_keep": 10, "n_rep": 20})
	body["correlations"] = []float64{0.2, 0.5, 0.8}

	w := post(t, s, "/api/v1/sweep/async", body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	runID := gjson.Get(w.Body.String(), "run_id").String()
	require.NotEmpty(t, runID)
	assert.Equal(t, int64(3), gjson.Get(w.Body.String(), "points").Int())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+runID+"/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	stream := rec.Body.String()
	assert.Equal(t, 3, strings.Count(stream, "event:progress"))
	assert.Equal(t, 1, strings.Count(stream, "event:complete"))
	assert.Contains(t, stream, `"optimal_correlation"`)
}

func TestSweepAsync_Errors(t *testing.T) {
	s := newTestServer()
	w := post(t, s, "/api/v1/sweep/async", simulationBody(50, map[string]interface{}{"step1_keep": 51, "step2_keep": 10}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/not-a-uuid/events", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+core.NewRunID().String()+"/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
