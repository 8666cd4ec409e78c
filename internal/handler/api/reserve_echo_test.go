package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClaimReserve/internal/domain/models"
	domrepo "ClaimReserve/internal/domain/repository"
	"ClaimReserve/internal/repository"
	"ClaimReserve/internal/service/metrics"
	"ClaimReserve/internal/services/chainladder"
	"ClaimReserve/internal/usecase"
	xhttp "ClaimReserve/pkg/http"
	xlogger "ClaimReserve/pkg/logger"
	pkgmetrics "ClaimReserve/pkg/metrics"
)

const sampleCSV = `policy_id,subscription_length,vehicle_age,customer_age,fuel_type,ncap_rating,claim_status
P1,9.3,1.2,41,Petrol,3,1
P2,0.6,2.0,35,Diesel,0,0
P3,4.1,0.4,52,CNG,5,1
P4,11.8,3.1,29,Petrol,2,1
P5,7.0,1.0,44,Diesel,4,0
P6,2.5,0.8,38,CNG,3,1
P7,5.6,2.2,61,Petrol,1,1
P8,1.4,0.2,47,Diesel,4,1
`

type memorySource map[string][]models.Policy

func (s memorySource) ListPolicies(_ context.Context, portfolio string) ([]models.Policy, error) {
	p, ok := s[portfolio]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domrepo.ErrPortfolioNotFound, portfolio)
	}
	return p, nil
}

type allowN struct{ n int }

func (a *allowN) Allow(string) bool {
	a.n--
	return a.n >= 0
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	e   *echo.Echo
	reg *prometheus.Registry
}

func newTestAPI(t *testing.T, limiter interface{ Allow(string) bool }, opts ...usecase.Option) *testAPI {
	t.Helper()
	reg := prometheus.NewRegistry()
	engine := chainladder.NewEngine(chainladder.DefaultConfig())
	uc := usecase.NewReserveAnalysis(engine, pkgmetrics.New(reg), opts...)
	h := NewReserveEchoHandler(xlogger.NewNop(), uc, repository.NewCSVPolicyReader(100), limiter, metrics.NewEndpoints(reg))
	srv := xhttp.NewServer(h, xhttp.WithCORS(false), xhttp.WithBodyLimit(1<<20))
	return &testAPI{e: srv.Echo(), reg: reg}
}

func (a *testAPI) do(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func uploadRequest(t *testing.T, filename, content, options string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "-" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	if options != "" {
		require.NoError(t, w.WriteField("options", options))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func appErrors(t *testing.T, env envelope) []xhttp.AppError {
	t.Helper()
	var errs []xhttp.AppError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.NotEmpty(t, errs)
	return errs
}

func TestHealthAndIndex(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, env := api.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","message":"Claims Reserving API is running"}`, string(env.Data))

	rec, env = api.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var idx struct {
		Message   string            `json:"message"`
		Version   string            `json:"version"`
		Endpoints map[string]string `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &idx))
	assert.Equal(t, "Claims Reserving Analysis API", idx.Message)
	assert.Equal(t, "1.0.0", idx.Version)
	assert.Contains(t, idx.Endpoints, "POST /api/analyze")
	assert.NotContains(t, idx.Endpoints, "GET /api/portfolios/:portfolio/analysis")
}

func TestAnalyzeUpload(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, env := api.do(uploadRequest(t, "policies.CSV", sampleCSV, `{"method":"weighted_average","tailFactor":1.05}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res models.ReserveResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, models.MethodWeightedAverage, res.Method)
	assert.Equal(t, 1.05, res.TailFactor)
	assert.NotEmpty(t, res.Summary)
	assert.InDelta(t, res.TotalPaid+res.TotalIBNR, res.TotalUltimate, 1e-6)

	assert.Equal(t, 1.0, counterTotal(t, api.reg, "reserving_analyses_total"))
}

func counterTotal(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestAnalyzeUploadFallsBackToDefaultOptions(t *testing.T) {
	api := newTestAPI(t, nil)

	for _, opts := range []string{"", "{not json", `{"tailFactor":"high"}`, `{"method":"chain"}`} {
		rec, env := api.do(uploadRequest(t, "policies.csv", sampleCSV, opts))
		require.Equal(t, http.StatusOK, rec.Code, opts)

		var res models.ReserveResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, models.MethodSimpleAverage, res.Method, opts)
		assert.Equal(t, 1.0, res.TailFactor, opts)
	}
}

func TestAnalyzeUploadRejections(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		code     string
		message  string
	}{
		{name: "no file", filename: "-", code: "ERR_REQUIRED", message: "No file uploaded"},
		{name: "wrong type", filename: "policies.xlsx", content: sampleCSV, code: "ERR_FILE_TYPE", message: "Invalid file type. Please upload a CSV file."},
		{name: "missing columns", filename: "p.csv", content: "policy_id,vehicle_age\nP1,1\n", code: "ERR_MALFORMED_TABLE"},
	}

	api := newTestAPI(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := api.do(uploadRequest(t, tt.filename, tt.content, ""))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			errs := appErrors(t, env)
			assert.Equal(t, tt.code, errs[0].Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, errs[0].Message)
			}
		})
	}
}

func TestAnalyzeUploadReportsTablePosition(t *testing.T) {
	api := newTestAPI(t, nil)
	csv := "subscription_length,vehicle_age,customer_age,fuel_type,ncap_rating,claim_status\n1,1,30,Petrol,3,0\n2,x,30,Petrol,3,1\n"

	rec, env := api.do(uploadRequest(t, "p.csv", csv, ""))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := appErrors(t, env)
	assert.Equal(t, "ERR_MALFORMED_TABLE", errs[0].Code)
	assert.Equal(t, float64(3), errs[0].Params["line"])
	assert.Equal(t, "vehicle_age", errs[0].Params["column"])
}

func TestAnalyzeUploadReportsViolationRows(t *testing.T) {
	api := newTestAPI(t, nil)
	csv := "subscription_length,vehicle_age,customer_age,fuel_type,ncap_rating,claim_status\n1,1,30,Petrol,3,0\n2,1,30,,9,2\n"

	rec, env := api.do(uploadRequest(t, "p.csv", csv, ""))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var verrs []xhttp.ValidationError
	require.NoError(t, json.Unmarshal(env.Data, &verrs))
	require.Len(t, verrs, 3)
	for _, v := range verrs {
		require.NotNil(t, v.Row)
		assert.Equal(t, 1, *v.Row)
	}
	assert.Equal(t, 0.0, counterTotal(t, api.reg, "reserving_analyses_total"))
}

func TestAnalyzeUploadTooLarge(t *testing.T) {
	api := newTestAPI(t, nil)
	big := sampleCSV + strings.Repeat("P9,1,1,30,Petrol,3,0\n", 60000)

	rec, env := api.do(uploadRequest(t, "p.csv", big, ""))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "ERR_PAYLOAD_TOO_LARGE", appErrors(t, env)[0].Code)
}

func TestAnalyzeJSON(t *testing.T) {
	api := newTestAPI(t, nil)
	body := `{"policies":[
		{"policy_id":"P1","subscription_length":9.3,"vehicle_age":1.2,"customer_age":41,"fuel_type":"Petrol","ncap_rating":3,"claim_status":1},
		{"policy_id":"P2","subscription_length":4.1,"vehicle_age":0.4,"customer_age":52,"fuel_type":"CNG","ncap_rating":0,"claim_status":0}
	],"options":{"method":"median"}}`

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/json", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec, env := api.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res models.ReserveResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.MethodMedian, res.Method)
	assert.Equal(t, 1.0, res.TailFactor)
}

func TestAnalyzeJSONValidation(t *testing.T) {
	api := newTestAPI(t, nil)
	body := `{"policies":[
		{"subscription_length":9.3,"vehicle_age":1.2,"customer_age":41,"fuel_type":"Petrol","ncap_rating":3,"claim_status":1},
		{"subscription_length":4.1,"vehicle_age":0.4,"customer_age":52,"fuel_type":"CNG","ncap_rating":3,"claim_status":4}
	]}`

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/json", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec, env := api.do(req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var verrs []xhttp.ValidationError
	require.NoError(t, json.Unmarshal(env.Data, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "ERR_ONEOF", verrs[0].Code)
	assert.Equal(t, "claim_status", verrs[0].Field)
	require.NotNil(t, verrs[0].Row)
	assert.Equal(t, 1, *verrs[0].Row)
}

func TestAnalyzePortfolio(t *testing.T) {
	reader := repository.NewCSVPolicyReader(0)
	policies, err := reader.Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	api := newTestAPI(t, nil, usecase.WithPolicySource(memorySource{"motor": policies}))

	rec, env := api.do(httptest.NewRequest(http.MethodGet, "/api/portfolios/motor/analysis?method=geometric_mean&tail_factor=1.1", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res models.ReserveResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.MethodGeometricMean, res.Method)
	assert.Equal(t, 1.1, res.TailFactor)

	rec, env = api.do(httptest.NewRequest(http.MethodGet, "/api/portfolios/fleet/analysis", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ERR_NOT_FOUND", appErrors(t, env)[0].Code)

	rec, _ = api.do(httptest.NewRequest(http.MethodGet, "/api/portfolios/motor/analysis?tail_factor=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzePortfolioDisabled(t *testing.T) {
	api := newTestAPI(t, nil)

	rec, env := api.do(httptest.NewRequest(http.MethodGet, "/api/portfolios/motor/analysis", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "ERR_UNAVAILABLE", appErrors(t, env)[0].Code)
}

func TestAnalyzeRateLimited(t *testing.T) {
	api := newTestAPI(t, &allowN{n: 1})

	rec, _ := api.do(uploadRequest(t, "p.csv", sampleCSV, ""))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := api.do(uploadRequest(t, "p.csv", sampleCSV, ""))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "ERR_RATE_LIMITED", appErrors(t, env)[0].Code)

	rec, _ = api.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
