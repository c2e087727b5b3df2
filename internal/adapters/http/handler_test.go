package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/app"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/domain"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/ports"
)

type stubGenerator struct {
	reply ports.Reply
	err   error
	calls int
}

func (s *stubGenerator) Generate(_ context.Context, _ ports.GenerateInput) (ports.Reply, error) {
	s.calls++
	return s.reply, s.err
}

func newTestServer(t *testing.T, gen ports.Generator, policy app.FailurePolicy) *echo.Echo {
	t.Helper()
	logger := zaptest.NewLogger(t)
	svc := app.NewReadingService(gen, app.Options{
		Strategy:                ports.StrategyJSONObject,
		MaxOutputTokensBasic:    900,
		MaxOutputTokensDetailed: 2400,
		Policy:                  policy,
	}, logger)

	e := echo.New()
	e.Use(RequestIDMiddleware())
	e.Use(LoggingMiddleware(logger))
	NewHandler(svc, logger).Register(e)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const basicBody = `{"question":"要不要換工作？","mainCards":["力量","星星","寶劍二"]}`

func TestHealthz(t *testing.T) {
	e := newTestServer(t, &stubGenerator{}, app.PolicyFallback)
	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestServer(t, &stubGenerator{}, app.PolicyFallback)
	rec := do(e, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID_Propagated(t *testing.T) {
	e := newTestServer(t, &stubGenerator{}, app.PolicyFallback)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(headerRequestID))
}

func TestReadBasic_FallbackHidesFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("upstream down")}
	e := newTestServer(t, gen, app.PolicyFallback)

	rec := do(e, http.MethodPost, "/v1/readings/basic", basicBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, gen.calls)

	var env domain.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	req := domain.NewRequest("要不要換工作？", nil, []string{"力量", "星星", "寶劍二"}, nil)
	assert.Equal(t, app.FallbackEnvelope(req, domain.VariantBasic), env)
	assert.Contains(t, rec.Body.String(), `"context":null`)
	assert.NotContains(t, rec.Body.String(), "fallback")
}

func TestReadDetailed_Generated(t *testing.T) {
	mains := []string{"力量", "星星", "寶劍二"}
	branches := []string{"聖杯三", "權杖王牌", "錢幣騎士", "月亮", "太陽", "隱者", "寶劍八", "聖杯十", "命運之輪"}
	ctx := "目前在台中工作三年"
	req := domain.NewRequest("要不要搬到台北？", &ctx, mains, branches)

	// A valid detailed envelope with the fallback prose.
	want := app.FallbackEnvelope(req, domain.VariantDetailed)
	raw, err := json.Marshal(want)
	require.NoError(t, err)

	gen := &stubGenerator{reply: ports.Reply{OutputText: string(raw)}}
	e := newTestServer(t, gen, app.PolicyFallback)

	body, err := json.Marshal(ReadingRequest{Question: req.Question, Context: &ctx, MainCards: mains, BranchCards: branches})
	require.NoError(t, err)

	rec := do(e, http.MethodPost, "/v1/readings/detailed", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, string(raw), rec.Body.String())
}

func TestRead_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		body    string
		wantMsg string
	}{
		{"not json", "/v1/readings/basic", `{"question":`, "request body must be a JSON object"},
		{"missing question", "/v1/readings/basic", `{"mainCards":["a","b","c"]}`, "question is required"},
		{"blank question", "/v1/readings/basic", `{"question":"  ","mainCards":["a","b","c"]}`, "question"},
		{"two main cards", "/v1/readings/basic", `{"question":"q","mainCards":["a","b"]}`, "mainCards"},
		{"missing branch cards", "/v1/readings/detailed", `{"question":"q","mainCards":["a","b","c"]}`, "branchCards is required"},
		{"eight branch cards", "/v1/readings/detailed", `{"question":"q","mainCards":["a","b","c"],"branchCards":["1","2","3","4","5","6","7","8"]}`, "branchCards"},
		{"array body", "/v1/readings/basic", `[]`, "object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{}
			e := newTestServer(t, gen, app.PolicyFallback)

			rec := do(e, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, gen.calls)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, tt.wantMsg)
		})
	}
}

func TestRead_PropagatedFailure(t *testing.T) {
	long := "抱歉" + strings.Repeat("無法", 300)
	gen := &stubGenerator{reply: ports.Reply{OutputText: long}}
	e := newTestServer(t, gen, app.PolicyPropagate)

	rec := do(e, http.MethodPost, "/v1/readings/basic", basicBody)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "JSON_PARSE_FAILED", resp.Error)
	assert.Equal(t, domain.Preview(long), resp.Preview)
	assert.NotContains(t, rec.Body.String(), long)
}

func TestRead_PropagatedGenerationFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("status 503")}
	e := newTestServer(t, gen, app.PolicyPropagate)

	rec := do(e, http.MethodPost, "/v1/readings/basic", basicBody)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "GENERATION_SERVICE_FAILED", resp.Error)
	assert.Equal(t, "status 503", resp.Detail)
}

func TestValidateBody_ContextNullAllowed(t *testing.T) {
	assert.NoError(t, validateBody(domain.VariantBasic, []byte(`{"question":"q","context":null,"mainCards":["a","b","c"]}`)))
	assert.Error(t, validateBody(domain.VariantBasic, []byte(`{"question":"q","context":5,"mainCards":["a","b","c"]}`)))
}

func TestValidateBody_LabelTooLong(t *testing.T) {
	label := strings.Repeat("牌", domain.MaxCardLabelRunes+1)
	err := validateBody(domain.VariantBasic, []byte(`{"question":"q","mainCards":["`+label+`","b","c"]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mainCards.0")
}
