package api_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayo6706/prepaid-recharge/internal/api"
	"github.com/ayo6706/prepaid-recharge/internal/api/middleware"
	"github.com/ayo6706/prepaid-recharge/internal/apigee"
	"github.com/ayo6706/prepaid-recharge/internal/config"
	"github.com/ayo6706/prepaid-recharge/internal/domain"
	"github.com/ayo6706/prepaid-recharge/internal/job"
	"github.com/ayo6706/prepaid-recharge/internal/repository"
	"github.com/ayo6706/prepaid-recharge/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testJWTSecret   = "test-secret-0123456789-test-secret"
	testJWTIssuer   = "prepaid-recharge-test"
	testJWTAudience = "recharge-api-test"
	testHMACKey     = "test-webhook-key"
)

func init() {
	middleware.SetJWTSecret(testJWTSecret)
	middleware.SetJWTValidation(testJWTIssuer, testJWTAudience)
}

type memoryScheduler struct {
	mu   sync.Mutex
	jobs []*job.BalanceAdjustmentJob
}

func (s *memoryScheduler) Schedule(ctx context.Context, j *job.BalanceAdjustmentJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, j)
	return nil
}

type stubResolver struct{}

func (stubResolver) ResolveAccount(ctx context.Context, recipient string) (domain.Target, error) {
	return domain.DeveloperTarget(recipient), nil
}

type stubController struct{}

func (stubController) GetByCurrency(ctx context.Context, currencyCode string) (domain.Money, error) {
	return domain.Money{}, apigee.ErrBalanceNotFound
}

func (stubController) TopUp(ctx context.Context, amount decimal.Decimal, currencyCode string) (domain.Money, error) {
	return domain.NewMoney(amount, currencyCode), nil
}

type stubFactory struct{}

func (stubFactory) ForTarget(target domain.Target) apigee.BalanceController { return stubController{} }

type memoryJobReader struct {
	records map[uuid.UUID]job.Record
}

func (r *memoryJobReader) Get(ctx context.Context, id uuid.UUID) (job.Record, error) {
	rec, ok := r.records[id]
	if !ok {
		return job.Record{}, repository.ErrJobNotFound
	}
	return rec, nil
}

func (r *memoryJobReader) ListByStatus(ctx context.Context, status string, limit int32) ([]job.Record, error) {
	var out []job.Record
	for _, rec := range r.records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func setupAPI(scheduler *memoryScheduler, jobs *memoryJobReader) http.Handler {
	aggregator := service.NewAggregatorService(stubResolver{}, scheduler, stubFactory{}, nil, nil, zap.NewNop())
	webhookSvc := service.NewOrderWebhookService(aggregator, testHMACKey, false)
	cfg := &config.Config{
		HTTPPort:             "0",
		JWTSecret:            testJWTSecret,
		JWTIssuer:            testJWTIssuer,
		JWTAudience:          testJWTAudience,
		WebhookHMACKey:       testHMACKey,
		WebhookRateLimitRPS:  1000,
		OperatorRateLimitRPS: 1000,
	}
	return api.NewRouter(cfg, zap.NewNop(), webhookSvc, jobs, nil, nil).Routes()
}

func generateTestToken(userID string) string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    "operator",
		"iss":     testJWTIssuer,
		"aud":     testJWTAudience,
		"sub":     userID,
		"iat":     now.Unix(),
		"nbf":     now.Add(-30 * time.Second).Unix(),
		"exp":     now.Add(time.Hour).Unix(),
	})
	signed, _ := token.SignedString([]byte(testJWTSecret))
	return signed
}

func signBody(body string) string {
	h := hmac.New(sha256.New, []byte(testHMACKey))
	h.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

const orderPayload = `{
	"id": "order-1",
	"state": "completed",
	"items": [
		{"id": "item-1", "add_credit_enabled": true, "recipient": "dev@example.com",
		 "total": {"amount": "19.99", "currency_code": "USD"}}
	]
}`

func TestWebhookEndpointRejectsBadSignature(t *testing.T) {
	router := setupAPI(&memoryScheduler{}, &memoryJobReader{})

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/order-completed", strings.NewReader(orderPayload))
	req.Header.Set("X-Webhook-Signature", "sha256=deadbeef")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookEndpointSchedulesJobs(t *testing.T) {
	scheduler := &memoryScheduler{}
	router := setupAPI(scheduler, &memoryJobReader{})

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/order-completed", strings.NewReader(orderPayload))
	req.Header.Set("X-Webhook-Signature", signBody(orderPayload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp service.OrderWebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "order-1", resp.OrderID)
	assert.Len(t, resp.JobIDs, 1)
	assert.Len(t, scheduler.jobs, 1)
}

func TestJobsEndpointsRequireAuth(t *testing.T) {
	router := setupAPI(&memoryScheduler{}, &memoryJobReader{})

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetJobReturnsRecord(t *testing.T) {
	id := uuid.New()
	jobs := &memoryJobReader{records: map[uuid.UUID]job.Record{
		id: {
			ID:           id,
			TargetKind:   "developer",
			TargetID:     "dev@example.com",
			Amount:       "19.99",
			CurrencyCode: "USD",
			Status:       domain.JobStatusFailed,
			Tag:          domain.BalanceUpdateTag,
			Error:        "calculation discrepancy",
		},
	}}
	router := setupAPI(&memoryScheduler{}, jobs)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+id.String(), nil)
	req.Header.Set("Authorization", "Bearer "+generateTestToken("operator-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got job.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
}

func TestGetJobUnknownIDIs404(t *testing.T) {
	router := setupAPI(&memoryScheduler{}, &memoryJobReader{})

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+generateTestToken("operator-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobsValidatesStatus(t *testing.T) {
	router := setupAPI(&memoryScheduler{}, &memoryJobReader{})

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs?status=BOGUS", nil)
	req.Header.Set("Authorization", "Bearer "+generateTestToken("operator-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthzAlwaysOK(t *testing.T) {
	router := setupAPI(&memoryScheduler{}, &memoryJobReader{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
