package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayo6706/prepaid-recharge/internal/domain"
	"github.com/google/uuid"
)

// ErrInvalidSignature is returned when the webhook HMAC does not verify.
var ErrInvalidSignature = errors.New("invalid signature")

// OrderWebhookService verifies and decodes order-completed webhook events
// from the commerce storefront and hands them to the aggregator.
type OrderWebhookService struct {
	aggregator *AggregatorService
	hmacKey    []byte
	skipSig    bool
}

// NewOrderWebhookService creates the webhook service.
func NewOrderWebhookService(aggregator *AggregatorService, hmacKey string, skipSignature bool) *OrderWebhookService {
	return &OrderWebhookService{
		aggregator: aggregator,
		hmacKey:    []byte(hmacKey),
		skipSig:    skipSignature,
	}
}

// OrderWebhookResponse reports what the event produced.
type OrderWebhookResponse struct {
	OrderID string      `json:"order_id"`
	JobIDs  []uuid.UUID `json:"job_ids"`
	Message string      `json:"message"`
}

// HandleOrderCompleted verifies the payload signature, decodes the order and
// runs aggregation.
func (s *OrderWebhookService) HandleOrderCompleted(ctx context.Context, payload []byte, signature string) (*OrderWebhookResponse, error) {
	if !s.verifyHMAC(payload, signature) {
		return nil, ErrInvalidSignature
	}

	var order domain.Order
	if err := json.Unmarshal(payload, &order); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	if order.ID == "" {
		return nil, errors.New("order id is required")
	}

	jobIDs, err := s.aggregator.HandleOrderCompleted(ctx, order)
	if err != nil {
		return nil, err
	}

	message := "No balance adjustments scheduled"
	if len(jobIDs) > 0 {
		message = fmt.Sprintf("%d balance adjustment(s) scheduled", len(jobIDs))
	}
	return &OrderWebhookResponse{
		OrderID: order.ID,
		JobIDs:  jobIDs,
		Message: message,
	}, nil
}

// verifyHMAC verifies the HMAC-SHA256 signature of the payload.
func (s *OrderWebhookService) verifyHMAC(payload []byte, signature string) bool {
	if s.skipSig {
		return true
	}
	if len(s.hmacKey) == 0 {
		return false
	}

	h := hmac.New(sha256.New, s.hmacKey)
	h.Write(payload)
	expectedSig := "sha256=" + hex.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedSig))
}
