package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ClaimReserve/internal/domain/models"
	domrepo "ClaimReserve/internal/domain/repository"
	"ClaimReserve/internal/services/chainladder"
	apphttp "ClaimReserve/pkg/http"
	pkgkafka "ClaimReserve/pkg/kafka"
)

// KafkaAnalysisHandler consumes analysis requests. Results leave through the
// use case's publisher.
type KafkaAnalysisHandler struct {
	topic    string
	analysis *ReserveAnalysis
	metrics  domrepo.Metrics
}

func NewKafkaAnalysisHandler(topic string, analysis *ReserveAnalysis, metrics domrepo.Metrics) *KafkaAnalysisHandler {
	return &KafkaAnalysisHandler{topic: topic, analysis: analysis, metrics: metrics}
}

func (h *KafkaAnalysisHandler) Topic() string { return h.topic }

// Handle runs one request. Malformed or invalid requests are permanent
// failures and go straight to the dead letter topic.
func (h *KafkaAnalysisHandler) Handle(ctx context.Context, b []byte) error {
	var msg models.AnalysisRequestMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode analysis request: %w", err))
	}
	if errs := apphttp.ValidateStruct(ctx, &msg); len(errs) > 0 {
		h.metrics.RecordError("consumer_validate")
		return pkgkafka.Permanent(fmt.Errorf("invalid analysis request: %s", errs[0].Message))
	}
	if msg.RequestID == "" {
		msg.RequestID = uuid.NewString()
	}

	_, err := h.analysis.Analyze(ctx, AnalysisInput{
		Source:    SourceKafka,
		RequestID: msg.RequestID,
		Policies:  models.PoliciesFromRecords(msg.Policies),
		Options:   msg.Options.ToOptions(),
	})
	if errors.Is(err, chainladder.ErrInvalidInput) {
		return pkgkafka.Permanent(err)
	}
	return err
}

var _ pkgkafka.MessageHandler = (*KafkaAnalysisHandler)(nil)
