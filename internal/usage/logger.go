package usage

import (
	"context"
	"database/sql"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/aetherblog/ai-service/internal/metrics"
	"github.com/aetherblog/ai-service/internal/platform/logger"
	"github.com/aetherblog/ai-service/internal/store"
	"github.com/aetherblog/ai-service/internal/store/model"
)

// Entry is one request outcome to persist. Model may be the combined
// "provider/model" form; TaskType may be empty and is then inferred from
// the endpoint path.
type Entry struct {
	UserID   string
	Endpoint string
	TaskType string

	Model        string
	ProviderCode string
	ModelID      string

	TokensIn  int
	TokensOut int
	LatencyMS int64

	InputCostPer1k  *float64
	OutputCostPer1k *float64

	Success   bool
	Cached    bool
	ErrorCode string
	RequestID string
}

// Logger writes the usage-audit rows. A failed write never reaches the
// caller; it is classified and handed to the metrics store instead.
type Logger struct {
	repo    store.Repository
	metrics *metrics.Store
}

func NewLogger(repo store.Repository, m *metrics.Store) *Logger {
	return &Logger{repo: repo, metrics: m}
}

// Record persists the entry. The business outcome is already decided when
// this runs, so any storage error is swallowed into telemetry.
func (l *Logger) Record(ctx context.Context, e Entry) {
	taskType := e.TaskType
	if taskType == "" {
		taskType = TaskTypeFromPath(e.Endpoint)
	}

	providerCode, modelID := e.ProviderCode, e.ModelID
	if modelID == "" {
		providerCode, modelID = SplitModel(e.Model)
		if e.ProviderCode != "" {
			providerCode = e.ProviderCode
		}
	}

	row := &model.UsageLog{
		Endpoint:      e.Endpoint,
		TaskType:      taskType,
		ProviderCode:  providerCode,
		ModelID:       modelID,
		TokensIn:      e.TokensIn,
		TokensOut:     e.TokensOut,
		TotalTokens:   e.TokensIn + e.TokensOut,
		LatencyMS:     e.LatencyMS,
		EstimatedCost: EstimateCost(e.TokensIn, e.TokensOut, e.InputCostPer1k, e.OutputCostPer1k),
		Success:       e.Success,
		Cached:        e.Cached,
	}
	if e.UserID != "" {
		row.UserID = sql.NullString{String: e.UserID, Valid: true}
	}
	if e.ErrorCode != "" {
		row.ErrorCode = sql.NullString{String: e.ErrorCode, Valid: true}
	}
	if e.RequestID != "" {
		row.RequestID = sql.NullString{String: e.RequestID, Valid: true}
	}

	if err := l.repo.Usage().Insert(ctx, row); err != nil {
		category := Classify(err)
		alert := l.metrics.RecordUsageLogFailure(string(category), e.Endpoint, err.Error(), e.Success)
		logger.Warn("usage log write failed",
			zap.String("endpoint", e.Endpoint),
			zap.String("category", string(category)),
			zap.Bool("alert", alert),
			zap.Error(err))
	}
}

// TaskTypeFromPath infers the logical task from an endpoint path: the
// segment right after "ai", or the last segment when none is present.
func TaskTypeFromPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if seg == "ai" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	if len(segments) > 0 {
		return segments[len(segments)-1]
	}
	return ""
}

// SplitModel breaks a combined "provider/model" string apart. A bare
// model string yields an empty provider.
func SplitModel(combined string) (providerCode, modelID string) {
	if idx := strings.Index(combined, "/"); idx >= 0 {
		return combined[:idx], combined[idx+1:]
	}
	return "", combined
}

// EstimateTokens approximates a token count from text length. Non-empty
// text counts as at least one token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// EstimateCost computes (in_per_1k*tokens_in + out_per_1k*tokens_out) /
// 1000, rounded half-up to 8 decimals. Missing costs count as zero.
func EstimateCost(tokensIn, tokensOut int, inputCostPer1k, outputCostPer1k *float64) float64 {
	var inCost, outCost float64
	if inputCostPer1k != nil {
		inCost = *inputCostPer1k
	}
	if outputCostPer1k != nil {
		outCost = *outputCostPer1k
	}

	raw := (inCost*float64(tokensIn) + outCost*float64(tokensOut)) / 1000
	return math.Floor(raw*1e8+0.5) / 1e8
}
