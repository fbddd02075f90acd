package usage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetherblog/ai-service/internal/metrics"
	"github.com/aetherblog/ai-service/internal/store"
	"github.com/aetherblog/ai-service/internal/store/model"
)

// stubRepo satisfies just enough of store.Repository for the logger, which
// only touches Usage().
type stubRepo struct {
	store.Repository
	usage *stubUsageRepo
}

func (r *stubRepo) Usage() store.UsageRepository { return r.usage }

type stubUsageRepo struct {
	store.UsageRepository
	insertErr error
	inserted  []*model.UsageLog
}

func (u *stubUsageRepo) Insert(_ context.Context, l *model.UsageLog) error {
	if u.insertErr != nil {
		return u.insertErr
	}
	u.inserted = append(u.inserted, l)
	return nil
}

func newStubLogger(insertErr error, m *metrics.Store) (*Logger, *stubUsageRepo) {
	usage := &stubUsageRepo{insertErr: insertErr}
	return NewLogger(&stubRepo{usage: usage}, m), usage
}

func TestRecordPersistsRow(t *testing.T) {
	l, usage := newStubLogger(nil, metrics.NewStore(10, 50))

	in := 0.001
	out := 0.002
	l.Record(context.Background(), Entry{
		UserID:          "42",
		Endpoint:        "/api/v1/ai/summary",
		Model:           "openai/gpt-4o",
		TokensIn:        1000,
		TokensOut:       500,
		LatencyMS:       120,
		InputCostPer1k:  &in,
		OutputCostPer1k: &out,
		Success:         true,
		RequestID:       "req-1",
	})

	require.Len(t, usage.inserted, 1)
	row := usage.inserted[0]
	assert.Equal(t, "summary", row.TaskType) // inferred from the path
	assert.Equal(t, "openai", row.ProviderCode)
	assert.Equal(t, "gpt-4o", row.ModelID)
	assert.Equal(t, 1500, row.TotalTokens)
	assert.InDelta(t, 0.002, row.EstimatedCost, 1e-12)
	assert.True(t, row.Success)
	assert.Equal(t, "42", row.UserID.String)
	assert.Equal(t, "req-1", row.RequestID.String)
	assert.False(t, row.ErrorCode.Valid)
}

func TestRecordExplicitFieldsWin(t *testing.T) {
	l, usage := newStubLogger(nil, metrics.NewStore(10, 50))

	l.Record(context.Background(), Entry{
		Endpoint:     "/api/v1/ai/tags",
		TaskType:     "custom-task",
		ProviderCode: "anthropic",
		ModelID:      "claude-sonnet-4-5",
		ErrorCode:    "upstream timeout",
	})

	require.Len(t, usage.inserted, 1)
	row := usage.inserted[0]
	assert.Equal(t, "custom-task", row.TaskType)
	assert.Equal(t, "anthropic", row.ProviderCode)
	assert.Equal(t, "claude-sonnet-4-5", row.ModelID)
	assert.Equal(t, "upstream timeout", row.ErrorCode.String)
	assert.False(t, row.UserID.Valid)
}

func TestRecordSwallowsWriteFailure(t *testing.T) {
	m := metrics.NewStore(2, 50)
	l, _ := newStubLogger(errors.New("database is locked"), m)

	// must not panic or surface the error
	l.Record(context.Background(), Entry{Endpoint: "/api/v1/ai/summary", Success: true})
	l.Record(context.Background(), Entry{Endpoint: "/api/v1/ai/summary", Success: false})

	snap := m.Snapshot().UsageLogging
	assert.Equal(t, int64(2), snap.FailuresTotal)
	assert.Equal(t, int64(1), snap.DegradedSuccessTotal)
	assert.Equal(t, int64(2), snap.ErrorCategories["db_write"])
	assert.Equal(t, int64(2), snap.Endpoints["/api/v1/ai/summary"])
	// second failure lands on the threshold multiple
	assert.Equal(t, int64(1), snap.AlertEvents)
}

func TestTaskTypeFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/ai/summary", "summary"},
		{"/api/v1/ai/summary/stream", "summary"},
		{"/api/v1/ai/translate", "translate"},
		{"/embedding", "embedding"},
		{"summary", "summary"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := TaskTypeFromPath(tt.path); got != tt.want {
			t.Errorf("TaskTypeFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSplitModel(t *testing.T) {
	tests := []struct {
		combined     string
		wantProvider string
		wantModel    string
	}{
		{"openai/gpt-4o", "openai", "gpt-4o"},
		{"azure/my-deployment", "azure", "my-deployment"},
		{"claude-sonnet-4-5", "", "claude-sonnet-4-5"},
		{"a/b/c", "a", "b/c"},
		{"", "", ""},
	}

	for _, tt := range tests {
		provider, modelID := SplitModel(tt.combined)
		if provider != tt.wantProvider || modelID != tt.wantModel {
			t.Errorf("SplitModel(%q) = (%q, %q), want (%q, %q)",
				tt.combined, provider, modelID, tt.wantProvider, tt.wantModel)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"eight ch", 2},
		{"a string of forty characters in length..", 10},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestEstimateCost(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name      string
		tokensIn  int
		tokensOut int
		inCost    *float64
		outCost   *float64
		want      float64
	}{
		{"typical pricing", 1000, 500, f(0.001), f(0.002), 0.002},
		{"no pricing known", 1000, 500, nil, nil, 0},
		{"input only", 2000, 0, f(0.01), nil, 0.02},
		{"rounds half up at 8 decimals", 1, 0, f(0.000005), nil, 0.00000001},
		{"below rounding threshold", 1, 0, f(0.000001), nil, 0},
		{"zero tokens", 0, 0, f(0.01), f(0.03), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateCost(tt.tokensIn, tt.tokensOut, tt.inCost, tt.outCost)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, CategoryUnknown},
		{"deadline", context.DeadlineExceeded, CategoryTimeout},
		{"timeout keyword", errors.New("i/o timeout"), CategoryTimeout},
		{"connection refused", errors.New("dial tcp: connection refused"), CategoryNetwork},
		{"broken pipe", errors.New("write: broken pipe"), CategoryNetwork},
		{"sqlite busy", errors.New("database is locked"), CategoryDBWrite},
		{"constraint", errors.New("UNIQUE constraint failed: ai_usage_logs.id"), CategoryDBWrite},
		{"something else", errors.New("weird failure"), CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
