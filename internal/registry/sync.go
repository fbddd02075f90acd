package registry

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/aetherblog/ai-service/internal/credentials"
	"github.com/aetherblog/ai-service/internal/httpclient"
	"github.com/aetherblog/ai-service/internal/modeldata"
	"github.com/aetherblog/ai-service/internal/platform/logger"
	"github.com/aetherblog/ai-service/internal/store/model"
	"github.com/aetherblog/ai-service/pkg/api"
)

// Syncer pulls the model listing from an upstream provider and imports it.
// Synced rows are marked capabilities.source = "remote" and start disabled
// so an operator has to opt them in.
type Syncer struct {
	registry *Registry
	resolver *credentials.Resolver
	client   httpclient.HTTPClient
}

func NewSyncer(registry *Registry, resolver *credentials.Resolver, client httpclient.HTTPClient) *Syncer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Syncer{registry: registry, resolver: resolver, client: client}
}

type modelListing struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Sync fetches /models for the provider and bulk-inserts the result,
// skipping models already present. Returns (fetched, inserted).
func (s *Syncer) Sync(ctx context.Context, providerCode string) (int, int, error) {
	provider, err := s.registry.GetProvider(ctx, providerCode)
	if err != nil {
		return 0, 0, err
	}

	cred, err := s.resolver.Get(ctx, providerCode, nil, nil)
	if err != nil {
		return 0, 0, err
	}
	if cred == nil || cred.BaseURL == "" {
		return 0, 0, api.BadRequestError(
			fmt.Sprintf("no credential or base URL configured for provider '%s'", providerCode))
	}

	url, headers, err := listingRequest(cred)
	if err != nil {
		return 0, 0, err
	}

	var listing modelListing
	if err := httpclient.SendRequest(ctx, s.client, http.MethodGet, url, headers, nil, &listing); err != nil {
		return 0, 0, api.ProviderError(
			fmt.Sprintf("failed to fetch models from provider '%s'", providerCode), err)
	}

	rows := make([]model.Model, 0, len(listing.Data))
	for _, entry := range listing.Data {
		if entry.ID == "" {
			continue
		}
		row := model.Model{
			ProviderID:   provider.ID,
			ModelID:      entry.ID,
			ModelType:    InferModelType(entry.ID),
			Capabilities: model.JSONMap{"source": "remote"},
			IsEnabled:    false,
		}
		if info, ok := modeldata.Lookup(entry.ID); ok {
			row.Name = sql.NullString{String: info.Name, Valid: true}
			if info.ContextWindow > 0 {
				row.ContextWindow = sql.NullInt64{Int64: int64(info.ContextWindow), Valid: true}
			}
			if info.InputCostPer1k > 0 {
				row.InputCost = sql.NullFloat64{Float64: info.InputCostPer1k, Valid: true}
			}
			if info.OutputCostPer1k > 0 {
				row.OutputCost = sql.NullFloat64{Float64: info.OutputCostPer1k, Valid: true}
			}
		}
		rows = append(rows, row)
	}

	inserted, err := s.registry.BulkInsertModels(ctx, rows)
	if err != nil {
		return len(rows), 0, err
	}

	logger.Info("remote model sync finished",
		zap.String("provider", providerCode),
		zap.Int("fetched", len(rows)),
		zap.Int("inserted", inserted))
	return len(rows), inserted, nil
}

func listingRequest(cred *credentials.Resolved) (string, map[string]string, error) {
	switch cred.APIType {
	case model.APITypeAnthropic:
		// the normalized anthropic base has no path
		return cred.BaseURL + "/v1/models", map[string]string{
			"x-api-key":         cred.APIKey,
			"anthropic-version": "2023-06-01",
		}, nil
	case model.APITypeOpenAICompat, model.APITypeCustom, model.APITypeAzure:
		return cred.BaseURL + "/models", map[string]string{
			"Authorization": "Bearer " + cred.APIKey,
		}, nil
	default:
		return "", nil, api.BadRequestError(
			fmt.Sprintf("model sync is not supported for api type '%s'", cred.APIType))
	}
}

// InferModelType guesses the model type from its identifier. Remote
// listings carry no type field, so naming conventions have to do.
func InferModelType(modelID string) string {
	id := strings.ToLower(modelID)
	switch {
	case strings.Contains(id, "embed"):
		return model.ModelTypeEmbedding
	case strings.Contains(id, "tts"):
		return model.ModelTypeTTS
	case strings.Contains(id, "whisper") || strings.Contains(id, "transcribe"):
		return model.ModelTypeSTT
	case strings.Contains(id, "realtime"):
		return model.ModelTypeRealtime
	case strings.Contains(id, "dall-e") || strings.Contains(id, "image"):
		return model.ModelTypeImage
	default:
		return model.ModelTypeChat
	}
}
