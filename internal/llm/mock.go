package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// mockEmbeddingDim keeps mock vectors the size of a small real model's.
const mockEmbeddingDim = 256

// MockClient answers without any network call. Used when AI_MOCK_MODE is
// on, so the rest of the pipeline (routing, logging, caching) can be
// exercised without credentials.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Complete(_ context.Context, req CompletionRequest) (*CompletionResult, error) {
	text := "[mock:" + req.Model + "]"
	return &CompletionResult{
		Text:      text,
		TokensIn:  len(req.Prompt) / 4,
		TokensOut: len(text) / 4,
	}, nil
}

func (m *MockClient) Stream(_ context.Context, req CompletionRequest, onChunk ChunkHandler) error {
	if err := onChunk("[mock:"); err != nil {
		return err
	}
	return onChunk(req.Model + "]")
}

// Embed derives a deterministic unit-range vector from the input text, so
// identical inputs compare equal in similarity searches.
func (m *MockClient) Embed(_ context.Context, req EmbeddingRequest) ([]float64, error) {
	vec := make([]float64, mockEmbeddingDim)
	seed := sha256.Sum256([]byte(req.Text))

	counter := uint64(0)
	buf := seed[:]
	for i := range vec {
		if i%4 == 0 && i > 0 {
			counter++
			next := sha256.Sum256(append(seed[:], byte(counter)))
			buf = next[:]
		}
		bits := binary.BigEndian.Uint64(buf[(i%4)*8 : (i%4)*8+8])
		vec[i] = float64(int64(bits)) / float64(1 << 63) // [-1, 1)
	}
	return vec, nil
}
