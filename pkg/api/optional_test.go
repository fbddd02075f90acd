package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type optionalPayload struct {
	ModelID  OptionalInt64   `json:"model_id"`
	Prompt   OptionalString  `json:"prompt"`
	Override OptionalJSONMap `json:"override"`
}

func TestOptionalFieldAbsent(t *testing.T) {
	var p optionalPayload
	require.NoError(t, json.Unmarshal([]byte(`{}`), &p))

	assert.False(t, p.ModelID.Set)
	assert.False(t, p.Prompt.Set)
	assert.False(t, p.Override.Set)
}

func TestOptionalFieldNull(t *testing.T) {
	var p optionalPayload
	require.NoError(t, json.Unmarshal([]byte(`{"model_id":null,"prompt":null,"override":null}`), &p))

	assert.True(t, p.ModelID.Set)
	assert.Nil(t, p.ModelID.Value)
	assert.True(t, p.Prompt.Set)
	assert.Nil(t, p.Prompt.Value)
	assert.True(t, p.Override.Set)
	assert.Nil(t, p.Override.Value)
}

func TestOptionalFieldValue(t *testing.T) {
	var p optionalPayload
	require.NoError(t, json.Unmarshal(
		[]byte(`{"model_id":42,"prompt":"hello","override":{"temperature":0.9}}`), &p))

	require.True(t, p.ModelID.Set)
	require.NotNil(t, p.ModelID.Value)
	assert.Equal(t, int64(42), *p.ModelID.Value)

	require.True(t, p.Prompt.Set)
	require.NotNil(t, p.Prompt.Value)
	assert.Equal(t, "hello", *p.Prompt.Value)

	require.True(t, p.Override.Set)
	assert.InDelta(t, 0.9, p.Override.Value["temperature"].(float64), 1e-9)
}

func TestOptionalMarshalRoundTrip(t *testing.T) {
	v := int64(7)
	s := "x"
	p := optionalPayload{
		ModelID: OptionalInt64{Set: true, Value: &v},
		Prompt:  OptionalString{Set: true, Value: &s},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"model_id":7,"prompt":"x","override":null}`, string(data))
}
