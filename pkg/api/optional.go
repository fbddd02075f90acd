package api

import (
	"bytes"
	"encoding/json"
)

// The Optional types below distinguish three JSON states for a field:
// absent (Set=false), explicit null (Set=true, Value=nil), and a concrete
// value. UnmarshalJSON only runs when the key is present, which is what
// flips Set.

type OptionalInt64 struct {
	Set   bool
	Value *int64
}

func (o *OptionalInt64) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o OptionalInt64) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}

type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o OptionalString) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}

type OptionalJSONMap struct {
	Set   bool
	Value map[string]interface{}
}

func (o *OptionalJSONMap) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o OptionalJSONMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}
