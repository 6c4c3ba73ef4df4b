package storage

import (
	"testing"
	"time"

	"github.com/poiesic/corpora/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.Len(t, data, 8)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestMarshalID_SortsNumerically(t *testing.T) {
	assert.Less(t, string(MarshalID(255)), string(MarshalID(256)))
}

func TestPayloadRoundTrip(t *testing.T) {
	users := 10
	tests := []core.Payload{
		&core.Plan{Id: 1, Name: "gold", UsersLimit: &users, Entitlements: []string{"sso"}},
		&core.Product{Id: 2, SKU: "AN-100", Name: "Analytics"},
		&core.ErrorCode{Id: 3, Code: "E1", Message: "boom"},
		&core.Policy{Id: 4, Name: "refunds", Version: "2", EffectiveDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Payload: map[string]any{"window_days": float64(30)}},
		&core.APIEndpoint{Id: 5, Path: "/v1/x", Method: "GET", Extra: map[string]any{"parameters": nil}},
	}

	for _, p := range tests {
		t.Run(string(p.Table()), func(t *testing.T) {
			data, err := MarshalPayload(p)
			require.NoError(t, err)

			decoded, err := UnmarshalPayload(p.Table(), data)
			require.NoError(t, err)
			assert.Equal(t, p, decoded)
		})
	}
}

func TestUnmarshalPayload_Errors(t *testing.T) {
	_, err := UnmarshalPayload(core.TableDocuments, []byte(`{}`))
	assert.ErrorIs(t, err, core.ErrUnknownTable)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalPayload(core.TablePlans, []byte(`{`))
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestChunkOmitsVector(t *testing.T) {
	chunk := &core.ChunkRecord{
		Id:         7,
		DocumentID: 3,
		Index:      2,
		Content:    "hello",
		Metadata:   map[string]any{"source_path": "docs/a.md"},
		Vector:     []float32{1, 2, 3},
	}
	data, err := MarshalChunk(chunk)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "vector")

	decoded, err := UnmarshalChunk(data)
	require.NoError(t, err)
	assert.Nil(t, decoded.Vector)
	assert.Equal(t, 2, decoded.Index)
	assert.Equal(t, "docs/a.md", decoded.Metadata["source_path"])
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0, -1.5, 3.25, 1e-7}
	decoded, err := UnmarshalVector(MarshalVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, decoded)

	_, err = UnmarshalVector([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrTruncatedData)
}
