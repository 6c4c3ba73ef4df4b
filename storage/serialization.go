// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/poiesic/corpora/core"
)

// MarshalID serializes an ID to 8 big-endian bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	if len(data) < 8 {
		return 0, ErrTruncatedData
	}
	return core.ID(binary.BigEndian.Uint64(data)), nil
}

// MarshalPayload serializes a structured row.
func MarshalPayload(p core.Payload) ([]byte, error) {
	return marshalJSON(p)
}

// UnmarshalPayload deserializes a structured row of the given table.
func UnmarshalPayload(table core.Table, data []byte) (core.Payload, error) {
	var p core.Payload
	switch table {
	case core.TablePlans:
		p = &core.Plan{}
	case core.TableProducts:
		p = &core.Product{}
	case core.TableErrorCodes:
		p = &core.ErrorCode{}
	case core.TablePolicies:
		p = &core.Policy{}
	case core.TableAPIEndpoints:
		p = &core.APIEndpoint{}
	default:
		return nil, fmt.Errorf("%w: %w: %s", ErrSerializationFailed, core.ErrUnknownTable, table)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return p, nil
}

// MarshalDocument serializes a Document.
func MarshalDocument(doc *core.Document) ([]byte, error) {
	return marshalJSON(doc)
}

// UnmarshalDocument deserializes a Document.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	var doc core.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &doc, nil
}

// MarshalChunk serializes a ChunkRecord without its vector.
// Vectors are stored separately with MarshalVector.
func MarshalChunk(chunk *core.ChunkRecord) ([]byte, error) {
	return marshalJSON(chunk)
}

// UnmarshalChunk deserializes a ChunkRecord. The vector is left empty.
func UnmarshalChunk(data []byte) (*core.ChunkRecord, error) {
	var chunk core.ChunkRecord
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &chunk, nil
}

// MarshalVector serializes a vector as little-endian float32 values.
func MarshalVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// UnmarshalVector deserializes a vector.
func UnmarshalVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, ErrTruncatedData
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}
