package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for persisted rows.
// It is generated from database sequences or content hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Plan is a subscription tier from the plan matrix.
type Plan struct {
	Id              ID       `json:"id"`
	Name            string   `json:"name"`
	MonthlyPrice    *float64 `json:"monthly_price"`
	AnnualPrice     *float64 `json:"annual_price"`
	UsersLimit      *int     `json:"users_limit"`
	APICallsLimit   *int     `json:"api_calls_limit"`
	DashboardsLimit *int     `json:"dashboards_limit"`
	Entitlements    []string `json:"entitlements"`
}

// Product is a catalog entry identified by SKU.
type Product struct {
	Id            ID       `json:"id"`
	SKU           string   `json:"sku"`
	Name          string   `json:"name"`
	Category      string   `json:"category,omitempty"`
	ShortDesc     string   `json:"short_desc,omitempty"`
	Compatibility []string `json:"compatibility"`
	Status        string   `json:"status,omitempty"`
}

// ErrorCode describes a service error and its remedy.
type ErrorCode struct {
	Id       ID     `json:"id"`
	Code     string `json:"code"`
	Message  string `json:"message,omitempty"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	Severity string `json:"severity,omitempty"`
	Service  string `json:"service,omitempty"`
}

// Policy is a named, versioned policy document. Payload keeps the whole
// source object so nothing is lost when the schema of a policy changes.
type Policy struct {
	Id            ID             `json:"id"`
	Name          string         `json:"name"`
	Version       string         `json:"version,omitempty"`
	EffectiveDate time.Time      `json:"effective_date,omitzero"`
	Payload       map[string]any `json:"payload"`
}

// APIEndpoint is a single (path, method) operation from the API description.
type APIEndpoint struct {
	Id          ID             `json:"id"`
	Path        string         `json:"path"`
	Method      string         `json:"method"`
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	Extra       map[string]any `json:"extra"`
}

// Document is the persisted parent of a set of chunks.
type Document struct {
	Id            ID        `json:"id"`
	DocID         string    `json:"doc_id"`
	Title         string    `json:"title,omitempty"`
	DocType       string    `json:"doc_type,omitempty"`
	Audience      string    `json:"audience,omitempty"`
	ProductScope  []string  `json:"product_scope"`
	RegionScope   []string  `json:"region_scope"`
	Version       string    `json:"version,omitempty"`
	EffectiveDate time.Time `json:"effective_date,omitzero"`
}

// ChunkRecord is a persisted chunk. Vector may be empty while the row is
// under construction; such rows have no similarity distance.
type ChunkRecord struct {
	Id         ID             `json:"id"`
	DocumentID ID             `json:"document_id"`
	Index      int            `json:"chunk_index"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Vector     []float32      `json:"-"`
}

// DocumentMetadata is the metadata extracted from a document's front matter.
// Zero values mean "unset".
type DocumentMetadata struct {
	DocID         string
	Title         string
	DocType       string
	Audience      string
	ProductScope  []string
	RegionScope   []string
	Version       string
	EffectiveDate time.Time
	SourcePath    string
	Extra         map[string]any
}

// Document builds the persisted parent row for this metadata.
func (m *DocumentMetadata) Document() *Document {
	return &Document{
		DocID:         m.DocID,
		Title:         m.Title,
		DocType:       m.DocType,
		Audience:      m.Audience,
		ProductScope:  m.ProductScope,
		RegionScope:   m.RegionScope,
		Version:       m.Version,
		EffectiveDate: m.EffectiveDate,
	}
}

// ChunkMetadata returns the per-chunk metadata: the source path merged
// with every unrecognized front-matter key.
func (m *DocumentMetadata) ChunkMetadata() map[string]any {
	out := make(map[string]any, len(m.Extra)+1)
	out["source_path"] = m.SourcePath
	for k, v := range m.Extra {
		out[k] = v
	}
	return out
}

// DocumentChunk is a bounded token window of a document body. Ordinals are
// contiguous from 0 within a document. Chunks of one document share the
// same metadata pointer.
type DocumentChunk struct {
	Content  string
	Metadata *DocumentMetadata
	Ordinal  int
}
