package core

// StructuredHit is a structured-table match. Source is the table name.
type StructuredHit struct {
	Source     string         `json:"source"`
	Identifier string         `json:"identifier"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
}

// VectorHit is a chunk returned by similarity search.
// Score is 1 - cosine distance, or 0 when the distance is unavailable.
type VectorHit struct {
	DocID    string         `json:"doc_id"`
	Score    float64        `json:"score"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// HybridContext bundles both result lists for a query. The lists are not
// merged or re-ranked.
type HybridContext struct {
	Query          string          `json:"query"`
	StructuredHits []StructuredHit `json:"structured_hits"`
	VectorHits     []VectorHit     `json:"vector_hits"`
}
