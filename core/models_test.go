package core

import (
	"testing"
	"time"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "plans:gold",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "This is a much longer piece of content that should still hash consistently",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("plans:gold")
	id2 := IDFromContent("plans:silver")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestDocumentMetadata_ChunkMetadata(t *testing.T) {
	meta := &DocumentMetadata{
		DocID:      "kb-001",
		SourcePath: "kb/kb-001.md",
		Extra: map[string]any{
			"owner": "support",
			"tags":  []any{"billing"},
		},
	}

	got := meta.ChunkMetadata()
	if got["source_path"] != "kb/kb-001.md" {
		t.Errorf("source_path = %v, want kb/kb-001.md", got["source_path"])
	}
	if got["owner"] != "support" {
		t.Errorf("owner = %v, want support", got["owner"])
	}
	if len(got) != 3 {
		t.Errorf("len(ChunkMetadata()) = %d, want 3", len(got))
	}

	// The returned map is a copy.
	got["owner"] = "changed"
	if meta.Extra["owner"] != "support" {
		t.Errorf("ChunkMetadata() aliased Extra")
	}
}

func TestDocumentMetadata_Document(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	meta := &DocumentMetadata{
		DocID:         "pol-7",
		Title:         "Refunds",
		DocType:       "policy",
		Audience:      "customer",
		ProductScope:  []string{"analytics"},
		RegionScope:   []string{"eu"},
		Version:       "2",
		EffectiveDate: date,
		SourcePath:    "policies/pol-7.md",
	}

	doc := meta.Document()
	if doc.DocID != "pol-7" || doc.Title != "Refunds" || doc.DocType != "policy" {
		t.Errorf("Document() = %+v", doc)
	}
	if !doc.EffectiveDate.Equal(date) {
		t.Errorf("EffectiveDate = %v, want %v", doc.EffectiveDate, date)
	}
	if doc.Id != 0 {
		t.Errorf("Id = %d, want 0 before persistence", doc.Id)
	}
}

func TestTable_IsStructured(t *testing.T) {
	for _, table := range StructuredTables {
		if !table.IsStructured() {
			t.Errorf("%s.IsStructured() = false", table)
		}
	}
	if TableChunks.IsStructured() {
		t.Errorf("document_chunks must not be a structured table")
	}
	if Table("invoices").IsStructured() {
		t.Errorf("unknown table reported as structured")
	}
}

func TestClearOrder_ChildrenFirst(t *testing.T) {
	want := []Table{
		TableChunks, TableDocuments, TableAPIEndpoints, TableErrorCodes,
		TablePlans, TableProducts, TablePolicies,
	}
	if len(ClearOrder) != len(want) {
		t.Fatalf("len(ClearOrder) = %d, want %d", len(ClearOrder), len(want))
	}
	for i := range want {
		if ClearOrder[i] != want[i] {
			t.Errorf("ClearOrder[%d] = %s, want %s", i, ClearOrder[i], want[i])
		}
	}
}
