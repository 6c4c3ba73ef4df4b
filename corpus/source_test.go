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


package corpus

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"kb/b.md":                    {Data: []byte("b")},
		"kb/a.md":                    {Data: []byte("a")},
		"kb/notes.txt":               {Data: []byte("skip")},
		"kb/nested/deep.md":          {Data: []byte("skip")},
		"runbooks/restart.md":        {Data: []byte("r")},
		"policies/refunds.MD":        {Data: []byte("p")},
		"manuals/guide.pdf":          {Data: []byte("%PDF")},
		"kb/attachment.pdf":          {Data: []byte("%PDF")},
		"structured/plan_matrix.csv": {Data: []byte("plan\n")},
	}
}

func TestSource_TextDocuments(t *testing.T) {
	src, err := NewSource(testFS())
	require.NoError(t, err)

	docs, err := src.TextDocuments()
	require.NoError(t, err)

	// Directory order follows the layout, names are sorted within each.
	assert.Equal(t, []string{
		"kb/a.md",
		"kb/b.md",
		"policies/refunds.MD",
		"runbooks/restart.md",
	}, docs)
}

func TestSource_PDFDocuments(t *testing.T) {
	src, err := NewSource(testFS())
	require.NoError(t, err)

	pdfs, err := src.PDFDocuments()
	require.NoError(t, err)
	assert.Equal(t, []string{"kb/attachment.pdf", "manuals/guide.pdf"}, pdfs)
	assert.True(t, src.IsPDF(pdfs[0]))
	assert.False(t, src.IsPDF("kb/a.md"))
}

func TestSource_WithTextDirs(t *testing.T) {
	src, err := NewSource(testFS(), WithTextDirs("runbooks", "missing"))
	require.NoError(t, err)

	docs, err := src.TextDocuments()
	require.NoError(t, err)
	assert.Equal(t, []string{"runbooks/restart.md"}, docs)

	_, err = NewSource(testFS(), WithTextDirs("../escape"))
	assert.Error(t, err)
}

func TestSource_ReadFile(t *testing.T) {
	src, err := NewSource(testFS())
	require.NoError(t, err)

	data, err := src.ReadFile(src.Layout().PlanMatrix)
	require.NoError(t, err)
	assert.Equal(t, "plan\n", string(data))

	_, err = src.ReadFile("structured/absent.csv")
	assert.Error(t, err)
}

func TestNewSource_NilFS(t *testing.T) {
	_, err := NewSource(nil)
	assert.ErrorIs(t, err, ErrNoFS)
}

func TestOpen(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "kb"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "kb", "x.md"), []byte("x"), 0o644))

	src, err := Open(root)
	require.NoError(t, err)
	docs, err := src.TextDocuments()
	require.NoError(t, err)
	assert.Equal(t, []string{"kb/x.md"}, docs)

	file := filepath.Join(root, "kb", "x.md")
	_, err = Open(file)
	assert.Error(t, err)
}
