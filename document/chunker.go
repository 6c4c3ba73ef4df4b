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


package document

import (
	"strings"

	"github.com/poiesic/corpora/core"
)

const (
	// DefaultChunkSize is the default window size in tokens.
	DefaultChunkSize = 800
	// DefaultChunkOverlap is the default number of tokens shared by neighbouring windows.
	DefaultChunkOverlap = 120
)

// Window is a half-open token range [Start, End).
type Window struct {
	Start int
	End   int
}

// Windows computes the token windows for n tokens.
// It returns ErrInvalidChunking unless size > 0 and 0 <= overlap < size.
func Windows(n, size, overlap int) ([]Window, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidChunking
	}
	var windows []Window
	start := 0
	for start < n {
		end := min(start+size, n)
		windows = append(windows, Window{Start: start, End: end})
		if end == n {
			break
		}
		start = max(end-overlap, start+1)
	}
	return windows, nil
}

// Chunk splits body into overlapping whitespace-token windows that all
// share meta. A body with no tokens yields no chunks.
func Chunk(meta *core.DocumentMetadata, body string, size, overlap int) ([]core.DocumentChunk, error) {
	tokens := strings.Fields(body)
	windows, err := Windows(len(tokens), size, overlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]core.DocumentChunk, 0, len(windows))
	for i, w := range windows {
		chunks = append(chunks, core.DocumentChunk{
			Content:  strings.Join(tokens[w.Start:w.End], " "),
			Metadata: meta,
			Ordinal:  i,
		})
	}
	return chunks, nil
}
