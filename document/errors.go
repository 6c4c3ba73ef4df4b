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

import "errors"

var (
	// ErrInvalidChunking is returned when chunk size or overlap are out of range.
	ErrInvalidChunking = errors.New("chunk size must be positive and overlap must be in [0, size)")

	// ErrUnclosedFrontMatter is returned when an opening fence has no closing fence.
	ErrUnclosedFrontMatter = errors.New("front matter is not closed")

	// ErrFrontMatterNotMap is returned when the front-matter block is not a YAML map.
	ErrFrontMatterNotMap = errors.New("front matter is not a map")

	// ErrNoPDFText is returned when a PDF yields no extractable text.
	ErrNoPDFText = errors.New("no text extracted from pdf")
)
