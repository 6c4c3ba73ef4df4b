package badger

import (
	"encoding/binary"

	"github.com/poiesic/corpora/core"
)

// Key prefixes for different data types
const (
	schemaKey           = "schema"
	activeGenKey        = "activegen"
	rowPrefix           = "row"
	uniquePrefix        = "uniq"
	generationPrefix    = "gen"
	documentPrefix      = "doc"
	documentDocIDPrefix = "docid"
	chunkPrefix         = "chk"
	vectorPrefix        = "vec"
	docChunkPrefix      = "docchk"
	rowIDSeq            = "rowseq"
	documentIDSeq       = "docseq"
	chunkIDSeq          = "chkseq"
	generationIDSeq     = "genseq"
)

// appendID appends id in BigEndian order so lexicographic sort matches numeric order.
func appendID(buf []byte, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makeTablePrefix generates the scan prefix of a structured table.
// Format: prefix:table:
func makeTablePrefix(table core.Table) []byte {
	return []byte(rowPrefix + ":" + string(table) + ":")
}

// makeRowKey generates the key of a structured row.
// Format: prefix:table:id
func makeRowKey(table core.Table, id core.ID) []byte {
	return appendID(makeTablePrefix(table), id)
}

// makeUniquePrefix generates the scan prefix of a table's natural key index.
func makeUniquePrefix(table core.Table) []byte {
	return []byte(uniquePrefix + ":" + string(table) + ":")
}

// makeUniqueKey generates the natural key index entry of a structured row.
// Format: prefix:table:naturalKey
func makeUniqueKey(table core.Table, naturalKey string) []byte {
	return append(makeUniquePrefix(table), naturalKey...)
}

// makeGenerationKey generates the marker key of a generation.
func makeGenerationKey(gen core.ID) []byte {
	return appendID([]byte(generationPrefix+":"), gen)
}

// makeGenPrefix generates the per-generation prefix for kind.
// Format: kind:gen
func makeGenPrefix(kind string, gen core.ID) []byte {
	return appendID([]byte(kind+":"), gen)
}

// makeDocumentKey generates the key of a document.
// Format: prefix:gen:id
func makeDocumentKey(gen, id core.ID) []byte {
	return appendID(makeGenPrefix(documentPrefix, gen), id)
}

// makeDocIDKey generates the doc_id index entry of a document.
// Format: prefix:gen:docID
func makeDocIDKey(gen core.ID, docID string) []byte {
	return append(makeGenPrefix(documentDocIDPrefix, gen), docID...)
}

// makeChunkKey generates the key of a chunk.
func makeChunkKey(gen, id core.ID) []byte {
	return appendID(makeGenPrefix(chunkPrefix, gen), id)
}

// makeVectorKey generates the key of a chunk's embedding.
func makeVectorKey(gen, chunkID core.ID) []byte {
	return appendID(makeGenPrefix(vectorPrefix, gen), chunkID)
}

// makeDocChunkKey generates a composite key for the document to chunk index.
// Format: prefix:gen:documentID:chunkID
func makeDocChunkKey(gen, documentID, chunkID core.ID) []byte {
	return appendID(makePartialDocChunkKey(gen, documentID), chunkID)
}

// makePartialDocChunkKey generates a partial key for listing a document's chunks.
func makePartialDocChunkKey(gen, documentID core.ID) []byte {
	return appendID(makeGenPrefix(docChunkPrefix, gen), documentID)
}

// generationPrefixes lists every prefix holding rows of gen.
func generationPrefixes(gen core.ID) [][]byte {
	return [][]byte{
		makeGenPrefix(documentPrefix, gen),
		makeGenPrefix(documentDocIDPrefix, gen),
		makeGenPrefix(chunkPrefix, gen),
		makeGenPrefix(vectorPrefix, gen),
		makeGenPrefix(docChunkPrefix, gen),
		makeGenerationKey(gen),
	}
}

// idSuffix decodes the trailing ID of a key.
func idSuffix(key []byte) core.ID {
	if len(key) < 8 {
		return 0
	}
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}
