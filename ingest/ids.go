package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ncertrag/corekb/core"
)

// sectionID derives a stable section id from the document id and section
// number, so re-detecting the same section on re-ingest yields the same id
// (§8 invariant 9).
func sectionID(doc core.DocumentID, sectionNumber string) core.SectionID {
	sum := sha256.Sum256([]byte(string(doc) + "|section|" + sectionNumber))
	return core.SectionID("sec_" + hex.EncodeToString(sum[:12]))
}

// chunkID derives a stable chunk id from the document, its mother section,
// and the chunk's position within that section. Content is deliberately
// excluded: a chunk's identity is its place in the document, not its
// content, so a content edit produces a new version of the same chunk
// rather than an orphaned one (§3 BabyChunk invariant, §8 invariant 9).
func chunkID(doc core.DocumentID, section core.SectionID, sequenceInMother int) core.ChunkID {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|chunk|%d", doc, section, sequenceInMother)))
	return core.ChunkID("chunk_" + hex.EncodeToString(sum[:12]))
}
