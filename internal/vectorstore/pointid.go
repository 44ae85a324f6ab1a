package vectorstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// PointID derives a deterministic 32-hex-character id, formatted as a
// canonical 8-4-4-4-12 UUID, from a chunk's identity: 16 hex chars of the
// file path's hash, 4 hex chars each of the start/end line, and 8 hex
// chars of the content's hash. Re-indexing an unchanged chunk produces the
// same id, so upserting it replaces the same point rather than duplicating it.
func PointID(filePath string, startLine, endLine int, content string) string {
	fileHash := sha256.Sum256([]byte(filePath))
	fileHashHex := hex.EncodeToString(fileHash[:])[:16]

	contentHash := sha256.Sum256([]byte(content))
	contentHashHex := hex.EncodeToString(contentHash[:])[:8]

	raw := fmt.Sprintf("%s%04x%04x%s", fileHashHex, uint16(startLine), uint16(endLine), contentHashHex)
	return fmt.Sprintf("%s-%s-%s-%s-%s", raw[0:8], raw[8:12], raw[12:16], raw[16:20], raw[20:32])
}
