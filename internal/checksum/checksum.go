// Package checksum computes revision tokens for stored content.
package checksum

import (
	"crypto/sha1" //nolint:gosec // git object ids are sha1
	"encoding/hex"
	"strconv"
)

// GitBlob returns the git object id of data stored as a blob, which is the
// revision token the GitHub contents API reports for a file.
func GitBlob(data []byte) string {
	h := sha1.New() //nolint:gosec
	h.Write([]byte("blob " + strconv.Itoa(len(data)) + "\x00"))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
