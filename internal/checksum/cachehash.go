package checksum

import (
	"github.com/zeebo/xxh3"
)

// CacheDiagnosticHash computes a fast, non-cryptographic content hash of
// data for use in block-cache collision diagnostics. It is never written to
// disk and is unrelated to the CRC32C block trailer: a cache implementation
// may use it to log when two distinct cache keys map to blocks with the
// same bytes, or to sanity-check a hit against its expected contents.
func CacheDiagnosticHash(data []byte) uint64 {
	return xxh3.Hash(data)
}
