// Copyright (c) 2022, Christopher Jeffrey (MIT License).
// https://github.com/chjj/lcdb
//
// Parts of this software are based on google/leveldb:
//   Copyright (c) 2011, The LevelDB Authors. All rights reserved.
//   https://github.com/google/leveldb

package lcdb

// options.go implements table-level configuration: the knobs a table
// builder and reader need, not the database-wide options (write buffer
// sizing, compaction, WAL) that belong to a layer built on top of a table
// file.

import (
	"github.com/SamuelMarks/lcdb/internal/cache"
	"github.com/SamuelMarks/lcdb/internal/compression"
	"github.com/SamuelMarks/lcdb/internal/logging"
)

// Logger is an alias for the logging.Logger interface, used to report the
// non-fatal conditions a table reader and its cache can hit: a filter block
// that fails to decode, and block-cache diagnostics (eviction, and a key
// re-inserted with different content).
type Logger = logging.Logger

// CompressionType is an alias for the block compression codec.
type CompressionType = compression.Type

// Compression type constants. Values 0 and 1 (none, Snappy) are the two
// codes the on-disk format mandates; the rest are additional codes the
// format reserves room for.
const (
	NoCompression     = compression.NoCompression
	SnappyCompression = compression.SnappyCompression
	ZlibCompression   = compression.ZlibCompression
	LZ4Compression    = compression.LZ4Compression
	LZ4HCCompression  = compression.LZ4HCCompression
	ZstdCompression   = compression.ZstdCompression
)

// Options controls table construction and reading. The zero value is not
// directly usable; start from DefaultOptions and override what's needed.
type Options struct {
	// Comparator defines the order of keys in a table. If nil,
	// BytewiseComparator is used.
	Comparator Comparator

	// BlockSize is the target uncompressed size of a data block before it
	// is flushed. Default: 4096 (4 KiB).
	BlockSize int

	// BlockRestartInterval is the number of entries between prefix-
	// compression restart points in a data block. Default: 16.
	BlockRestartInterval int

	// FilterBitsPerKey is the number of bits per key used by the Bloom
	// filter block. 0 disables the filter block entirely. Default: 10.
	FilterBitsPerKey int

	// FilterBaseLg is the log2 of the number of bytes of data-block
	// output covered by one filter block region. Default: 11 (2 KiB).
	FilterBaseLg int

	// Compression is the codec applied to data, meta-index, and index
	// blocks. The filter block is never compressed. Default: NoCompression.
	Compression CompressionType

	// Cache, if non-nil, is consulted by a Reader before every data block
	// load and populated on miss. A nil Cache disables caching; every
	// data block read hits the underlying file.
	Cache cache.Cache

	// Logger receives the diagnostics a Reader and its Cache can produce:
	// a filter block that fails to decode, and (when Cache is an
	// *cache.LRUCache) content-hash mismatches on overwrite and eviction
	// notices. If nil, logging.Discard is used.
	Logger Logger
}

// DefaultOptions returns an Options populated with this package's
// documented defaults.
func DefaultOptions() *Options {
	return &Options{
		Comparator:           BytewiseComparator{},
		BlockSize:            4096,
		BlockRestartInterval: 16,
		FilterBitsPerKey:     10,
		FilterBaseLg:         11,
		Compression:          NoCompression,
		Cache:                nil,
		Logger:               logging.Discard,
	}
}

// ReadOptions controls a single Reader.Get or Reader.NewIterator pass.
type ReadOptions struct {
	// VerifyChecksums declares the caller's intent to pay for checksum
	// verification on every block read. Block trailers are always CRC32C
	// checked regardless; this flag is reserved for a future fast path
	// that would skip it.
	VerifyChecksums bool

	// FillCache indicates whether a data block read to satisfy this pass
	// is inserted into Options.Cache on a miss. Ignored when Cache is
	// nil. Set to false for a one-off scan that shouldn't evict blocks a
	// normal workload relies on.
	FillCache bool
}

// DefaultReadOptions returns ReadOptions with this package's defaults.
func DefaultReadOptions() *ReadOptions {
	return &ReadOptions{
		VerifyChecksums: true,
		FillCache:       true,
	}
}

// WriteOptions controls a single table Builder's output file handling.
type WriteOptions struct {
	// Sync causes Builder.Finish to call Sync on the output file, if it
	// implements Syncer, after the footer is written and before Finish
	// returns.
	Sync bool
}

// DefaultWriteOptions returns WriteOptions with this package's defaults.
func DefaultWriteOptions() *WriteOptions {
	return &WriteOptions{
		Sync: false,
	}
}
