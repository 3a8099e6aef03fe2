// Package table implements the sstable file format: an immutable sequence
// of sorted key-value pairs assembled from prefix-compressed data blocks, an
// optional Bloom filter block, a top-level index block, and a fixed footer.
package table

import (
	"errors"
	"fmt"

	"github.com/SamuelMarks/lcdb/internal/block"
	"github.com/SamuelMarks/lcdb/internal/compression"
	"github.com/SamuelMarks/lcdb/internal/encoding"
	"github.com/SamuelMarks/lcdb/internal/filter"
	"github.com/SamuelMarks/lcdb/internal/filterblock"
)

// Comparator is the ordering capability the builder and reader need: key
// comparison plus the index-shortening helpers. The root package's
// Comparator satisfies this structurally; table does not import the root
// package to avoid a cycle (the root package imports table).
type Comparator interface {
	Compare(a, b []byte) int
	Name() string
	FindShortestSeparator(a, b []byte) []byte
	FindShortSuccessor(a []byte) []byte
}

var (
	// ErrClosed is returned by Add or Finish when the builder has already
	// been sealed by Finish or discarded by Abandon.
	ErrClosed = errors.New("table: builder already closed")

	// ErrKeyOutOfOrder is returned by Add when key does not strictly
	// follow the last key added.
	ErrKeyOutOfOrder = errors.New("table: key not greater than last key added")
)

// WritableFile is the minimal append-only capability the builder needs
// from an output file. The caller is responsible for flush/sync/close.
type WritableFile interface {
	Append(p []byte) (n int, err error)
}

// BuilderOptions controls table construction. Comparator must be set by
// the caller; there is no usable default at this layer.
type BuilderOptions struct {
	Comparator           Comparator
	BlockSize            int              // target uncompressed data block size, default 4096
	BlockRestartInterval int              // entries between restart points, default 16
	Compression          compression.Type // default NoCompression
	FilterBitsPerKey     int              // bits per key for the filter block; 0 disables it
	FilterBaseLg         int              // log2 of the filter region size in bytes; default filterblock.BaseLg
}

// Builder assembles a single sstable. Its state machine has two states,
// open and closed; Add and Finish require the open state and return
// ErrClosed otherwise, while Abandon, NumEntries, and FileSize work in
// either state.
type Builder struct {
	opts BuilderOptions
	file WritableFile

	offset uint64
	closed bool
	err    error

	dataBlock  *block.Builder
	indexBlock *block.Builder

	filterBuilder *filterblock.Builder // nil when FilterBitsPerKey == 0

	numEntries int
	lastKey    []byte

	pendingIndexEntry bool
	pendingHandle     block.Handle
}

// NewBuilder creates a builder that appends to file. opts.Comparator must
// be non-nil.
func NewBuilder(file WritableFile, opts BuilderOptions) *Builder {
	if opts.Comparator == nil {
		panic("table: NewBuilder requires a non-nil Comparator")
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = 4096
	}
	if opts.BlockRestartInterval <= 0 {
		opts.BlockRestartInterval = 16
	}

	b := &Builder{
		opts:      opts,
		file:      file,
		dataBlock: block.NewBuilder(opts.BlockRestartInterval),
		// The index block restarts every entry: its keys are the
		// separators themselves, already as short as they'll get, so
		// prefix compression buys nothing and would only complicate
		// FindShortestSeparator's job of picking them.
		indexBlock: block.NewBuilder(1),
	}
	if opts.FilterBitsPerKey > 0 {
		b.filterBuilder = filterblock.NewBuilderWithBaseLg(opts.FilterBitsPerKey, opts.FilterBaseLg)
		b.filterBuilder.StartBlock(0)
	}
	return b
}

// NumEntries returns the number of key-value pairs added so far.
func (b *Builder) NumEntries() int {
	return b.numEntries
}

// FileSize returns the number of bytes written to file so far. It grows
// only on block flushes and on Finish, not on every Add.
func (b *Builder) FileSize() uint64 {
	return b.offset
}

// Add appends a key-value pair. key must compare strictly greater than
// the previous key added, under opts.Comparator.
func (b *Builder) Add(key, value []byte) error {
	if b.closed {
		return ErrClosed
	}
	if b.err != nil {
		return b.err
	}

	if b.pendingIndexEntry {
		sep := b.opts.Comparator.FindShortestSeparator(b.lastKey, key)
		b.indexBlock.Add(sep, b.pendingHandle.EncodeToSlice())
		b.pendingIndexEntry = false
	}

	if b.numEntries > 0 && b.opts.Comparator.Compare(b.lastKey, key) >= 0 {
		return fmt.Errorf("%w: %q", ErrKeyOutOfOrder, key)
	}

	if b.filterBuilder != nil {
		b.filterBuilder.AddKey(key)
	}

	b.dataBlock.Add(key, value)
	b.lastKey = append(b.lastKey[:0], key...)
	b.numEntries++

	if b.dataBlock.CurrentSizeEstimate() >= b.opts.BlockSize {
		return b.flush()
	}
	return nil
}

// flush finishes the current data block, writes it, and arranges for its
// index entry to be added lazily (with a shortened separator) on the next
// Add, or on Finish if no further key arrives.
func (b *Builder) flush() error {
	if b.dataBlock.Empty() {
		return nil
	}
	if b.pendingIndexEntry {
		panic("table: flush called with an index entry already pending")
	}

	handle, err := b.writeBlock(b.dataBlock)
	if err != nil {
		b.err = err
		return err
	}

	b.pendingHandle = handle
	b.pendingIndexEntry = true

	if b.filterBuilder != nil {
		b.filterBuilder.StartBlock(b.offset)
	}

	b.dataBlock.Reset()
	return nil
}

// writeBlock finishes bb, compresses the result if configured and
// beneficial, and writes it with a trailer.
func (b *Builder) writeBlock(bb *block.Builder) (block.Handle, error) {
	raw := bb.Finish()

	contents := raw
	compressionType := compression.NoCompression

	if b.opts.Compression != compression.NoCompression {
		compressed, err := compression.Compress(b.opts.Compression, raw)
		if err == nil && len(compressed) > 0 && len(compressed) < len(raw) {
			compressionType = b.opts.Compression
			if compressionType == compression.SnappyCompression {
				// Snappy's own format carries the decompressed length.
				contents = compressed
			} else {
				contents = encoding.AppendVarint32(nil, uint32(len(raw)))
				contents = append(contents, compressed...)
			}
		}
	}

	return b.writeRawBlock(contents, compressionType)
}

// writeRawBlock appends contents with a trailer, unconditionally (no
// compression attempted here; the caller has already decided).
func (b *Builder) writeRawBlock(contents []byte, compressionType compression.Type) (block.Handle, error) {
	handle := block.Handle{Offset: b.offset, Size: uint64(len(contents))}

	buf := make([]byte, 0, len(contents)+block.TrailerSize)
	buf = block.AppendTrailer(buf, contents, byte(compressionType))

	if _, err := b.file.Append(buf); err != nil {
		return block.Handle{}, err
	}
	b.offset += uint64(len(buf))

	return handle, nil
}

// Finish flushes any open data block, writes the filter block, meta-index
// block, index block, and footer, and seals the builder. The file's
// remaining bytes (padding, sync) are the caller's responsibility.
func (b *Builder) Finish() error {
	if b.closed {
		return ErrClosed
	}
	if err := b.flush(); err != nil {
		return err
	}
	b.closed = true

	var filterHandle block.Handle
	haveFilter := b.filterBuilder != nil
	if haveFilter {
		h, err := b.writeRawBlock(b.filterBuilder.Finish(), compression.NoCompression)
		if err != nil {
			return err
		}
		filterHandle = h
	}

	metaindexBlock := block.NewBuilder(b.opts.BlockRestartInterval)
	if haveFilter {
		metaindexBlock.Add([]byte("filter."+filter.PolicyName), filterHandle.EncodeToSlice())
	}
	metaindexHandle, err := b.writeBlock(metaindexBlock)
	if err != nil {
		return err
	}

	if b.pendingIndexEntry {
		succ := b.opts.Comparator.FindShortSuccessor(b.lastKey)
		b.indexBlock.Add(succ, b.pendingHandle.EncodeToSlice())
		b.pendingIndexEntry = false
	}
	indexHandle, err := b.writeBlock(b.indexBlock)
	if err != nil {
		return err
	}

	footer := &block.Footer{MetaindexHandle: metaindexHandle, IndexHandle: indexHandle}
	footerBytes := footer.EncodeTo()
	if _, err := b.file.Append(footerBytes); err != nil {
		return err
	}
	b.offset += uint64(len(footerBytes))

	return nil
}

// Abandon discards the builder's in-memory state without writing a
// footer. The caller owns deleting whatever partial bytes were already
// appended to file.
func (b *Builder) Abandon() {
	b.closed = true
}
