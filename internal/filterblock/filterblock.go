// Package filterblock implements the filter meta-block: a sequence of
// per-region Bloom filters, one per fixed-size bucket of file offsets,
// letting a point lookup skip a data-block load entirely when the filter
// proves the key cannot be present.
package filterblock

import (
	"github.com/SamuelMarks/lcdb/internal/encoding"
	"github.com/SamuelMarks/lcdb/internal/filter"
)

// BaseLg is the log2 of the file-offset region size each filter covers.
// The default, 11, covers 2KiB of file offset per filter.
const BaseLg = 11

// Builder accumulates keys into per-region filters as data blocks are
// flushed, so that filter i summarizes every key in a data block starting
// within file-offset region [i<<base_lg, (i+1)<<base_lg).
type Builder struct {
	baseLg     uint
	bitsPerKey int

	keys        [][]byte // pending keys for the filter not yet generated
	result      []byte   // filter data, filters appended back to back
	filterStart []uint32 // filterStart[i] = offset of filter i within result
}

// NewBuilder creates a filter block builder with the default region size
// (BaseLg). bitsPerKey is forwarded to the Bloom filter policy for every
// generated filter.
func NewBuilder(bitsPerKey int) *Builder {
	return NewBuilderWithBaseLg(bitsPerKey, BaseLg)
}

// NewBuilderWithBaseLg creates a filter block builder whose region size is
// 1<<baseLg bytes of file offset instead of the default. The chosen value
// is written into the block's trailer byte, so a Reader never needs to be
// told it separately: Finish and NewReader always agree.
func NewBuilderWithBaseLg(bitsPerKey, baseLg int) *Builder {
	if baseLg <= 0 {
		baseLg = BaseLg
	}
	return &Builder{baseLg: uint(baseLg), bitsPerKey: bitsPerKey}
}

// StartBlock is called with the file offset of a data block about to be
// written, before any of its keys are added. It generates empty filters to
// catch the builder's region index up with blockOffset's region, keeping
// filter i aligned with file region i.
func (b *Builder) StartBlock(blockOffset uint64) {
	filterIndex := blockOffset >> b.baseLg
	for uint64(len(b.filterStart)) < filterIndex {
		b.generateFilter()
	}
}

// AddKey appends key to the batch pending for the current, not yet
// generated filter. The caller owns key; it is not retained past this
// call.
func (b *Builder) AddKey(key []byte) {
	k := make([]byte, len(key))
	copy(k, key)
	b.keys = append(b.keys, k)
}

// Finish flushes any pending batch as the final filter and appends the
// offset array, array_offset, and base_lg trailer. The builder must not be
// reused afterward.
func (b *Builder) Finish() []byte {
	if len(b.keys) > 0 {
		b.generateFilter()
	}

	arrayOffset := uint32(len(b.result))
	for _, offset := range b.filterStart {
		b.result = encoding.AppendFixed32(b.result, offset)
	}
	b.result = encoding.AppendFixed32(b.result, arrayOffset)
	b.result = append(b.result, byte(b.baseLg))

	return b.result
}

// generateFilter builds a filter from the pending key batch (which may be
// empty) and records its start offset. An empty batch still records an
// offset — with no bytes of filter data following it — so the reader can
// distinguish "filter covers no blocks" from "filter covers a block with
// no keys below the match threshold".
func (b *Builder) generateFilter() {
	b.filterStart = append(b.filterStart, uint32(len(b.result)))

	if len(b.keys) == 0 {
		return
	}

	fb := filter.NewBloomFilterBuilder(b.bitsPerKey)
	for _, key := range b.keys {
		fb.AddKey(key)
	}
	b.result = append(b.result, fb.Finish()...)
	b.keys = b.keys[:0]
}

// Reader answers matches(block_offset, key) queries against an encoded
// filter block.
type Reader struct {
	data        []byte
	offsetArray []byte
	arrayOffset uint32
	numFilters  uint32
	baseLg      uint
	valid       bool
}

// NewReader parses contents into a Reader. A malformed or too-short block
// produces a Reader that always answers Matches=true (pessimistic), per
// §4.4's degraded-state rule, rather than an error — a bad filter block
// must never hide a real key.
func NewReader(contents []byte) *Reader {
	n := len(contents)
	if n < 5 {
		return &Reader{valid: false}
	}

	baseLg := uint(contents[n-1])
	arrayOffset := encoding.DecodeFixed32(contents[n-5:])
	if uint64(arrayOffset) > uint64(n-5) {
		return &Reader{valid: false}
	}

	numFilters := (uint32(n-5) - arrayOffset) / 4
	return &Reader{
		data: contents,
		// offsetArray runs one word past the last real offset entry: that
		// extra word is the array_offset field itself, which doubles as
		// the implicit limit of the final filter (its data ends exactly
		// where the offset array begins).
		offsetArray: contents[arrayOffset : n-1],
		arrayOffset: arrayOffset,
		numFilters:  numFilters,
		baseLg:      baseLg,
		valid:       true,
	}
}

// Matches reports whether key may be present in the data block starting at
// blockOffset. A false result is a definitive negative.
func (r *Reader) Matches(blockOffset uint64, key []byte) bool {
	if !r.valid {
		return true
	}

	i := blockOffset >> r.baseLg
	if i >= uint64(r.numFilters) {
		return true
	}

	start := encoding.DecodeFixed32(r.offsetArray[i*4:])
	limit := encoding.DecodeFixed32(r.offsetArray[(i+1)*4:])
	if start > limit || limit > r.arrayOffset {
		return true
	}
	if start == limit {
		return false
	}

	return filter.Match(r.data[start:limit], key)
}
