// Copyright (c) 2022, Christopher Jeffrey (MIT License).
// https://github.com/chjj/lcdb
//
// Parts of this software are based on google/leveldb:
//   Copyright (c) 2011, The LevelDB Authors. All rights reserved.
//   https://github.com/google/leveldb

package lcdb

// table.go is the package's public entry point: it turns an Options value
// into the internal/table Builder/Reader pair that does the actual work,
// and translates that package's and internal/block's error sentinels into
// this package's. internal/table cannot be imported directly by anyone
// outside this module, so this file is the only way in.

import (
	"errors"

	"github.com/SamuelMarks/lcdb/internal/block"
	"github.com/SamuelMarks/lcdb/internal/cache"
	"github.com/SamuelMarks/lcdb/internal/table"
)

// WritableFile is the minimal append-only capability a Builder needs from
// its output file. The caller owns flush/sync/close.
type WritableFile = table.WritableFile

// ReadableFile is the minimal capability a Reader needs from its input
// file: positioned reads and a known size.
type ReadableFile = table.ReadableFile

// Syncer is a capability a WritableFile may optionally implement. When it
// does, and WriteOptions.Sync is true, Builder.Finish calls Sync after the
// footer is written and before returning.
type Syncer interface {
	Sync() error
}

// Builder assembles a single sstable: a sorted run of key-value pairs
// written through NewTableBuilder, finished with Finish.
type Builder struct {
	inner *table.Builder
	file  WritableFile
	wopts *WriteOptions
}

// NewTableBuilder creates a Builder that appends to w. A nil opts is
// equivalent to DefaultOptions(); a nil opts.Comparator defaults to
// BytewiseComparator. A nil wopts is equivalent to DefaultWriteOptions().
func NewTableBuilder(w WritableFile, opts *Options, wopts *WriteOptions) *Builder {
	if opts == nil {
		opts = DefaultOptions()
	}
	if wopts == nil {
		wopts = DefaultWriteOptions()
	}
	cmp := opts.Comparator
	if cmp == nil {
		cmp = BytewiseComparator{}
	}
	return &Builder{
		inner: table.NewBuilder(w, table.BuilderOptions{
			Comparator:           cmp,
			BlockSize:            opts.BlockSize,
			BlockRestartInterval: opts.BlockRestartInterval,
			Compression:          opts.Compression,
			FilterBitsPerKey:     opts.FilterBitsPerKey,
			FilterBaseLg:         opts.FilterBaseLg,
		}),
		file:  w,
		wopts: wopts,
	}
}

// Add appends a key-value pair. key must compare strictly greater than the
// previous key added, under the Builder's comparator.
func (b *Builder) Add(key, value []byte) error {
	return wrapTableError(b.inner.Add(key, value))
}

// Finish flushes any open data block, writes the filter, meta-index, and
// index blocks and the footer, and seals the Builder. If WriteOptions.Sync
// was true and the output file implements Syncer, Finish calls Sync before
// returning.
func (b *Builder) Finish() error {
	if err := wrapTableError(b.inner.Finish()); err != nil {
		return err
	}
	if b.wopts.Sync {
		if s, ok := b.file.(Syncer); ok {
			return s.Sync()
		}
	}
	return nil
}

// Abandon discards the Builder's in-memory state without writing a footer.
// The caller owns deleting whatever partial bytes were already written.
func (b *Builder) Abandon() {
	b.inner.Abandon()
}

// NumEntries returns the number of key-value pairs added so far.
func (b *Builder) NumEntries() int {
	return b.inner.NumEntries()
}

// FileSize returns the number of bytes written to the output file so far.
func (b *Builder) FileSize() uint64 {
	return b.inner.FileSize()
}

// Reader reads an established sstable file: a pinned index block, an
// optional pinned filter block, and on-demand, optionally cached data
// block loads.
type Reader struct {
	inner *table.Reader
}

// OpenTable parses r's footer and loads its meta-index, index, and filter
// blocks. A nil opts is equivalent to DefaultOptions(); fileID identifies
// this table's blocks within opts.Cache and is ignored when Cache is nil.
// Returns a *CorruptionError (via errors.Is(err, ErrCorruption)) if the
// file is truncated or its footer magic doesn't match.
func OpenTable(r ReadableFile, fileID uint64, opts *Options) (*Reader, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	cmp := opts.Comparator
	if cmp == nil {
		cmp = BytewiseComparator{}
	}
	if lru, ok := opts.Cache.(*cache.LRUCache); ok && opts.Logger != nil {
		lru.SetLogger(opts.Logger)
	}
	inner, err := table.Open(r, table.ReaderOptions{
		VerifyChecksums: true,
		Cache:           opts.Cache,
		FileID:          fileID,
		Logger:          opts.Logger,
	}, cmp)
	if err != nil {
		return nil, wrapTableError(err)
	}
	return &Reader{inner: inner}, nil
}

// Close releases the underlying file if it implements io.Closer.
func (r *Reader) Close() error {
	return wrapTableError(r.inner.Close())
}

// Get looks up key and returns a copy of its value, or ErrNotFound. A nil
// ropts is equivalent to DefaultReadOptions().
func (r *Reader) Get(key []byte, ropts *ReadOptions) ([]byte, error) {
	if ropts == nil {
		ropts = DefaultReadOptions()
	}
	value, err := r.inner.Get(key, ropts.FillCache)
	return value, wrapTableError(err)
}

// ApproximateOffsetOf returns the approximate file offset of the start of
// the data block that would hold key.
func (r *Reader) ApproximateOffsetOf(key []byte) uint64 {
	return r.inner.ApproximateOffsetOf(key)
}

// NewIterator returns a two-level iterator over the table's entries in key
// order. It is initially invalid; call SeekToFirst, SeekToLast, or Seek
// before reading. A nil ropts is equivalent to DefaultReadOptions().
func (r *Reader) NewIterator(ropts *ReadOptions) *Iterator {
	if ropts == nil {
		ropts = DefaultReadOptions()
	}
	return &Iterator{inner: r.inner.NewIterator(ropts.FillCache)}
}

// Iterator walks a table's entries in key order, loading data blocks
// through the Reader's cache (if any) as it advances.
type Iterator struct {
	inner *table.Iterator
}

// Close releases the current data block's cache pin, if any. Safe to call
// multiple times and on a freshly created Iterator.
func (it *Iterator) Close() {
	it.inner.Close()
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool {
	return it.inner.Valid()
}

// SeekToFirst positions the iterator at the table's first entry.
func (it *Iterator) SeekToFirst() {
	it.inner.SeekToFirst()
}

// SeekToLast positions the iterator at the table's last entry.
func (it *Iterator) SeekToLast() {
	it.inner.SeekToLast()
}

// Seek positions the iterator at the first entry whose key is >= target.
func (it *Iterator) Seek(target []byte) {
	it.inner.Seek(target)
}

// Next moves to the next entry. Valid must be true before calling.
func (it *Iterator) Next() {
	it.inner.Next()
}

// Prev moves to the previous entry. Valid must be true before calling.
func (it *Iterator) Prev() {
	it.inner.Prev()
}

// Key returns the current entry's key. Valid must be true before calling.
func (it *Iterator) Key() []byte {
	return it.inner.Key()
}

// Value returns the current entry's value. Valid must be true before
// calling.
func (it *Iterator) Value() []byte {
	return it.inner.Value()
}

// Error returns the first error encountered while iterating, if any.
func (it *Iterator) Error() error {
	return wrapTableError(it.inner.Error())
}

// wrapTableError maps internal/table and internal/block sentinels onto
// this package's error taxonomy, so a caller that only imports lcdb can
// use errors.Is against ErrNotFound, ErrInvalidArgument, and ErrCorruption
// without reaching into internal/table or internal/block.
func wrapTableError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, table.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, table.ErrClosed), errors.Is(err, table.ErrKeyOutOfOrder):
		return ErrInvalidArgument
	case errors.Is(err, table.ErrInvalidTable):
		return NewCorruptionError(err.Error())
	case errors.Is(err, block.ErrBadBlock),
		errors.Is(err, block.ErrBadBlockHandle),
		errors.Is(err, block.ErrBadBlockFooter):
		return NewCorruptionError(err.Error())
	default:
		return err
	}
}
