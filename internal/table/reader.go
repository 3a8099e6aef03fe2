package table

import (
	"errors"
	"io"

	"github.com/SamuelMarks/lcdb/internal/block"
	"github.com/SamuelMarks/lcdb/internal/cache"
	"github.com/SamuelMarks/lcdb/internal/compression"
	"github.com/SamuelMarks/lcdb/internal/encoding"
	"github.com/SamuelMarks/lcdb/internal/filter"
	"github.com/SamuelMarks/lcdb/internal/filterblock"
	"github.com/SamuelMarks/lcdb/internal/logging"
)

var (
	// ErrInvalidTable indicates the file is too short or its footer magic
	// does not match.
	ErrInvalidTable = errors.New("table: invalid sstable file")

	// ErrNotFound indicates Get found no entry matching the requested key.
	ErrNotFound = errors.New("table: not found")
)

// ReadableFile is the minimal capability the reader needs from an input
// file: positioned reads and a known size.
type ReadableFile interface {
	ReadAt(p []byte, off int64) (n int, err error)
	Size() int64
}

// ReaderOptions controls reader behavior.
type ReaderOptions struct {
	// VerifyChecksums, when true, is the caller's declared intent to pay
	// for checksum verification on every block read. Block trailers are
	// always checked regardless (SplitTrailer has no unchecked mode); this
	// flag is reserved for a future fast path that skips it.
	VerifyChecksums bool

	// Cache, if non-nil, is consulted before every data block load and
	// populated on miss. The meta-index, index, and filter blocks are
	// never cached: they are pinned in the Reader for its lifetime
	// regardless.
	Cache cache.Cache

	// FileID identifies this table's blocks within Cache. Callers sharing
	// one Cache across multiple tables must give each table a distinct
	// FileID, or their data blocks will collide in the cache.
	FileID uint64

	// Logger receives a non-fatal warning when the filter block named by
	// the meta-index fails to decode. If nil, logging.Discard is used.
	Logger logging.Logger
}

// Reader reads an established sstable file: a pinned index block, an
// optional pinned filter block, and on-demand data block loads.
type Reader struct {
	file    ReadableFile
	size    int64
	options ReaderOptions
	cmp     Comparator

	footer *block.Footer

	indexBlock   *block.Block
	filterReader *filterblock.Reader
}

// Open parses the footer, loads the meta-index and index blocks, and
// loads the filter block if the meta-index names one under the classic
// Bloom filter policy's name. cmp must be the same comparator the table
// was built with.
func Open(file ReadableFile, opts ReaderOptions, cmp Comparator) (*Reader, error) {
	size := file.Size()
	if size < int64(block.EncodedLength) {
		return nil, ErrInvalidTable
	}

	footerBuf := make([]byte, block.EncodedLength)
	if _, err := file.ReadAt(footerBuf, size-int64(block.EncodedLength)); err != nil {
		return nil, err
	}
	footer, err := block.DecodeFooter(footerBuf)
	if err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = logging.Discard
	}
	r := &Reader{file: file, size: size, options: opts, cmp: cmp, footer: footer}

	metaBlock, err := r.readBlock(footer.MetaindexHandle)
	if err != nil {
		return nil, err
	}

	wantKey := "filter." + filter.PolicyName
	var filterHandle block.Handle
	haveFilter := false
	mit := metaBlock.NewIterator(cmp)
	for mit.SeekToFirst(); mit.Valid(); mit.Next() {
		if string(mit.Key()) == wantKey {
			h, herr := block.DecodeHandleFrom(mit.Value())
			if herr == nil {
				filterHandle = h
				haveFilter = true
			}
			break
		}
	}

	indexBlock, err := r.readBlock(footer.IndexHandle)
	if err != nil {
		return nil, err
	}
	r.indexBlock = indexBlock

	if haveFilter {
		if data, ferr := r.readBlockData(filterHandle); ferr == nil {
			r.filterReader = filterblock.NewReader(data)
		} else {
			// A malformed filter block is not fatal: lookups stay
			// correct, just without the skip-the-block-load shortcut.
			r.options.Logger.Warnf("table: filter block failed to decode, continuing without it: %v", ferr)
		}
	}

	return r, nil
}

// Close releases the underlying file if it implements io.Closer. The
// reader itself holds no other resources.
func (r *Reader) Close() error {
	if c, ok := r.file.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// readBlockData reads handle's bytes, validates and strips the trailer,
// and decompresses if needed. The returned slice is a fresh copy safe to
// retain past the next read.
func (r *Reader) readBlockData(handle block.Handle) ([]byte, error) {
	totalSize := handle.Size + block.TrailerSize
	if handle.Offset > uint64(r.size) || handle.Offset+totalSize > uint64(r.size) {
		return nil, ErrInvalidTable
	}

	buf := make([]byte, totalSize)
	n, err := r.file.ReadAt(buf, int64(handle.Offset))
	if err != nil {
		return nil, err
	}
	if uint64(n) < totalSize {
		return nil, ErrInvalidTable
	}

	contents, rawType, err := block.SplitTrailer(buf)
	if err != nil {
		return nil, err
	}
	ctype := compression.Type(rawType)

	if ctype == compression.NoCompression {
		out := make([]byte, len(contents))
		copy(out, contents)
		return out, nil
	}

	data := contents
	expectedSize := 0
	if ctype != compression.SnappyCompression {
		size, n, verr := encoding.DecodeVarint32(data)
		if verr != nil {
			return nil, block.ErrBadBlock
		}
		expectedSize = int(size)
		data = data[n:]
	}

	return compression.DecompressWithSize(ctype, data, expectedSize)
}

func (r *Reader) readBlock(handle block.Handle) (*block.Block, error) {
	data, err := r.readBlockData(handle)
	if err != nil {
		return nil, err
	}
	return block.NewBlock(data)
}

// readDataBlock loads a data block, through r.options.Cache when
// configured. A miss is inserted into the cache only when fillCache is
// true. The returned release func must be called once the caller is done
// with the block; it is a no-op when caching is disabled.
func (r *Reader) readDataBlock(handle block.Handle, fillCache bool) (blk *block.Block, release func(), err error) {
	if r.options.Cache == nil {
		blk, err = r.readBlock(handle)
		return blk, func() {}, err
	}

	key := cache.CacheKey{FileNumber: r.options.FileID, BlockOffset: handle.Offset}
	if h := r.options.Cache.Lookup(key); h != nil {
		blk, err = block.NewBlock(h.Value())
		if err != nil {
			r.options.Cache.Release(h)
			return nil, nil, err
		}
		return blk, func() { r.options.Cache.Release(h) }, nil
	}

	data, err := r.readBlockData(handle)
	if err != nil {
		return nil, nil, err
	}
	blk, err = block.NewBlock(data)
	if err != nil {
		return nil, nil, err
	}
	if !fillCache {
		return blk, func() {}, nil
	}
	h := r.options.Cache.Insert(key, data, uint64(len(data)))
	return blk, func() { r.options.Cache.Release(h) }, nil
}

// Get looks up key and returns a copy of its value, or ErrNotFound.
// fillCache controls whether a data block loaded to satisfy this lookup is
// inserted into the reader's cache on a miss.
func (r *Reader) Get(key []byte, fillCache bool) ([]byte, error) {
	iit := r.indexBlock.NewIterator(r.cmp)
	iit.Seek(key)
	if !iit.Valid() {
		if err := iit.Error(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	handle, err := block.DecodeHandleFrom(iit.Value())
	if err != nil {
		return nil, err
	}

	if r.filterReader != nil && !r.filterReader.Matches(handle.Offset, key) {
		return nil, ErrNotFound
	}

	dataBlock, release, err := r.readDataBlock(handle, fillCache)
	if err != nil {
		return nil, err
	}
	defer release()

	dit := dataBlock.NewIterator(r.cmp)
	dit.Seek(key)
	if !dit.Valid() {
		if err := dit.Error(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	if r.cmp.Compare(dit.Key(), key) != 0 {
		return nil, ErrNotFound
	}

	value := dit.Value()
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// ApproximateOffsetOf returns the file offset of the data block that
// would hold key, or the meta-index handle's offset if key is past the
// last block.
func (r *Reader) ApproximateOffsetOf(key []byte) uint64 {
	it := r.indexBlock.NewIterator(r.cmp)
	it.Seek(key)
	if it.Valid() {
		if h, err := block.DecodeHandleFrom(it.Value()); err == nil {
			return h.Offset
		}
	}
	return r.footer.MetaindexHandle.Offset
}

// NewIterator returns a two-level iterator over the table's entries in key
// order. It is initially invalid; call SeekToFirst, SeekToLast, or Seek
// before reading. fillCache controls whether a data block loaded during
// iteration is inserted into the reader's cache on a miss.
func (r *Reader) NewIterator(fillCache bool) *Iterator {
	return &Iterator{reader: r, indexIter: r.indexBlock.NewIterator(r.cmp), fillCache: fillCache}
}

// Iterator walks a table's data blocks through its index: advancing past
// the end of a data block transparently opens the next one.
type Iterator struct {
	reader      *Reader
	indexIter   *block.Iterator
	dataIter    *block.Iterator
	dataRelease func()
	fillCache   bool
	err         error
}

// Close releases the current data block's cache pin, if any. Safe to call
// multiple times and on a freshly created iterator.
func (it *Iterator) Close() {
	if it.dataRelease != nil {
		it.dataRelease()
		it.dataRelease = nil
	}
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool {
	return it.dataIter != nil && it.dataIter.Valid()
}

// SeekToFirst positions the iterator at the table's first entry.
func (it *Iterator) SeekToFirst() {
	it.indexIter.SeekToFirst()
	it.loadDataBlock()
	if it.dataIter != nil {
		it.dataIter.SeekToFirst()
	}
	it.skipForward()
}

// SeekToLast positions the iterator at the table's last entry.
func (it *Iterator) SeekToLast() {
	it.indexIter.SeekToLast()
	it.loadDataBlock()
	if it.dataIter != nil {
		it.dataIter.SeekToLast()
	}
	it.skipBackward()
}

// Seek positions the iterator at the first entry with key >= target.
func (it *Iterator) Seek(target []byte) {
	it.indexIter.Seek(target)
	it.loadDataBlock()
	if it.dataIter != nil {
		it.dataIter.Seek(target)
	}
	it.skipForward()
}

// Next moves to the next entry.
func (it *Iterator) Next() {
	if it.dataIter == nil {
		return
	}
	it.dataIter.Next()
	it.skipForward()
}

// Prev moves to the previous entry.
func (it *Iterator) Prev() {
	if it.dataIter == nil {
		return
	}
	it.dataIter.Prev()
	it.skipBackward()
}

// Key returns the current entry's key.
func (it *Iterator) Key() []byte {
	return it.dataIter.Key()
}

// Value returns the current entry's value.
func (it *Iterator) Value() []byte {
	return it.dataIter.Value()
}

// Error returns the first non-nil error observed at either iterator
// level.
func (it *Iterator) Error() error {
	if it.err != nil {
		return it.err
	}
	if err := it.indexIter.Error(); err != nil {
		return err
	}
	if it.dataIter != nil {
		return it.dataIter.Error()
	}
	return nil
}

func (it *Iterator) loadDataBlock() {
	it.Close()

	if !it.indexIter.Valid() {
		it.dataIter = nil
		return
	}

	handle, err := block.DecodeHandleFrom(it.indexIter.Value())
	if err != nil {
		it.err = err
		it.dataIter = nil
		return
	}

	dataBlock, release, err := it.reader.readDataBlock(handle, it.fillCache)
	if err != nil {
		it.err = err
		it.dataIter = nil
		return
	}

	it.dataIter = dataBlock.NewIterator(it.reader.cmp)
	it.dataRelease = release
}

// skipForward advances to the next non-empty data block while the
// current one is exhausted, so forward iteration steps cleanly over
// blocks that happen to be empty.
func (it *Iterator) skipForward() {
	for it.err == nil && (it.dataIter == nil || !it.dataIter.Valid()) && it.indexIter.Valid() {
		it.indexIter.Next()
		it.loadDataBlock()
		if it.dataIter == nil {
			return
		}
		it.dataIter.SeekToFirst()
	}
}

func (it *Iterator) skipBackward() {
	for it.err == nil && (it.dataIter == nil || !it.dataIter.Valid()) {
		it.indexIter.Prev()
		if !it.indexIter.Valid() {
			it.dataIter = nil
			return
		}
		it.loadDataBlock()
		if it.dataIter == nil {
			return
		}
		it.dataIter.SeekToLast()
	}
}
