// Copyright (c) 2022, Christopher Jeffrey (MIT License).
// https://github.com/chjj/lcdb
//
// Parts of this software are based on google/leveldb:
//   Copyright (c) 2011, The LevelDB Authors. All rights reserved.
//   https://github.com/google/leveldb

/*
Package lcdb implements the on-disk sstable file format used by LevelDB-style
storage engines: an immutable, sorted sequence of key-value pairs packed into
prefix-compressed blocks, an optional Bloom filter block for point-lookup
pruning, a top-level index block, and a fixed 48-byte footer.

This package covers the table format itself: coding primitives, the Bloom
filter policy, the block builder/reader, the filter block builder/reader, and
the table builder/reader (internal/table). It does not implement a write-ahead
log, a memtable, a version set or MANIFEST, compaction, or a database façade;
those belong to a layer built on top of a table file, not inside one.

# Comparator

Every table is built and read under a single Comparator, a total ordering
over keys plus two key-shortening hooks the builder uses to keep index
entries small. The default is BytewiseComparator. A reader must use a
comparator with the same Name as the one a table was built with.

# Concurrency

A Reader and its loaded index/filter blocks are immutable once Open returns
and may be shared across goroutines without locking. An individual Iterator
is not safe for concurrent use; each goroutine should use its own.
*/
package lcdb
