// Copyright (c) 2022, Christopher Jeffrey (MIT License).
// https://github.com/chjj/lcdb
//
// Parts of this software are based on google/leveldb:
//   Copyright (c) 2011, The LevelDB Authors. All rights reserved.
//   https://github.com/google/leveldb

package lcdb

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when a key is absent from a table.
// Iterators never report it.
var ErrNotFound = errors.New("lcdb: not found")

// ErrInvalidArgument covers misuse of a builder: a non-monotonic key, or an
// operation attempted after Finish/Abandon.
var ErrInvalidArgument = errors.New("lcdb: invalid argument")

// ErrCorruption is the sentinel wrapped by every corruption error produced
// by a decoder. Use errors.Is(err, ErrCorruption) to test for it.
var ErrCorruption = errors.New("lcdb: corruption")

// CorruptionError wraps ErrCorruption with a human-readable reason and,
// where known, the file offset at which the inconsistency was observed.
type CorruptionError struct {
	Reason string
	Offset int64 // -1 if not applicable
}

func (e *CorruptionError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("lcdb: corruption: %s (offset %d)", e.Reason, e.Offset)
	}
	return fmt.Sprintf("lcdb: corruption: %s", e.Reason)
}

func (e *CorruptionError) Unwrap() error {
	return ErrCorruption
}

// NewCorruptionError builds a CorruptionError with no known offset.
func NewCorruptionError(reason string) error {
	return &CorruptionError{Reason: reason, Offset: -1}
}

// NewCorruptionErrorAt builds a CorruptionError anchored at a file offset.
func NewCorruptionErrorAt(reason string, offset int64) error {
	return &CorruptionError{Reason: reason, Offset: offset}
}
