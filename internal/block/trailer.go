// trailer.go implements the 5-byte trailer written after every stored
// block: a 1-byte compression type followed by the masked CRC32C of the
// block contents plus that type byte.
package block

import (
	"github.com/SamuelMarks/lcdb/internal/checksum"
	"github.com/SamuelMarks/lcdb/internal/encoding"
)

// TrailerSize is the size of a block trailer: 1 byte compression type + 4
// byte masked CRC32C.
const TrailerSize = 5

// AppendTrailer appends contents (the on-disk bytes of a block, already
// compressed if compressionType != 0) followed by its trailer to dst and
// returns the extended slice. The checksum covers contents followed by the type byte.
func AppendTrailer(dst []byte, contents []byte, compressionType byte) []byte {
	dst = append(dst, contents...)
	dst = append(dst, compressionType)
	crc := checksum.Extend(checksum.Value(contents), []byte{compressionType})
	return encoding.AppendFixed32(dst, checksum.Mask(crc))
}

// SplitTrailer validates and strips the trailer from a block read off disk.
// raw is the full handle-sized read: block contents followed by TrailerSize
// trailer bytes. It returns the contents, the compression type, and any
// corruption error.
func SplitTrailer(raw []byte) (contents []byte, compressionType byte, err error) {
	if len(raw) < TrailerSize {
		return nil, 0, ErrBadBlock
	}

	contentsEnd := len(raw) - TrailerSize
	contents = raw[:contentsEnd]
	compressionType = raw[contentsEnd]
	storedCRC := encoding.DecodeFixed32(raw[contentsEnd+1:])

	actualCRC := checksum.Extend(checksum.Value(contents), []byte{compressionType})
	if checksum.Mask(actualCRC) != storedCRC {
		return nil, 0, ErrBadBlock
	}

	return contents, compressionType, nil
}
