// footer.go implements the fixed footer written at the tail of every
// sstable: the metaindex and index block handles, padded to a constant
// width, followed by an 8-byte magic number.
package block

import (
	"encoding/binary"
)

// MagicNumber identifies a valid sstable footer.
const MagicNumber uint64 = 0xdb4775248b80fb57

// MagicNumberLengthByte is the length of the magic number in bytes.
const MagicNumberLengthByte = 8

// EncodedLength is the fixed size of an encoded footer: two block handles
// (each padded to their maximum varint64-pair width) followed by the magic
// number.
const EncodedLength = 2*MaxEncodedLength + MagicNumberLengthByte

// Footer encapsulates the fixed information stored at the tail of every
// sstable: where to find the metaindex block and the top-level index block.
type Footer struct {
	MetaindexHandle Handle
	IndexHandle     Handle
}

// DecodeFooter decodes a footer from the last EncodedLength bytes of an
// sstable. data must be exactly that tail slice.
func DecodeFooter(data []byte) (*Footer, error) {
	if len(data) != EncodedLength {
		return nil, ErrBadBlockFooter
	}

	magicOffset := len(data) - MagicNumberLengthByte
	magic := binary.LittleEndian.Uint64(data[magicOffset:])
	if magic != MagicNumber {
		return nil, ErrBadBlockFooter
	}

	footer := &Footer{}

	metaindexHandle, remaining, err := DecodeHandle(data)
	if err != nil {
		return nil, err
	}
	footer.MetaindexHandle = metaindexHandle

	indexHandle, _, err := DecodeHandle(remaining)
	if err != nil {
		return nil, err
	}
	footer.IndexHandle = indexHandle

	return footer, nil
}

// EncodeTo encodes the footer into a fixed EncodedLength-byte buffer: the
// two handles, zero padding out to the handle section's maximum width, then
// the magic number.
func (f *Footer) EncodeTo() []byte {
	buf := make([]byte, 0, EncodedLength)
	buf = f.MetaindexHandle.EncodeTo(buf)
	buf = f.IndexHandle.EncodeTo(buf)

	handleSectionLen := 2 * MaxEncodedLength
	for len(buf) < handleSectionLen {
		buf = append(buf, 0)
	}

	out := make([]byte, EncodedLength)
	copy(out, buf)
	binary.LittleEndian.PutUint64(out[handleSectionLen:], MagicNumber)
	return out
}
