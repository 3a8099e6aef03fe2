package filterblock

import (
	"fmt"
	"testing"
)

func TestFilterBlockRoundTrip(t *testing.T) {
	b := NewBuilder(10)

	b.StartBlock(0)
	b.AddKey([]byte("apple"))
	b.AddKey([]byte("banana"))

	b.StartBlock(1 << BaseLg)
	b.AddKey([]byte("cherry"))

	contents := b.Finish()
	r := NewReader(contents)

	if !r.Matches(0, []byte("apple")) {
		t.Error("expected match for apple in block 0")
	}
	if !r.Matches(0, []byte("banana")) {
		t.Error("expected match for banana in block 0")
	}
	if !r.Matches(1<<BaseLg, []byte("cherry")) {
		t.Error("expected match for cherry in block 1")
	}
}

func TestFilterBlockConfigurableBaseLg(t *testing.T) {
	const customBaseLg = 4 // 16-byte regions instead of the 2KiB default

	b := NewBuilderWithBaseLg(10, customBaseLg)

	b.StartBlock(0)
	b.AddKey([]byte("apple"))

	b.StartBlock(1 << customBaseLg)
	b.AddKey([]byte("banana"))

	contents := b.Finish()
	if got := contents[len(contents)-1]; got != customBaseLg {
		t.Errorf("trailer base_lg byte = %d, want %d", got, customBaseLg)
	}

	r := NewReader(contents)
	if !r.Matches(0, []byte("apple")) {
		t.Error("expected match for apple in region 0")
	}
	if !r.Matches(1<<customBaseLg, []byte("banana")) {
		t.Error("expected match for banana in region 1")
	}
	if r.Matches(1<<customBaseLg, []byte("apple")) {
		t.Error("expected no match for apple in region 1")
	}
}

func TestFilterBlockEmptyRegionDoesNotMatch(t *testing.T) {
	b := NewBuilder(10)

	// Region 0 has a block but no keys are added for it before the
	// builder moves on to region 1, so region 0's filter is generated
	// empty.
	b.StartBlock(0)
	b.StartBlock(1 << BaseLg)
	b.AddKey([]byte("x"))
	contents := b.Finish()

	r := NewReader(contents)
	if r.Matches(0, []byte("x")) {
		t.Error("empty-region filter should never match")
	}
	if !r.Matches(1<<BaseLg, []byte("x")) {
		t.Error("region 1 should match its own key")
	}
}

func TestFilterBlockUnknownRegionMatchesPessimistically(t *testing.T) {
	b := NewBuilder(10)
	b.StartBlock(0)
	b.AddKey([]byte("only"))
	contents := b.Finish()

	r := NewReader(contents)
	if !r.Matches(100<<BaseLg, []byte("anything")) {
		t.Error("region beyond the filter array should match pessimistically")
	}
}

func TestFilterBlockDegradedReaderMatchesPessimistically(t *testing.T) {
	r := NewReader([]byte{0, 1, 2})
	if !r.Matches(0, []byte("x")) {
		t.Error("degraded reader (too-short block) must match pessimistically")
	}
}

func TestFilterBlockManyRegions(t *testing.T) {
	b := NewBuilder(10)

	numBlocks := 50
	for i := range numBlocks {
		offset := uint64(i) << BaseLg
		b.StartBlock(offset)
		b.AddKey(fmt.Appendf(nil, "key%03d", i))
	}
	contents := b.Finish()

	r := NewReader(contents)
	for i := range numBlocks {
		offset := uint64(i) << BaseLg
		key := fmt.Appendf(nil, "key%03d", i)
		if !r.Matches(offset, key) {
			t.Errorf("block %d: expected match for its own key", i)
		}
	}
}
