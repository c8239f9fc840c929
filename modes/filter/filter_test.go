package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddThenTest(t *testing.T) {
	f := New()
	f.Add(0x4840D6)
	assert.True(t, f.Test(0x4840D6))
	assert.False(t, f.Test(0x4840D7))
}

func TestTestPartialFindsSuffixMatch(t *testing.T) {
	f := New()
	f.Add(0x4840D6)
	got := f.TestPartial(0x4840D6 & 0xffff)
	assert.Equal(t, uint32(0x4840D6), got)
}

func TestTestPartialNoMatch(t *testing.T) {
	f := New()
	assert.Equal(t, uint32(0), f.TestPartial(0xBEEF))
}

// Invariant 2: after add(x), test(x) survives exactly one generation flip
// and is gone after two.
func TestGenerationAging(t *testing.T) {
	cur := time.Now()
	f := New()
	f.now = func() time.Time { return cur }
	f.nextFlip = cur.Add(60 * time.Second)

	f.Add(0xABCDEF)
	require.True(t, f.Test(0xABCDEF))

	cur = cur.Add(60 * time.Second)
	f.Expire()
	assert.True(t, f.Test(0xABCDEF), "must survive one flip")

	cur = cur.Add(60 * time.Second)
	f.Expire()
	assert.False(t, f.Test(0xABCDEF), "must be gone after two flips")
}

func TestAddIsIdempotentUnderRepeatedInsert(t *testing.T) {
	f := New()
	for i := 0; i < 5; i++ {
		f.Add(0x112233)
	}
	assert.True(t, f.Test(0x112233))
}
