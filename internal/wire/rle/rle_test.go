package rle

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	cases := [][]byte{
		nil,
		[]byte{},
		[]byte("a"),
		[]byte("aaaaaaaaaa"),
		[]byte("aaabbbccccd"),
		bytes.Repeat([]byte{'x'}, 1000), // exceeds the 255 max run length
		[]byte("abcdefg"),               // no repeats at all
	}

	for _, src := range cases {
		enc := Encode(src)
		assert.True(t, Valid(enc))
		got := Decode(enc)
		assert.Equal(t, src, got)
	}
}

func TestEncodeIfSmallerFallsBackToRaw(t *testing.T) {
	t.Parallel()

	src := []byte("abcdefg") // every run length 1: encoding doubles the size
	data, compressed := EncodeIfSmaller(src)
	assert.False(t, compressed)
	assert.Equal(t, src, data)

	src = bytes.Repeat([]byte{'z'}, 100)
	data, compressed = EncodeIfSmaller(src)
	assert.True(t, compressed)
	assert.Less(t, len(data), len(src))
	assert.Equal(t, src, Decode(data))
}

func TestMaxRunLength(t *testing.T) {
	t.Parallel()

	src := bytes.Repeat([]byte{'a'}, 255)
	enc := Encode(src)
	assert.Equal(t, []byte{255, 'a'}, enc)
}
