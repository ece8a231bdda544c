package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	assert := assert.New(t)

	for _, tc := range []struct {
		in   string
		want Policy
	}{
		{"FIFO", FIFO},
		{"LRU", LRU},
		{"LFU", LFU},
	} {
		got, err := ParsePolicy(tc.in)
		require.NoError(err)
		assert.Equal(tc.want, got)
		assert.Equal(tc.in, got.String())
	}

	_, err := ParsePolicy("bogus")
	assert.Error(err)
}
