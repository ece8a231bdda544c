package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuarubin/blobstore/internal/storage"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "blobstore.conf")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadValidFile(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	path := writeConfigFile(t, `
# a comment, and a blank line above
num_workers = 8
max_num_files = 256
max_storage_size = 128MB
enable_compression = 1
socketname = /tmp/custom.sock
replacement_policy = LRU
`)

	c, err := Load(path)
	require.NoError(err)
	require.Equal(8, c.NumWorkers)
	require.Equal(256, c.MaxNumFiles)
	require.Equal(int64(128*1024*1024), c.MaxStorageSize)
	require.True(c.EnableCompression)
	require.Equal("/tmp/custom.sock", c.SocketName)
	require.Equal(storage.LRU, c.ReplacementPolicy)
}

func TestLoadDefaultsReplacementPolicyToFIFO(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	path := writeConfigFile(t, "num_workers = 2\nmax_num_files = 10\nmax_storage_size = 1MB\nsocketname = /tmp/a.sock\n")

	c, err := Load(path)
	require.NoError(err)
	require.Equal(storage.FIFO, c.ReplacementPolicy)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "bogus_key = 1\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown key")
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "not a key value line\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "expected 'key = value'")
}

func TestLoadRejectsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	assert.Error(t, err)
}

func TestLoadValidatesAfterParsing(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "num_workers = 0\nmax_num_files = 10\nmax_storage_size = 1MB\nsocketname = /tmp/a.sock\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "num_workers must be positive")
}

func TestValidate(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	good := Config{NumWorkers: 1, MaxNumFiles: 1, MaxStorageSize: 1, SocketName: "/tmp/a.sock"}
	assert.NoError(good.Validate())

	bad := good
	bad.SocketName = ""
	assert.ErrorContains(bad.Validate(), "socketname must be non-empty")

	bad = good
	bad.MaxStorageSize = 0
	assert.ErrorContains(bad.Validate(), "max_storage_size must be positive")
}

func TestFlagsParsesAndValidates(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	var c Config
	cmd := &cobra.Command{Use: "test"}
	validate := c.Flags(cmd)

	require.NoError(cmd.ParseFlags([]string{
		"--num-workers=3",
		"--max-storage-size=2MB",
		"--replacement-policy=lfu",
	}))
	require.NoError(validate())

	require.Equal(3, c.NumWorkers)
	require.Equal(int64(2*1024*1024), c.MaxStorageSize)
	require.Equal(storage.LFU, c.ReplacementPolicy)
}

func TestFlagsRejectsBadPolicy(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	var c Config
	cmd := &cobra.Command{Use: "test"}
	validate := c.Flags(cmd)

	require.NoError(cmd.ParseFlags([]string{"--replacement-policy=bogus"}))
	assert.ErrorContains(t, validate(), "invalid replacement-policy")
}

func TestConfigString(t *testing.T) {
	t.Parallel()

	c := Config{NumWorkers: 1, MaxNumFiles: 2, MaxStorageSize: 3, EnableCompression: true, SocketName: "/tmp/a.sock", ReplacementPolicy: storage.LRU}
	assert.Equal(t, "workers=1 max_files=2 max_bytes=3 compression=true socket=/tmp/a.sock policy=LRU", c.String())
}
