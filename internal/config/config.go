// Package config defines the blobstore server's validated configuration
// record (spec §6 "Configuration (consumed)") and a loader for the
// line-oriented key = value file format the original configparser.c reads
// (spec treats the loader itself as external; we still need one to drive
// the server binary end to end).
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/joshuarubin/blobstore/internal/storage"
)

// Config is the fully validated record the storage engine and acceptor
// consume. Field names match spec §6.
type Config struct {
	NumWorkers        int
	MaxNumFiles       int
	MaxStorageSize    int64
	EnableCompression bool
	SocketName        string
	ReplacementPolicy storage.Policy

	// ShutdownTimeout is not named in spec §6's config table; it is an
	// ambient operational knob in the same place the teacher's
	// server.Config keeps ShutdownTimeout. Nothing in the server reads it:
	// soft shutdown waits for every client to disconnect, with no time
	// limit.
	ShutdownTimeout time.Duration
}

// rawFlags holds the cobra-bound string/bool forms of fields that need
// parsing (byte sizes, policy names) before becoming a validated Config.
type rawFlags struct {
	maxStorageSize string
	policy         string
}

// Flags registers cobra flags for every field and returns a function that
// must be called after cmd.Execute to produce the validated Config,
// mirroring the teacher's *Config.Flags(*cobra.Command) pattern
// (internal/config/config.go, internal/client/flags.go) generalized with a
// deferred-validation step for the fields that need parsing.
func (c *Config) Flags(cmd *cobra.Command) func() error {
	var raw rawFlags

	cmd.Flags().IntVar(&c.NumWorkers, "num-workers", 4, "number of worker goroutines")
	cmd.Flags().IntVar(&c.MaxNumFiles, "max-num-files", 128, "maximum number of blobs retained")
	cmd.Flags().StringVar(&raw.maxStorageSize, "max-storage-size", "64MB", "maximum aggregate blob byte size (e.g. 64MB)")
	cmd.Flags().BoolVar(&c.EnableCompression, "enable-compression", false, "apply RLE compression to DATA/FILE_P payloads")
	cmd.Flags().StringVar(&c.SocketName, "socketname", "/tmp/blobstore.sock", "unix domain socket path to listen on")
	cmd.Flags().StringVar(&raw.policy, "replacement-policy", "FIFO", "eviction policy: FIFO, LRU or LFU")
	cmd.Flags().DurationVar(&c.ShutdownTimeout, "shutdown-timeout", 30*time.Second, "accepted but not applied: soft shutdown waits for every client to disconnect")

	return func() error {
		size, err := units.RAMInBytes(raw.maxStorageSize)
		if err != nil {
			return fmt.Errorf("config: invalid max-storage-size %q: %w", raw.maxStorageSize, err)
		}
		c.MaxStorageSize = size

		policy, err := storage.ParsePolicy(strings.ToUpper(raw.policy))
		if err != nil {
			return fmt.Errorf("config: invalid replacement-policy: %w", err)
		}
		c.ReplacementPolicy = policy

		return c.Validate()
	}
}

// Validate checks the constraints spec §6 lists for the configuration
// record.
func (c *Config) Validate() error {
	if c.NumWorkers <= 0 {
		return fmt.Errorf("config: num_workers must be positive, got %d", c.NumWorkers)
	}
	if c.MaxNumFiles <= 0 {
		return fmt.Errorf("config: max_num_files must be positive, got %d", c.MaxNumFiles)
	}
	if c.MaxStorageSize <= 0 {
		return fmt.Errorf("config: max_storage_size must be positive, got %d", c.MaxStorageSize)
	}
	if c.SocketName == "" {
		return fmt.Errorf("config: socketname must be non-empty")
	}
	return nil
}

// Load parses a line-oriented `key = value` file, the format the original
// configparser.c reads, into a validated Config. Recognized keys:
// num_workers, max_num_files, max_storage_size, enable_compression,
// socketname, replacement_policy. Unlike the original, replacement_policy
// is actually honored here (spec §9 design note).
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	c := &Config{ShutdownTimeout: 30 * time.Second}
	var policy = "FIFO"

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("config: %s:%d: expected 'key = value'", path, lineNo)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		switch key {
		case "num_workers":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("config: %s:%d: %w", path, lineNo, err)
			}
			c.NumWorkers = n
		case "max_num_files":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("config: %s:%d: %w", path, lineNo, err)
			}
			c.MaxNumFiles = n
		case "max_storage_size":
			size, err := units.RAMInBytes(value)
			if err != nil {
				return nil, fmt.Errorf("config: %s:%d: %w", path, lineNo, err)
			}
			c.MaxStorageSize = size
		case "enable_compression":
			c.EnableCompression = value == "1"
		case "socketname":
			c.SocketName = value
		case "replacement_policy":
			policy = value
		default:
			return nil, fmt.Errorf("config: %s:%d: unknown key %q", path, lineNo, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	p, err := storage.ParsePolicy(strings.ToUpper(policy))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.ReplacementPolicy = p

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// String renders the resolved configuration for the startup log line
// (SPEC_FULL.md §5 item 1, grounded on configparser.h's print_config).
func (c *Config) String() string {
	return fmt.Sprintf(
		"workers=%d max_files=%d max_bytes=%d compression=%t socket=%s policy=%s",
		c.NumWorkers, c.MaxNumFiles, c.MaxStorageSize, c.EnableCompression, c.SocketName, c.ReplacementPolicy,
	)
}
