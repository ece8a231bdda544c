package commands

import (
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuarubin/blobstore/internal/acceptor"
	"github.com/joshuarubin/blobstore/internal/config"
	"github.com/joshuarubin/blobstore/internal/connreg"
	"github.com/joshuarubin/blobstore/internal/handler"
	"github.com/joshuarubin/blobstore/internal/rwlock"
	"github.com/joshuarubin/blobstore/internal/signalshim"
	"github.com/joshuarubin/blobstore/internal/storage"
)

// Serve builds the blobstored "serve" subcommand: start listening on the
// configured unix socket and run until a shutdown signal is received (spec
// §4.H/§4.I).
func Serve() *cobra.Command {
	var cfg config.Config
	var configFile string

	cmd := cobra.Command{
		Use:   "serve",
		Short: "Start the blobstore server and listen for connections",
	}

	validate := cfg.Flags(&cmd)
	cmd.Flags().StringVar(&configFile, "config", "", "path to a key = value configuration file (overrides the flags above)")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if configFile == "" {
			if err := validate(); err != nil {
				return err
			}
		} else {
			loaded, err := config.Load(configFile)
			if err != nil {
				return err
			}
			cfg = *loaded
		}
		return runServe(&cfg)
	}

	return &cmd
}

func runServe(cfg *config.Config) error {
	logger := signalshim.NewLogger(slog.Default())
	logger.Info("starting blobstore", "config", cfg.String())

	if err := os.RemoveAll(cfg.SocketName); err != nil {
		return fmt.Errorf("commands: removing stale socket: %w", err)
	}

	ln, err := net.Listen("unix", cfg.SocketName)
	if err != nil {
		return fmt.Errorf("commands: listen on %s: %w", cfg.SocketName, err)
	}

	lock := rwlock.New()
	st := storage.New(cfg.ReplacementPolicy, int64(cfg.MaxNumFiles), cfg.MaxStorageSize)
	reg := connreg.New()
	srv := handler.New(cfg, lock, st, reg, logger)

	a := acceptor.New(cfg, srv, reg, ln, logger)
	a.Run(signalshim.Watch())

	stats := st.StatsSnapshot()
	logger.Info("shutdown complete",
		"peak_bytes", stats.PeakBytes,
		"peak_blobs", stats.PeakBlobs,
		"eviction_count", stats.EvictionCount,
	)
	for _, b := range st.Snapshot() {
		logger.Info("remaining blob", "name", b.Name, "size", b.Size())
	}
	logger.Close()

	return nil
}
