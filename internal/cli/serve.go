package cli

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/northbynortheast/signmaker/internal/api"
	"github.com/northbynortheast/signmaker/pkg/jobs"
	"github.com/northbynortheast/signmaker/pkg/pipeline"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		logFile string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if logFile == "" {
				logFile = cfg.Log.File
			}
			if logFile != "" {
				defer c.teeToFile(os.Stderr, logFile).Close()
			}
			c.installHooks()
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :5000)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "also write logs to this file, rotated by size")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the raster cache")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	eng, err := c.openEngine(ctx, noCache)
	if err != nil {
		return err
	}
	defer eng.Close()

	up, err := c.newUploader(ctx)
	if err != nil {
		return err
	}
	var uploader pipeline.Uploader
	publicURL := cfg.Storage.PublicURL
	if up != nil {
		uploader = up
		if publicURL == "" {
			publicURL = strings.TrimSuffix(up.PublicURL(""), "/")
		}
		c.Logger.Info("image storage ready", "bucket", up.Bucket())
	} else {
		c.Logger.Warn("R2 credentials not set, image upload disabled")
	}

	queue, err := jobs.New(jobs.Options{
		Workers:   cfg.Jobs.Workers,
		Retention: cfg.Jobs.Retention.Duration,
		Logger:    c.Logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := queue.Close(ctx); err != nil {
			c.Logger.Warn("jobs still running at shutdown", "err", err)
		}
	}()

	srv, err := api.New(api.Options{
		Store:     eng.store,
		Runner:    eng.runner,
		Jobs:      queue,
		Uploader:  uploader,
		PublicURL: publicURL,
		Logger:    c.Logger,
	})
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, addr)
}
