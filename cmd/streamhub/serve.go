// If you are AI: This file implements the serve command that runs the full server.

package main

import (
	"context"

	"streamhub/internal/config"
	"streamhub/internal/server"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the RTMP, HTTP-FLV, WS-FLV and API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		if configPath != "" {
			var err error
			if cfg, err = config.Load(configPath); err != nil {
				return err
			}
		}
		if err := cfg.Validate(); err != nil {
			return errors.Wrap(err, "invalid config")
		}

		srv := server.New(cfg)
		if err := srv.Listen(); err != nil {
			return err
		}
		shutdown := server.NewShutdownHandler(context.Background(), srv)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(shutdown.Context()) }()

		if err := shutdown.Wait(); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		if err := <-errCh; err != nil {
			return err
		}
		log.Info().Msg("server shut down cleanly")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config (defaults apply when empty)")
}
