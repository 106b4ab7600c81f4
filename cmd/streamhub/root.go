// If you are AI: This file defines the root cobra command and logger setup.

package main

import (
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"streamhub/internal/svc/api"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/spf13/cobra"
)

var (
	logLevel string
	logJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "streamhub",
	Short: "RTMP ingest and playback server with HTTP-FLV, WS-FLV and relays.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger(logLevel, logJSON)
	},
	Version:          api.Version,
	TraverseChildren: true,
	SilenceUsage:     true,
}

func execute() int {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "INFO", "log level: DEBUG, INFO, WARN, ERROR")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON (default colorized console)")

	if err := rootCmd.Execute(); err != nil {
		log.Error().Stack().Err(err).Msg("command failed")
		return 1
	}
	return 0
}

func initLogger(level string, asJSON bool) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.999Z0700"

	var writer io.Writer = os.Stderr
	if !asJSON {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
			NoColor:    runtime.GOOS == "windows",
		}
	}
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()

	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		log.Warn().Str("log_level", level).Msg("unknown log level, using INFO")
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
