// If you are AI: This file implements the pull command that records an RTMP stream to an FLV file.

package main

import (
	"io"
	"os"
	"time"

	"streamhub/internal/flvfile"
	"streamhub/internal/svc/rtmp"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type pullArgs struct {
	url      string
	file     string
	duration time.Duration
}

var pull pullArgs

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Play an RTMP URL and write it to an FLV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		var out io.Writer = os.Stdout
		if pull.file != "" && pull.file != "-" {
			f, err := os.Create(pull.file)
			if err != nil {
				return errors.Wrap(err, "create output file")
			}
			defer f.Close()
			out = f
		}

		ctx, stop := commandContext(pull.duration)
		defer stop()

		client, err := rtmp.NewClient(pull.url, rtmp.Options{})
		if err != nil {
			return err
		}
		if err := client.Open(ctx); err != nil {
			return err
		}
		defer client.Close()

		n, err := flvfile.Record(ctx, client, out)
		log.Info().Int("tags", n).Uint64("dropped", client.Dropped()).Str("url", pull.url).Msg("pull finished")
		return err
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
	pullCmd.Flags().StringVarP(&pull.url, "url", "u", "", "RTMP URL to play")
	_ = pullCmd.MarkFlagRequired("url")
	pullCmd.Flags().StringVarP(&pull.file, "file", "f", "-", "output FLV file, - for stdout")
	pullCmd.Flags().DurationVarP(&pull.duration, "duration", "d", 0, "stop after this long, 0 runs until the stream ends")
}
