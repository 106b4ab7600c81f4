// If you are AI: This file implements the push command that publishes an FLV file to an RTMP server.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streamhub/internal/flvfile"
	"streamhub/internal/svc/rtmp"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type pushArgs struct {
	url      string
	file     string
	loop     bool
	duration time.Duration
}

var push pushArgs

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Publish an FLV file to an RTMP URL in real time",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(push.file)
		if err != nil {
			return errors.Wrap(err, "open source file")
		}
		defer f.Close()

		ctx, stop := commandContext(push.duration)
		defer stop()

		pub, err := rtmp.NewPublisher(push.url, rtmp.Options{})
		if err != nil {
			return err
		}
		if err := pub.Open(ctx); err != nil {
			return err
		}
		defer pub.Close()

		// Stop pacing when the server drops us.
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			<-pub.Done()
			cancel()
		}()

		n, err := flvfile.Push(ctx, pub, f, flvfile.PushOptions{Loop: push.loop})
		log.Info().Int("tags", n).Str("url", push.url).Msg("push finished")
		if err != nil {
			return err
		}
		return pub.Err()
	},
}

// commandContext ends on SIGINT/SIGTERM or after d when d > 0.
func commandContext(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		stop()
	}
}

func init() {
	rootCmd.AddCommand(pushCmd)
	pushCmd.Flags().StringVarP(&push.url, "url", "u", "", "RTMP URL to publish to")
	_ = pushCmd.MarkFlagRequired("url")
	pushCmd.Flags().StringVarP(&push.file, "file", "f", "", "FLV file to publish")
	_ = pushCmd.MarkFlagRequired("file")
	pushCmd.Flags().BoolVar(&push.loop, "loop", false, "restart the file at EOF")
	pushCmd.Flags().DurationVarP(&push.duration, "duration", "d", 0, "stop after this long, 0 runs to the end")
}
