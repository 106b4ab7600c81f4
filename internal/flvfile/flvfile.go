// If you are AI: This file moves FLV files to and from RTMP streams for the push and pull commands.
// Push paces tags by their timestamps; Record writes received messages as an FLV file.

package flvfile

import (
	"context"
	"io"
	"time"

	"streamhub/internal/core/bus"
	"streamhub/internal/core/protocol/flv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// loopGap separates the last tag of one pass from the first tag of the next.
const loopGap = 40

// TagWriter accepts FLV tags, satisfied by *rtmp.Publisher.
type TagWriter interface {
	WriteTag(tag *flv.Tag) error
}

// MessageSource yields received messages, satisfied by *rtmp.Client.
type MessageSource interface {
	Next(ctx context.Context) (*bus.MediaMessage, error)
}

// PushOptions tune Push.
type PushOptions struct {
	Loop bool // rewind at EOF and keep timestamps increasing
	// Sleep waits d or until ctx ends. Tests replace it to run unpaced.
	Sleep func(ctx context.Context, d time.Duration) error
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Push sends every tag of src to w in real time. It returns the number of
// tags written. A cancelled ctx ends Push without error.
func Push(ctx context.Context, w TagWriter, src io.ReadSeeker, opts PushOptions) (int, error) {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	start := time.Now()
	var (
		written int
		offset  uint32 // added to file timestamps on later passes
		last    uint32
	)
	for pass := 0; ; pass++ {
		if pass > 0 {
			if _, err := src.Seek(0, io.SeekStart); err != nil {
				return written, errors.Wrap(err, "rewind")
			}
			offset = last + loopGap
		}
		r := flv.NewReader(src)
		if _, err := r.ReadHeader(); err != nil {
			return written, errors.Wrap(err, "read flv header")
		}
		for {
			tag, err := r.ReadTag()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return written, errors.Wrap(err, "read flv tag")
			}
			// Sequence headers and metadata are only needed on the first pass.
			if pass > 0 && (tag.Type == flv.TagTypeScript || flv.IsSequenceHeader(tag.Type, tag.Data)) {
				continue
			}
			tag.Timestamp += offset
			due := time.Duration(tag.Timestamp) * time.Millisecond
			if err := sleep(ctx, due-time.Since(start)); err != nil {
				return written, nil
			}
			if err := w.WriteTag(tag); err != nil {
				return written, errors.Wrap(err, "write tag")
			}
			last = tag.Timestamp
			written++
		}
		if !opts.Loop {
			return written, nil
		}
		if written == 0 {
			return 0, errors.New("flv file has no tags")
		}
		log.Debug().Int("tags", written).Msg("rewinding flv source")
	}
}

// Record writes messages from src to dst as FLV until the remote publisher
// leaves, src closes, or ctx ends. It returns the number of tags written.
func Record(ctx context.Context, src MessageSource, dst io.Writer) (int, error) {
	w := flv.NewWriter(dst)
	if err := w.WriteHeader(true, true); err != nil {
		return 0, errors.Wrap(err, "write flv header")
	}
	written := 0
	for {
		msg, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrSubscriberClosed) || ctx.Err() != nil {
				return written, nil
			}
			return written, err
		}
		if msg.Type == bus.MessageTypeEndOfStream {
			return written, nil
		}
		tagType, ok := flv.TagTypeFor(byte(msg.Type))
		if !ok {
			continue
		}
		if err := w.WriteTag(flv.NewTag(tagType, msg.Timestamp, msg.Payload)); err != nil {
			return written, errors.Wrap(err, "write flv tag")
		}
		written++
	}
}
