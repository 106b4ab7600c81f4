// If you are AI: This is the main entrypoint for the streamhub binary.
// Subcommands live in the sibling files; main only recovers panics and sets the exit code.

package main

import (
	"os"
	"runtime"

	"github.com/rs/zerolog/log"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Error().Str("stack", string(buf)).Any("error", err).Msg("panic recover")
			os.Exit(2)
		}
	}()
	os.Exit(execute())
}
