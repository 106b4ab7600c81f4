// If you are AI: This file defines StreamKey for uniquely identifying streams.
// StreamKey is used as a map key in the registry; its String form is the stream path.

package bus

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidStreamPath is returned for paths that are not "/app/name".
var ErrInvalidStreamPath = errors.New("invalid stream path")

// StreamKey uniquely identifies a stream by application and stream name.
type StreamKey struct {
	App  string // Application name (e.g., "live")
	Name string // Stream name (e.g., "mystream")
}

// NewStreamKey creates a new StreamKey from app and name.
func NewStreamKey(app, name string) StreamKey {
	return StreamKey{
		App:  app,
		Name: name,
	}
}

// String returns the stream path, "/app/name".
func (k StreamKey) String() string {
	return "/" + k.App + "/" + k.Name
}

// ParseStreamPath parses "/app/name". The name may itself contain slashes.
func ParseStreamPath(path string) (StreamKey, error) {
	app, name, ok := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if !ok || app == "" || name == "" {
		return StreamKey{}, errors.Wrapf(ErrInvalidStreamPath, "%q", path)
	}
	return NewStreamKey(app, name), nil
}
