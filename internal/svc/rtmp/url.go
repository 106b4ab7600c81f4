// If you are AI: This file parses rtmp:// URLs for the outbound drivers.

package rtmp

import (
	"net"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// DefaultPort is the RTMP port used when a URL carries none.
const DefaultPort = "1935"

// ErrInvalidURL is returned for URLs that are not rtmp://host[:port]/app/name.
var ErrInvalidURL = errors.New("invalid rtmp url")

// URL is a parsed rtmp://host[:port]/app/name target.
type URL struct {
	Host string // host:port
	App  string
	Name string // may carry a query string, passed through to publish/play
}

// ParseURL parses raw. The last path segment is the stream name; everything
// before it is the app.
func ParseURL(raw string) (URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URL{}, errors.Wrap(ErrInvalidURL, err.Error())
	}
	if u.Scheme != "rtmp" || u.Hostname() == "" {
		return URL{}, errors.Wrap(ErrInvalidURL, raw)
	}
	path := strings.Trim(u.Path, "/")
	i := strings.LastIndexByte(path, '/')
	if i <= 0 || i == len(path)-1 {
		return URL{}, errors.Wrapf(ErrInvalidURL, "%s: need /app/name", raw)
	}
	port := u.Port()
	if port == "" {
		port = DefaultPort
	}
	out := URL{
		Host: net.JoinHostPort(u.Hostname(), port),
		App:  path[:i],
		Name: path[i+1:],
	}
	if u.RawQuery != "" {
		out.Name += "?" + u.RawQuery
	}
	return out, nil
}

// TcURL returns the tcUrl sent in connect.
func (u URL) TcURL() string {
	return "rtmp://" + u.Host + "/" + u.App
}

// String returns the full URL.
func (u URL) String() string {
	return u.TcURL() + "/" + u.Name
}
