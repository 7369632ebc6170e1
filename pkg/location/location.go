// Package location classifies media locations given by users.
package location

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ErrInvalidLocation is returned for empty or unsupported locations.
var ErrInvalidLocation = errors.New("location: invalid media location")

// Kind identifies how a location is read.
type Kind int

const (
	// KindFile is a path on the local file system.
	KindFile Kind = iota
	// KindHTTP is an http or https URL read with range requests.
	KindHTTP
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// Location is a parsed media location.
type Location struct {
	Kind Kind
	Path string // Local path for KindFile
	URL  string // Absolute URL for KindHTTP
}

// String returns the path or URL.
func (l Location) String() string {
	if l.Kind == KindHTTP {
		return l.URL
	}
	return l.Path
}

// Parse classifies raw as a local path, a file:// URI or an http(s) URL.
func Parse(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("%w: empty", ErrInvalidLocation)
	}
	if !strings.Contains(raw, "://") {
		return Location{Kind: KindFile, Path: filepath.Clean(raw)}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %w", ErrInvalidLocation, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		if u.Host != "" && u.Host != "localhost" {
			return Location{}, fmt.Errorf("%w: remote file host %q", ErrInvalidLocation, u.Host)
		}
		if u.Path == "" {
			return Location{}, fmt.Errorf("%w: file URI without path", ErrInvalidLocation)
		}
		return Location{Kind: KindFile, Path: filepath.FromSlash(u.Path)}, nil
	case "http", "https":
		if u.Host == "" {
			return Location{}, fmt.Errorf("%w: URL without host", ErrInvalidLocation)
		}
		return Location{Kind: KindHTTP, URL: u.String()}, nil
	default:
		return Location{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocation, u.Scheme)
	}
}
