package graphml

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/hanpama/graphscript/internal/graph"
)

// Open returns a reader for location: an http(s) URL, a file:// URL or a
// plain filesystem path.
func Open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, fmt.Errorf("graphml: open %s: %w", location, err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("graphml: open %s: %w", location, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("graphml: open %s: unexpected status %s", location, resp.Status)
		}
		return resp.Body, nil
	case strings.HasPrefix(location, "file:"):
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("graphml: open %s: %w", location, err)
		}
		p := u.Path
		if p == "" {
			p = u.Opaque
		}
		return os.Open(p)
	default:
		return os.Open(location)
	}
}

// Load opens location and reads it into w.
func Load(ctx context.Context, w graph.Writer, location string) (Stats, error) {
	rc, err := Open(ctx, location)
	if err != nil {
		return Stats{}, err
	}
	defer rc.Close()
	return Read(w, rc)
}
