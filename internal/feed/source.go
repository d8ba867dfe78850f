package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// maxRecordSize bounds a single NDJSON line.
const maxRecordSize = 1 << 20

// Source loads the content posts of the feed.
type Source interface {
	Fetch(ctx context.Context) ([]ContentItem, error)
}

// HTTPSource fetches an NDJSON document over HTTP.
type HTTPSource struct {
	Client *http.Client
	URL    string
}

// Fetch performs a GET on the configured URL and decodes the body.
func (s *HTTPSource) Fetch(ctx context.Context) ([]ContentItem, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch feed: unexpected status %s", resp.Status)
	}
	return Decode(resp.Body)
}

// FileSource reads an NDJSON document from disk.
type FileSource struct {
	Path string
}

// Fetch reads and decodes the file.
func (s *FileSource) Fetch(ctx context.Context) ([]ContentItem, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads one ContentItem per line. Blank lines are skipped; a line
// that is not a JSON object fails the whole decode with its line number.
func Decode(r io.Reader) ([]ContentItem, error) {
	var items []ContentItem
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var item ContentItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("feed line %d: %w", line, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}
	return items, nil
}
