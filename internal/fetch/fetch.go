package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxBytes caps how much text a single fetch will read.
const DefaultMaxBytes int64 = 8 << 20

// Fetcher retrieves the raw text stored at location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (text string, found bool, err error)
}

// Func adapts a function to Fetcher.
type Func func(ctx context.Context, location string) (string, bool, error)

func (f Func) Fetch(ctx context.Context, location string) (string, bool, error) {
	return f(ctx, location)
}

// cleanLocation rejects locations that would leave the root.
func cleanLocation(location string) (string, bool) {
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return "", false
	}
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == ".." {
			return "", false
		}
	}
	return strings.TrimPrefix(path.Clean("/"+trimmed), "/"), true
}

// Dir reads locations from files below Root.
type Dir struct {
	Root     string
	MaxBytes int64
}

// NewDir returns a Dir fetcher rooted at root.
func NewDir(root string) *Dir {
	return &Dir{Root: root, MaxBytes: DefaultMaxBytes}
}

func (d *Dir) Fetch(ctx context.Context, location string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	rel, ok := cleanLocation(location)
	if !ok {
		return "", false, nil
	}
	p := filepath.Join(d.Root, filepath.FromSlash(rel))
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("fetch: stat %s: %w", p, err)
	}
	if info.IsDir() {
		return "", false, nil
	}
	f, err := os.Open(p)
	if err != nil {
		return "", false, fmt.Errorf("fetch: open %s: %w", p, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit(d.MaxBytes)))
	if err != nil {
		return "", false, fmt.Errorf("fetch: read %s: %w", p, err)
	}
	return string(data), true, nil
}

// HTTP reads locations relative to BaseURL.
type HTTP struct {
	BaseURL  string
	Client   *http.Client
	MaxBytes int64
}

// NewHTTP returns an HTTP fetcher with a bounded default client.
func NewHTTP(baseURL string) *HTTP {
	return &HTTP{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Client:   &http.Client{Timeout: 30 * time.Second},
		MaxBytes: DefaultMaxBytes,
	}
}

func (h *HTTP) Fetch(ctx context.Context, location string) (string, bool, error) {
	rel, ok := cleanLocation(location)
	if !ok {
		return "", false, nil
	}
	target, err := url.JoinPath(h.BaseURL, rel)
	if err != nil {
		return "", false, fmt.Errorf("fetch: build url for %s: %w", rel, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", false, fmt.Errorf("fetch: request %s: %w", target, err)
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("fetch: get %s: %w", target, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", false, fmt.Errorf("fetch: get %s: unexpected status %s", target, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit(h.MaxBytes)))
	if err != nil {
		return "", false, fmt.Errorf("fetch: read %s: %w", target, err)
	}
	return string(data), true, nil
}

// Memory serves locations from an in-process map and counts every fetch.
type Memory struct {
	mu     sync.Mutex
	files  map[string]string
	counts map[string]int
}

// NewMemory returns a Memory fetcher holding a copy of files.
func NewMemory(files map[string]string) *Memory {
	m := &Memory{files: map[string]string{}, counts: map[string]int{}}
	for loc, text := range files {
		m.files[loc] = text
	}
	return m
}

// Set stores text at location.
func (m *Memory) Set(location, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[location] = text
}

// Count reports how many times location has been fetched.
func (m *Memory) Count(location string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[location]
}

// Total reports how many fetches happened across all locations.
func (m *Memory) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.counts {
		total += n
	}
	return total
}

func (m *Memory) Fetch(ctx context.Context, location string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[location]++
	text, ok := m.files[location]
	return text, ok, nil
}

type fetchResult struct {
	text  string
	found bool
}

type deduped struct {
	next  Fetcher
	group singleflight.Group
}

// Dedupe shares one underlying fetch among concurrent callers asking for the
// same location. Results are not cached once the fetch returns.
func Dedupe(next Fetcher) Fetcher {
	if next == nil {
		return nil
	}
	if _, ok := next.(*deduped); ok {
		return next
	}
	return &deduped{next: next}
}

func (d *deduped) Fetch(ctx context.Context, location string) (string, bool, error) {
	v, err, _ := d.group.Do(location, func() (any, error) {
		text, found, err := d.next.Fetch(ctx, location)
		return fetchResult{text: text, found: found}, err
	})
	if err != nil {
		return "", false, err
	}
	res := v.(fetchResult)
	return res.text, res.found, nil
}

func limit(n int64) int64 {
	if n <= 0 {
		return DefaultMaxBytes
	}
	return n
}
