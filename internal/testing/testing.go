// package testing contains shared test doubles and helpers
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/services"
)

// FakePlaylistAPI is an in-memory [services.PlaylistAPI] with per-call error injection and call counting.
//
// Missing playlists answer with a 404 [services.HTTPError], like the real API.
type FakePlaylistAPI struct {
	mu        sync.Mutex
	playlists map[string][]string
	failures  map[string][]error
	calls     map[string]int
	writes    []Write
}

// Write records one mutating call.
type Write struct {
	Method     string
	PlaylistID string
	URIs       []string
}

// Method names used by [FakePlaylistAPI.FailNext] and [FakePlaylistAPI.CallCount].
const (
	MethodGetTracks     = "GetTracks"
	MethodAddTracks     = "AddTracks"
	MethodRemoveTracks  = "RemoveTracks"
	MethodReplaceTracks = "ReplaceTracks"
)

func NewFakePlaylistAPI() *FakePlaylistAPI {
	return &FakePlaylistAPI{
		playlists: map[string][]string{},
		failures:  map[string][]error{},
		calls:     map[string]int{},
	}
}

// Seed creates or overwrites a playlist.
func (f *FakePlaylistAPI) Seed(playlistID string, uris ...string) *FakePlaylistAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlists[playlistID] = append([]string{}, uris...)
	return f
}

// Tracks returns a copy of the playlist's URIs.
func (f *FakePlaylistAPI) Tracks(playlistID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.playlists[playlistID]...)
}

// FailNext queues errs to be returned, one per call, by method on playlistID. An empty playlistID matches any playlist.
func (f *FakePlaylistAPI) FailNext(method, playlistID string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + ":" + playlistID
	f.failures[key] = append(f.failures[key], errs...)
}

// CallCount returns how many times method was called.
func (f *FakePlaylistAPI) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// Writes returns the mutating calls in order.
func (f *FakePlaylistAPI) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.writes...)
}

// enter records the call and pops a queued failure. Callers hold f.mu.
func (f *FakePlaylistAPI) enter(method, playlistID string) error {
	f.calls[method]++
	for _, key := range []string{method + ":" + playlistID, method + ":"} {
		if queue := f.failures[key]; len(queue) > 0 {
			f.failures[key] = queue[1:]
			return queue[0]
		}
	}
	if _, ok := f.playlists[playlistID]; !ok {
		return &services.HTTPError{StatusCode: http.StatusNotFound, Message: "Not found."}
	}
	return nil
}

func (f *FakePlaylistAPI) GetTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(MethodGetTracks, playlistID); err != nil {
		return nil, err
	}
	uris := f.playlists[playlistID]
	tracks := make([]models.Track, len(uris))
	for i, uri := range uris {
		tracks[i] = models.Track{URI: uri, Name: uri}
	}
	return tracks, nil
}

func (f *FakePlaylistAPI) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(MethodAddTracks, playlistID); err != nil {
		return err
	}
	f.writes = append(f.writes, Write{MethodAddTracks, playlistID, append([]string(nil), uris...)})
	f.playlists[playlistID] = append(f.playlists[playlistID], uris...)
	return nil
}

func (f *FakePlaylistAPI) RemoveTracks(ctx context.Context, playlistID string, uris []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(MethodRemoveTracks, playlistID); err != nil {
		return err
	}
	f.writes = append(f.writes, Write{MethodRemoveTracks, playlistID, append([]string(nil), uris...)})
	remove := make(map[string]bool, len(uris))
	for _, uri := range uris {
		remove[uri] = true
	}
	kept := []string{}
	for _, uri := range f.playlists[playlistID] {
		if !remove[uri] {
			kept = append(kept, uri)
		}
	}
	f.playlists[playlistID] = kept
	return nil
}

func (f *FakePlaylistAPI) ReplaceTracks(ctx context.Context, playlistID string, uris []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(MethodReplaceTracks, playlistID); err != nil {
		return err
	}
	f.writes = append(f.writes, Write{MethodReplaceTracks, playlistID, append([]string(nil), uris...)})
	f.playlists[playlistID] = append([]string{}, uris...)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
