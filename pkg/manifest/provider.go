package manifest

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Provider hands out manifest snapshots to the dispatch pipeline.
//
// Current may return nil when no manifest has been loaded yet; dispatch
// treats that as a no-op. The returned snapshot is immutable and remains
// valid even if a newer manifest is published mid-dispatch.
type Provider interface {
	// Current returns the latest manifest snapshot, or nil if none is loaded.
	Current() *Manifest

	// AssetExists reports whether the asset id exists in the current
	// snapshot's inventory.
	AssetExists(id string) bool
}

// Compile-time interface checks.
var (
	_ Provider = (*FileProvider)(nil)
	_ Provider = (*StaticProvider)(nil)
)

// StaticProvider wraps a fixed manifest. Useful in tests.
type StaticProvider struct {
	m atomic.Pointer[Manifest]
}

// NewStaticProvider returns a provider that always serves m. m may be nil.
func NewStaticProvider(m *Manifest) *StaticProvider {
	p := &StaticProvider{}
	if m != nil {
		p.m.Store(m)
	}
	return p
}

// Swap atomically publishes a new snapshot.
func (p *StaticProvider) Swap(m *Manifest) { p.m.Store(m) }

// Current returns the stored snapshot.
func (p *StaticProvider) Current() *Manifest { return p.m.Load() }

// AssetExists reports whether the stored snapshot lists id.
func (p *StaticProvider) AssetExists(id string) bool {
	m := p.m.Load()
	return m != nil && m.AssetExists(id)
}

// FileProvider serves snapshots of a JSON manifest file and republishes a
// new snapshot when the file changes. It uses polling (not fsnotify) to keep
// dependencies minimal, detecting changes by mtime plus content hash.
type FileProvider struct {
	path     string
	interval time.Duration

	current atomic.Pointer[Manifest]

	mu        sync.Mutex
	done      chan struct{}
	stopOnce  sync.Once
	lastMtime time.Time
	lastHash  [sha256.Size]byte
}

// FileProviderOption configures a [FileProvider].
type FileProviderOption func(*FileProvider)

// WithInterval sets the polling interval. The default is 30 seconds;
// manifests are refreshed externally and rarely.
func WithInterval(d time.Duration) FileProviderOption {
	return func(p *FileProvider) {
		if d > 0 {
			p.interval = d
		}
	}
}

// NewFileProvider loads the manifest at path and starts polling it for
// changes in a background goroutine. A missing file at startup is not an
// error: Current returns nil until the file appears, matching the "no
// manifest loaded yet" dispatch no-op.
func NewFileProvider(path string, opts ...FileProviderOption) (*FileProvider, error) {
	p := &FileProvider{
		path:     path,
		interval: 30 * time.Second,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.reload(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		slog.Warn("manifest file not found, waiting for it to appear", "path", path)
	}

	go p.poll()
	return p, nil
}

// Current returns the latest snapshot, or nil if no manifest is loaded.
func (p *FileProvider) Current() *Manifest { return p.current.Load() }

// AssetExists reports whether the current snapshot lists id.
func (p *FileProvider) AssetExists(id string) bool {
	m := p.current.Load()
	return m != nil && m.AssetExists(id)
}

// Close stops the polling goroutine. Idempotent.
func (p *FileProvider) Close() error {
	p.stopOnce.Do(func() { close(p.done) })
	return nil
}

func (p *FileProvider) poll() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if err := p.reload(); err != nil && !os.IsNotExist(err) {
				slog.Warn("manifest reload failed, keeping previous snapshot", "path", p.path, "err", err)
			}
		}
	}
}

// reload re-reads the manifest file if it changed and publishes the new
// snapshot atomically. The previous snapshot stays valid for readers that
// already hold it.
func (p *FileProvider) reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, err := os.Stat(p.path)
	if err != nil {
		return err
	}
	if info.ModTime().Equal(p.lastMtime) && p.current.Load() != nil {
		return nil
	}

	f, err := os.Open(p.path)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("manifest: read %q: %w", p.path, err)
	}

	hash := sha256.Sum256(data)
	if hash == p.lastHash && p.current.Load() != nil {
		p.lastMtime = info.ModTime()
		return nil
	}

	m, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return err
	}

	p.lastMtime = info.ModTime()
	p.lastHash = hash
	p.current.Store(m)

	slog.Info("manifest loaded",
		"path", p.path,
		"version", m.Version,
		"voices", len(m.Voices),
		"npcs", len(m.NpcsByAlias),
		"voicelines", len(m.Inventory),
	)
	for _, issue := range Lint(m) {
		slog.Warn("manifest lint", "kind", issue.Kind, "detail", issue.Detail)
	}
	return nil
}
