package feed

import (
	"context"
	"crypto/sha256"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// delivered records a file version already forwarded. The content hash
// catches rewrites that land within the mod-time granularity of the
// filesystem.
type delivered struct {
	modTime time.Time
	sum     [sha256.Size]byte
}

// DirSource watches a drop directory and yields the contents of each
// statistics file placed into it, one per monitoring round.
type DirSource struct {
	dir     string
	watcher *fsnotify.Watcher
	texts   chan string

	mu   sync.Mutex
	seen map[string]delivered
}

// NewDirSource creates a source watching the given directory. The
// directory is created if it does not exist.
func NewDirSource(dir string) (*DirSource, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	return &DirSource{
		dir:     dir,
		watcher: watcher,
		texts:   make(chan string, 16),
		seen:    make(map[string]delivered),
	}, nil
}

// Start begins watching. Must be called before Next.
func (d *DirSource) Start(ctx context.Context) {
	go d.watchLoop(ctx)
}

// Next blocks until a new statistics text arrives. Returns io.EOF when
// the context is cancelled.
func (d *DirSource) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", io.EOF
	case text, ok := <-d.texts:
		if !ok {
			return "", io.EOF
		}
		return text, nil
	}
}

func (d *DirSource) watchLoop(ctx context.Context) {
	defer func() {
		d.watcher.Close()
		close(d.texts)
	}()

	// Periodic rescan as a fallback if fsnotify misses events
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	log.Printf("Watching %s for new statistics files", d.dir)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				d.deliver(ctx, event.Name)
			}

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)

		case <-ticker.C:
			d.rescan(ctx)
		}
	}
}

func (d *DirSource) rescan(ctx context.Context) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		log.Printf("Failed to scan %s: %v", d.dir, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		d.deliver(ctx, filepath.Join(d.dir, entry.Name()))
	}
}

// deliver reads a dropped file and forwards its contents once per
// modification.
func (d *DirSource) deliver(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Failed to read %s: %v", path, err)
		return
	}
	if len(data) == 0 {
		// Created but not yet written; the write event will follow
		return
	}

	current := delivered{modTime: info.ModTime(), sum: sha256.Sum256(data)}
	d.mu.Lock()
	if prev, ok := d.seen[path]; ok && !current.modTime.After(prev.modTime) && current.sum == prev.sum {
		d.mu.Unlock()
		return
	}
	d.seen[path] = current
	d.mu.Unlock()

	log.Printf("New statistics file: %s", path)
	select {
	case d.texts <- string(data):
	case <-ctx.Done():
	}
}
