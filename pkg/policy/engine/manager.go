package engine

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Manager holds the current engine for a rule configuration file and swaps
// it atomically when the file changes. Evaluation callers grab the engine
// via Engine() per request; in-flight evaluations keep using the engine they
// started with.
type Manager struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	engine   *Engine
	recorder Recorder

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewManager loads the initial engine from path. A broken initial
// configuration is a construction error; later reload failures keep the
// previous engine in place.
func NewManager(path string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	eng, err := FromFile(path)
	if err != nil {
		return nil, err
	}
	return &Manager{
		path:   path,
		logger: logger.With("component", "policy.manager"),
		engine: eng,
		done:   make(chan struct{}),
	}, nil
}

// Engine returns the current engine.
func (m *Manager) Engine() *Engine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine
}

// SetRecorder attaches a telemetry recorder to the current engine and to
// every engine produced by later reloads.
func (m *Manager) SetRecorder(r Recorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorder = r
	m.engine.SetRecorder(r)
}

// Reload re-reads the configuration file and swaps the engine. On failure
// the current engine stays active.
func (m *Manager) Reload() error {
	eng, err := FromFile(m.path)
	if err != nil {
		return fmt.Errorf("reload policy configuration: %w", err)
	}

	m.mu.Lock()
	eng.SetRecorder(m.recorder)
	m.engine = eng
	m.mu.Unlock()

	m.logger.Info("policy configuration reloaded",
		"path", m.path,
		"rule_count", eng.RuleCount(),
	)
	return nil
}

// Watch starts watching the configuration file and reloads on change.
func (m *Manager) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start policy watcher: %w", err)
	}
	// Watch the directory: editors replace files on save, which drops the
	// watch when the file itself is registered.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch policy directory: %w", err)
	}
	m.watcher = watcher

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(m.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := m.Reload(); err != nil {
					m.logger.Error("policy reload failed, keeping previous configuration",
						"error", err,
						"path", m.path,
					)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.logger.Error("policy watcher error", "error", err)
			}
		}
	}()

	return nil
}

// Close stops watching and waits for the watch goroutine to exit.
func (m *Manager) Close() error {
	close(m.done)
	var err error
	if m.watcher != nil {
		err = m.watcher.Close()
	}
	m.wg.Wait()
	return err
}
