// Package worker runs metadata extraction off the serving path: tasks go
// onto a bounded queue, a fixed pool of goroutines extracts and persists,
// and listeners receive results as they complete.
package worker

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comfygallery/comfymeta/extract"
	"github.com/comfygallery/comfymeta/metacache"
	"github.com/comfygallery/comfymeta/pngmeta"
	"github.com/comfygallery/comfymeta/searchindex"
)

// Action selects what a task does.
type Action string

const (
	ActionIndex  Action = "index"
	ActionDelete Action = "delete"
)

// Task is one unit of background work.
type Task struct {
	ID           string
	Action       Action
	FullPath     string
	RelativePath string
	Force        bool
}

// Result reports the outcome of one task.
type Result struct {
	TaskID       string
	Action       Action
	FullPath     string
	RelativePath string
	Success      bool
	Fields       extract.Fields
	Err          error
}

// Listener receives results. Called from the result goroutine; must not
// block for long.
type Listener func(Result)

const defaultQueueSize = 1024

// Manager coordinates the worker pool. Duplicate pending tasks for the
// same action and path are dropped unless forced, matching how bursts of
// filesystem events would otherwise fan out into redundant extractions.
type Manager struct {
	extractor *extract.Extractor
	store     *metacache.Store
	index     *searchindex.Index
	log       *slog.Logger

	tasks   chan Task
	results chan Result

	mu        sync.Mutex
	pending   map[string]struct{}
	listeners []Listener
	started   bool
	closed    bool

	wg       sync.WaitGroup
	resultWG sync.WaitGroup
	stop     chan struct{}

	numWorkers int
}

// NewManager wires a pool over the given extractor, persistent store and
// search index. Store and index may be nil when only results are wanted.
func NewManager(extractor *extract.Extractor, store *metacache.Store, index *searchindex.Index, numWorkers int) *Manager {
	if numWorkers < 1 {
		numWorkers = 2
	}
	return &Manager{
		extractor:  extractor,
		store:      store,
		index:      index,
		log:        slog.Default(),
		tasks:      make(chan Task, defaultQueueSize),
		results:    make(chan Result, defaultQueueSize),
		pending:    make(map[string]struct{}),
		stop:       make(chan struct{}),
		numWorkers: numWorkers,
	}
}

// RegisterListener adds a result callback. Register before Start.
func (m *Manager) RegisterListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Start launches the worker pool. Idempotent; a shut-down manager stays
// down.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	for i := 0; i < m.numWorkers; i++ {
		m.wg.Add(1)
		go m.workerLoop()
	}
	m.resultWG.Add(1)
	go m.consumeResults()
	m.log.Info("metadata workers started", "workers", m.numWorkers)
}

// Shutdown stops accepting work, drains in-flight tasks and waits for the
// pool to exit. The manager is one-shot: once shut down it rejects all
// further queueing instead of restarting over its closed channels.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if !m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.closed = true
	m.mu.Unlock()

	close(m.stop)
	m.wg.Wait()
	close(m.results)
	m.resultWG.Wait()
}

// QueueIndex schedules extraction for a file.
func (m *Manager) QueueIndex(fullPath, relativePath string, force bool) bool {
	return m.enqueue(Task{
		ID:           uuid.New().String(),
		Action:       ActionIndex,
		FullPath:     fullPath,
		RelativePath: relativePath,
		Force:        force,
	})
}

// QueueDelete schedules removal of a file's cached metadata.
func (m *Manager) QueueDelete(fullPath, relativePath string) bool {
	return m.enqueue(Task{
		ID:           uuid.New().String(),
		Action:       ActionDelete,
		FullPath:     fullPath,
		RelativePath: relativePath,
	})
}

func (m *Manager) enqueue(t Task) bool {
	key := string(t.Action) + ":" + t.FullPath

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	if _, dup := m.pending[key]; dup && !t.Force {
		m.mu.Unlock()
		return false
	}
	m.pending[key] = struct{}{}
	started := m.started
	m.mu.Unlock()

	if !started {
		m.Start()
	}

	select {
	case m.tasks <- t:
		return true
	default:
		m.log.Warn("task queue full, dropping task", "path", t.FullPath)
		m.mu.Lock()
		delete(m.pending, key)
		m.mu.Unlock()
		return false
	}
}

func (m *Manager) workerLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stop:
			// drain whatever is already queued, then exit
			for {
				select {
				case t := <-m.tasks:
					m.results <- m.run(t)
				default:
					return
				}
			}
		case t := <-m.tasks:
			m.results <- m.run(t)
		}
	}
}

func (m *Manager) run(t Task) Result {
	started := time.Now()
	res := Result{
		TaskID:       t.ID,
		Action:       t.Action,
		FullPath:     t.FullPath,
		RelativePath: t.RelativePath,
	}

	switch t.Action {
	case ActionDelete:
		m.forget(t)
		res.Success = true

	case ActionIndex:
		info, err := os.Stat(t.FullPath)
		if err != nil {
			m.forget(t)
			res.Err = err
			break
		}
		mtime := info.ModTime().UnixNano()
		size := info.Size()

		var fields extract.Fields
		if !t.Force && m.store != nil {
			if cached, ok := m.store.Get(t.FullPath, mtime, size); ok {
				fields = cached
			}
		}
		if fields == nil {
			meta, err := pngmeta.ReadFile(t.FullPath)
			if err != nil {
				res.Err = err
				break
			}
			fields = m.extractor.FromRaw(meta.Prompt, meta.Workflow)
			if m.store != nil {
				raw := append(append([]byte{}, meta.Prompt...), meta.Workflow...)
				if err := m.store.Put(t.FullPath, mtime, size, raw, fields); err != nil {
					m.log.Warn("could not persist extracted metadata", "path", t.FullPath, "error", err)
				}
			}
		}
		if m.index != nil {
			m.index.IndexFile(t.RelativePath, fields, mtime, size)
		}
		res.Success = true
		res.Fields = fields
	}

	m.log.Debug("processed metadata task",
		"action", t.Action, "path", t.FullPath, "elapsed", time.Since(started))
	return res
}

func (m *Manager) forget(t Task) {
	if m.store != nil {
		if err := m.store.Remove(t.FullPath); err != nil {
			m.log.Warn("could not remove stored metadata", "path", t.FullPath, "error", err)
		}
	}
	if m.index != nil {
		m.index.Remove(t.RelativePath)
	}
}

func (m *Manager) consumeResults() {
	defer m.resultWG.Done()
	for res := range m.results {
		key := string(res.Action) + ":" + res.FullPath

		m.mu.Lock()
		delete(m.pending, key)
		listeners := make([]Listener, len(m.listeners))
		copy(listeners, m.listeners)
		m.mu.Unlock()

		for _, l := range listeners {
			l(res)
		}
	}
}
