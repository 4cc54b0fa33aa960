// Package battlelog records the action-by-action history of battle sessions
// to JSONL files with buffered, clock-driven flushing. The files double as
// replay inputs for determinism verification.
package battlelog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/arenaclash/arenaclash/internal/battle"
	"github.com/arenaclash/arenaclash/internal/fileutil"
)

// EntryKind discriminates log entries.
type EntryKind string

const (
	KindInitialized EntryKind = "initialized"
	KindSubmission  EntryKind = "submission"
	KindRound       EntryKind = "round"
	KindCompleted   EntryKind = "completed"
)

// Entry is one line of a battle log.
type Entry struct {
	Kind      EntryKind           `json:"kind"`
	Timestamp time.Time           `json:"timestamp"`
	Seed      int64               `json:"seed,omitempty"`
	Seeds     [2]*battle.Seed     `json:"seeds,omitempty"`
	MaxRounds uint32              `json:"max_rounds,omitempty"`
	FeeBPS    uint16              `json:"fee_bps,omitempty"`
	Caller    string              `json:"caller,omitempty"`
	Round     uint32              `json:"round,omitempty"`
	Slot      uint8               `json:"slot,omitempty"`
	Stance    string              `json:"stance,omitempty"`
	Special   bool                `json:"special,omitempty"`
	Result    *battle.RoundResult `json:"result,omitempty"`
}

// Recorder buffers entries for one session and flushes them to a single
// file. Flushes rewrite the whole log atomically so readers never observe a
// torn file.
type Recorder struct {
	sessionID string
	path      string
	clock     quartz.Clock

	mu       sync.Mutex
	entries  []Entry
	unsynced int
	notify   func()
}

func newRecorder(sessionID, path string, clock quartz.Clock) *Recorder {
	return &Recorder{sessionID: sessionID, path: path, clock: clock}
}

// Record appends one entry to the buffer.
func (r *Recorder) Record(e Entry) {
	r.mu.Lock()
	e.Timestamp = r.clock.Now()
	r.entries = append(r.entries, e)
	r.unsynced++
	notify := r.notify
	threshold := r.unsynced >= flushThreshold
	r.mu.Unlock()

	if threshold && notify != nil {
		notify()
	}
}

// Flush writes the full log atomically. A flush with nothing new is a no-op.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	if r.unsynced == 0 {
		r.mu.Unlock()
		return nil
	}
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	r.unsynced = 0
	r.mu.Unlock()

	var buf []byte
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("battlelog: marshal entry: %w", err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	return fileutil.WriteFileAtomic(r.path, buf, 0o644)
}

const flushThreshold = 64

// Manager owns one recorder per session and drives periodic flushing from
// an injected clock.
type Manager struct {
	baseDir  string
	interval time.Duration
	clock    quartz.Clock
	logger   *log.Logger

	mu        sync.RWMutex
	recorders map[string]*Recorder
	flushReq  chan struct{}
	stop      chan struct{}
	wg        sync.WaitGroup
}

// NewManager creates and starts a battlelog manager rooted at baseDir.
func NewManager(baseDir string, interval time.Duration, clock quartz.Clock, logger *log.Logger) (*Manager, error) {
	if baseDir == "" {
		baseDir = "battles"
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("battlelog: create dir: %w", err)
	}

	m := &Manager{
		baseDir:   baseDir,
		interval:  interval,
		clock:     clock,
		logger:    logger.WithPrefix("battlelog"),
		recorders: make(map[string]*Recorder),
		flushReq:  make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
	m.wg.Add(1)
	go m.run()
	return m, nil
}

// Recorder returns (creating if needed) the recorder for a session.
func (m *Manager) Recorder(sessionID string) *Recorder {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.recorders[sessionID]; ok {
		return r
	}
	path := filepath.Join(m.baseDir, fmt.Sprintf("battle-%s.jsonl", sessionID))
	r := newRecorder(sessionID, path, m.clock)
	r.notify = m.requestFlush
	m.recorders[sessionID] = r
	return r
}

// Remove flushes and unregisters a session's recorder.
func (m *Manager) Remove(sessionID string) error {
	m.mu.Lock()
	r, ok := m.recorders[sessionID]
	if ok {
		delete(m.recorders, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return r.Flush()
}

// Shutdown stops the flush loop and drains every recorder.
func (m *Manager) Shutdown() {
	close(m.stop)
	m.wg.Wait()
	m.flushAll()
}

func (m *Manager) requestFlush() {
	select {
	case m.flushReq <- struct{}{}:
	default:
	}
}

func (m *Manager) run() {
	defer m.wg.Done()
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.flushAll()
		case <-m.flushReq:
			m.flushAll()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) flushAll() {
	m.mu.RLock()
	snapshot := make([]*Recorder, 0, len(m.recorders))
	for _, r := range m.recorders {
		snapshot = append(snapshot, r)
	}
	m.mu.RUnlock()

	for _, r := range snapshot {
		if err := r.Flush(); err != nil {
			m.logger.Error("flush failed", "session", r.sessionID, "error", err)
		}
	}
}

// ReadLog loads a battle log file back into entries, oldest first.
func ReadLog(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("battlelog: read: %w", err)
	}
	var entries []Entry
	start := 0
	for i, b := range data {
		if b != '\n' {
			continue
		}
		if i > start {
			var e Entry
			if err := json.Unmarshal(data[start:i], &e); err != nil {
				return nil, fmt.Errorf("battlelog: parse line: %w", err)
			}
			entries = append(entries, e)
		}
		start = i + 1
	}
	return entries, nil
}
