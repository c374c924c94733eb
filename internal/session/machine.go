package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"interview-rehearsal-service/internal/domain"
)

// State identifies where a session is in its lifecycle.
type State string

const (
	StateInitializing    State = "initializing"
	StateAwaitingCapture State = "awaiting_capture"
	StateActive          State = "active"
	StateWarning         State = "warning"
	StateCompleted       State = "completed"
	StateTerminated      State = "terminated"
)

const (
	// FreshnessWindow is the maximum age of a persisted progress snapshot
	// still eligible for restoration.
	FreshnessWindow = time.Hour
	// WarningTicks is the countdown length before a session in Warning is
	// force-finalized.
	WarningTicks = 5
)

// ProgressStore persists the in-flight answer snapshot keyed by
// (userID, topicID). The snapshot is overwritten on every mutation and
// cleared on completion.
type ProgressStore interface {
	GetProgress(ctx context.Context, userID, topicID string) (domain.Progress, bool, error)
	PutProgress(ctx context.Context, userID, topicID string, p domain.Progress) error
	ClearProgress(ctx context.Context, userID, topicID string) error
}

// CaptureHandle is an acquired audio/video capture resource. Lost is closed
// when the video track ends; Release must be safe to call more than once.
type CaptureHandle interface {
	Lost() <-chan struct{}
	Release()
}

// Capture acquires the proctoring capture device. Acquisition failure is not
// retried; it routes the session straight to Warning.
type Capture interface {
	Acquire(ctx context.Context) (CaptureHandle, error)
}

// Outcome is the completion hand-off to the interview store collaborator.
// Forced marks sessions ended by the proctoring rule rather than the user.
type Outcome struct {
	UserID           string
	TopicID          string
	Questions        []string
	Answers          []string
	ReferenceAnswers []string
	Forced           bool
}

// Finalizer receives the outcome exactly once per session.
type Finalizer func(ctx context.Context, out Outcome) error

// Snapshot is the externally visible view of the machine, pushed to
// subscribers after every transition.
type Snapshot struct {
	SessionID     string `json:"sessionId"`
	State         State  `json:"state"`
	CurrentIndex  int    `json:"currentIndex"`
	QuestionCount int    `json:"questionCount"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	Countdown     int    `json:"countdown"`
}

// Machine drives the question-by-question interaction for one session.
//
// All events (answer edits, navigation, capture loss, countdown ticks) are
// serialized under one mutex, so they behave as a single logical timeline.
// The capture handle is exclusively owned by the machine and released on
// every exit path.
type Machine struct {
	id      string
	userID  string
	topicID string

	progress ProgressStore
	capture  Capture
	finalize Finalizer

	now       func() time.Time
	tickEvery time.Duration

	mu          sync.Mutex
	state       State
	items       []domain.QuestionItem
	answers     []string
	current     int
	countdown   int
	handle      CaptureHandle
	finalized   bool
	stopTicker  chan struct{}
	done        chan struct{}
	subscribers map[chan Snapshot]struct{}
}

// Option tweaks machine construction, mostly for deterministic tests.
type Option func(*Machine)

// WithClock injects the time source used for snapshot freshness checks.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithTickInterval overrides the one-second warning tick. Zero disables the
// internal ticker so tests can drive Tick explicitly.
func WithTickInterval(d time.Duration) Option {
	return func(m *Machine) { m.tickEvery = d }
}

// NewMachine builds a machine for an already-sampled selection. Call Start
// to load persisted progress and acquire capture.
func NewMachine(userID, topicID string, sel domain.Selection, progress ProgressStore, capture Capture, finalize Finalizer, opts ...Option) *Machine {
	if userID == "" {
		userID = domain.AnonymousUserID
	}
	m := &Machine{
		id:          uuid.NewString(),
		userID:      userID,
		topicID:     topicID,
		progress:    progress,
		capture:     capture,
		finalize:    finalize,
		now:         time.Now,
		tickEvery:   time.Second,
		state:       StateInitializing,
		items:       sel.Items,
		answers:     make([]string, len(sel.Items)),
		done:        make(chan struct{}),
		subscribers: make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID returns the session identifier.
func (m *Machine) ID() string { return m.id }

// Start restores a fresh matching progress snapshot if one exists, then
// requests capture. Capture failure transitions to Warning instead of
// returning an error.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateInitializing {
		m.mu.Unlock()
		return fmt.Errorf("start: session %s already started", m.id)
	}

	if prev, ok, err := m.progress.GetProgress(ctx, m.userID, m.topicID); err != nil {
		log.Printf("session %s: progress read failed, starting fresh: %v", m.id, err)
	} else if ok && m.acceptable(prev) {
		m.answers = append([]string(nil), prev.Answers...)
		m.current = prev.CurrentIndex
	}

	if err := m.persistLocked(ctx); err != nil {
		log.Printf("session %s: initial progress write failed: %v", m.id, err)
	}

	m.state = StateAwaitingCapture
	m.mu.Unlock()

	handle, err := m.capture.Acquire(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAwaitingCapture {
		// A loss event or teardown won the race while acquiring.
		if handle != nil {
			handle.Release()
		}
		return nil
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Teardown cancelled the acquire; keep the snapshot for reload
			// and never start a countdown for a session nobody is watching.
			m.state = StateTerminated
			close(m.done)
			m.broadcastLocked()
			return err
		}
		log.Printf("session %s: capture acquire failed: %v", m.id, err)
		m.enterWarningLocked()
		return nil
	}
	m.handle = handle
	m.state = StateActive
	m.broadcastLocked()
	go m.watchCapture(handle)
	return nil
}

// acceptable reports whether a persisted snapshot may be restored: its
// answer count must match the current question count and it must be inside
// the freshness window.
func (m *Machine) acceptable(p domain.Progress) bool {
	if len(p.Answers) != len(m.items) {
		return false
	}
	if p.CurrentIndex < 0 || p.CurrentIndex >= len(m.items) {
		return false
	}
	return m.now().Sub(p.SavedAt) < FreshnessWindow
}

// EditAnswer overwrites the answer slot at the current question. Typed text
// and speech transcripts both land here. The full snapshot is persisted
// after every edit; a write failure is surfaced, not retried.
func (m *Machine) EditAnswer(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.terminalLocked() {
		return domain.ErrSessionFinished
	}
	if m.state != StateActive {
		return fmt.Errorf("edit: session %s not active", m.id)
	}
	m.answers[m.current] = text
	err := m.persistLocked(ctx)
	m.broadcastLocked()
	return err
}

// Next advances to the next question, or finishes the session when invoked
// on the last one.
func (m *Machine) Next(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.terminalLocked() {
		return domain.ErrSessionFinished
	}
	if m.state != StateActive {
		return fmt.Errorf("next: session %s not active", m.id)
	}
	if m.current < len(m.items)-1 {
		m.current++
		err := m.persistLocked(ctx)
		m.broadcastLocked()
		return err
	}
	return m.finalizeLocked(ctx, false)
}

// Finish completes the session from any question.
func (m *Machine) Finish(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.terminalLocked() {
		return domain.ErrSessionFinished
	}
	return m.finalizeLocked(ctx, false)
}

// CaptureLost is the capability-loss event: the video track ended while the
// session was running. It starts the Warning countdown.
func (m *Machine) CaptureLost() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateActive && m.state != StateAwaitingCapture {
		return
	}
	m.enterWarningLocked()
}

// ConfirmEnd is the user's explicit acknowledgement during Warning; it
// force-finalizes immediately instead of waiting out the countdown.
func (m *Machine) ConfirmEnd(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateWarning {
		return fmt.Errorf("confirm: session %s not in warning", m.id)
	}
	return m.finalizeLocked(ctx, true)
}

// Tick decrements the Warning countdown by one. At zero the session is
// force-finalized with whatever answers are currently held. Ticks outside
// Warning are ignored, so a stale timer can never fire after teardown.
func (m *Machine) Tick(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateWarning {
		return
	}
	m.countdown--
	if m.countdown > 0 {
		m.broadcastLocked()
		return
	}
	if err := m.finalizeLocked(ctx, true); err != nil {
		log.Printf("session %s: forced finalize failed: %v", m.id, err)
	}
}

// Close tears the session down without completing it (client disconnect,
// unmount). The progress snapshot is kept so a reload can restore it, but
// capture is released and any pending countdown is cancelled.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.terminalLocked() {
		return
	}
	m.releaseLocked()
	m.state = StateTerminated
	close(m.done)
	m.broadcastLocked()
}

// Snapshot returns the current view of the machine.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every transition.
// The caller must invoke the returned cancel function to avoid leaks.
func (m *Machine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	initial := m.snapshotLocked()
	m.mu.Unlock()

	ch <- initial

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

func (m *Machine) enterWarningLocked() {
	m.state = StateWarning
	m.countdown = WarningTicks
	m.broadcastLocked()
	if m.tickEvery <= 0 {
		return
	}
	stop := make(chan struct{})
	m.stopTicker = stop
	go func() {
		ticker := time.NewTicker(m.tickEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Tick(context.Background())
			case <-stop:
				return
			case <-m.done:
				return
			}
		}
	}()
}

// finalizeLocked is the single completion path for normal finish, manual
// confirmation, and countdown expiry. It runs at most once.
func (m *Machine) finalizeLocked(ctx context.Context, forced bool) error {
	if m.finalized {
		return domain.ErrSessionFinished
	}
	m.finalized = true
	m.releaseLocked()
	close(m.done)

	if err := m.progress.ClearProgress(ctx, m.userID, m.topicID); err != nil {
		log.Printf("session %s: progress clear failed: %v", m.id, err)
	}

	if forced {
		m.state = StateTerminated
	} else {
		m.state = StateCompleted
	}

	questions := make([]string, len(m.items))
	references := make([]string, len(m.items))
	for i, item := range m.items {
		questions[i] = item.Question
		references[i] = item.ReferenceAnswer
	}
	err := m.finalize(ctx, Outcome{
		UserID:           m.userID,
		TopicID:          m.topicID,
		Questions:        questions,
		Answers:          append([]string(nil), m.answers...),
		ReferenceAnswers: references,
		Forced:           forced,
	})
	m.broadcastLocked()
	return err
}

func (m *Machine) releaseLocked() {
	if m.stopTicker != nil {
		close(m.stopTicker)
		m.stopTicker = nil
	}
	if m.handle != nil {
		m.handle.Release()
		m.handle = nil
	}
}

func (m *Machine) watchCapture(handle CaptureHandle) {
	select {
	case <-handle.Lost():
		m.CaptureLost()
	case <-m.done:
	}
}

func (m *Machine) persistLocked(ctx context.Context) error {
	err := m.progress.PutProgress(ctx, m.userID, m.topicID, domain.Progress{
		CurrentIndex: m.current,
		Answers:      append([]string(nil), m.answers...),
		SavedAt:      m.now(),
	})
	if err != nil {
		return fmt.Errorf("persist progress: %w", err)
	}
	return nil
}

func (m *Machine) terminalLocked() bool {
	return m.state == StateCompleted || m.state == StateTerminated
}

func (m *Machine) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:     m.id,
		State:         m.state,
		CurrentIndex:  m.current,
		QuestionCount: len(m.items),
		Countdown:     m.countdown,
	}
	if m.current >= 0 && m.current < len(m.items) {
		snap.Question = m.items[m.current].Question
		snap.Answer = m.answers[m.current]
	}
	return snap
}

func (m *Machine) broadcastLocked() {
	snap := m.snapshotLocked()
	for ch := range m.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
