package studio

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"alchemy/internal/logging"
	"alchemy/internal/services/qloo"
)

const defaultFlushDelay = 150 * time.Millisecond

// Backend persists studio state. Implementations must tolerate a Load
// before any Save has happened.
type Backend interface {
	Load() (State, bool, error)
	Save(State) error
}

// Store owns the studio state and writes it through a backend with a
// trailing-edge debounce: rapid mutations collapse into one save.
type Store struct {
	mu      sync.Mutex
	state   State
	backend Backend
	logger  *slog.Logger

	flushDelay time.Duration
	timer      *time.Timer
	closed     bool
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithFlushDelay overrides the debounce interval.
func WithFlushDelay(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.flushDelay = d
		}
	}
}

// WithLogger attaches a logger for save failures.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore loads any previously saved state from backend and returns a
// ready store.
func NewStore(backend Backend, opts ...StoreOption) (*Store, error) {
	store := &Store{
		backend:    backend,
		logger:     logging.NewNop(),
		flushDelay: defaultFlushDelay,
	}
	for _, opt := range opts {
		opt(store)
	}
	saved, ok, err := backend.Load()
	if err != nil {
		return nil, err
	}
	if ok {
		store.state = saved
	}
	return store, nil
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// SetPrompt replaces the working prompt and records the edit.
func (s *Store) SetPrompt(prompt string) {
	s.mutate(func(st *State) {
		st.Prompt = prompt
		st.Workflow = append(st.Workflow, Step{
			Mode:   ModeCreateImage,
			Action: "set-prompt",
			At:     time.Now().UTC(),
		})
	})
}

// SetImage records a freshly generated image as the latest artifact.
func (s *Store) SetImage(img Artifact) {
	s.mutate(func(st *State) {
		copied := img
		st.LastImage = &copied
		st.Workflow = append(st.Workflow, Step{
			Mode:    ModeCreateImage,
			Action:  "generate",
			Payload: map[string]any{"url": img.URL, "id": img.ID},
			At:      time.Now().UTC(),
		})
	})
}

// SetVideo records a finished video as the latest artifact.
func (s *Store) SetVideo(vid Artifact) {
	s.mutate(func(st *State) {
		copied := vid
		st.LastVideo = &copied
		st.Workflow = append(st.Workflow, Step{
			Mode:    ModeCreateVideo,
			Action:  "video-complete",
			Payload: map[string]any{"url": vid.URL, "id": vid.ID},
			At:      time.Now().UTC(),
		})
	})
}

// SetCulturalContext replaces the applied cultural context.
func (s *Store) SetCulturalContext(ctx qloo.Analysis) {
	s.mutate(func(st *State) {
		copied := ctx
		st.CulturalContext = &copied
		st.Workflow = append(st.Workflow, Step{
			Mode:    ModeCultural,
			Action:  "apply-culture",
			Payload: map[string]any{"hasContext": true},
			At:      time.Now().UTC(),
		})
	})
}

// ApplyCulturalToPrompt appends the synthesized cultural fragment to the
// working prompt. modeHint selects the history mode: "edit" and "video"
// map to their surfaces, anything else counts as image creation. Without
// a cultural context this is a no-op.
func (s *Store) ApplyCulturalToPrompt(modeHint string) {
	s.mutate(func(st *State) {
		fragment := SynthesizeCulture(st.CulturalContext)
		if fragment == "" {
			return
		}
		parts := make([]string, 0, 2)
		if st.Prompt != "" {
			parts = append(parts, st.Prompt)
		}
		parts = append(parts, fragment)
		st.Prompt = strings.TrimSpace(strings.Join(parts, "\n"))

		mode := ModeCreateImage
		switch modeHint {
		case "edit":
			mode = ModeEditImage
		case "video":
			mode = ModeCreateVideo
		}
		st.Workflow = append(st.Workflow, Step{
			Mode:   mode,
			Action: "apply-culture",
			At:     time.Now().UTC(),
		})
	})
}

// PushStep appends an arbitrary workflow record.
func (s *Store) PushStep(step Step) {
	s.mutate(func(st *State) {
		if step.At.IsZero() {
			step.At = time.Now().UTC()
		}
		st.Workflow = append(st.Workflow, step)
	})
}

// Clear resets the state to empty and persists the reset.
func (s *Store) Clear() {
	s.mutate(func(st *State) {
		*st = State{}
	})
}

// Reload re-reads the backend and adopts its state when the in-memory
// history is still empty but the saved history is not. Later in-memory
// history always wins.
func (s *Store) Reload() error {
	saved, ok, err := s.backend.Load()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.state.Workflow) == 0 && len(saved.Workflow) > 0 {
		s.state = saved
	}
	return nil
}

// Flush cancels any pending debounce and saves immediately.
func (s *Store) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	snapshot := s.state.clone()
	s.mu.Unlock()
	return s.backend.Save(snapshot)
}

// Close flushes and stops the store. Further mutations are dropped.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	snapshot := s.state.clone()
	s.mu.Unlock()
	return s.backend.Save(snapshot)
}

func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	fn(&s.state)
	s.scheduleFlushLocked()
}

func (s *Store) scheduleFlushLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.flushDelay, func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		snapshot := s.state.clone()
		s.mu.Unlock()
		if err := s.backend.Save(snapshot); err != nil {
			s.logger.Warn("studio state save failed", logging.Error(err))
		}
	})
}
