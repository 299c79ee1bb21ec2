package studio_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"alchemy/internal/services/qloo"
	"alchemy/internal/studio"
)

type memoryBackend struct {
	mu    sync.Mutex
	state studio.State
	ok    bool
	saves int
}

func (b *memoryBackend) Load() (studio.State, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.ok, nil
}

func (b *memoryBackend) Save(state studio.State) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = state
	b.ok = true
	b.saves++
	return nil
}

func (b *memoryBackend) saveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

func newStore(t *testing.T, backend *memoryBackend) *studio.Store {
	t.Helper()
	store, err := studio.NewStore(backend, studio.WithFlushDelay(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func cultureWith(topics []string, tones, styles, brands []string) qloo.Analysis {
	var ctx qloo.Analysis
	for _, topic := range topics {
		ctx.Themes.CurrentObsessions = append(ctx.Themes.CurrentObsessions, qloo.Obsession{Topic: topic})
	}
	ctx.Communication.TonePreferences = tones
	ctx.Aesthetics.VisualStyles = styles
	ctx.Brands.LovedBrands = brands
	return ctx
}

func TestApplyCulturalToPrompt(t *testing.T) {
	store := newStore(t, &memoryBackend{})
	store.SetPrompt("cat")
	store.SetCulturalContext(cultureWith([]string{"neon"}, []string{"bold"}, nil, nil))

	store.ApplyCulturalToPrompt("")

	if got := store.State().Prompt; got != "cat\nthemes: neon; tone: bold" {
		t.Errorf("prompt = %q", got)
	}
}

func TestApplyCulturalToEmptyPrompt(t *testing.T) {
	store := newStore(t, &memoryBackend{})
	store.SetCulturalContext(cultureWith(nil, nil, []string{"vaporwave"}, nil))

	store.ApplyCulturalToPrompt("")

	if got := store.State().Prompt; got != "style: vaporwave" {
		t.Errorf("prompt = %q", got)
	}
}

func TestApplyCulturalWithoutContextIsNoop(t *testing.T) {
	store := newStore(t, &memoryBackend{})
	store.SetPrompt("cat")
	before := len(store.State().Workflow)

	store.ApplyCulturalToPrompt("video")

	state := store.State()
	if state.Prompt != "cat" {
		t.Errorf("prompt = %q", state.Prompt)
	}
	if len(state.Workflow) != before {
		t.Errorf("workflow grew from %d to %d", before, len(state.Workflow))
	}
}

func TestSynthesizeCultureCapsLabels(t *testing.T) {
	ctx := cultureWith(
		[]string{"a", "b", "c", "d", "e", "f", "g"},
		[]string{"warm", "ignored"},
		[]string{"minimal", "ignored"},
		[]string{"x", "y", "z", "ignored"},
	)
	got := studio.SynthesizeCulture(&ctx)
	want := "themes: a, b, c, d, e; tone: warm; style: minimal; inspired by: x, y, z"
	if got != want {
		t.Errorf("fragment = %q, want %q", got, want)
	}
}

func TestSynthesizeCultureNilContext(t *testing.T) {
	if got := studio.SynthesizeCulture(nil); got != "" {
		t.Errorf("expected empty fragment, got %q", got)
	}
}

func TestSettersAppendOneStepEach(t *testing.T) {
	store := newStore(t, &memoryBackend{})

	store.SetPrompt("p")
	store.SetImage(studio.Artifact{URL: "/img.png", ID: "i1"})
	store.SetVideo(studio.Artifact{URL: "/vid.mp4", ID: "v1"})
	store.SetCulturalContext(cultureWith([]string{"neon"}, nil, nil, nil))

	state := store.State()
	if len(state.Workflow) != 4 {
		t.Fatalf("expected 4 workflow steps, got %d", len(state.Workflow))
	}
	actions := []string{"set-prompt", "generate", "video-complete", "apply-culture"}
	for i, want := range actions {
		if state.Workflow[i].Action != want {
			t.Errorf("step %d action = %q, want %q", i, state.Workflow[i].Action, want)
		}
	}
	if state.LastImage == nil || state.LastImage.URL != "/img.png" {
		t.Errorf("last image = %+v", state.LastImage)
	}
	if state.LastVideo == nil || state.LastVideo.URL != "/vid.mp4" {
		t.Errorf("last video = %+v", state.LastVideo)
	}
}

func TestModeHintSelectsHistoryMode(t *testing.T) {
	tests := []struct {
		hint string
		want studio.Mode
	}{
		{"edit", studio.ModeEditImage},
		{"video", studio.ModeCreateVideo},
		{"create", studio.ModeCreateImage},
		{"", studio.ModeCreateImage},
	}
	for _, tc := range tests {
		store := newStore(t, &memoryBackend{})
		store.SetCulturalContext(cultureWith([]string{"neon"}, nil, nil, nil))
		store.ApplyCulturalToPrompt(tc.hint)

		workflow := store.State().Workflow
		last := workflow[len(workflow)-1]
		if last.Mode != tc.want {
			t.Errorf("hint %q mode = %q, want %q", tc.hint, last.Mode, tc.want)
		}
	}
}

func TestDebounceCollapsesBurstIntoOneSave(t *testing.T) {
	backend := &memoryBackend{}
	store := newStore(t, backend)

	for i := 0; i < 10; i++ {
		store.SetPrompt("draft")
	}

	deadline := time.After(2 * time.Second)
	for backend.saveCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for debounced save")
		case <-time.After(5 * time.Millisecond):
		}
	}
	time.Sleep(50 * time.Millisecond)
	if got := backend.saveCount(); got != 1 {
		t.Errorf("expected 1 save after burst, got %d", got)
	}
}

func TestReloadAdoptsSavedHistoryWhenEmpty(t *testing.T) {
	backend := &memoryBackend{
		state: studio.State{
			Prompt:   "saved",
			Workflow: []studio.Step{{Mode: studio.ModeCreateImage, Action: "generate", At: time.Now().UTC()}},
		},
	}
	store, err := studio.NewStore(backend, studio.WithFlushDelay(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if err := store.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	// ok was false, so the saved state only applies once marked present
	backend.mu.Lock()
	backend.ok = true
	backend.mu.Unlock()
	if err := store.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := store.State().Prompt; got != "saved" {
		t.Errorf("prompt = %q, want saved state adopted", got)
	}

	store.SetPrompt("newer")
	if err := store.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := store.State().Prompt; got != "newer" {
		t.Errorf("in-memory history should win once non-empty, got %q", got)
	}
}

func TestClearResetsStateAndPersists(t *testing.T) {
	backend := &memoryBackend{}
	store := newStore(t, backend)
	store.SetPrompt("something")
	store.SetImage(studio.Artifact{URL: "/img.png"})

	store.Clear()
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	state := store.State()
	if state.Prompt != "" || state.LastImage != nil || len(state.Workflow) != 0 {
		t.Errorf("state not reset: %+v", state)
	}
	backend.mu.Lock()
	saved := backend.state
	backend.mu.Unlock()
	if saved.Prompt != "" || len(saved.Workflow) != 0 {
		t.Errorf("backend not reset: %+v", saved)
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.json")
	backend := studio.NewFileBackend(path)

	if _, ok, err := backend.Load(); err != nil || ok {
		t.Fatalf("Load missing file: ok=%v err=%v", ok, err)
	}

	want := studio.State{
		Prompt:   "sunset",
		Workflow: []studio.Step{{Mode: studio.ModeCreateImage, Action: "set-prompt", At: time.Now().UTC().Truncate(time.Second)}},
	}
	if err := backend.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := backend.Load()
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.Prompt != "sunset" || len(got.Workflow) != 1 || got.Workflow[0].Action != "set-prompt" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}
