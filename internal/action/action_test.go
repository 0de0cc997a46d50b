package action

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/debounce"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
)

func TestForPulse(t *testing.T) {
	at := time.Unix(100, 0)
	pt := image.Pt(10, 20)

	tests := []struct {
		name     string
		pulse    debounce.Pulse
		kind     Kind
		button   Button
		delta    int
		key      string
		wantNone bool
	}{
		{name: "primary", pulse: debounce.Pulse{Gesture: gesture.PrimaryAction}, kind: KindClick, button: ButtonLeft},
		{name: "secondary", pulse: debounce.Pulse{Gesture: gesture.SecondaryAction}, kind: KindClick, button: ButtonRight},
		{name: "secondary combined", pulse: debounce.Pulse{Gesture: gesture.SecondaryAction, Combined: true}, kind: KindDoubleClick, button: ButtonLeft},
		{name: "primary combined", pulse: debounce.Pulse{Gesture: gesture.PrimaryAction, Combined: true}, kind: KindDoubleClick, button: ButtonLeft},
		{name: "scroll up", pulse: debounce.Pulse{Gesture: gesture.ScrollUp}, kind: KindScroll, delta: 5},
		{name: "scroll down", pulse: debounce.Pulse{Gesture: gesture.ScrollDown}, kind: KindScroll, delta: -5},
		{name: "volume up", pulse: debounce.Pulse{Gesture: gesture.VolumeUp}, kind: KindKey, key: KeyVolumeUp},
		{name: "volume down", pulse: debounce.Pulse{Gesture: gesture.VolumeDown}, kind: KindKey, key: KeyVolumeDown},
		{name: "brightness up", pulse: debounce.Pulse{Gesture: gesture.BrightnessUp}, kind: KindKey, key: KeyBrightnessUp},
		{name: "brightness down", pulse: debounce.Pulse{Gesture: gesture.BrightnessDown}, kind: KindKey, key: KeyBrightnessDown},
		{name: "play pause", pulse: debounce.Pulse{Gesture: gesture.MediaPlayPause}, kind: KindKey, key: KeyPlayPause},
		{name: "next", pulse: debounce.Pulse{Gesture: gesture.MediaNext}, kind: KindKey, key: KeyNextTrack},
		{name: "prev", pulse: debounce.Pulse{Gesture: gesture.MediaPrev}, kind: KindKey, key: KeyPrevTrack},
		{name: "drag start", pulse: debounce.Pulse{Gesture: gesture.DragStart}, kind: KindMouseDown, button: ButtonLeft},
		{name: "drag end", pulse: debounce.Pulse{Gesture: gesture.DragEnd}, kind: KindMouseUp, button: ButtonLeft},
		{name: "cursor move", pulse: debounce.Pulse{Gesture: gesture.CursorMove}, wantNone: true},
		{name: "none", pulse: debounce.Pulse{Gesture: gesture.None}, wantNone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.pulse.At = at
			e, ok := ForPulse(tt.pulse, pt, 5)
			if tt.wantNone {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.button, e.Button)
			assert.Equal(t, tt.delta, e.Delta)
			assert.Equal(t, tt.key, e.Key)
			assert.Equal(t, tt.pulse.Gesture, e.Gesture)
			assert.Equal(t, at, e.Timestamp)
			assert.Equal(t, pt, e.Point)
		})
	}
}

func TestExecute(t *testing.T) {
	sink := NewRecordingSink()
	events := []Event{
		Move(image.Pt(3, 4), time.Now()),
		{Kind: KindClick, Button: ButtonRight},
		{Kind: KindScroll, Delta: -5},
		{Kind: KindKey, Key: KeyPlayPause},
	}
	for _, e := range events {
		require.NoError(t, Execute(sink, e))
	}

	got := sink.Events()
	require.Len(t, got, 4)
	assert.Equal(t, image.Pt(3, 4), got[0].Point)
	assert.Equal(t, ButtonRight, got[1].Button)
	assert.Equal(t, -5, got[2].Delta)
	assert.Equal(t, KeyPlayPause, got[3].Key)

	err := Execute(sink, Event{Kind: "teleport"})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestChain(t *testing.T) {
	first := &keyOnlySink{}
	second := NewRecordingSink()
	c := Chain{first, second}

	require.NoError(t, c.PressKey(KeyVolumeUp))
	require.NoError(t, c.Click(ButtonLeft))

	assert.Equal(t, []string{KeyVolumeUp}, first.keys)
	assert.Equal(t, []Kind{KindClick}, second.Kinds())

	t.Run("stops at real error", func(t *testing.T) {
		failing := NewRecordingSink()
		failing.SetErr(errors.New("boom"))
		after := NewRecordingSink()
		err := Chain{failing, after}.Scroll(1)
		assert.EqualError(t, err, "boom")
		assert.Empty(t, after.Events())
	})

	t.Run("all unsupported", func(t *testing.T) {
		err := Chain{&keyOnlySink{}}.Click(ButtonLeft)
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("falls back after plugin failure", func(t *testing.T) {
		broken := NewRecordingSink()
		broken.SetErr(fmt.Errorf("%w: media: osascript not found", ErrPluginFailed))
		native := NewRecordingSink()

		require.NoError(t, Chain{broken, native}.PressKey(KeyPlayPause))
		assert.Equal(t, []Kind{KindKey}, native.Kinds())
	})

	t.Run("plugin failure without fallback", func(t *testing.T) {
		broken := NewRecordingSink()
		broken.SetErr(fmt.Errorf("%w: media: exit 1", ErrPluginFailed))

		err := Chain{broken, &unsupportedSink{}}.PressKey(KeyPlayPause)
		assert.ErrorIs(t, err, ErrPluginFailed)
	})
}

// unsupportedSink handles nothing.
type unsupportedSink struct{ PluginSink }

func (*unsupportedSink) PressKey(string) error { return ErrUnsupported }

// keyOnlySink handles key presses and nothing else.
type keyOnlySink struct {
	PluginSink
	keys []string
}

func (s *keyOnlySink) PressKey(name string) error {
	s.keys = append(s.keys, name)
	return nil
}

func quiet(string, ...any) {}

func TestDispatcher_QueueFull(t *testing.T) {
	d := NewDispatcher(NewRecordingSink(), 2)
	d.Logf = quiet

	click := Event{Kind: KindClick, Button: ButtonLeft}
	require.NoError(t, d.Dispatch(click))
	require.NoError(t, d.Dispatch(click))
	assert.ErrorIs(t, d.Dispatch(click), ErrQueueFull)
	assert.Equal(t, 2, d.Pending())

	// Moves never fill the queue.
	assert.NoError(t, d.Dispatch(Move(image.Pt(1, 1), time.Now())))
}

func TestDispatcher_MovesNewestWins(t *testing.T) {
	sink := NewRecordingSink()
	d := NewDispatcher(sink, 4)
	d.Logf = quiet

	for i := 1; i <= 3; i++ {
		require.NoError(t, d.Dispatch(Move(image.Pt(i, i), time.Now())))
	}
	d.Start()
	defer d.Stop()

	assert.Eventually(t, func() bool { return len(sink.Events()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	got := sink.Events()
	require.Len(t, got, 1)
	assert.Equal(t, image.Pt(3, 3), got[0].Point)
}

func TestDispatcher_ResultsAndLastError(t *testing.T) {
	sink := NewRecordingSink()
	d := NewDispatcher(sink, 4)
	d.Logf = quiet

	var (
		mu      sync.Mutex
		results []Result
	)
	d.OnResult = func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	}
	d.Start()
	defer d.Stop()

	sink.SetErr(errors.New("no display"))
	require.NoError(t, d.Dispatch(Event{Kind: KindClick, Button: ButtonLeft}))
	assert.Eventually(t, func() bool { return d.LastError() != nil }, time.Second, 5*time.Millisecond)

	sink.SetErr(nil)
	require.NoError(t, d.Dispatch(Event{Kind: KindKey, Key: KeyNextTrack}))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) == 2
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, d.LastError())
	mu.Lock()
	defer mu.Unlock()
	assert.EqualError(t, results[0].Err, "no display")
	assert.NoError(t, results[1].Err)
	assert.Equal(t, KeyNextTrack, results[1].Event.Key)
}

func TestDispatcher_StopIsIdempotent(t *testing.T) {
	d := NewDispatcher(NewRecordingSink(), 0)
	d.Start()
	d.Start()
	d.Stop()
	d.Stop()
}

func TestPluginSink_NoPlugin(t *testing.T) {
	mgr := plugin.NewManager(t.TempDir())
	require.NoError(t, mgr.Discover())
	s := NewPluginSink(mgr, plugin.NewExecutor(1000))

	assert.ErrorIs(t, s.PressKey(KeyVolumeUp), ErrUnsupported)
	assert.ErrorIs(t, s.Click(ButtonLeft), ErrUnsupported)
}

func TestPluginSink_RunsBoundPlugin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins require a unix shell")
	}

	dir := t.TempDir()
	pluginDir := filepath.Join(dir, "media")
	require.NoError(t, os.MkdirAll(pluginDir, 0755))

	manifest := `{"name": "media", "version": "1.0.0", "executable": "run.sh", "actions": ["playpause"]}`
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "plugin.json"), []byte(manifest), 0644))

	script := "#!/bin/sh\ncat > \"$(dirname \"$0\")/request.json\"\necho '{\"success\": true}'\n"
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "run.sh"), []byte(script), 0755))

	mgr := plugin.NewManager(dir)
	require.NoError(t, mgr.Discover())
	s := NewPluginSink(mgr, plugin.NewExecutor(5000))

	require.NoError(t, s.PressKey(KeyPlayPause))

	req, err := os.ReadFile(filepath.Join(pluginDir, "request.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"action": "playpause", "gesture": "media_play_pause"}`, string(req))

	assert.ErrorIs(t, s.PressKey(KeyVolumeUp), ErrUnsupported)
}

func TestPluginSink_FailingPluginFallsBack(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins require a unix shell")
	}

	dir := t.TempDir()
	pluginDir := filepath.Join(dir, "media")
	require.NoError(t, os.MkdirAll(pluginDir, 0755))

	manifest := `{"name": "media", "version": "1.0.0", "executable": "run.sh", "actions": ["playpause"]}`
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "plugin.json"), []byte(manifest), 0644))

	script := "#!/bin/sh\ncat > /dev/null\necho '{\"success\": false, \"error\": \"osascript not found\"}'\n"
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "run.sh"), []byte(script), 0755))

	mgr := plugin.NewManager(dir)
	require.NoError(t, mgr.Discover())
	s := NewPluginSink(mgr, plugin.NewExecutor(5000))

	err := s.PressKey(KeyPlayPause)
	require.ErrorIs(t, err, ErrPluginFailed)
	assert.Contains(t, err.Error(), "osascript not found")

	native := NewRecordingSink()
	require.NoError(t, Chain{s, native}.PressKey(KeyPlayPause))
	require.Len(t, native.Events(), 1)
	assert.Equal(t, KeyPlayPause, native.Events()[0].Key)
}
