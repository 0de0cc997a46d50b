package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/clock"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

const frameInterval = 33 * time.Millisecond

// syncDispatcher executes events as soon as they are dispatched.
type syncDispatcher struct {
	sink    *action.RecordingSink
	lastErr error
}

func (d *syncDispatcher) Dispatch(e action.Event) error {
	d.lastErr = action.Execute(d.sink, e)
	return nil
}

func (d *syncDispatcher) LastError() error { return d.lastErr }

type harness struct {
	*Session
	clk  *clock.Manual
	sink *action.RecordingSink
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	original := Logf
	Logf = func(string, ...any) {}
	t.Cleanup(func() { Logf = original })

	cfg.ScreenWidth, cfg.ScreenHeight = 1920, 1080
	require.NoError(t, cfg.Validate())

	clk := clock.NewManual(time.Unix(1000, 0))
	sink := action.NewRecordingSink()
	return &harness{
		Session: NewSession(cfg, clk, &syncDispatcher{sink: sink}, nil),
		clk:     clk,
		sink:    sink,
	}
}

func (h *harness) step(f *detector.Frame) Snapshot {
	h.clk.Advance(frameInterval)
	return h.Tick(f)
}

func face(left, right float64) *detector.Frame {
	return faceAt(0.5, 0.5, left, right)
}

func faceAt(x, y, left, right float64) *detector.Frame {
	f := detector.FacePose(x, y, left, right)
	return &detector.Frame{Face: &f}
}

// calibrateEyes feeds a warm-up whose eye signals have mean 0.040 and
// population stddev 0.004.
func (h *harness) calibrateEyes(t *testing.T) {
	t.Helper()
	frames, target := h.calibrator.Progress()
	require.Zero(t, frames)
	for i := 0; i < target; i++ {
		v, pos := 0.036, 0.4
		if i%2 == 1 {
			v, pos = 0.044, 0.6
		}
		h.step(faceAt(pos, pos, v, v))
	}
	require.Equal(t, StateActive, h.Snapshot().State)
}

func eyeConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.WarmupFrames = 10
	return cfg
}

func TestSession_Calibration(t *testing.T) {
	h := newHarness(t, eyeConfig())

	snap := h.Snapshot()
	assert.Equal(t, StateCalibrating, snap.State)
	assert.Equal(t, 10, snap.CalibrationTarget)

	for i := 0; i < 9; i++ {
		snap = h.step(face(0.025, 0.040))
	}
	assert.Equal(t, StateCalibrating, snap.State)
	assert.Equal(t, 9, snap.CalibrationFrames)
	assert.Empty(t, h.sink.Events(), "nothing is dispatched during warm-up")

	// Frames without a detection do not count.
	snap = h.step(&detector.Frame{})
	assert.Equal(t, 9, snap.CalibrationFrames)
	assert.False(t, snap.Detected)

	snap = h.step(face(0.025, 0.040))
	assert.Equal(t, StateActive, snap.State)
	assert.True(t, snap.Calibrated())
	assert.Nil(t, snap.LastAction)
}

func TestSession_WinkScenario(t *testing.T) {
	h := newHarness(t, eyeConfig())
	h.calibrateEyes(t)

	th := h.Snapshot().Thresholds
	require.NotNil(t, th)
	assert.InDelta(t, 0.0328, th.Left, 1e-4)
	assert.InDelta(t, 0.0328, th.Right, 1e-4)
	assert.Empty(t, h.Snapshot().Warnings)

	wink := face(0.025, 0.040)

	snap := h.step(wink)
	assert.Equal(t, gesture.PrimaryAction, snap.Gesture)
	assert.Empty(t, h.sink.Kinds(), "tick 1")

	snap = h.step(wink)
	assert.Equal(t, []action.Kind{action.KindClick}, h.sink.Kinds(), "tick 2")
	require.NotNil(t, snap.LastAction)
	assert.Equal(t, action.ButtonLeft, snap.LastAction.Button)

	h.step(wink)
	assert.Equal(t, []action.Kind{action.KindClick}, h.sink.Kinds(), "tick 3")
}

func TestSession_BlinkIsIgnored(t *testing.T) {
	h := newHarness(t, eyeConfig())
	h.calibrateEyes(t)

	for i := 0; i < 5; i++ {
		snap := h.step(face(0.010, 0.010))
		assert.Equal(t, gesture.CursorMove, snap.Gesture)
	}
	assert.Empty(t, h.sink.Kinds())
}

func TestSession_DoubleRightWink(t *testing.T) {
	h := newHarness(t, eyeConfig())
	h.calibrateEyes(t)

	wink := face(0.040, 0.025)
	open := face(0.040, 0.040)

	h.step(wink)
	h.step(wink)
	require.Equal(t, []action.Kind{action.KindClick}, h.sink.Kinds())

	h.clk.Advance(300 * time.Millisecond)
	h.step(open)
	h.clk.Advance(270 * time.Millisecond)
	h.step(wink)
	h.step(wink)

	kinds := h.sink.Kinds()
	require.Len(t, kinds, 2)
	assert.Equal(t, action.KindDoubleClick, kinds[1])
	last := h.Snapshot().LastAction
	require.NotNil(t, last)
	assert.Equal(t, action.ButtonLeft, last.Button)
}

func TestSession_AbsenceResetsAndHoldsCursor(t *testing.T) {
	h := newHarness(t, eyeConfig())
	h.calibrateEyes(t)

	for i := 0; i < 3; i++ {
		h.step(faceAt(0.45, 0.55, 0.040, 0.040))
	}
	before := h.Snapshot()
	require.True(t, before.CursorValid)

	wink := faceAt(0.45, 0.55, 0.025, 0.040)
	h.step(wink)
	snap := h.step(nil)
	assert.False(t, snap.Detected)
	assert.Equal(t, gesture.None, snap.Gesture)
	assert.Equal(t, before.Cursor, snap.Cursor)

	h.step(wink)
	assert.Empty(t, h.sink.Kinds(), "the gap breaks the consecutive run")
}

func TestSession_CursorFollowsIrises(t *testing.T) {
	h := newHarness(t, eyeConfig())
	h.calibrateEyes(t)

	for i := 0; i < 5; i++ {
		h.step(faceAt(0.6, 0.6, 0.040, 0.040))
	}
	snap := h.Snapshot()
	require.True(t, snap.CursorValid)
	assert.Equal(t, 1919, snap.Cursor.X)
	assert.Equal(t, 1079, snap.Cursor.Y)

	events := h.sink.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, action.KindMove, events[len(events)-1].Kind)

	moves := 0
	for _, e := range events {
		if e.Kind == action.KindMove {
			moves++
		}
	}
	assert.Equal(t, 1, moves, "an unchanged position is not re-sent")
}

func TestSession_DegenerateCalibrationWarns(t *testing.T) {
	h := newHarness(t, eyeConfig())
	for i := 0; i < 10; i++ {
		h.step(face(0.040, 0.040))
	}

	snap := h.Snapshot()
	require.Equal(t, StateActive, snap.State)
	assert.NotEmpty(t, snap.Warnings)
	require.NotNil(t, snap.Thresholds)
	assert.True(t, snap.Thresholds.LeftFallback)
	assert.Equal(t, 0.02, snap.Thresholds.Left)
}

func TestSession_PauseAndRecalibrate(t *testing.T) {
	h := newHarness(t, eyeConfig())
	h.calibrateEyes(t)

	h.Apply(Pause)
	assert.Equal(t, StatePaused, h.Snapshot().State)
	wink := face(0.025, 0.040)
	for i := 0; i < 3; i++ {
		h.step(wink)
	}
	assert.Empty(t, h.sink.Kinds())

	h.Apply(Resume)
	assert.Equal(t, StateActive, h.Snapshot().State)

	h.Apply(Recalibrate)
	snap := h.Snapshot()
	assert.Equal(t, StateCalibrating, snap.State)
	assert.Zero(t, snap.CalibrationFrames)
	assert.Nil(t, h.Baseline())
}

func TestSession_SurfacesSinkErrors(t *testing.T) {
	h := newHarness(t, eyeConfig())
	h.calibrateEyes(t)

	h.sink.SetErr(errors.New("no display"))
	var snap Snapshot
	for i := 0; i < 3; i++ {
		snap = h.step(face(0.040, 0.040))
	}
	assert.Equal(t, StateActive, snap.State)
	assert.Equal(t, "no display", snap.LastError)
}

func TestSession_ConfigureAppliesOnRecalibrate(t *testing.T) {
	h := newHarness(t, eyeConfig())
	h.calibrateEyes(t)

	next := eyeConfig()
	next.Mode = detector.ModeHand
	next.WarmupFrames = 4
	next.ScreenWidth, next.ScreenHeight = 1920, 1080
	h.Configure(next)

	assert.Equal(t, StateActive, h.Snapshot().State, "staged until recalibration")

	h.Recalibrate()
	snap := h.Snapshot()
	assert.Equal(t, StateCalibrating, snap.State)
	assert.Equal(t, 4, snap.CalibrationTarget)
	assert.Equal(t, detector.ModeEye, snap.Mode, "mode is fixed for a running session")

	for i := 0; i < 4; i++ {
		snap = h.step(face(0.04, 0.04))
	}
	assert.Equal(t, StateActive, snap.State)
}

func handConfig() config.Config {
	cfg := config.DefaultConfigFor(detector.ModeHand)
	cfg.WarmupFrames = 6
	return cfg
}

func handFrame(h detector.HandLandmarks) *detector.Frame {
	return &detector.Frame{Hand: &h}
}

func TestSession_HandMode(t *testing.T) {
	h := newHarness(t, handConfig())

	for i := 0; i < 6; i++ {
		pos := 0.3
		if i%2 == 1 {
			pos = 0.7
		}
		h.step(handFrame(detector.WithPointer(detector.PointingLandmarks(), pos, pos)))
	}
	require.Equal(t, StateActive, h.Snapshot().State)
	assert.Nil(t, h.Snapshot().Thresholds)

	snap := h.step(handFrame(detector.WithPointer(detector.PointingLandmarks(), 0.5, 0.5)))
	assert.Equal(t, gesture.CursorMove, snap.Gesture)
	assert.Equal(t, "point", snap.Rule)

	pinch := handFrame(detector.PinchLandmarks())
	h.step(pinch)
	h.step(pinch)
	assert.Equal(t, []action.Kind{action.KindClick}, h.sink.Kinds())

	// A palm neither moves the cursor nor fires until the gate reopens.
	moves := len(h.sink.Events())
	palm := handFrame(detector.OpenPalmLandmarks())
	h.step(palm)
	h.step(palm)
	assert.Len(t, h.sink.Events(), moves)

	h.clk.Advance(time.Second)
	h.step(palm)
	events := h.sink.Events()
	require.Len(t, events, moves+1)
	assert.Equal(t, action.KindKey, events[moves].Kind)
	assert.Equal(t, action.KeyNextTrack, events[moves].Key)

	h.step(handFrame(detector.OpenPalmLandmarks()))
	h.clk.Advance(time.Second)
	h.step(handFrame(detector.ThumbsUpLandmarks()))
	h.step(handFrame(detector.ThumbsUpLandmarks()))
	events = h.sink.Events()
	last := events[len(events)-1]
	assert.Equal(t, action.KindScroll, last.Kind)
	assert.Equal(t, 5, last.Delta)
}

func TestSession_Run(t *testing.T) {
	h := newHarness(t, eyeConfig())
	slot := NewFrameSlot()
	commands := make(chan Command)
	snaps := make(chan Snapshot, 64)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.Run(ctx, slot, commands, func(s Snapshot) { snaps <- s })
	}()

	slot.Put(face(0.040, 0.040))
	select {
	case s := <-snaps:
		assert.Equal(t, 1, s.CalibrationFrames)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after frame")
	}

	commands <- Pause
	select {
	case s := <-snaps:
		assert.Equal(t, StatePaused, s.State)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after command")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestFrameSlot(t *testing.T) {
	slot := NewFrameSlot()
	_, ok := slot.Take()
	assert.False(t, ok)

	a, b := &detector.Frame{}, &detector.Frame{}
	slot.Put(a)
	slot.Put(b)

	got, ok := slot.Take()
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = slot.Take()
	assert.False(t, ok)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "recalibrate", Recalibrate.String())
	assert.Equal(t, "command(9)", Command(9).String())
}
