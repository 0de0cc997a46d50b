// Package control runs the gesture-to-action loop: each tick takes one
// landmark frame through extraction, calibration, mapping, classification and
// debounce, and dispatches at most one discrete action.
package control

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/clock"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/debounce"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/mapping"
	"github.com/ayusman/mudra/internal/signal"
)

// Logf is used for all session diagnostics. Tests may replace it.
var Logf = log.Printf

// Dispatcher accepts events without blocking.
type Dispatcher interface {
	Dispatch(e action.Event) error
	LastError() error
}

// Command changes the session from outside the loop.
type Command int

const (
	// Recalibrate discards the baseline and restarts warm-up.
	Recalibrate Command = iota
	// Pause stops classification and dispatch until Resume.
	Pause
	// Resume undoes Pause.
	Resume
)

func (c Command) String() string {
	switch c {
	case Recalibrate:
		return "recalibrate"
	case Pause:
		return "pause"
	case Resume:
		return "resume"
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// handCursorGestures are the hand-mode gestures during which the pointer follows the index tip.
var handCursorGestures = map[gesture.Gesture]bool{
	gesture.CursorMove:      true,
	gesture.PrimaryAction:   true,
	gesture.SecondaryAction: true,
}

// Session owns all per-user control state. It is driven by a single
// goroutine and is not safe for concurrent use.
type Session struct {
	cfg        config.Config
	clock      clock.Clock
	dispatcher Dispatcher
	templates  *gesture.TemplateMatcher

	calibrator *calibration.Calibrator
	baseline   *calibration.Baseline
	classifier gesture.Classifier
	mapper     *mapping.Mapper
	smoother   *mapping.Smoother
	machine    *debounce.Machine

	paused     bool
	tick       uint64
	warnings   []string
	cursor     image.Point
	cursorOK   bool
	lastMove   image.Point
	moved      bool
	lastAction *action.Event
	last       Snapshot

	pendingMu sync.Mutex
	pending   *config.Config
}

// NewSession creates a session in the calibrating state. templates holds user
// poses for hand mode and may be nil.
func NewSession(cfg config.Config, clk clock.Clock, d Dispatcher, templates *gesture.TemplateMatcher) *Session {
	s := &Session{
		cfg:        cfg,
		clock:      clk,
		dispatcher: d,
		templates:  templates,
		calibrator: calibration.New(cfg.Mode, cfg.WarmupFrames),
		mapper:     mapping.NewMapper(cfg.EdgeExpansion, cfg.ScreenWidth, cfg.ScreenHeight),
		smoother:   mapping.NewSmoother(cfg.SmoothingWindowSize, cfg.SmoothingMinFill, cfg.SmoothingWeighted),
		machine:    debounce.NewMachine(cfg.Debounce(), clk, debounce.SlotsFor(cfg.Mode)),
	}
	s.last = s.snapshot(false, gesture.None, "")
	return s
}

// Tick processes one frame. A nil or empty frame counts as no detection.
func (s *Session) Tick(frame *detector.Frame) Snapshot {
	s.tick++

	if s.paused {
		s.last = s.snapshot(false, gesture.None, "")
		return s.last
	}

	f, err := signal.Extract(frame, s.cfg.Mode)
	if err != nil {
		if !errors.Is(err, signal.ErrNoDetection) {
			Logf("control: dropping frame: %v", err)
		}
		// Hold the cursor where it is and forget partial gestures.
		s.machine.Reset()
		s.last = s.snapshot(false, gesture.None, "")
		return s.last
	}

	if s.baseline == nil {
		if b, done := s.calibrator.Observe(f); done {
			s.activate(b)
		}
		s.last = s.snapshot(true, gesture.None, "")
		return s.last
	}

	g, rule := s.classify(f)
	s.track(f, g)

	if p, ok := s.machine.Step(g); ok {
		s.fire(p)
	}

	s.last = s.snapshot(true, g, rule)
	return s.last
}

func (s *Session) classify(f signal.Features) (gesture.Gesture, string) {
	if h, ok := s.classifier.(*gesture.HandClassifier); ok {
		return h.Explain(f)
	}
	return s.classifier.Classify(f), ""
}

// track moves the cursor. In eye mode the pointer always follows the irises;
// in hand mode only while a pointing gesture is held.
func (s *Session) track(f signal.Features, g gesture.Gesture) {
	if s.cfg.Mode == detector.ModeHand && !handCursorGestures[g] {
		return
	}
	p, ok := s.smoother.Push(s.mapper.Map(f.PointerX, f.PointerY, s.baseline))
	if !ok {
		return
	}
	s.cursor, s.cursorOK = p, true
	if s.moved && p == s.lastMove {
		return
	}
	if err := s.dispatcher.Dispatch(action.Move(p, s.clock.Now())); err != nil {
		Logf("control: move dropped: %v", err)
		return
	}
	s.lastMove, s.moved = p, true
}

func (s *Session) fire(p debounce.Pulse) {
	e, ok := action.ForPulse(p, s.cursor, s.cfg.ScrollAmount)
	if !ok {
		return
	}
	if err := s.dispatcher.Dispatch(e); err != nil {
		Logf("control: %s dropped: %v", e, err)
		return
	}
	s.lastAction = &e
}

func (s *Session) activate(b *calibration.Baseline) {
	s.baseline = b
	s.warnings = s.warnings[:0]
	for _, name := range signal.Calibrated(s.cfg.Mode) {
		st, _ := b.Stats(name)
		if st.Degenerate() {
			w := fmt.Sprintf("%s showed no variation during calibration", name)
			s.warnings = append(s.warnings, w)
			Logf("control: warning: %s, using fallback", w)
		}
	}

	if s.cfg.Mode == detector.ModeHand {
		s.classifier = gesture.NewHandClassifier(s.cfg.Gesture(), s.templates)
	} else {
		s.classifier = gesture.NewEyeClassifier(b, s.cfg.Gesture())
	}
	s.smoother.Reset()
	s.machine.Reset()
	Logf("control: calibrated %s mode over %d frames", s.cfg.Mode, s.cfg.WarmupFrames)
}

// Configure stages cfg to replace the current configuration at the next
// recalibration. The mode cannot change on a running session. Configure is
// safe to call from any goroutine.
func (s *Session) Configure(cfg config.Config) {
	cfg.Mode = s.cfg.Mode
	s.pendingMu.Lock()
	s.pending = &cfg
	s.pendingMu.Unlock()
}

func (s *Session) takePending() {
	s.pendingMu.Lock()
	cfg := s.pending
	s.pending = nil
	s.pendingMu.Unlock()
	if cfg == nil {
		return
	}
	s.cfg = *cfg
	s.calibrator = calibration.New(cfg.Mode, cfg.WarmupFrames)
	s.mapper = mapping.NewMapper(cfg.EdgeExpansion, cfg.ScreenWidth, cfg.ScreenHeight)
	s.smoother = mapping.NewSmoother(cfg.SmoothingWindowSize, cfg.SmoothingMinFill, cfg.SmoothingWeighted)
	s.machine = debounce.NewMachine(cfg.Debounce(), s.clock, debounce.SlotsFor(cfg.Mode))
	Logf("control: applied new configuration")
}

// Recalibrate discards the baseline and starts a new warm-up, picking up any
// configuration staged by Configure.
func (s *Session) Recalibrate() {
	s.takePending()
	s.calibrator.Reset()
	s.baseline = nil
	s.classifier = nil
	s.warnings = nil
	s.smoother.Reset()
	s.machine.Reset()
	s.last = s.snapshot(false, gesture.None, "")
}

// SetPaused pauses or resumes the session. Pausing clears partial gestures.
func (s *Session) SetPaused(paused bool) {
	if paused == s.paused {
		return
	}
	s.paused = paused
	s.machine.Reset()
	s.smoother.Reset()
	s.last = s.snapshot(false, gesture.None, "")
}

// Apply runs cmd.
func (s *Session) Apply(cmd Command) {
	switch cmd {
	case Recalibrate:
		s.Recalibrate()
	case Pause:
		s.SetPaused(true)
	case Resume:
		s.SetPaused(false)
	default:
		Logf("control: ignoring unknown %s", cmd)
	}
}

// Baseline returns the frozen baseline, or nil while calibrating.
func (s *Session) Baseline() *calibration.Baseline {
	return s.baseline
}

// Snapshot returns the view produced by the latest tick or command.
func (s *Session) Snapshot() Snapshot {
	return s.last
}

func (s *Session) state() State {
	switch {
	case s.paused:
		return StatePaused
	case s.baseline == nil:
		return StateCalibrating
	}
	return StateActive
}

func (s *Session) snapshot(detected bool, g gesture.Gesture, rule string) Snapshot {
	frames, target := s.calibrator.Progress()
	snap := Snapshot{
		Mode:              s.cfg.Mode,
		State:             s.state(),
		Tick:              s.tick,
		At:                s.clock.Now(),
		CalibrationFrames: frames,
		CalibrationTarget: target,
		Detected:          detected,
		Gesture:           g,
		Rule:              rule,
		Slots:             s.machine.Snapshot(),
		Cursor:            s.cursor,
		CursorValid:       s.cursorOK,
		LastAction:        s.lastAction,
	}
	if len(s.warnings) > 0 {
		snap.Warnings = append([]string(nil), s.warnings...)
	}
	if ec, ok := s.classifier.(*gesture.EyeClassifier); ok {
		th := ec.Thresholds()
		snap.Thresholds = &th
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.LastError(); err != nil {
			snap.LastError = err.Error()
		}
	}
	return snap
}

// Run ticks the session on every frame from slot until ctx is done.
// Commands are applied between ticks. publish, if non-nil, receives every
// snapshot on the loop goroutine.
func (s *Session) Run(ctx context.Context, slot *FrameSlot, commands <-chan Command, publish func(Snapshot)) error {
	emit := func(snap Snapshot) {
		if publish != nil {
			publish(snap)
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-commands:
			s.Apply(cmd)
			emit(s.last)
		case f := <-slot.C():
			emit(s.Tick(f))
		}
	}
}
