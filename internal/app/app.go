// Package app wires the camera, the landmark detector, the control session
// and the action dispatcher into the running mudra process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/clock"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

const (
	// PluginTimeoutMs bounds a single plugin execution.
	PluginTimeoutMs = 5000
	// ActionLogKeep is the number of action log rows retained.
	ActionLogKeep = 1000
	// actionLogPruneEvery is how many appends happen between prunes.
	actionLogPruneEvery = 100
	// commandBuffer is the capacity of the session command channel.
	commandBuffer = 8
)

// ErrRunning is returned by Start when the pipeline is already running.
var ErrRunning = errors.New("pipeline already running")

// Config holds the collaborators of the application. Only Control is
// required; nil collaborators are created from it.
type Config struct {
	// Control is the effective control configuration.
	Control config.Config

	Store    *store.Store
	Camera   capture.Camera
	Detector detector.Detector
	// Sink receives input events. The default chains the key plugins in
	// front of the native mouse and keyboard.
	Sink    action.Sink
	Clock   clock.Clock
	Plugins *plugin.Manager
}

// App is the main application that orchestrates landmark detection and
// gesture control.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	preview    *capture.Preview
	slot       *control.FrameSlot
	templates  *gesture.TemplateMatcher
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor
	dispatcher *action.Dispatcher
	session    *control.Session
	commands   chan control.Command

	mu        sync.RWMutex
	enabled   bool
	status    control.Snapshot
	observers []func(control.Snapshot)
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logged    int
}

// New creates a new App instance with the given configuration. When the
// screen size is not configured it is read from the display.
func New(cfg Config) (*App, error) {
	if cfg.Control.ScreenWidth == 0 || cfg.Control.ScreenHeight == 0 {
		cfg.Control.ScreenWidth, cfg.Control.ScreenHeight = action.ScreenSize()
	}
	if err := cfg.Control.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}

	a := &App{
		config:     cfg,
		camera:     cfg.Camera,
		detector:   cfg.Detector,
		preview:    capture.NewPreview(),
		slot:       control.NewFrameSlot(),
		templates:  gesture.NewTemplateMatcher(),
		pluginMgr:  cfg.Plugins,
		pluginExec: plugin.NewExecutor(PluginTimeoutMs),
		commands:   make(chan control.Command, commandBuffer),
		enabled:    true,
	}

	if a.camera == nil {
		camCfg := capture.DefaultConfig()
		camCfg.DeviceID = cfg.Control.CameraID
		a.camera = capture.NewCamera(camCfg)
	}

	if a.detector == nil {
		detCfg := detector.DefaultConfig()
		detCfg.Mode = cfg.Control.Mode
		if mp, err := detector.NewMediaPipeDetector(detCfg); err == nil {
			a.detector = mp
			log.Printf("app: using MediaPipe %s detection", cfg.Control.Mode)
		} else {
			log.Printf("app: MediaPipe not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}

	if a.pluginMgr == nil {
		a.pluginMgr = plugin.NewManager(cfg.Control.PluginDir)
	}

	sink := cfg.Sink
	if sink == nil {
		sink = action.Chain{
			action.NewPluginSink(a.pluginMgr, a.pluginExec),
			action.NewRobotgoSink(),
		}
	}
	a.dispatcher = action.NewDispatcher(sink, cfg.Control.DispatchQueueSize)
	a.dispatcher.OnResult = a.recordResult

	a.session = control.NewSession(cfg.Control, cfg.Clock, a.dispatcher, a.templates)
	a.status = a.session.Snapshot()
	return a, nil
}

// SetEnabled pauses or resumes gesture control.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()

	if !changed {
		return
	}
	if enabled {
		a.send(control.Resume)
	} else {
		a.send(control.Pause)
	}
}

// Enabled returns whether gesture control is currently enabled.
func (a *App) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Recalibrate discards the baseline and restarts the warm-up.
func (a *App) Recalibrate() {
	a.send(control.Recalibrate)
}

// Configure stages cfg for the next recalibration.
func (a *App) Configure(cfg config.Config) {
	cfg.ScreenWidth, cfg.ScreenHeight = a.config.Control.ScreenWidth, a.config.Control.ScreenHeight
	a.session.Configure(cfg)
	log.Printf("app: new settings staged, recalibrate to apply")
}

func (a *App) send(cmd control.Command) {
	select {
	case a.commands <- cmd:
	default:
		log.Printf("app: dropping %s, command queue full", cmd)
	}
}

// Status returns the latest published snapshot.
func (a *App) Status() control.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// OnSnapshot registers fn to receive every snapshot on the control goroutine.
// fn must not block. Register observers before Start.
func (a *App) OnSnapshot(fn func(control.Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, fn)
}

func (a *App) publish(snap control.Snapshot) {
	a.mu.Lock()
	a.status = snap
	observers := a.observers
	a.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

// LoadTemplates replaces the live hand templates with the trained poses in
// the store. Untrained poses and poses bound to unknown gestures are skipped.
func (a *App) LoadTemplates() error {
	if a.config.Store == nil {
		return nil
	}

	poses, err := a.config.Store.Poses().List()
	if err != nil {
		return fmt.Errorf("list poses: %w", err)
	}

	var templates []*gesture.Template
	for _, p := range poses {
		g, err := gesture.Parse(p.Gesture)
		if err != nil {
			log.Printf("app: skipping pose %s: %v", p.Name, err)
			continue
		}
		landmarks, err := a.config.Store.Poses().GetLandmarks(p.ID)
		if err != nil {
			return fmt.Errorf("load landmarks for %s: %w", p.Name, err)
		}
		if len(landmarks) != detector.NumLandmarks {
			continue
		}
		templates = append(templates, &gesture.Template{
			ID:        p.ID,
			Name:      p.Name,
			Gesture:   g,
			Landmarks: storeLandmarksToDetector(landmarks),
			Tolerance: p.Tolerance,
		})
	}

	a.templates.Replace(templates)
	log.Printf("app: loaded %d trained poses", len(templates))
	return nil
}

// storeLandmarksToDetector converts store.Landmark slice to detector.Point3D slice.
func storeLandmarksToDetector(landmarks []store.Landmark) []detector.Point3D {
	points := make([]detector.Point3D, len(landmarks))
	for i, l := range landmarks {
		points[i] = detector.Point3D{X: l.X, Y: l.Y, Z: l.Z}
	}
	return points
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// recordResult stores the outcome of a discrete action in the action log.
func (a *App) recordResult(r action.Result) {
	if a.config.Store == nil {
		return
	}

	rec := &store.ActionRecord{
		Kind:      string(r.Event.Kind),
		Gesture:   r.Event.Gesture.String(),
		Detail:    r.Event.String(),
		Success:   r.Err == nil,
		CreatedAt: r.At,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}

	repo := a.config.Store.ActionLog()
	if err := repo.Append(rec); err != nil {
		a.dispatcher.Logf("app: record action: %v", err)
		return
	}

	// Only the dispatcher goroutine calls recordResult.
	a.logged++
	if a.logged%actionLogPruneEvery == 0 {
		if err := repo.Prune(ActionLogKeep); err != nil {
			a.dispatcher.Logf("app: prune action log: %v", err)
		}
	}
}

// Start opens the camera and runs the capture, control and dispatch
// goroutines until Stop or until ctx is done.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return ErrRunning
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	if !a.enabled {
		a.send(control.Pause)
	}

	a.dispatcher.Start()

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.runCapture(ctx)
	}()
	go func() {
		defer a.wg.Done()
		err := a.session.Run(ctx, a.slot, a.commands, a.publish)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("app: control loop stopped: %v", err)
		}
	}()

	log.Printf("app: %s control started", a.config.Control.Mode)
	return nil
}

// Stop halts the pipeline and releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		a.wg.Wait()
		a.dispatcher.Stop()
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("app: error closing camera: %v", err)
	}

	if err := a.detector.Close(); err != nil {
		log.Printf("app: error closing detector: %v", err)
	}

	log.Println("app: pipeline stopped")
}

// Preview returns the latest camera image source.
func (a *App) Preview() *capture.Preview {
	return a.preview
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Templates returns the live hand template matcher.
func (a *App) Templates() *gesture.TemplateMatcher {
	return a.templates
}
