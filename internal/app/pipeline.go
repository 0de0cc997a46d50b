package app

import (
	"context"
	"log"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
)

// errorLogInterval limits how often repeated capture errors are logged.
const errorLogInterval = 5 * time.Second

// runCapture reads frames at the camera rate, publishes them to the preview
// and hands the detected landmarks to the control loop. A failed detection is
// handed on as an empty frame so the control loop sees it as absence.
func (a *App) runCapture(ctx context.Context) {
	fps := a.camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var lastErrLog time.Time
	logErr := func(format string, err error) {
		if time.Since(lastErrLog) < errorLogInterval {
			return
		}
		lastErrLog = time.Now()
		log.Printf(format, err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			logErr("app: error reading frame: %v", err)
			continue
		}

		if err := a.preview.Publish(frame); err != nil {
			logErr("app: %v", err)
		}

		// Detection is skipped while disabled; the session is paused anyway.
		if !a.Enabled() {
			frame.Close()
			continue
		}

		f, err := a.detector.Detect(frame)
		frame.Close()
		if err != nil {
			logErr("app: error detecting landmarks: %v", err)
			f = &detector.Frame{}
		}
		a.slot.Put(f)
	}
}
