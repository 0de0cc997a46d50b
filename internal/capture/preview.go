package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Preview holds the most recent frame as JPEG. The capture goroutine publishes
// into it and any number of stream clients read from it, so the camera keeps a
// single reader.
type Preview struct {
	mu   sync.RWMutex
	jpeg []byte
	seq  uint64
}

// NewPreview creates an empty Preview.
func NewPreview() *Preview {
	return &Preview{}
}

// Publish encodes frame and makes it the latest preview image.
func (p *Preview) Publish(frame *gocv.Mat) error {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	p.Set(data)
	return nil
}

// Set stores an already encoded JPEG image.
func (p *Preview) Set(jpeg []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jpeg = jpeg
	p.seq++
}

// Latest returns the newest image and its sequence number. The sequence is
// zero until the first image is published.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.jpeg, p.seq
}
