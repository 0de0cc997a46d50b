package action

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultQueueSize is the discrete-event queue capacity.
const DefaultQueueSize = 16

// Result is the outcome of executing one event.
type Result struct {
	Event Event
	Err   error
	At    time.Time
}

// Dispatcher hands events to a worker goroutine that executes them on a Sink.
// Dispatch never blocks: discrete events wait in a bounded queue, cursor moves
// in a single-slot mailbox where the newest move replaces any unsent one.
type Dispatcher struct {
	sink  Sink
	queue chan Event
	moves chan Event

	// OnResult, if set before Start, is called on the worker goroutine after
	// every discrete event.
	OnResult func(Result)
	// Logf reports failures.
	Logf func(format string, args ...any)

	mu      sync.Mutex
	lastErr error
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher over sink with room for queueSize
// pending discrete events.
func NewDispatcher(sink Sink, queueSize int) *Dispatcher {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		sink:  sink,
		queue: make(chan Event, queueSize),
		moves: make(chan Event, 1),
		Logf:  log.Printf,
	}
}

// Dispatch enqueues e. It returns ErrQueueFull and drops e when the discrete
// queue has no room.
func (d *Dispatcher) Dispatch(e Event) error {
	if e.Kind == KindMove {
		d.post(e)
		return nil
	}
	select {
	case d.queue <- e:
		return nil
	default:
		d.Logf("action: dropping %s: %v", e, ErrQueueFull)
		return fmt.Errorf("dispatch %s: %w", e, ErrQueueFull)
	}
}

// post replaces any unsent move with e.
func (d *Dispatcher) post(e Event) {
	for {
		select {
		case d.moves <- e:
			return
		default:
		}
		select {
		case <-d.moves:
		default:
		}
	}
}

// Start launches the worker. Calling Start twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopCh != nil {
		return
	}
	d.stopCh = make(chan struct{})
	d.wg.Add(1)
	go d.run(d.stopCh)
}

// Stop halts the worker and waits for the event in flight. Queued events
// are discarded.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	stopCh := d.stopCh
	d.stopCh = nil
	d.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	d.wg.Wait()
}

// LastError returns the most recent sink failure, or nil if the last
// discrete event succeeded.
func (d *Dispatcher) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// Pending returns the number of queued discrete events.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

func (d *Dispatcher) run(stopCh chan struct{}) {
	defer d.wg.Done()
	for {
		// Discrete events go first so a stream of moves cannot starve a click.
		select {
		case <-stopCh:
			return
		case e := <-d.queue:
			d.execute(e)
			continue
		default:
		}

		select {
		case <-stopCh:
			return
		case e := <-d.queue:
			d.execute(e)
		case e := <-d.moves:
			d.execute(e)
		}
	}
}

func (d *Dispatcher) execute(e Event) {
	err := Execute(d.sink, e)
	if err != nil {
		d.Logf("action: %s failed: %v", e, err)
	}

	if e.Kind == KindMove {
		if err != nil {
			d.setLastError(err)
		}
		return
	}

	d.setLastError(err)
	if d.OnResult != nil {
		d.OnResult(Result{Event: e, Err: err, At: time.Now()})
	}
}

func (d *Dispatcher) setLastError(err error) {
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
}
