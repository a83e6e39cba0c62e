package media

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrElementClosed is returned by operations on a closed element.
	ErrElementClosed = errors.New("media element closed")
	// ErrNotLoaded is returned when playing before metadata resolved.
	ErrNotLoaded = errors.New("media element not loaded")
)

// Element plays one item. Events reach the Observer asynchronously, never
// from inside a call on the element.
type Element interface {
	ID() string
	Load(ctx context.Context) error
	Play(ctx context.Context) error
	Pause() error
	Seek(pos time.Duration) error
	Position() time.Duration
	Duration() time.Duration
	SetObserver(o Observer)
	Close() error
}

// Observer receives element events.
type Observer interface {
	OnMetadata(duration time.Duration)
	OnTimeUpdate(position time.Duration)
	OnEnded()
	OnError(err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Metadata   func(time.Duration)
	TimeUpdate func(time.Duration)
	Ended      func()
	Error      func(error)
}

func (f ObserverFuncs) OnMetadata(d time.Duration) {
	if f.Metadata != nil {
		f.Metadata(d)
	}
}

func (f ObserverFuncs) OnTimeUpdate(p time.Duration) {
	if f.TimeUpdate != nil {
		f.TimeUpdate(p)
	}
}

func (f ObserverFuncs) OnEnded() {
	if f.Ended != nil {
		f.Ended()
	}
}

func (f ObserverFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// Emitter delivers observer events in order on its own goroutine. Element
// implementations outside this package embed it too.
type Emitter struct {
	mu     sync.Mutex
	obs    Observer
	queue  []func(Observer)
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

// NewEmitter starts the delivery goroutine; Close stops it.
func NewEmitter() *Emitter {
	e := &Emitter{wake: make(chan struct{}, 1), done: make(chan struct{})}
	go e.run()
	return e
}

// SetObserver replaces the receiver of future events.
func (e *Emitter) SetObserver(o Observer) {
	e.mu.Lock()
	e.obs = o
	e.mu.Unlock()
}

// Emit queues fn. Events emitted after Close are dropped.
func (e *Emitter) Emit(fn func(Observer)) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.queue = append(e.queue, fn)
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Emitter) Metadata(d time.Duration) {
	e.Emit(func(o Observer) { o.OnMetadata(d) })
}

func (e *Emitter) TimeUpdate(p time.Duration) {
	e.Emit(func(o Observer) { o.OnTimeUpdate(p) })
}

func (e *Emitter) Ended() {
	e.Emit(func(o Observer) { o.OnEnded() })
}

func (e *Emitter) Error(err error) {
	e.Emit(func(o Observer) { o.OnError(err) })
}

func (e *Emitter) run() {
	for {
		select {
		case <-e.done:
			return
		case <-e.wake:
		}
		for {
			e.mu.Lock()
			if e.closed || len(e.queue) == 0 {
				e.mu.Unlock()
				break
			}
			fn := e.queue[0]
			e.queue[0] = nil
			e.queue = e.queue[1:]
			obs := e.obs
			e.mu.Unlock()
			if obs != nil {
				fn(obs)
			}
		}
	}
}

// Close drops pending events and stops delivery. It is idempotent.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.queue = nil
	close(e.done)
}
