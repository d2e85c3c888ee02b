package authgate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// auditDispatcher decouples sinks from the authentication path. Events are
// queued onto a buffered channel and written by a single goroutine, so a
// slow sink can never stall Login or VerifyChallenge.
//
// The events channel is never closed: shutdown is signalled through the
// done channel and the closed flag, so emits racing close are dropped
// instead of panicking.
type auditDispatcher struct {
	sink    AuditSink
	events  chan AuditEvent
	dropped atomic.Uint64

	dropIfFull bool

	closed    atomic.Bool
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newAuditDispatcher(sink AuditSink, buffer int, dropIfFull bool) *auditDispatcher {
	d := &auditDispatcher{
		sink:       sink,
		events:     make(chan AuditEvent, buffer),
		dropIfFull: dropIfFull,
		done:       make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.events:
			d.write(event)
		case <-d.done:
			// Drain whatever was queued before shutdown.
			for {
				select {
				case event := <-d.events:
					d.write(event)
				default:
					return
				}
			}
		}
	}
}

func (d *auditDispatcher) write(event AuditEvent) {
	// Each write gets its own deadline so one stuck sink call cannot
	// wedge the drain forever.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = d.sink.Write(ctx, event)
	cancel()
}

// emit enqueues an event. With dropIfFull set, a full buffer sheds the
// event and bumps the dropped counter; otherwise emit blocks until the
// queue accepts it or the dispatcher shuts down. Emits after close are
// counted as dropped.
func (d *auditDispatcher) emit(event AuditEvent) {
	if d.closed.Load() {
		d.dropped.Add(1)
		return
	}
	event.Metadata = sanitizeMetadata(event.Metadata)
	if d.dropIfFull {
		select {
		case d.events <- event:
		case <-d.done:
			d.dropped.Add(1)
		default:
			d.dropped.Add(1)
		}
		return
	}
	select {
	case d.events <- event:
	case <-d.done:
		d.dropped.Add(1)
	}
}

// Dropped reports how many events were shed since startup.
func (d *auditDispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// close drains queued events and stops the goroutine. Safe to call
// concurrently with emit.
func (d *auditDispatcher) close() {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}
