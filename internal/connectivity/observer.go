package connectivity

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Probe reports whether the network currently looks reachable.
type Probe func(ctx context.Context) bool

// DialProbe probes reachability with a TCP dial against addr.
func DialProbe(addr string, timeout time.Duration) Probe {
	return func(ctx context.Context) bool {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}

// Event is an online/offline transition.
type Event struct {
	Online bool
	At     time.Time
}

// Observer tracks connectivity. Online is always a live probe call, never a
// cached flag, so a read cannot race a pending transition update. The
// watcher only drives transition events for resync triggering.
type Observer struct {
	probe    Probe
	interval time.Duration
	log      zerolog.Logger
	events   chan Event
	last     bool
	primed   bool
}

func New(probe Probe, interval time.Duration, log zerolog.Logger) *Observer {
	return &Observer{
		probe:    probe,
		interval: interval,
		log:      log,
		events:   make(chan Event, 1),
	}
}

// Online reports current reachability.
func (o *Observer) Online(ctx context.Context) bool {
	return o.probe(ctx)
}

// Events delivers transitions observed by Watch. The channel is never
// closed; a slow consumer loses intermediate transitions, not the latest.
func (o *Observer) Events() <-chan Event {
	return o.events
}

// Watch probes on the configured interval and emits an Event on every
// transition. Blocks until ctx is done.
func (o *Observer) Watch(ctx context.Context) {
	t := time.NewTicker(o.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			o.check(ctx)
		}
	}
}

func (o *Observer) check(ctx context.Context) {
	online := o.probe(ctx)
	if o.primed && online == o.last {
		return
	}
	o.primed = true
	o.last = online
	o.log.Info().Bool("online", online).Msg("connectivity changed")
	ev := Event{Online: online, At: time.Now()}
	select {
	case o.events <- ev:
	default:
		// drop the stale queued transition, keep the newest
		select {
		case <-o.events:
		default:
		}
		o.events <- ev
	}
}
