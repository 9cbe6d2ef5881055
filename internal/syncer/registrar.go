package syncer

// Sync trigger tags, mirroring the names registered with the platform.
const (
	TagRecordings = "background-sync-recordings"
	TagMarkers    = "background-sync-markers"
)

// Registrar requests a named background-sync task. Registration is
// fire-and-forget and best-effort.
type Registrar interface {
	Register(tag string)
}

// ChannelRegistrar is the supported variant: it delivers tags into the
// worker's trigger channel. Registering a tag that is already pending
// coalesces into a single trigger.
type ChannelRegistrar struct {
	ch chan string
}

func NewChannelRegistrar() *ChannelRegistrar {
	return &ChannelRegistrar{ch: make(chan string, 8)}
}

func (r *ChannelRegistrar) Register(tag string) {
	select {
	case r.ch <- tag:
	default:
		// trigger backlog full; the queued triggers already cover this tag's
		// next drain, which snapshots the whole container anyway
	}
}

// Triggers is the worker-side end of the registration channel.
func (r *ChannelRegistrar) Triggers() <-chan string {
	return r.ch
}

// NoopRegistrar is the unsupported variant: registration is silently
// skipped, never an error.
type NoopRegistrar struct{}

func (NoopRegistrar) Register(string) {}
