package walker

import "time"

// Operation is the kind of change a watcher detected.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a single coarse change to an indexable path.
type FileEvent struct {
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// DebounceWindow is how long burst changes to the same path collapse
	// into one coalesced event. Default: 500ms.
	DebounceWindow time.Duration
	// PollInterval is the scan interval used by the polling fallback.
	// Default: 5s.
	PollInterval time.Duration
	// EventBufferSize bounds the output channel.
	EventBufferSize int
}

// DefaultWatchOptions returns the default watcher configuration.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
	}
}

func (o WatchOptions) withDefaults() WatchOptions {
	d := DefaultWatchOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = d.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = d.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = d.EventBufferSize
	}
	return o
}
