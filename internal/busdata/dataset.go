package busdata

import (
	"context"
	"fmt"
	"time"
)

// Dataset is an immutable snapshot of telemetry shared by every request.
type Dataset struct {
	events   []Event
	source   string
	loadedAt time.Time
}

// NewDataset snapshots events. The slice is copied so later changes by the caller
// are not visible to readers.
func NewDataset(source string, events []Event) *Dataset {
	cp := make([]Event, len(events))
	copy(cp, events)
	return &Dataset{
		events:   cp,
		source:   source,
		loadedAt: time.Now(),
	}
}

// LoadDataset loads a Dataset from src.
func LoadDataset(ctx context.Context, src Source) (*Dataset, error) {
	events, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading telemetry from %s: %w", src.Name(), err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("loading telemetry from %s: %w", src.Name(), ErrNoEvents)
	}
	return NewDataset(src.Name(), events), nil
}

// Events returns the events in arrival order. Callers must treat the slice as read-only.
func (d *Dataset) Events() []Event {
	return d.events
}

// Len returns the number of events.
func (d *Dataset) Len() int {
	return len(d.events)
}

// Source returns the name of the source the snapshot came from.
func (d *Dataset) Source() string {
	return d.source
}

// LoadedAt returns when the snapshot was taken.
func (d *Dataset) LoadedAt() time.Time {
	return d.loadedAt
}
