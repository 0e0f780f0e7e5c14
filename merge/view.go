// Package merge combines freshly fetched events with the local store and the
// in-memory view.
package merge

import "event-desk/event"

// Append concatenates incoming after existing, preserving arrival order. It
// does not deduplicate and does not modify either argument.
func Append(existing, incoming []event.Event) []event.Event {
	out := make([]event.Event, 0, len(existing)+len(incoming))
	out = append(out, existing...)
	return append(out, incoming...)
}

// View is an ordered set of events keyed by id. A repeated id keeps its first
// position and takes the new value. The zero value is ready to use; View is
// not safe for concurrent use.
type View struct {
	events []event.Event
	index  map[event.ID]int
}

// NewView builds a view holding events in order.
func NewView(events []event.Event) *View {
	v := &View{}
	v.Replace(events)
	return v
}

// Append adds events in order and reports how many were new and how many
// replaced an existing entry.
func (v *View) Append(events []event.Event) (added, replaced int) {
	if v.index == nil {
		v.index = make(map[event.ID]int, len(events))
	}
	for _, e := range events {
		if i, ok := v.index[e.ID]; ok {
			v.events[i] = e
			replaced++
			continue
		}
		v.index[e.ID] = len(v.events)
		v.events = append(v.events, e)
		added++
	}
	return added, replaced
}

// Replace discards the current contents and loads events.
func (v *View) Replace(events []event.Event) {
	v.events = nil
	v.index = make(map[event.ID]int, len(events))
	v.Append(events)
}

// Events returns a copy of the view in order.
func (v *View) Events() []event.Event {
	out := make([]event.Event, len(v.events))
	copy(out, v.events)
	return out
}

// Len returns the number of distinct events.
func (v *View) Len() int { return len(v.events) }

// Get looks an event up by id.
func (v *View) Get(id event.ID) (event.Event, bool) {
	i, ok := v.index[id]
	if !ok {
		return event.Event{}, false
	}
	return v.events[i], true
}
