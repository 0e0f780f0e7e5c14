// Package event defines the feed record shared by the store, the fetcher and the view.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID identifies an event. Feeds deliver it either as a JSON string or a JSON
// number; both decode to the same textual form.
type ID string

// UnmarshalJSON accepts string and integer ids.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid event id %s: %w", data, err)
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid event id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the id as text.
func (id ID) String() string { return string(id) }

// Event is one feed item.
type Event struct {
	ID          ID      `json:"id" yaml:"id"`
	Type        string  `json:"type" yaml:"type"`
	DatetimeUTC string  `json:"datetime_utc" yaml:"datetime_utc"`
	Title       string  `json:"title" yaml:"title"`
	Popularity  float64 `json:"popularity" yaml:"popularity"`
	URL         string  `json:"url" yaml:"url"`
}

// IDs returns the ids of events in order.
func IDs(events []Event) []ID {
	ids := make([]ID, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}
