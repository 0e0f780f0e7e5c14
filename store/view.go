package store

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"event-desk/event"
)

// printTableHeader prints a tab-separated header row followed by a matching underline row.
// Example: printTableHeader(w, "ID", "Title") outputs:
// ID	Title
// --	-----
func printTableHeader(w io.Writer, columns ...string) {
	if len(columns) == 0 {
		return
	}
	fmt.Fprintln(w, strings.Join(columns, "\t"))

	under := make([]string, len(columns))
	for i, col := range columns {
		width := utf8.RuneCountInString(col)
		if width <= 0 {
			width = 1
		}
		under[i] = strings.Repeat("-", width)
	}
	fmt.Fprintln(w, strings.Join(under, "\t"))
}

// RenderEvents writes events to w in the requested format. The JSON and YAML
// forms wrap the list in an "events" key, mirroring the feed response.
func RenderEvents(w io.Writer, events []event.Event, format OutputFormat) error {
	tableFn := func() error {
		if len(events) == 0 {
			fmt.Fprintln(w, "No events stored.")
			fmt.Fprintln(w, "Run 'event-desk load' first to populate the local cache.")
			return nil
		}
		printTableHeader(w, "ID", "Type", "DateTime (UTC)", "Popularity", "Title", "URL")

		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.ID,
				e.Type,
				e.DatetimeUTC,
				strconv.FormatFloat(e.Popularity, 'f', -1, 64),
				e.Title,
				e.URL,
			)
		}
		return nil
	}

	payload := struct {
		Events []event.Event `json:"events" yaml:"events"`
	}{Events: events}
	if payload.Events == nil {
		payload.Events = []event.Event{}
	}
	return Render(w, format, tableFn, payload)
}
