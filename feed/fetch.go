package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"event-desk/event"
	"event-desk/validate"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
)

const (
	maxResponseBytes = 8 << 20
	maxErrorBody     = 512
)

// Sentinel errors for classification by callers.
var (
	ErrNetwork = errors.New("network error")
	ErrParse   = errors.New("parse error")
	// ErrRecordsRejected marks a non-empty page on which no record decoded.
	// It always comes wrapped together with ErrParse.
	ErrRecordsRejected = errors.New("every record on the page was rejected")
)

// Rejected is a record dropped from a page because it did not decode or its
// id is invalid.
type Rejected struct {
	Index int
	Err   error
}

// StatusError represents a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// FetchPage requests one page of events. Both arguments must be >= 1.
// Transport failures, non-2xx responses and unreadable bodies wrap ErrNetwork;
// a body without an "events" array, or larger than the response limit, wraps
// ErrParse. Records that do not decode are logged and skipped; a page where
// every record was skipped wraps ErrRecordsRejected. An empty events array
// yields an empty slice and no error.
//
// Network errors are retried only when retries were configured; parse errors
// never are.
func (c *Client) FetchPage(ctx context.Context, page, perPage int) ([]event.Event, error) {
	if err := validate.ValidatePage(page); err != nil {
		return nil, err
	}
	if err := validate.ValidatePerPage(perPage); err != nil {
		return nil, err
	}

	target := c.PageURL(page, perPage)
	if c.retries == 0 {
		return c.fetchOnce(ctx, target)
	}

	var events []event.Event
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.retries)), ctx)
	err := backoff.RetryNotify(func() error {
		var err error
		events, err = c.fetchOnce(ctx, target)
		if errors.Is(err, ErrParse) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		c.logger.Warn("retrying page fetch", "page", page, "wait", wait, "error", err)
	})
	if err != nil {
		if !errors.Is(err, ErrNetwork) && !errors.Is(err, ErrParse) {
			err = fmt.Errorf("%w: failed to fetch page %d: %v", ErrNetwork, page, err)
		}
		return nil, err
	}
	return events, nil
}

func (c *Client) fetchOnce(ctx context.Context, target string) ([]event.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrNetwork, err)
	}
	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("%w: response body exceeds %d bytes", ErrParse, maxResponseBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := body
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: %w", ErrNetwork, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)})
	}

	events, rejected, err := ParseEvents(body)
	if len(rejected) > 0 {
		first := rejected[0]
		c.logger.Warn("skipped undecodable events",
			"rejected", len(rejected),
			"kept", len(events),
			"first_index", first.Index,
			"error", first.Err)
	}
	return events, err
}

// ParseEvents extracts the records of a feed response body. Fields outside the
// event schema are dropped. Each record is decoded on its own: a record with a
// mistyped field or an invalid id is returned in rejected instead of failing
// the page.
func ParseEvents(body []byte) (events []event.Event, rejected []Rejected, err error) {
	if !gjson.ValidBytes(body) {
		return nil, nil, fmt.Errorf("%w: response is not valid JSON", ErrParse)
	}
	field := gjson.GetBytes(body, "events")
	if !field.Exists() {
		return nil, nil, fmt.Errorf("%w: response has no events field", ErrParse)
	}
	if !field.IsArray() {
		return nil, nil, fmt.Errorf("%w: events field is %s, not an array", ErrParse, field.Type)
	}

	records := field.Array()
	events = make([]event.Event, 0, len(records))
	for i, raw := range records {
		var e event.Event
		if err := json.Unmarshal([]byte(raw.Raw), &e); err != nil {
			rejected = append(rejected, Rejected{Index: i, Err: err})
			continue
		}
		if err := validate.ValidateEventID(e.ID.String()); err != nil {
			rejected = append(rejected, Rejected{Index: i, Err: err})
			continue
		}
		events = append(events, e)
	}
	if len(events) == 0 && len(rejected) > 0 {
		return nil, rejected, fmt.Errorf("%w: %w: %d records, first at index %d: %v",
			ErrParse, ErrRecordsRejected, len(rejected), rejected[0].Index, rejected[0].Err)
	}
	return events, rejected, nil
}
