package mcp

import "event-desk/event"

type HealthOut struct {
	Status string `json:"status" jsonschema:"health status (ok)"`
	Time   string `json:"time" jsonschema:"server time in RFC3339"`
}

type FeedStatusOut struct {
	State        string `json:"state" jsonschema:"controller state (init, cache_loaded, idle, exhausted, ...)"`
	Mounted      bool   `json:"mounted" jsonschema:"true once the feed has been loaded in this session"`
	Cursor       int    `json:"cursor" jsonschema:"next page number to request"`
	PerPage      int    `json:"per_page" jsonschema:"page size"`
	ViewSize     int    `json:"view_size" jsonschema:"events held in the session view"`
	Stored       int    `json:"stored" jsonschema:"events in the local database"`
	HasMore      bool   `json:"has_more" jsonschema:"false after the remote feed returned an empty page"`
	DatabasePath string `json:"database_path" jsonschema:"local database file"`
	StoreError   string `json:"store_error,omitempty" jsonschema:"set when the local database cannot be read"`
}

type ViewEventsIn struct {
	Offset int `json:"offset,omitempty" jsonschema:"number of stored events to skip"`
	Limit  int `json:"limit,omitempty" jsonschema:"maximum events to return (default 50, max 500)"`
}

type ViewEventsOut struct {
	Events []event.Event `json:"events" jsonschema:"stored events in arrival order"`
	Total  int           `json:"total" jsonschema:"events in the local database"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

type LoadMoreIn struct {
	Pages int `json:"pages,omitempty" jsonschema:"number of pages to load (default 1, max 10)"`
}

type PageResult struct {
	Page      int    `json:"page" jsonschema:"page requested (0 when served from cache)"`
	CacheHit  bool   `json:"cache_hit,omitempty"`
	Fetched   int    `json:"fetched" jsonschema:"events returned by the remote feed"`
	Persisted int    `json:"persisted" jsonschema:"events written to the local database"`
	Added     int    `json:"added" jsonschema:"events new to the view"`
	Error     string `json:"error,omitempty" jsonschema:"fetch or persist failure"`
	Exhausted bool   `json:"exhausted,omitempty"`
}

type LoadMoreOut struct {
	Pages    []PageResult `json:"pages"`
	Cursor   int          `json:"cursor"`
	ViewSize int          `json:"view_size"`
	HasMore  bool         `json:"has_more"`
}

type ViewSettingsOut struct {
	APIURL       string `json:"api_url"`
	APIToken     string `json:"api_token"`
	PerPage      int    `json:"per_page"`
	Timeout      string `json:"timeout"`
	Retries      int    `json:"retries"`
	CursorPolicy string `json:"cursor_policy"`
	DatabasePath string `json:"database_path"`
	MCP          struct {
		AllowLoad bool `json:"allow_load"`
	} `json:"mcp"`
	MetricsListen string `json:"metrics_listen,omitempty"`
}
