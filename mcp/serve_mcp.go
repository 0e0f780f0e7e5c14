package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	appcfg "event-desk/config"
	"event-desk/pager"
	"event-desk/store"
	v "event-desk/validate"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultViewLimit = 50
	maxLoadPages     = 10
)

// Backend is the feed session the tools operate on.
type Backend struct {
	Store      *store.Store
	Controller *pager.Controller
}

type toolset struct {
	cfg  *appcfg.Config
	st   *store.Store
	feed *pager.Controller
}

// Serve starts the MCP server using the go-sdk over stdio.
func Serve(ctx context.Context, cfg *appcfg.Config, backend Backend, version string) error {
	srv, err := NewServer(cfg, backend, version)
	if err != nil {
		return err
	}
	return srv.Run(ctx, &sdk.StdioTransport{})
}

// NewServer builds the MCP server with the tools AllowedTools publishes for cfg.
func NewServer(cfg *appcfg.Config, backend Backend, version string) (*sdk.Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required to start MCP server")
	}
	if backend.Store == nil || backend.Controller == nil {
		return nil, fmt.Errorf("store and feed controller are required to start MCP server")
	}
	if version == "" {
		version = "dev"
	}
	t := &toolset{cfg: cfg, st: backend.Store, feed: backend.Controller}

	impl := &sdk.Implementation{
		Name:    "event-desk",
		Title:   "event-desk MCP",
		Version: version,
	}
	srv := sdk.NewServer(impl, &sdk.ServerOptions{HasTools: true, HasResources: true})
	registerDocsResources(srv)

	sdk.AddTool[struct{}, HealthOut](srv, &sdk.Tool{
		Name:        "health",
		Title:       "Health Check",
		Description: "Returns server health status.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, func(_ context.Context, _ *sdk.CallToolRequest, _ struct{}) (*sdk.CallToolResult, HealthOut, error) {
		return nil, HealthOut{Status: "ok", Time: time.Now().UTC().Format(time.RFC3339)}, nil
	})

	sdk.AddTool[struct{}, FeedStatusOut](srv, &sdk.Tool{
		Name:        "feed_status",
		Title:       "Feed Status",
		Description: "Report the session cursor, view size and local database count. Usage: " + docsToolsURI + "#feed_status.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, func(ctx context.Context, _ *sdk.CallToolRequest, _ struct{}) (*sdk.CallToolResult, FeedStatusOut, error) {
		return nil, t.feedStatus(ctx), nil
	})

	sdk.AddTool[ViewEventsIn, ViewEventsOut](srv, &sdk.Tool{
		Name:        "view_events",
		Title:       "View Events",
		Description: "List events from the local database in arrival order. Pass {\"offset\":0,\"limit\":50}. Usage: " + docsToolsURI + "#view_events.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"offset": {
					Type:        "integer",
					Description: "Number of stored events to skip.",
					Minimum:     floatPtr(0),
				},
				"limit": {
					Type:        "integer",
					Description: fmt.Sprintf("Maximum events to return (default %d, max %d).", defaultViewLimit, v.ViewLimitMax),
					Minimum:     floatPtr(1),
					Maximum:     floatPtr(v.ViewLimitMax),
				},
			},
		},
	}, func(ctx context.Context, _ *sdk.CallToolRequest, in ViewEventsIn) (*sdk.CallToolResult, ViewEventsOut, error) {
		out, err := t.viewEvents(ctx, in)
		if err != nil {
			return &sdk.CallToolResult{}, ViewEventsOut{}, err
		}
		return nil, out, nil
	})

	sdk.AddTool[struct{}, ViewSettingsOut](srv, &sdk.Tool{
		Name:        "view_settings",
		Title:       "View Settings",
		Description: "Show the active configuration with the API token masked.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, func(_ context.Context, _ *sdk.CallToolRequest, _ struct{}) (*sdk.CallToolResult, ViewSettingsOut, error) {
		return nil, maskConfig(cfg), nil
	})

	// load_more calls the remote feed and writes the database: gated by AllowLoad
	if cfg.MCP.AllowLoad {
		sdk.AddTool[LoadMoreIn, LoadMoreOut](srv, &sdk.Tool{
			Name:        "load_more",
			Title:       "Load More Events",
			Description: "Fetch the next page(s) of the remote feed, store them and extend the session view. Usage: " + docsToolsURI + "#load_more.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"pages": {
						Type:        "integer",
						Description: fmt.Sprintf("Number of pages to load (default 1, max %d).", maxLoadPages),
						Minimum:     floatPtr(1),
						Maximum:     floatPtr(maxLoadPages),
					},
				},
			},
		}, func(ctx context.Context, _ *sdk.CallToolRequest, in LoadMoreIn) (*sdk.CallToolResult, LoadMoreOut, error) {
			out, err := t.loadMore(ctx, in)
			if err != nil {
				return &sdk.CallToolResult{}, LoadMoreOut{}, err
			}
			return nil, out, nil
		})
	}

	return srv, nil
}

func floatPtr(f float64) *float64 { return &f }

func (t *toolset) feedStatus(ctx context.Context) FeedStatusOut {
	out := FeedStatusOut{
		State:        t.feed.State().String(),
		Mounted:      t.feed.Mounted(),
		Cursor:       t.feed.Cursor(),
		PerPage:      t.feed.PerPage(),
		ViewSize:     t.feed.Len(),
		HasMore:      t.feed.HasMore(),
		DatabasePath: t.st.Path(),
	}
	n, err := t.st.Count(ctx)
	if err != nil {
		out.StoreError = err.Error()
	}
	out.Stored = n
	return out
}

func (t *toolset) viewEvents(ctx context.Context, in ViewEventsIn) (ViewEventsOut, error) {
	limit := in.Limit
	if limit == 0 {
		limit = defaultViewLimit
	}
	if limit < 1 || limit > v.ViewLimitMax {
		return ViewEventsOut{}, fmt.Errorf("limit must be between 1 and %d, got %d", v.ViewLimitMax, in.Limit)
	}
	if in.Offset < 0 {
		return ViewEventsOut{}, fmt.Errorf("offset must not be negative, got %d", in.Offset)
	}

	events, err := t.st.GetAll(ctx)
	if err != nil {
		return ViewEventsOut{}, fmt.Errorf("failed to list events: %w", err)
	}
	out := ViewEventsOut{Total: len(events), Offset: in.Offset, Limit: limit}
	start := min(in.Offset, len(events))
	end := min(start+limit, len(events))
	out.Events = events[start:end]
	return out, nil
}

func (t *toolset) loadMore(ctx context.Context, in LoadMoreIn) (LoadMoreOut, error) {
	pages := in.Pages
	if pages == 0 {
		pages = 1
	}
	if pages < 1 || pages > maxLoadPages {
		return LoadMoreOut{}, fmt.Errorf("pages must be between 1 and %d, got %d", maxLoadPages, in.Pages)
	}

	var out LoadMoreOut
	for loaded := 0; loaded < pages; {
		o, err := t.next(ctx)
		if err != nil {
			return LoadMoreOut{}, err
		}
		out.Pages = append(out.Pages, pageResult(o))
		if o.CacheHit {
			continue
		}
		loaded++
		if o.Exhausted || o.FetchErr != nil {
			break
		}
	}
	out.Cursor = t.feed.Cursor()
	out.ViewSize = t.feed.Len()
	out.HasMore = t.feed.HasMore()
	return out, nil
}

// next mounts the session on first use and loads the next page afterwards.
func (t *toolset) next(ctx context.Context) (pager.Outcome, error) {
	if !t.feed.Mounted() {
		o, err := t.feed.Mount(ctx)
		if !errors.Is(err, pager.ErrAlreadyMounted) {
			return o, err
		}
	}
	return t.feed.LoadNext(ctx)
}

func pageResult(o pager.Outcome) PageResult {
	r := PageResult{
		Page:      o.Page,
		CacheHit:  o.CacheHit,
		Fetched:   o.Fetched,
		Persisted: o.Merge.Persisted,
		Added:     o.Merge.Added,
		Exhausted: o.Exhausted,
	}
	switch {
	case o.FetchErr != nil:
		r.Error = o.FetchErr.Error()
	case o.Merge.Err != nil:
		r.Error = o.Merge.Err.Error()
	}
	return r
}

func maskConfig(cfg *appcfg.Config) ViewSettingsOut {
	if cfg == nil {
		return ViewSettingsOut{}
	}
	out := ViewSettingsOut{
		APIURL:        cfg.APIURL,
		APIToken:      appcfg.MaskSecret(cfg.APIToken),
		PerPage:       cfg.PerPage,
		Timeout:       cfg.Timeout.String(),
		Retries:       cfg.Retries,
		CursorPolicy:  cfg.CursorPolicy,
		DatabasePath:  cfg.DatabasePath,
		MetricsListen: cfg.MetricsListen,
	}
	out.MCP.AllowLoad = cfg.MCP.AllowLoad
	return out
}
