package mcp

import (
	"context"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	docsMIMEType    = "text/markdown"
	docsOverviewURI = "resource://event-desk/mcp-overview"
	docsToolsURI    = "resource://event-desk/mcp-tools"
)

type docsResource struct {
	uri, name, title, description, body string
}

var docsResources = []docsResource{
	{
		uri:         docsOverviewURI,
		name:        "mcp-overview",
		title:       "event-desk MCP Overview",
		description: "How the event-desk MCP server shares the local database and how load_more is gated.",
		body:        mcpOverviewMarkdown,
	},
	{
		uri:         docsToolsURI,
		name:        "mcp-tools",
		title:       "event-desk MCP Tools",
		description: "Reference for every published tool with sample JSON inputs and response hints.",
		body:        mcpToolsMarkdown,
	},
}

func registerDocsResources(srv *sdk.Server) {
	for _, res := range docsResources {
		srv.AddResource(&sdk.Resource{
			URI:         res.uri,
			Name:        res.name,
			Title:       res.title,
			Description: res.description,
			MIMEType:    docsMIMEType,
		}, staticMarkdownResource(res.uri, res.body))
	}
}

func staticMarkdownResource(uri, body string) sdk.ResourceHandler {
	return func(_ context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
		if req != nil && req.Params != nil {
			target := req.Params.URI
			if idx := strings.IndexByte(target, '#'); idx >= 0 {
				target = target[:idx]
			}
			if target != "" && target != uri {
				return nil, sdk.ResourceNotFoundError(target)
			}
		}
		return &sdk.ReadResourceResult{
			Contents: []*sdk.ResourceContents{
				{
					URI:      uri,
					MIMEType: docsMIMEType,
					Text:     body,
				},
			},
		}, nil
	}
}

const mcpOverviewMarkdown = `# event-desk MCP Overview

Use this document to understand what the server reads and writes before calling tools.

## Launch checklist
1. Set api_url (or EVENT_DESK_API_URL) in ~/.config/event-desk/config.yaml. Add api_token when the feed needs a bearer token.
2. Set mcp.allow_load:true if agents may call the remote feed through load_more.
3. Optionally point database_path or EVENT_DESK_DB_PATH to a location shared with the CLI.
4. Start the server with: event-desk mcp --debug --config /path/to/config.yaml.
5. Set metrics_listen (for example 127.0.0.1:9464) to expose Prometheus metrics at /metrics.

## Session model
- The server owns one feed session. The first load_more mounts it: a non-empty database is served as-is, an empty one fetches page 1.
- The page cursor lives only in this session. Restarting the server starts again at page 1.
- A failed fetch does not change the view. With cursor_policy:success (default) the next load_more retries the same page.
- An empty page ends the feed; feed_status reports has_more:false and further load_more calls return without fetching.

## Resource catalog
| URI | Summary |
| --- | --- |
| resource://event-desk/mcp-overview | You are here: start-up, session model, and database notes. |
| resource://event-desk/mcp-tools | Usage for every tool plus JSON examples. |
`

const mcpToolsMarkdown = `# event-desk MCP Tools

## Read-only (always available)
| Tool | Purpose | Sample Input | Response Hints |
| --- | --- | --- | --- |
| health | Readiness check | {} | status, time |
| feed_status | Session and database summary | {} | state, cursor, view_size, stored, has_more |
| view_events | Stored events in arrival order | {"offset":0,"limit":50} | events[] with id, type, datetime_utc, title, popularity, url; total |
| view_settings | Masked configuration | {} | api_token is masked |

## load_more (requires allow_load)
| Tool | Purpose | Sample Input | Notes |
| --- | --- | --- | --- |
| load_more | Fetch the next page(s) and merge them | {"pages":1} | pages[] reports fetched, persisted, added and any error per page |

Records are upserted by id: fetching a page twice never duplicates events.
`
