package mcp

import "event-desk/config"

// AllowedTools returns the tool names the MCP server publishes for cfg.
//
// Read-only tools are always on; load_more calls the remote feed and writes
// the local database, so it needs mcp.allow_load.
func AllowedTools(cfg *config.Config) []string {
	tools := []string{
		"health",
		"feed_status",
		"view_events",
		"view_settings",
	}
	if cfg != nil && cfg.MCP.AllowLoad {
		tools = append(tools, "load_more")
	}
	return tools
}
