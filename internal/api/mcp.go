package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/auraarchive/aura/internal/app"
	"github.com/auraarchive/aura/internal/catalog"
)

// NewMCPServer creates an MCP server exposing the catalog to agent clients
// over stdio.
func NewMCPServer(a *app.App, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"aura",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("aura — personal wardrobe and beauty product catalog: search it, add items, ask for styling or usage advice."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_catalog",
			mcp.WithDescription("Search the catalog by free text, optionally narrowed to one item type."),
			mcp.WithString("query", mcp.Description("Free-text search over name, brand and category")),
			mcp.WithString("type", mcp.Description(`Item type filter: "clothing" or "beauty"`)),
		),
		mcpSearchCatalog(a),
	)

	s.AddTool(
		mcp.NewTool("add_item",
			mcp.WithDescription("Add an item to the catalog."),
			mcp.WithString("name", mcp.Description("Item name"), mcp.Required()),
			mcp.WithString("type", mcp.Description(`"clothing" or "beauty"`), mcp.Required()),
			mcp.WithString("brand", mcp.Description("Brand name")),
			mcp.WithString("category", mcp.Description(`Category, e.g. "Jacket" or "Serum"`)),
			mcp.WithString("notes", mcp.Description("Free-form notes")),
		),
		mcpAddItem(a),
	)

	s.AddTool(
		mcp.NewTool("item_advice",
			mcp.WithDescription("Get a styling tip (clothing) or usage tip (beauty) for one catalog item."),
			mcp.WithString("id", mcp.Description("Catalog item id"), mcp.Required()),
		),
		mcpItemAdvice(a),
	)

	s.AddResource(
		mcp.NewResource(
			"aura://catalog",
			"Catalog",
			mcp.WithResourceDescription("The full catalog as a JSON array, most recently updated first"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCatalog(a),
	)

	return s
}

func mcpSearchCatalog(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		f := catalog.Filter{
			Search: req.GetString("query", ""),
			Type:   catalog.ItemType(req.GetString("type", "")),
		}

		items := a.Filtered(f)
		if items == nil {
			items = []catalog.Item{}
		}
		b, err := json.Marshal(items)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAddItem(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		typ := catalog.ItemType(req.GetString("type", ""))
		if typ != catalog.TypeClothing && typ != catalog.TypeBeauty {
			return mcpError(fmt.Sprintf("type must be %q or %q", catalog.TypeClothing, catalog.TypeBeauty)), nil
		}

		stored, err := a.Save(catalog.Item{
			Name:     name,
			Type:     typ,
			Brand:    req.GetString("brand", ""),
			Category: req.GetString("category", ""),
			Notes:    req.GetString("notes", ""),
			Status:   catalog.StatusInStock,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to save item: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Added %s (%s)", stored.Name, stored.ID)), nil
	}
}

func mcpItemAdvice(a *app.App) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		advice, err := a.Advice(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("advice failed: %v", err)), nil
		}
		return mcpText(advice), nil
	}
}

func mcpResourceCatalog(a *app.App) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		items := a.Items()
		if items == nil {
			items = []catalog.Item{}
		}
		b, err := json.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal catalog: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
