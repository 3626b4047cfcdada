// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Sowilo gallery tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sowilo/internal/gallery"
	"github.com/starford/sowilo/internal/models"
)

// Server wraps the MCP server with Sowilo tools.
type Server struct {
	mcp   *server.MCPServer
	ctrl  *gallery.Controller
	query *gallery.Query
}

// New creates a new MCP server with all gallery tools registered.
func New(ctrl *gallery.Controller, query *gallery.Query) *Server {
	s := &Server{ctrl: ctrl, query: query}

	s.mcp = server.NewMCPServer(
		"Sowilo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_photos",
		mcp.WithDescription("Search photo captions and keywords. Matches caption substrings and keyword membership, case-insensitively."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Keyword or caption fragment")),
	), s.searchPhotos)

	s.mcp.AddTool(mcp.NewTool("get_photo",
		mcp.WithDescription("Get a photo's caption, keywords, and file fingerprint."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the photo (e.g. albums/beach.jpg)")),
	), s.getPhoto)

	s.mcp.AddTool(mcp.NewTool("list_photos",
		mcp.WithDescription("List indexed photos in stable path order."),
		mcp.WithNumber("page", mcp.Description("Page number, 1-based (default 1)")),
	), s.listPhotos)

	s.mcp.AddTool(mcp.NewTool("update_photo_tags",
		mcp.WithDescription("Replace a photo's caption and keywords. Keywords follow the conventions "+
			"in the sowilo://tagging resource; read it before writing tags."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the photo")),
		mcp.WithString("caption", mcp.Description("New caption (empty clears it)")),
		mcp.WithString("keywords", mcp.Description("Comma-separated keywords")),
	), s.updatePhotoTags)

	// Resource: tagging conventions.
	s.mcp.AddResource(
		mcp.NewResource("sowilo://tagging", "Tagging Conventions",
			mcp.WithResourceDescription("Caption and keyword conventions for photos in this gallery."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTaggingResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchPhotos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var results []models.Photo
	for p := range s.query.Search(query) {
		results = append(results, p)
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no photos matched"), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getPhoto(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	photo, err := s.query.Get(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	out, _ := json.MarshalIndent(photo, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listPhotos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 1)

	photos := s.query.List(page, gallery.DefaultPageSize)
	if len(photos) == 0 {
		return mcp.NewToolResultText("no photos on this page"), nil
	}
	var paths []string
	for _, p := range photos {
		paths = append(paths, p.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) updatePhotoTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags := models.Tags{Caption: req.GetString("caption", "")}
	for _, kw := range strings.Split(req.GetString("keywords", ""), ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			tags.Keywords = append(tags.Keywords, kw)
		}
	}

	photo, err := s.ctrl.ApplyEdit(path, tags)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(photo, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readTaggingResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "sowilo://tagging",
			MIMEType: "text/markdown",
			Text:     TaggingConventions,
		},
	}, nil
}
