// Package mcpserver exposes directory queries as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agentic-research/rollcall/internal/catalog"
	"github.com/agentic-research/rollcall/internal/cohort"
	"github.com/agentic-research/rollcall/internal/directory"
	"github.com/agentic-research/rollcall/internal/loader"
)

// Service is the query surface the tools call.
type Service interface {
	Search(ctx context.Context, c directory.Criteria, page, pageSize int) (catalog.Page, error)
	Facets(ctx context.Context) (directory.Facets, error)
	Student(ctx context.Context, roll string) (catalog.Profile, error)
	Relatives(ctx context.Context, roll string) (directory.Relatives, error)
}

type Server struct {
	svc    Service
	logger *slog.Logger
	mcp    *server.MCPServer
}

// setFilters maps tool arguments to the set criteria they fill.
var setFilters = []struct {
	arg, desc string
	set       func(c *directory.Criteria, v []string)
}{
	{"departments", "Department codes, e.g. CSE", func(c *directory.Criteria, v []string) { c.Departments = v }},
	{"programs", "Programs, e.g. BT", func(c *directory.Criteria, v []string) { c.Programs = v }},
	{"halls", "Halls of residence", func(c *directory.Criteria, v []string) { c.Halls = v }},
	{"genders", "Genders", func(c *directory.Criteria, v []string) { c.Genders = v }},
	{"blood_groups", "Blood groups", func(c *directory.Criteria, v []string) { c.BloodGroups = v }},
	{"states", "Home states", func(c *directory.Criteria, v []string) { c.States = v }},
}

// New registers the directory tools on a fresh MCP server.
func New(svc Service, version string, logger *slog.Logger) *Server {
	s := &Server{
		svc:    svc,
		logger: logger,
		mcp:    server.NewMCPServer("rollcall", version, server.WithToolCapabilities(false)),
	}

	searchOpts := []mcp.ToolOption{
		mcp.WithDescription("Search the student directory. All filters are combined with AND; values within one filter with OR."),
		mcp.WithString("query", mcp.Description("Case-insensitive substring of name, roll number or email")),
		mcp.WithArray("batches", mcp.Description(`Cohorts as years ("2020") or labels ("Y20")`), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithNumber("page", mcp.Description("1-based page number")),
		mcp.WithNumber("page_size", mcp.Description("Results per page, 0 for all")),
	}
	for _, f := range setFilters {
		searchOpts = append(searchOpts, mcp.WithArray(f.arg, mcp.Description(f.desc), mcp.Items(map[string]any{"type": "string"})))
	}
	s.mcp.AddTool(mcp.NewTool("search_students", searchOpts...), s.searchStudents)

	s.mcp.AddTool(mcp.NewTool("get_student",
		mcp.WithDescription("Get one student's profile with their introducer (sg) and introducees"),
		mcp.WithString("roll", mcp.Required(), mcp.Description("Roll number")),
	), s.getStudent)

	s.mcp.AddTool(mcp.NewTool("get_relatives",
		mcp.WithDescription("Get the introducer (sg) and introducees of a roll number"),
		mcp.WithString("roll", mcp.Required(), mcp.Description("Roll number")),
	), s.getRelatives)

	s.mcp.AddTool(mcp.NewTool("list_facets",
		mcp.WithDescription("List the distinct values available for every search filter"),
	), s.listFacets)

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves the tools on stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) searchStudents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c := directory.Criteria{Query: req.GetString("query", "")}
	for _, v := range req.GetStringSlice("batches", nil) {
		y, err := cohort.ParseYear(v)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batches: %v", err)), nil
		}
		c.BatchYears = append(c.BatchYears, y)
	}
	for _, f := range setFilters {
		f.set(&c, req.GetStringSlice(f.arg, nil))
	}

	page, err := s.svc.Search(ctx, c, req.GetInt("page", 1), req.GetInt("page_size", -1))
	if err != nil {
		return s.failure(err), nil
	}
	return jsonResult(page)
}

func (s *Server) getStudent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roll, err := req.RequireString("roll")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.Student(ctx, roll)
	if err != nil {
		return s.failure(err), nil
	}
	return jsonResult(p)
}

func (s *Server) getRelatives(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roll, err := req.RequireString("roll")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rel, err := s.svc.Relatives(ctx, roll)
	if err != nil {
		return s.failure(err), nil
	}
	return jsonResult(rel)
}

func (s *Server) listFacets(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := s.svc.Facets(ctx)
	if err != nil {
		return s.failure(err), nil
	}
	return jsonResult(f)
}

// failure turns a service error into a tool error the model can read.
func (s *Server) failure(err error) *mcp.CallToolResult {
	if resource, ok := loader.ResourceOf(err); ok {
		s.logger.Warn("directory unavailable", "resource", resource, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("directory data unavailable: %s could not be loaded", resource))
	}
	if errors.Is(err, catalog.ErrNotFound) {
		return mcp.NewToolResultError(err.Error())
	}
	s.logger.Error("tool failed", "error", err)
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
