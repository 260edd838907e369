package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/rollcall/api"
	"github.com/agentic-research/rollcall/internal/catalog"
	"github.com/agentic-research/rollcall/internal/loader"
)

type source struct{ failTree bool }

func (s source) Fetch(_ context.Context, r api.Resource) ([]byte, error) {
	switch {
	case r == api.ResourceTree && s.failTree:
		return nil, errors.New("timeout")
	case r == api.ResourceRoster:
		return []byte(`[
			{"rollNo": "200123", "name": "Jane Doe", "department": "CSE", "gender": "F"},
			{"rollNo": "190045", "name": "John Roe", "department": "EE", "gender": "M"}
		]`), nil
	default:
		return []byte(`{"name": "all", "children": [{"name": "John Roe-190045", "children": [{"name": "Jane Doe-200123"}]}]}`), nil
	}
}

func newServer(t *testing.T, src source) *Server {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := catalog.New(loader.New(src, loader.WithLogger(quiet)), 8, catalog.WithLogger(quiet))
	require.NoError(t, err)
	return New(svc, "test", quiet)
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestSearchStudents(t *testing.T) {
	s := newServer(t, source{})

	res, err := s.searchStudents(context.Background(), call(map[string]any{
		"departments": []any{"CSE"},
		"batches":     []any{"Y20"},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var page struct {
		Total    int `json:"total"`
		Students []struct {
			Roll string `json:"rollNo"`
		} `json:"students"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "200123", page.Students[0].Roll)
}

func TestSearchStudents_BadBatch(t *testing.T) {
	s := newServer(t, source{})
	res, err := s.searchStudents(context.Background(), call(map[string]any{"batches": []any{"someday"}}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetStudent(t *testing.T) {
	s := newServer(t, source{})

	res, err := s.getStudent(context.Background(), call(map[string]any{"roll": "200123"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var p struct {
		Student struct {
			Name string `json:"name"`
		} `json:"student"`
		SG struct {
			Roll string `json:"rollNo"`
		} `json:"sg"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &p))
	assert.Equal(t, "Jane Doe", p.Student.Name)
	assert.Equal(t, "190045", p.SG.Roll)

	res, err = s.getStudent(context.Background(), call(map[string]any{"roll": "404404"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "not found")

	res, err = s.getStudent(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetRelatives(t *testing.T) {
	s := newServer(t, source{})

	res, err := s.getRelatives(context.Background(), call(map[string]any{"roll": "190045"}))
	require.NoError(t, err)
	var rel struct {
		SG       *json.RawMessage `json:"sg"`
		Children []struct {
			Roll string `json:"rollNo"`
		} `json:"children"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &rel))
	assert.Nil(t, rel.SG)
	require.Len(t, rel.Children, 1)
	assert.Equal(t, "200123", rel.Children[0].Roll)
}

func TestListFacets(t *testing.T) {
	s := newServer(t, source{})

	res, err := s.listFacets(context.Background(), call(nil))
	require.NoError(t, err)
	var f struct {
		Departments []string `json:"departments"`
		Genders     []string `json:"genders"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &f))
	assert.Equal(t, []string{"CSE", "EE"}, f.Departments)
	assert.Equal(t, []string{"F", "M"}, f.Genders)
}

func TestLoadFailureIsToolError(t *testing.T) {
	s := newServer(t, source{failTree: true})

	res, err := s.listFacets(context.Background(), call(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "tree")
}

func TestToolsRegistered(t *testing.T) {
	s := newServer(t, source{})
	resp := s.MCP().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc": "2.0", "id": 1, "method": "tools/list"}`))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"search_students", "get_student", "get_relatives", "list_facets"} {
		assert.Contains(t, string(raw), `"name":"`+name+`"`)
	}
}
