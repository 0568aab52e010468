package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindmap-backend/application/commands"
	"mindmap-backend/application/services"
	"mindmap-backend/infrastructure/chatkit"
	"mindmap-backend/infrastructure/persistence/memory"
	"mindmap-backend/interfaces/http/rest"
	"mindmap-backend/pkg/auth"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	logger := zap.NewNop()
	service := services.NewMindmapService(memory.NewMindmapStore(), commands.Limits{}, logger)
	issuer, err := auth.NewSessionIssuer("ctl-test", false, logger)
	require.NoError(t, err)
	sessions := chatkit.NewClient(chatkit.DefaultConfig("", "http://127.0.0.1:1"), nil, logger)

	server := httptest.NewServer(rest.NewRouter(rest.RouterConfig{}, service, sessions, issuer, nil, logger).Setup())
	t.Cleanup(server.Close)
	return server.URL
}

func run(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--server", server))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	server := newTestServer(t)

	out, err := run(t, server, "show", "-m", "demo")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Project Planning (demo)\n"))
	assert.Contains(t, out, "- Goals [goals]")

	out, err = run(t, server, "add-branch", "-m", "demo", "goals", "Ship", "Hire")
	require.NoError(t, err)
	assert.Contains(t, out, "added 2 node(s) node_")

	out, err = run(t, server, "toggle", "-m", "demo", "goals")
	require.NoError(t, err)
	assert.Contains(t, out, "+ Goals [goals]")
	assert.NotContains(t, out, "Increase Revenue")

	out, err = run(t, server, "update-node", "-m", "demo", "timeline", "Roadmap")
	require.NoError(t, err)
	assert.Contains(t, out, "Roadmap [timeline]")

	_, err = run(t, server, "delete-node", "-m", "demo", "root")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot delete root node (invalid_operation)")

	out, err = run(t, server, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "sample-mindmap")

	out, err = run(t, server, "reset", "-m", "demo", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Project Planning"`)
}

type scriptedReader struct {
	lines []string
}

func (r *scriptedReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func TestRunShell(t *testing.T) {
	server := newTestServer(t)
	var out bytes.Buffer
	reader := &scriptedReader{lines: []string{
		"",
		`add-node root "Open questions"`,
		"delete-node nope",
		"show",
		"exit",
		"show",
	}}

	err := runShell(context.Background(), reader, &out, &globalOptions{server: server, mindmapID: "sh"})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "added node_")
	assert.Contains(t, text, "Error: node nope not found (not_found)")
	assert.Contains(t, text, "- Open questions [node_")
	assert.Equal(t, 1, strings.Count(text, "Project Planning (sh)"))
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{input: "show", want: []string{"show"}},
		{input: `add-node root "two words"`, want: []string{"add-node", "root", "two words"}},
		{input: `update-node n1 ""`, want: []string{"update-node", "n1", ""}},
		{input: "  spaced   out  ", want: []string{"spaced", "out"}},
		{input: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseArgs(tt.input))
		})
	}
}
