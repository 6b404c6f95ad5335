package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/repodock/repodock/internal/core"
	"github.com/repodock/repodock/internal/launcher"
	"github.com/repodock/repodock/internal/store"
)

type fakeSpawner struct {
	attempts []string
	fail     bool
}

func (f *fakeSpawner) Start(name string, args ...string) error {
	f.attempts = append(f.attempts, name)
	if f.fail {
		return fmt.Errorf("spawn %s: executable not found", name)
	}
	return nil
}

type testEnv struct {
	server  *Server
	store   *store.Store
	spawner *fakeSpawner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(filepath.Join(t.TempDir(), "store.json"), logger)
	clock := func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	sp := &fakeSpawner{}
	open := launcher.New(logger, launcher.WithSpawner(sp), launcher.WithGOOS("linux"))

	srv := NewServer("", core.NewRepoService(st, clock), core.NewCollectionService(st, clock), open, logger)
	srv.getwd = func() (string, error) { return "/fixed/cwd", nil }
	return &testEnv{server: srv, store: st, spawner: sp}
}

func (e *testEnv) call(t *testing.T, method string, params any) jsonRPCResponse {
	t.Helper()
	req := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		req["params"] = params
	}
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := e.server.Serve(bytes.NewReader(append(line, '\n')), &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	var resp jsonRPCResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", out.String(), err)
	}
	return resp
}

func (e *testEnv) callTool(t *testing.T, tool string, args any) jsonRPCResponse {
	t.Helper()
	return e.call(t, "tools/call", map[string]any{"name": tool, "arguments": args})
}

func resultText(t *testing.T, resp jsonRPCResponse) (string, bool) {
	t.Helper()
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("expected object result, got %#v (error: %+v)", resp.Result, resp.Error)
	}
	content := result["content"].([]any)
	text := content[0].(map[string]any)["text"].(string)
	isErr, _ := result["isError"].(bool)
	return text, isErr
}

func TestInitialize(t *testing.T) {
	e := newTestEnv(t)
	resp := e.call(t, "initialize", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]any)
	info := result["serverInfo"].(map[string]any)
	if info["name"] != "repodock" {
		t.Fatalf("unexpected server info: %v", info)
	}
}

func TestToolsList(t *testing.T) {
	e := newTestEnv(t)
	resp := e.call(t, "tools/list", nil)
	tools := resp.Result.(map[string]any)["tools"].([]any)
	if len(tools) != 10 {
		t.Fatalf("expected 10 tools, got %d", len(tools))
	}
}

func TestUnknownMethod(t *testing.T) {
	e := newTestEnv(t)
	resp := e.call(t, "bogus/method", nil)
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("expected -32601, got %+v", resp.Error)
	}
}

func TestParseError(t *testing.T) {
	e := newTestEnv(t)
	var out bytes.Buffer
	if err := e.server.Serve(strings.NewReader("{nope\n"), &out); err != nil {
		t.Fatalf("serve: %v", err)
	}
	var resp jsonRPCResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != -32700 {
		t.Fatalf("expected -32700, got %+v", resp.Error)
	}
}

func TestUnknownTool(t *testing.T) {
	e := newTestEnv(t)
	resp := e.callTool(t, "no-such-tool", map[string]any{})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected -32602, got %+v", resp.Error)
	}
}

func TestAddGetRepoRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	dir := t.TempDir()

	resp := e.callTool(t, "add-repo", map[string]any{"name": "Foo", "path": dir})
	text, isErr := resultText(t, resp)
	if isErr {
		t.Fatalf("add-repo failed: %s", text)
	}

	resp = e.callTool(t, "get-repo", map[string]any{"name": "  FOO "})
	text, isErr = resultText(t, resp)
	if isErr {
		t.Fatalf("get-repo failed: %s", text)
	}
	want, _ := filepath.Abs(dir)
	if text != want {
		t.Fatalf("expected %q, got %q", want, text)
	}
}

func TestAddRepoValidation(t *testing.T) {
	e := newTestEnv(t)

	resp := e.callTool(t, "add-repo", map[string]any{"path": "/tmp"})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected shape validation error, got %+v", resp.Error)
	}

	resp = e.callTool(t, "add-repo", map[string]any{"name": "x"})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected shape validation error, got %+v", resp.Error)
	}
}

func TestAddRepoInvalidPathIsToolError(t *testing.T) {
	e := newTestEnv(t)

	resp := e.callTool(t, "add-repo", map[string]any{"name": "x", "path": "/definitely/not/there"})
	if resp.Error != nil {
		t.Fatalf("domain failures must not be transport errors: %+v", resp.Error)
	}
	text, isErr := resultText(t, resp)
	if !isErr || !strings.Contains(text, "invalid path") {
		t.Fatalf("expected invalid path tool error, got %q (isError=%v)", text, isErr)
	}
}

func TestAddRepoDuplicate(t *testing.T) {
	e := newTestEnv(t)
	dir := t.TempDir()

	e.callTool(t, "add-repo", map[string]any{"name": "foo", "path": dir})
	resp := e.callTool(t, "add-repo", map[string]any{"name": "foo", "path": dir})
	text, isErr := resultText(t, resp)
	if !isErr || !strings.Contains(text, "already registered") {
		t.Fatalf("expected already-exists tool error, got %q", text)
	}
}

func TestListReposEmptyAndTypeValidation(t *testing.T) {
	e := newTestEnv(t)

	resp := e.callTool(t, "list-repos", map[string]any{})
	text, _ := resultText(t, resp)
	if !strings.Contains(text, "No repositories registered.") || !strings.Contains(text, "No collections registered.") {
		t.Fatalf("unexpected empty listing: %q", text)
	}

	resp = e.callTool(t, "list-repos", map[string]any{"type": "bogus"})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected enum validation error, got %+v", resp.Error)
	}
}

func TestListReposRecoversFromCorruptStore(t *testing.T) {
	e := newTestEnv(t)
	if err := os.MkdirAll(filepath.Dir(e.store.Path()), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(e.store.Path(), []byte("###"), 0o600); err != nil {
		t.Fatal(err)
	}

	resp := e.callTool(t, "list-repos", map[string]any{"type": "repos"})
	text, isErr := resultText(t, resp)
	if isErr {
		t.Fatalf("corrupt store must self-heal, got error %q", text)
	}
	if !strings.Contains(text, "No repositories registered.") {
		t.Fatalf("expected empty listing after recovery, got %q", text)
	}
}

func TestInitRepoUsesWorkingDirectory(t *testing.T) {
	e := newTestEnv(t)

	resp := e.callTool(t, "init-repo", map[string]any{"name": "Here"})
	text, isErr := resultText(t, resp)
	if isErr {
		t.Fatalf("init-repo failed: %s", text)
	}
	if !strings.Contains(text, "/fixed/cwd") {
		t.Fatalf("expected working directory in result, got %q", text)
	}
}

func TestAddCollectionMissingRepos(t *testing.T) {
	e := newTestEnv(t)
	e.callTool(t, "add-repo", map[string]any{"name": "foo", "path": t.TempDir()})

	resp := e.callTool(t, "add-collection", map[string]any{"name": "team", "repos": "foo,bar"})
	text, isErr := resultText(t, resp)
	if !isErr || !strings.Contains(text, "unknown repositories: bar") {
		t.Fatalf("expected missing repos error, got %q", text)
	}

	resp = e.callTool(t, "list-collection", nil)
	text, _ = resultText(t, resp)
	if text != "No collections registered." {
		t.Fatalf("no partial collection may exist, got %q", text)
	}
}

func TestOpenRepo(t *testing.T) {
	e := newTestEnv(t)
	e.callTool(t, "add-repo", map[string]any{"name": "foo", "path": t.TempDir()})

	resp := e.callTool(t, "open-repo", map[string]any{"name": "foo", "ide": "vs"})
	text, isErr := resultText(t, resp)
	if isErr {
		t.Fatalf("open-repo failed: %s", text)
	}
	if len(e.spawner.attempts) != 1 {
		t.Fatalf("expected one spawn attempt, got %v", e.spawner.attempts)
	}

	resp = e.callTool(t, "open-repo", map[string]any{"name": "foo", "ide": "vim"})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected editor enum validation error, got %+v", resp.Error)
	}
}

func TestOpenRepoEditorNotFound(t *testing.T) {
	e := newTestEnv(t)
	e.spawner.fail = true
	e.callTool(t, "add-repo", map[string]any{"name": "foo", "path": t.TempDir()})

	resp := e.callTool(t, "open-repo", map[string]any{"name": "foo", "ide": "cs"})
	text, isErr := resultText(t, resp)
	if !isErr || !strings.Contains(text, "not found") {
		t.Fatalf("expected editor-not-found tool error, got %q", text)
	}
}

func TestOpenCollectionToleratesDanglingMembers(t *testing.T) {
	e := newTestEnv(t)
	e.callTool(t, "add-repo", map[string]any{"name": "foo", "path": t.TempDir()})
	e.callTool(t, "add-repo", map[string]any{"name": "bar", "path": t.TempDir()})
	e.callTool(t, "add-collection", map[string]any{"name": "team", "repos": "foo,bar"})
	e.callTool(t, "remove-repo", map[string]any{"name": "bar"})

	resp := e.callTool(t, "open-collection", map[string]any{"name": "team", "ide": "vs"})
	text, _ := resultText(t, resp)
	if !strings.Contains(text, "bar: not found, skipped") {
		t.Fatalf("expected dangling member report, got %q", text)
	}
	if !strings.Contains(text, "foo: opening") {
		t.Fatalf("remaining member must still be attempted, got %q", text)
	}
	if len(e.spawner.attempts) != 1 {
		t.Fatalf("expected exactly one launch, got %v", e.spawner.attempts)
	}
}
