// Package mcp exposes the registries and the editor launcher as a set of
// named tools over a line-delimited JSON-RPC 2.0 transport: stdio by
// default, TCP when configured.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/repodock/repodock/internal/core"
	"github.com/repodock/repodock/internal/launcher"
)

type ctxKey string

const ctxKeyTraceID ctxKey = "trace_id"

const serverVersion = "0.1.0"

type Server struct {
	repos  *core.RepoService
	colls  *core.CollectionService
	opener *launcher.Launcher
	logger *slog.Logger
	getwd  func() (string, error)
	addr   string

	ln     net.Listener
	mu     sync.Mutex
	closed bool
}

// NewServer wires the tool dispatcher. addr is the optional TCP listen
// address; Serve works regardless of it.
func NewServer(addr string, repos *core.RepoService, colls *core.CollectionService, opener *launcher.Launcher, logger *slog.Logger) *Server {
	return &Server{
		repos:  repos,
		colls:  colls,
		opener: opener,
		logger: logger,
		getwd:  os.Getwd,
		addr:   addr,
	}
}

type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Serve processes requests from r and writes responses to w until r is
// exhausted. This is the stdio transport.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	s.serveStream(r, w)
	return nil
}

// ListenAndServe accepts TCP connections carrying the same line protocol.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("tool server listening", "addr", s.addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			s.logger.Error("accept error", "err", err)
			continue
		}
		go func() {
			defer conn.Close()
			s.serveStream(conn, conn)
		}()
	}
}

func (s *Server) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

func (s *Server) serveStream(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req jsonRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, jsonRPCResponse{
				JSONRPC: "2.0",
				ID:      nil,
				Error:   &rpcError{Code: -32700, Message: "parse error"},
			})
			continue
		}

		traceID := uuid.New().String()
		ctx := context.WithValue(context.Background(), ctxKeyTraceID, traceID)
		resp := s.dispatch(ctx, req)
		s.writeResponse(w, resp)
	}
}

func (s *Server) writeResponse(w io.Writer, resp jsonRPCResponse) {
	data, _ := json.Marshal(resp)
	data = append(data, '\n')
	w.Write(data)
}

func (s *Server) dispatch(ctx context.Context, req jsonRPCRequest) jsonRPCResponse {
	base := jsonRPCResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		base.Result = map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{"tools": map[string]any{"listChanged": false}},
			"serverInfo":      map[string]any{"name": "repodock", "version": serverVersion},
		}
		return base

	case "tools/list":
		base.Result = map[string]any{"tools": ToolDefinitions()}
		return base

	case "tools/call":
		return s.handleToolCall(ctx, req, base)

	default:
		base.Error = &rpcError{Code: -32601, Message: fmt.Sprintf("method not found: %s", req.Method)}
		return base
	}
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) handleToolCall(ctx context.Context, req jsonRPCRequest, base jsonRPCResponse) (resp jsonRPCResponse) {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		base.Error = &rpcError{Code: -32602, Message: "invalid params: " + err.Error()}
		return base
	}

	// A handler must never take the dispatcher down.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool handler panicked", "tool", params.Name, "panic", r)
			base.Result = errorResult(fmt.Sprintf("internal error in %s", params.Name))
			resp = base
		}
	}()

	traceID, _ := ctx.Value(ctxKeyTraceID).(string)
	s.logger.Info("tool call", "trace_id", traceID, "tool", params.Name)

	switch params.Name {
	case "list-repos":
		return s.toolListRepos(params.Arguments, base)
	case "add-repo":
		return s.toolAddRepo(params.Arguments, base)
	case "get-repo":
		return s.toolGetRepo(params.Arguments, base)
	case "remove-repo":
		return s.toolRemoveRepo(params.Arguments, base)
	case "add-collection":
		return s.toolAddCollection(params.Arguments, base)
	case "delete-collection":
		return s.toolDeleteCollection(params.Arguments, base)
	case "list-collection":
		return s.toolListCollection(params.Arguments, base)
	case "init-repo":
		return s.toolInitRepo(params.Arguments, base)
	case "open-repo":
		return s.toolOpenRepo(params.Arguments, base)
	case "open-collection":
		return s.toolOpenCollection(params.Arguments, base)
	default:
		base.Error = &rpcError{Code: -32602, Message: fmt.Sprintf("unknown tool: %s", params.Name)}
		return base
	}
}

// textResult wraps a human-readable outcome as MCP text content.
func textResult(text string) map[string]any {
	return map[string]any{
		"content": []map[string]string{
			{"type": "text", "text": text},
		},
	}
}

// errorResult wraps a failed-but-well-formed outcome. Domain failures are
// reported this way rather than as transport errors.
func errorResult(text string) map[string]any {
	return map[string]any{
		"content": []map[string]string{
			{"type": "text", "text": text},
		},
		"isError": true,
	}
}

type listReposArgs struct {
	Type string `json:"type,omitempty"`
}

func (s *Server) toolListRepos(raw json.RawMessage, base jsonRPCResponse) jsonRPCResponse {
	args := listReposArgs{Type: "all"}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			base.Error = &rpcError{Code: -32602, Message: err.Error()}
			return base
		}
	}
	if args.Type == "" {
		args.Type = "all"
	}
	if args.Type != "all" && args.Type != "repos" && args.Type != "collections" {
		base.Error = &rpcError{Code: -32602, Message: fmt.Sprintf("invalid type %q (expected all, repos or collections)", args.Type)}
		return base
	}

	var b strings.Builder

	if args.Type == "all" || args.Type == "repos" {
		repos, err := s.repos.List()
		if err != nil {
			base.Result = errorResult("listing repositories failed: " + err.Error())
			return base
		}
		if len(repos) == 0 {
			b.WriteString("No repositories registered.\n")
		} else {
			b.WriteString("Repositories:\n")
			for _, r := range repos {
				fmt.Fprintf(&b, "  %s -> %s\n", r.Name, r.Path)
			}
		}
	}

	if args.Type == "all" || args.Type == "collections" {
		names, err := s.colls.ListNames()
		if err != nil {
			base.Result = errorResult("listing collections failed: " + err.Error())
			return base
		}
		if len(names) == 0 {
			b.WriteString("No collections registered.\n")
		} else {
			b.WriteString("Collections:\n")
			for _, name := range names {
				fmt.Fprintf(&b, "  %s\n", name)
			}
		}
	}

	base.Result = textResult(strings.TrimRight(b.String(), "\n"))
	return base
}

type addRepoArgs struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func (s *Server) toolAddRepo(raw json.RawMessage, base jsonRPCResponse) jsonRPCResponse {
	var args addRepoArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		base.Error = &rpcError{Code: -32602, Message: err.Error()}
		return base
	}
	if strings.TrimSpace(args.Name) == "" {
		base.Error = &rpcError{Code: -32602, Message: "name is required"}
		return base
	}
	if strings.TrimSpace(args.Path) == "" {
		base.Error = &rpcError{Code: -32602, Message: "path is required"}
		return base
	}

	info, err := s.repos.Add(args.Name, args.Path)
	if err != nil {
		s.logger.Warn("tool call failed", "tool", "add-repo", "code", core.ErrorCode(err), "err", err)
		base.Result = errorResult("adding repository failed: " + err.Error())
		return base
	}
	base.Result = textResult(fmt.Sprintf("Registered repository %q at %s", info.Name, info.Path))
	return base
}

type nameArgs struct {
	Name string `json:"name"`
}

func (s *Server) toolGetRepo(raw json.RawMessage, base jsonRPCResponse) jsonRPCResponse {
	var args nameArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		base.Error = &rpcError{Code: -32602, Message: err.Error()}
		return base
	}
	if strings.TrimSpace(args.Name) == "" {
		base.Error = &rpcError{Code: -32602, Message: "name is required"}
		return base
	}

	path, err := s.repos.Get(args.Name)
	if err != nil {
		base.Result = errorResult(fmt.Sprintf("repository %q not found", core.Normalize(args.Name)))
		return base
	}
	base.Result = textResult(path)
	return base
}

func (s *Server) toolRemoveRepo(raw json.RawMessage, base jsonRPCResponse) jsonRPCResponse {
	var args nameArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		base.Error = &rpcError{Code: -32602, Message: err.Error()}
		return base
	}
	if strings.TrimSpace(args.Name) == "" {
		base.Error = &rpcError{Code: -32602, Message: "name is required"}
		return base
	}

	if err := s.repos.Remove(args.Name); err != nil {
		base.Result = errorResult(fmt.Sprintf("repository %q not found", core.Normalize(args.Name)))
		return base
	}
	base.Result = textResult(fmt.Sprintf("Removed repository %q", core.Normalize(args.Name)))
	return base
}

type addCollectionArgs struct {
	Name  string `json:"name"`
	Repos string `json:"repos"`
}

func (s *Server) toolAddCollection(raw json.RawMessage, base jsonRPCResponse) jsonRPCResponse {
	var args addCollectionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		base.Error = &rpcError{Code: -32602, Message: err.Error()}
		return base
	}
	if strings.TrimSpace(args.Name) == "" {
		base.Error = &rpcError{Code: -32602, Message: "name is required"}
		return base
	}
	if strings.TrimSpace(args.Repos) == "" {
		base.Error = &rpcError{Code: -32602, Message: "repos is required"}
		return base
	}

	info, err := s.colls.Add(args.Name, args.Repos)
	if err != nil {
		s.logger.Warn("tool call failed", "tool", "add-collection", "code", core.ErrorCode(err), "err", err)
		base.Result = errorResult("creating collection failed: " + err.Error())
		return base
	}
	base.Result = textResult(fmt.Sprintf("Created collection %q with %d repositories", info.Name, len(info.Repos)))
	return base
}

func (s *Server) toolDeleteCollection(raw json.RawMessage, base jsonRPCResponse) jsonRPCResponse {
	var args nameArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		base.Error = &rpcError{Code: -32602, Message: err.Error()}
		return base
	}
	if strings.TrimSpace(args.Name) == "" {
		base.Error = &rpcError{Code: -32602, Message: "name is required"}
		return base
	}

	if err := s.colls.Delete(args.Name); err != nil {
		base.Result = errorResult(fmt.Sprintf("collection %q not found", core.Normalize(args.Name)))
		return base
	}
	base.Result = textResult(fmt.Sprintf("Deleted collection %q", core.Normalize(args.Name)))
	return base
}

type listCollectionArgs struct {
	Name string `json:"name,omitempty"`
}

func (s *Server) toolListCollection(raw json.RawMessage, base jsonRPCResponse) jsonRPCResponse {
	var args listCollectionArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			base.Error = &rpcError{Code: -32602, Message: err.Error()}
			return base
		}
	}

	if strings.TrimSpace(args.Name) == "" {
		names, err := s.colls.ListNames()
		if err != nil {
			base.Result = errorResult("listing collections failed: " + err.Error())
			return base
		}
		if len(names) == 0 {
			base.Result = textResult("No collections registered.")
			return base
		}
		base.Result = textResult("Collections:\n  " + strings.Join(names, "\n  "))
		return base
	}

	info, err := s.colls.Get(args.Name)
	if err != nil {
		base.Result = errorResult(fmt.Sprintf("collection %q not found", core.Normalize(args.Name)))
		return base
	}
	base.Result = textResult(fmt.Sprintf("Collection %q:\n  %s", info.Name, strings.Join(info.Repos, "\n  ")))
	return base
}

func (s *Server) toolInitRepo(raw json.RawMessage, base jsonRPCResponse) jsonRPCResponse {
	var args nameArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		base.Error = &rpcError{Code: -32602, Message: err.Error()}
		return base
	}
	if strings.TrimSpace(args.Name) == "" {
		base.Error = &rpcError{Code: -32602, Message: "name is required"}
		return base
	}

	cwd, err := s.getwd()
	if err != nil {
		base.Result = errorResult("resolving working directory failed: " + err.Error())
		return base
	}

	info, err := s.repos.Init(args.Name, cwd)
	if err != nil {
		base.Result = errorResult("initializing repository failed: " + err.Error())
		return base
	}
	base.Result = textResult(fmt.Sprintf("Registered repository %q at %s", info.Name, info.Path))
	return base
}

type openRepoArgs struct {
	Name string `json:"name"`
	IDE  string `json:"ide"`
}

func (s *Server) toolOpenRepo(raw json.RawMessage, base jsonRPCResponse) jsonRPCResponse {
	var args openRepoArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		base.Error = &rpcError{Code: -32602, Message: err.Error()}
		return base
	}
	if strings.TrimSpace(args.Name) == "" {
		base.Error = &rpcError{Code: -32602, Message: "name is required"}
		return base
	}
	editor, err := launcher.ParseEditor(args.IDE)
	if err != nil {
		base.Error = &rpcError{Code: -32602, Message: err.Error()}
		return base
	}

	path, err := s.repos.Get(args.Name)
	if err != nil {
		base.Result = errorResult(fmt.Sprintf("repository %q not found", core.Normalize(args.Name)))
		return base
	}

	if err := s.opener.Open(path, editor); err != nil {
		s.logger.Warn("tool call failed", "tool", "open-repo", "code", core.ErrorCode(err), "err", err)
		base.Result = errorResult(err.Error())
		return base
	}
	base.Result = textResult(fmt.Sprintf("Opening %s in %s", path, editor.DisplayName()))
	return base
}

func (s *Server) toolOpenCollection(raw json.RawMessage, base jsonRPCResponse) jsonRPCResponse {
	var args openRepoArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		base.Error = &rpcError{Code: -32602, Message: err.Error()}
		return base
	}
	if strings.TrimSpace(args.Name) == "" {
		base.Error = &rpcError{Code: -32602, Message: "name is required"}
		return base
	}
	editor, err := launcher.ParseEditor(args.IDE)
	if err != nil {
		base.Error = &rpcError{Code: -32602, Message: err.Error()}
		return base
	}

	info, err := s.colls.Get(args.Name)
	if err != nil {
		base.Result = errorResult(fmt.Sprintf("collection %q not found", core.Normalize(args.Name)))
		return base
	}

	// Members are attempted sequentially; dangling references are reported
	// and skipped, the rest still open.
	var lines []string
	for _, member := range info.Repos {
		path, err := s.repos.Get(member)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%s: not found, skipped", member))
			continue
		}
		if err := s.opener.Open(path, editor); err != nil {
			lines = append(lines, fmt.Sprintf("%s: %s", member, err.Error()))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: opening %s in %s", member, path, editor.DisplayName()))
	}
	base.Result = textResult(strings.Join(lines, "\n"))
	return base
}
