// File: internal/mcptool/server.go

// Package mcptool exposes the audit engine as a stdio tool-call server:
// Content-Length framed JSON-RPC 2.0 implementing initialize, tools/list,
// and tools/call, with results serialized into text content blocks.
package mcptool

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/registry"
	"github.com/codewarden/warden-cli/internal/report"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const protocolVersion = "2024-11-05"

// AuditArgs are the arguments of the run_audit tool.
type AuditArgs struct {
	Path           string   `json:"path"`
	MinSeverity    string   `json:"min_severity,omitempty"`
	FailOnSeverity string   `json:"fail_on_severity,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	DisabledRules  []string `json:"disabled_rules,omitempty"`
}

// AuditFunc runs one audit for the tool server. It returns the finished
// result and the engine's failure decision.
type AuditFunc func(ctx context.Context, args AuditArgs) (*schemas.AuditResult, bool, error)

// Server serves tool calls over a framed stream, usually stdin/stdout.
type Server struct {
	in      *bufio.Reader
	out     io.Writer
	reg     *registry.Registry
	audit   AuditFunc
	version string
	logger  *zap.Logger
}

// New creates a tool server. The registry backs list_rules; audit backs
// run_audit.
func New(in io.Reader, out io.Writer, reg *registry.Registry, audit AuditFunc, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		in:      bufio.NewReader(in),
		out:     out,
		reg:     reg,
		audit:   audit,
		version: version,
		logger:  logger.Named("mcptool"),
	}
}

type rpcRequest struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      interface{}         `json:"id"`
	Method  string              `json:"method"`
	Params  jsoniter.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON-RPC error codes used by the server.
const (
	codeParseError     = -32700
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

// Serve processes requests until EOF or context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading request: %w", err)
		}

		var req rpcRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(nil, codeParseError, "Parse error", err.Error())
			continue
		}
		s.handle(ctx, &req)
	}
}

func (s *Server) handle(ctx context.Context, req *rpcRequest) {
	s.logger.Debug("request", zap.String("method", req.Method))

	switch req.Method {
	case "initialize":
		s.sendResult(req.ID, map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{"listChanged": false},
			},
			"serverInfo": map[string]interface{}{
				"name":    "warden",
				"version": s.version,
			},
		})

	case "initialized":
		// Notification, no response.

	case "ping":
		s.sendResult(req.ID, map[string]interface{}{})

	case "tools/list":
		s.sendResult(req.ID, map[string]interface{}{"tools": toolDescriptors()})

	case "tools/call":
		s.handleToolCall(ctx, req)

	default:
		s.sendError(req.ID, codeMethodNotFound, "Method not found",
			fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func toolDescriptors() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"name":        "run_audit",
			"description": "Audit a source tree and return the violations found",
			"inputSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Root directory to audit",
					},
					"min_severity": map[string]interface{}{
						"type":        "string",
						"description": "Drop violations below this severity (CRITICAL..SUGGESTION)",
					},
					"fail_on_severity": map[string]interface{}{
						"type":        "string",
						"description": "Mark the audit failed if any violation reaches this severity",
					},
					"categories": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string"},
					},
					"disabled_rules": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string"},
					},
				},
				"required": []string{"path"},
			},
		},
		{
			"name":        "list_rules",
			"description": "List every registered rule with id, category, and severity",
			"inputSchema": map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

func (s *Server) handleToolCall(ctx context.Context, req *rpcRequest) {
	var params struct {
		Name      string              `json:"name"`
		Arguments jsoniter.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.sendError(req.ID, codeInvalidParams, "Invalid params", err.Error())
		return
	}

	switch params.Name {
	case "run_audit":
		var args AuditArgs
		if len(params.Arguments) > 0 {
			if err := json.Unmarshal(params.Arguments, &args); err != nil {
				s.sendError(req.ID, codeInvalidParams, "Invalid params", err.Error())
				return
			}
		}
		if args.Path == "" {
			s.sendError(req.ID, codeInvalidParams, "Invalid params", "path is required")
			return
		}

		result, shouldFail, err := s.audit(ctx, args)
		if err != nil {
			s.sendError(req.ID, codeInternalError, "Audit failed", err.Error())
			return
		}
		payload, err := json.MarshalIndent(report.Reduce(result, shouldFail), "", "  ")
		if err != nil {
			s.sendError(req.ID, codeInternalError, "Audit failed", err.Error())
			return
		}
		s.sendText(req.ID, string(payload))

	case "list_rules":
		statuses := s.reg.AllWithStatus(nil)
		payload, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			s.sendError(req.ID, codeInternalError, "Listing failed", err.Error())
			return
		}
		s.sendText(req.ID, string(payload))

	default:
		s.sendError(req.ID, codeMethodNotFound, "Method not found",
			fmt.Sprintf("unknown tool: %s", params.Name))
	}
}

// sendText wraps text into the tool-call content block shape.
func (s *Server) sendText(id interface{}, text string) {
	s.sendResult(id, map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
	})
}

func (s *Server) sendResult(id, result interface{}) {
	s.write(rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) sendError(id interface{}, code int, message string, data interface{}) {
	s.write(rpcResponse{JSONRPC: "2.0", ID: id,
		Error: &rpcError{Code: code, Message: message, Data: data}})
}

func (s *Server) write(resp rpcResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("encoding response failed", zap.Error(err))
		return
	}
	if err := writeMessage(s.out, data); err != nil {
		s.logger.Error("writing response failed", zap.Error(err))
	}
}
