// File: internal/mcptool/server_test.go
package mcptool

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/registry"
)

// frame encodes one request into the wire format.
func frame(t *testing.T, payload string) string {
	t.Helper()
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(payload), payload)
}

// decodeResponses parses every framed response in the output buffer.
func decodeResponses(t *testing.T, out *bytes.Buffer) []rpcResponse {
	t.Helper()
	r := bufio.NewReader(out)
	var responses []rpcResponse
	for {
		msg, err := readMessage(r)
		if err != nil {
			break
		}
		var resp rpcResponse
		require.NoError(t, json.Unmarshal(msg, &resp))
		responses = append(responses, resp)
	}
	return responses
}

type stubRule struct{ id string }

func (s stubRule) Meta() schemas.RuleMeta {
	return schemas.RuleMeta{
		ID: s.id, Name: "Stub " + s.id,
		Category: schemas.CategoryStyle, Severity: schemas.SeverityLow,
	}
}

func (s stubRule) Check(ctx context.Context, rc *schemas.RuleContext) ([]schemas.Violation, error) {
	return nil, nil
}

func serve(t *testing.T, audit AuditFunc, requests ...string) []rpcResponse {
	t.Helper()
	reg := registry.New(zaptest.NewLogger(t))
	require.NoError(t, reg.Register(stubRule{id: "stub-rule"}))

	var in strings.Builder
	for _, r := range requests {
		in.WriteString(frame(t, r))
	}
	out := &bytes.Buffer{}

	srv := New(strings.NewReader(in.String()), out, reg, audit, "test", zaptest.NewLogger(t))
	require.NoError(t, srv.Serve(context.Background()), "EOF ends the serve loop cleanly")
	return decodeResponses(t, out)
}

func okAudit(result *schemas.AuditResult, shouldFail bool) AuditFunc {
	return func(ctx context.Context, args AuditArgs) (*schemas.AuditResult, bool, error) {
		return result, shouldFail, nil
	}
}

func emptyResult() *schemas.AuditResult {
	return &schemas.AuditResult{
		RunID: "run-1", Root: "/repo", Started: time.Now(),
		Summary: schemas.Summarize(nil),
	}
}

func TestInitializeHandshake(t *testing.T) {
	t.Parallel()
	responses := serve(t, okAudit(emptyResult(), false),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)
	result := responses[0].Result.(map[string]interface{})
	assert.Equal(t, protocolVersion, result["protocolVersion"])
	info := result["serverInfo"].(map[string]interface{})
	assert.Equal(t, "warden", info["name"])
}

func TestToolsList(t *testing.T) {
	t.Parallel()
	responses := serve(t, okAudit(emptyResult(), false),
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)

	require.Len(t, responses, 1)
	result := responses[0].Result.(map[string]interface{})
	tools := result["tools"].([]interface{})
	require.Len(t, tools, 2)
	names := []string{
		tools[0].(map[string]interface{})["name"].(string),
		tools[1].(map[string]interface{})["name"].(string),
	}
	assert.ElementsMatch(t, []string{"run_audit", "list_rules"}, names)
}

func TestRunAuditToolCall(t *testing.T) {
	t.Parallel()
	// -- Setup --
	violations := []schemas.Violation{{
		RuleID: "stub-rule", RuleName: "Stub", Category: schemas.CategoryStyle,
		Severity: schemas.SeverityLow, FilePath: "a.js", Line: 1,
		Suggestion: "s", Explanation: "e",
	}}
	result := emptyResult()
	result.Violations = violations
	result.Summary = schemas.Summarize(violations)

	var gotArgs AuditArgs
	audit := func(ctx context.Context, args AuditArgs) (*schemas.AuditResult, bool, error) {
		gotArgs = args
		return result, true, nil
	}

	// -- Execution --
	responses := serve(t, audit,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"run_audit","arguments":{"path":"/repo","min_severity":"LOW"}}}`)

	// -- Assertions --
	assert.Equal(t, "/repo", gotArgs.Path)
	assert.Equal(t, "LOW", gotArgs.MinSeverity)

	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)
	content := responses[0].Result.(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 1)
	block := content[0].(map[string]interface{})
	assert.Equal(t, "text", block["type"])
	assert.Contains(t, block["text"].(string), "stub-rule")
	assert.Contains(t, block["text"].(string), `"should_fail": true`)
}

func TestRunAuditRequiresPath(t *testing.T) {
	t.Parallel()
	responses := serve(t, okAudit(emptyResult(), false),
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"run_audit","arguments":{}}}`)

	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, codeInvalidParams, responses[0].Error.Code)
}

func TestRunAuditPropagatesFailure(t *testing.T) {
	t.Parallel()
	audit := func(ctx context.Context, args AuditArgs) (*schemas.AuditResult, bool, error) {
		return nil, false, errors.New("scan blew up")
	}
	responses := serve(t, audit,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"run_audit","arguments":{"path":"/x"}}}`)

	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, codeInternalError, responses[0].Error.Code)
}

func TestListRulesToolCall(t *testing.T) {
	t.Parallel()
	responses := serve(t, okAudit(emptyResult(), false),
		`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"list_rules","arguments":{}}}`)

	require.Len(t, responses, 1)
	content := responses[0].Result.(map[string]interface{})["content"].([]interface{})
	assert.Contains(t, content[0].(map[string]interface{})["text"].(string), "stub-rule")
}

func TestUnknownMethodAndTool(t *testing.T) {
	t.Parallel()
	responses := serve(t, okAudit(emptyResult(), false),
		`{"jsonrpc":"2.0","id":7,"method":"bogus"}`,
		`{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"bogus"}}`)

	require.Len(t, responses, 2)
	for _, resp := range responses {
		require.NotNil(t, resp.Error)
		assert.Equal(t, codeMethodNotFound, resp.Error.Code)
	}
}

func TestMalformedRequestYieldsParseError(t *testing.T) {
	t.Parallel()
	responses := serve(t, okAudit(emptyResult(), false), `{not json`)

	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, codeParseError, responses[0].Error.Code)
}
