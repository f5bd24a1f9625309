// Package mcpbridge implements the External-Tool Bridge (C4) from spec.md
// §4.4: spawning helper processes that speak line-delimited JSON-RPC 2.0 and
// registering their advertised tools into the C1 tool registry, grounded on
// kadirpekel-hector's pkg/tool/mcptoolset's stdio transport (the
// github.com/mark3labs/mcp-go client), generalized to the bare
// initialize/tools.list/tools.call subset spec.md requires rather than
// hector's additional SSE/streamable-HTTP transports.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/forgeloop/agentcore/internal/tools"
)

// RequestTimeout is the per-request deadline for helper-process calls, per
// spec.md §4.4/§5 ("a 30 s per-request timeout rejects the awaiting caller").
const RequestTimeout = 30 * time.Second

const protocolVersion = "2024-11-05"

// ServerSpec configures one helper process.
type ServerSpec struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}

// Server is a connected helper process and the tools it advertised.
type Server struct {
	spec      ServerSpec
	client    *client.Client
	toolNames []string
	mu        sync.Mutex
	closed    bool
}

// Bridge owns the set of connected helper-process servers and registers
// their tools into a tools.Registry.
type Bridge struct {
	registry *tools.Registry
	logger   *slog.Logger

	mu      sync.Mutex
	servers map[string]*Server
}

// New constructs a bridge that registers discovered tools into registry.
func New(registry *tools.Registry, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{registry: registry, logger: logger, servers: make(map[string]*Server)}
}

// Connect spawns spec's process, performs the initialize handshake, lists
// its tools, and registers a `mcp_<server>_<tool>` wrapper for each one,
// per spec.md §4.4.
func (b *Bridge) Connect(ctx context.Context, spec ServerSpec) error {
	if spec.Name == "" || spec.Command == "" {
		return fmt.Errorf("mcpbridge: server spec requires name and command")
	}

	mcpClient, err := client.NewStdioMCPClient(spec.Command, envSlice(spec.Env), spec.Args...)
	if err != nil {
		return fmt.Errorf("mcpbridge: spawn %s: %w", spec.Name, err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("mcpbridge: start %s: %w", spec.Name, err)
	}

	initCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = protocolVersion
	initReq.Params.ClientInfo = mcp.Implementation{Name: "agentcore", Version: "0.1.0"}
	initReq.Params.Capabilities = mcp.ClientCapabilities{}

	if _, err := mcpClient.Initialize(initCtx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("mcpbridge: initialize %s: %w", spec.Name, err)
	}

	listCtx, cancel2 := context.WithTimeout(ctx, RequestTimeout)
	defer cancel2()

	listResp, err := mcpClient.ListTools(listCtx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("mcpbridge: tools/list %s: %w", spec.Name, err)
	}

	server := &Server{spec: spec, client: mcpClient}

	for _, t := range listResp.Tools {
		wrapperName := fmt.Sprintf("mcp_%s_%s", spec.Name, t.Name)
		descriptor := b.buildDescriptor(server, wrapperName, t)
		if err := b.registry.Register(wrapperName, descriptor); err != nil {
			b.logger.Warn("mcpbridge: failed to register tool", "tool", wrapperName, "error", err)
			continue
		}
		server.toolNames = append(server.toolNames, wrapperName)
	}

	b.mu.Lock()
	b.servers[spec.Name] = server
	b.mu.Unlock()

	b.logger.Info("mcpbridge: connected", "server", spec.Name, "tools", len(server.toolNames))
	return nil
}

func (b *Bridge) buildDescriptor(server *Server, wrapperName string, t mcp.Tool) tools.Descriptor {
	schema := convertSchema(t.InputSchema)
	return tools.Descriptor{
		Name:        wrapperName,
		Description: fmt.Sprintf("[MCP:%s] %s", server.spec.Name, t.Description),
		Schema:      schema,
		AutoSafe:    false,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return callTool(ctx, server, t.Name, args)
		},
	}
}

// callTool issues tools/call and flattens the response to text, per
// spec.md §4.4 ("returns the response as text (JSON-stringified if
// structured)").
func callTool(ctx context.Context, server *Server, toolName string, args map[string]any) (string, error) {
	server.mu.Lock()
	closed := server.closed
	mcpClient := server.client
	server.mu.Unlock()
	if closed || mcpClient == nil {
		return "", fmt.Errorf("mcpbridge: server %s is disconnected", server.spec.Name)
	}

	callCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	resp, err := mcpClient.CallTool(callCtx, req)
	if err != nil {
		return "", fmt.Errorf("mcpbridge: tools/call %s: %w", toolName, err)
	}

	return flattenResult(resp)
}

func flattenResult(resp *mcp.CallToolResult) (string, error) {
	var texts []string
	for _, c := range resp.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}

	if resp.IsError {
		if len(texts) > 0 {
			return "", fmt.Errorf("%s", texts[0])
		}
		return "", fmt.Errorf("mcp tool call failed")
	}

	switch len(texts) {
	case 0:
		data, err := json.Marshal(resp.Content)
		if err != nil {
			return "", nil
		}
		return string(data), nil
	case 1:
		return texts[0], nil
	default:
		data, err := json.Marshal(texts)
		if err != nil {
			return texts[0], nil
		}
		return string(data), nil
	}
}

// ListResources and ReadResource satisfy the remaining two methods spec.md
// §6 lists as consumed by the helper-process transport.
func (b *Bridge) ListResources(ctx context.Context, serverName string) ([]mcp.Resource, error) {
	server, err := b.lookup(serverName)
	if err != nil {
		return nil, err
	}
	reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()
	resp, err := server.client.ListResources(reqCtx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcpbridge: resources/list %s: %w", serverName, err)
	}
	return resp.Resources, nil
}

func (b *Bridge) ReadResource(ctx context.Context, serverName, uri string) ([]mcp.ResourceContents, error) {
	server, err := b.lookup(serverName)
	if err != nil {
		return nil, err
	}
	reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	resp, err := server.client.ReadResource(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("mcpbridge: resources/read %s: %w", serverName, err)
	}
	return resp.Contents, nil
}

func (b *Bridge) lookup(name string) (*Server, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	server, ok := b.servers[name]
	if !ok {
		return nil, fmt.Errorf("mcpbridge: unknown server %s", name)
	}
	return server, nil
}

// Disconnect closes server's connection (sending the platform's termination
// signal to the subprocess) and removes its tools from the registry.
func (b *Bridge) Disconnect(name string) error {
	b.mu.Lock()
	server, ok := b.servers[name]
	if ok {
		delete(b.servers, name)
	}
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("mcpbridge: unknown server %s", name)
	}

	server.mu.Lock()
	server.closed = true
	server.mu.Unlock()

	for _, toolName := range server.toolNames {
		b.registry.Remove(toolName)
	}
	return server.client.Close()
}

// DisconnectAll tears down every connected server, best-effort.
func (b *Bridge) DisconnectAll() {
	b.mu.Lock()
	names := make([]string, 0, len(b.servers))
	for name := range b.servers {
		names = append(names, name)
	}
	b.mu.Unlock()

	for _, name := range names {
		if err := b.Disconnect(name); err != nil {
			b.logger.Warn("mcpbridge: disconnect failed", "server", name, "error", err)
		}
	}
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func convertSchema(schema mcp.ToolInputSchema) tools.Schema {
	data, err := json.Marshal(schema)
	if err != nil {
		return tools.Schema{Type: "object"}
	}
	var raw struct {
		Type       string                            `json:"type"`
		Properties map[string]tools.ParameterSchema `json:"properties"`
		Required   []string                          `json:"required"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return tools.Schema{Type: "object"}
	}
	if raw.Type == "" {
		raw.Type = "object"
	}
	return tools.Schema{Type: raw.Type, Properties: raw.Properties, Required: raw.Required}
}
