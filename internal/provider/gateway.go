// Package provider manages out-of-process capability providers: tool servers
// launched as child processes and reached over a line-based JSON-RPC
// protocol on their standard streams.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ShayCichocki/subagent/pkg/models"
)

// DefaultCallTimeout bounds a single provider round trip.
const DefaultCallTimeout = 5 * time.Second

// GatewayConfig contains configuration options for the Gateway.
type GatewayConfig struct {
	// WorkspaceRoot is the directory the default filesystem provider is
	// rooted at. Empty disables the default provider.
	WorkspaceRoot string
	// CallTimeout bounds each tool/resource round trip.
	// Zero selects DefaultCallTimeout.
	CallTimeout time.Duration
}

// Gateway supervises zero or more capability provider processes and brokers
// tool calls and resource reads to them. One spawn failure never affects
// other providers; a call to a disconnected provider fails locally.
type Gateway struct {
	workspaceRoot string
	timeout       time.Duration

	// spawn launches a provider transport. Swapped in tests.
	spawn func(models.ServerDescriptor) (Transport, error)

	// mu protects the three maps below.
	mu        sync.RWMutex
	servers   map[string]*serverConn
	tools     map[string][]models.ToolDescriptor
	resources map[string][]models.ResourceDescriptor
}

// serverConn is the live state of one connected provider.
type serverConn struct {
	name      string
	transport Transport

	// callMu serializes calls so at most one request is outstanding per
	// provider. Responses are still correlated by id, so a late answer to
	// a timed-out call is dropped rather than paired with the next call.
	callMu sync.Mutex

	// pendingMu protects pending and nextID.
	pendingMu sync.Mutex
	pending   map[int64]chan *response
	nextID    int64
}

// NewGateway creates a Gateway with the given configuration.
func NewGateway(cfg GatewayConfig) *Gateway {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Gateway{
		workspaceRoot: cfg.WorkspaceRoot,
		timeout:       timeout,
		spawn:         spawnProcess,
		servers:       make(map[string]*serverConn),
		tools:         make(map[string][]models.ToolDescriptor),
		resources:     make(map[string][]models.ResourceDescriptor),
	}
}

// DefaultFilesystemServer describes the generic filesystem provider rooted
// at the given directory, used when no servers are configured.
func DefaultFilesystemServer(root string) models.ServerDescriptor {
	return models.ServerDescriptor{
		Name:    "filesystem",
		Command: "npx",
		Args:    []string{"-y", "@modelcontextprotocol/server-filesystem", root},
	}
}

// seedTools is the minimal static tool list registered for each connected
// provider in lieu of a capability-discovery handshake.
var seedTools = []models.ToolDescriptor{
	{
		Name:        "list_directory",
		Description: "List the entries of a directory",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`),
	},
	{
		Name:        "read_file",
		Description: "Read the contents of a file",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`),
	},
}

// ConnectAll connects every described server, logging and continuing on
// per-server failures. With no descriptors, the default filesystem provider
// rooted at the workspace is attempted.
func (g *Gateway) ConnectAll(descriptors []models.ServerDescriptor) {
	if len(descriptors) == 0 && g.workspaceRoot != "" {
		descriptors = []models.ServerDescriptor{DefaultFilesystemServer(g.workspaceRoot)}
	}

	for _, desc := range descriptors {
		if err := g.Connect(desc); err != nil {
			log.Printf("[gateway] failed to connect provider %s: %v", desc.Name, err)
			continue
		}
		log.Printf("[gateway] connected provider %s", desc.Name)
	}
}

// Connect launches the described provider, wires its streams, and registers
// it under its logical name. An existing connection under the same name is
// replaced.
func (g *Gateway) Connect(desc models.ServerDescriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("%w: descriptor has no name", ErrSpawn)
	}
	if desc.Command == "" {
		return fmt.Errorf("%w: provider %s has no command", ErrSpawn, desc.Name)
	}

	transport, err := g.spawn(desc)
	if err != nil {
		return err
	}

	conn := &serverConn{
		name:      desc.Name,
		transport: transport,
		pending:   make(map[int64]chan *response),
	}

	g.mu.Lock()
	if old, ok := g.servers[desc.Name]; ok {
		_ = old.transport.Close()
	}
	g.servers[desc.Name] = conn
	g.tools[desc.Name] = append([]models.ToolDescriptor(nil), seedTools...)
	if g.workspaceRoot != "" {
		g.resources[desc.Name] = []models.ResourceDescriptor{
			{URI: "file://" + g.workspaceRoot, Name: "workspace root"},
		}
	}
	g.mu.Unlock()

	go conn.readLoop()
	go g.watchExit(conn)

	return nil
}

// watchExit removes a provider from the live maps when its process exits.
func (g *Gateway) watchExit(conn *serverConn) {
	<-conn.transport.Done()

	g.mu.Lock()
	// Only remove if this connection is still the registered one; a
	// reconnect under the same name must not be torn down by the old
	// process exiting.
	if current, ok := g.servers[conn.name]; ok && current == conn {
		delete(g.servers, conn.name)
		delete(g.tools, conn.name)
		delete(g.resources, conn.name)
		log.Printf("[gateway] provider %s exited", conn.name)
	}
	g.mu.Unlock()

	conn.failPending()
}

// CallTool invokes a named tool on a connected provider and returns the
// response's result payload.
func (g *Gateway) CallTool(ctx context.Context, server, tool string, args map[string]any) (any, error) {
	conn, err := g.conn(server)
	if err != nil {
		return nil, err
	}
	return conn.call(ctx, methodCallTool, callToolParams{Name: tool, Arguments: args}, g.timeout)
}

// ReadResource reads a resource by URI from a connected provider.
func (g *Gateway) ReadResource(ctx context.Context, server, uri string) (any, error) {
	conn, err := g.conn(server)
	if err != nil {
		return nil, err
	}
	return conn.call(ctx, methodReadResource, readResourceParams{URI: uri}, g.timeout)
}

// AllTools flattens the per-server tool lists into (server, tool) pairs,
// ordered by server name.
func (g *Gateway) AllTools() []models.ServerTool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.ServerTool
	for _, server := range sortedKeys(g.tools) {
		for _, tool := range g.tools[server] {
			out = append(out, models.ServerTool{Server: server, Tool: tool})
		}
	}
	return out
}

// AllResources flattens the per-server resource lists into (server,
// resource) pairs, ordered by server name.
func (g *Gateway) AllResources() []models.ServerResource {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.ServerResource
	for _, server := range sortedKeys(g.resources) {
		for _, res := range g.resources[server] {
			out = append(out, models.ServerResource{Server: server, Resource: res})
		}
	}
	return out
}

// Servers returns the names of currently connected providers, sorted.
func (g *Gateway) Servers() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.servers)
}

// Disconnect terminates every provider process and clears all state.
// Idempotent; safe on a never-connected gateway.
func (g *Gateway) Disconnect() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for name, conn := range g.servers {
		_ = conn.transport.Close()
		conn.failPending()
		log.Printf("[gateway] disconnected provider %s", name)
	}
	g.servers = make(map[string]*serverConn)
	g.tools = make(map[string][]models.ToolDescriptor)
	g.resources = make(map[string][]models.ResourceDescriptor)
}

// conn looks up a live connection by server name.
func (g *Gateway) conn(server string) (*serverConn, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	conn, ok := g.servers[server]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, server)
	}
	return conn, nil
}

// call performs one request/response round trip. Calls on the same provider
// are serialized; the response is matched by request id. On timeout the
// pending entry is removed so a late response is dropped, and the provider
// process is left running.
func (c *serverConn) call(ctx context.Context, method string, params any, timeout time.Duration) (any, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	c.pendingMu.Lock()
	c.nextID++
	id := c.nextID
	ch := make(chan *response, 1)
	c.pending[id] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	line, err := encodeRequest(request{
		Jsonrpc: jsonrpcVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, err
	}
	if err := c.transport.Send(line); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok || resp == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotConnected, c.name)
		}
		if resp.Error != nil {
			return nil, resp.Error.Err()
		}
		var result any
		if len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, &result); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
		}
		return result, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s %s after %s", ErrTimeout, c.name, method, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.transport.Done():
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, c.name)
	}
}

// readLoop dispatches provider output lines to their pending calls.
// Unparseable lines and responses with no pending id are logged and dropped.
func (c *serverConn) readLoop() {
	for line := range c.transport.Lines() {
		resp, err := decodeResponse(line)
		if err != nil {
			log.Printf("[gateway] provider %s: %v", c.name, err)
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()

		if !ok {
			log.Printf("[gateway] provider %s: dropping response with unknown id %d", c.name, resp.ID)
			continue
		}
		ch <- resp
	}
}

// failPending closes every pending call channel so waiters fail fast.
func (c *serverConn) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// sortedKeys returns the sorted keys of a map.
func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
