package models

import "encoding/json"

// ServerDescriptor describes how to launch a capability provider process.
type ServerDescriptor struct {
	// Name is the logical name the server is addressed by.
	Name string `json:"name" mapstructure:"name"`
	// Command is the executable to launch.
	Command string `json:"command" mapstructure:"command"`
	// Args are the command-line arguments.
	Args []string `json:"args,omitempty" mapstructure:"args"`
	// Env is an environment overlay applied on top of the parent environment.
	Env map[string]string `json:"env,omitempty" mapstructure:"env"`
}

// ToolDescriptor describes a tool exposed by a capability provider.
type ToolDescriptor struct {
	// Name is the tool's invocation name.
	Name string `json:"name"`
	// Description is a human-readable summary.
	Description string `json:"description,omitempty"`
	// InputSchema is a JSON-schema-like descriptor of the tool's arguments.
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ResourceDescriptor describes a resource exposed by a capability provider.
type ResourceDescriptor struct {
	// URI addresses the resource.
	URI string `json:"uri"`
	// Name is the display name.
	Name string `json:"name,omitempty"`
	// MimeType is the optional content type.
	MimeType string `json:"mimeType,omitempty"`
}

// ServerTool pairs a tool with the server that exposes it.
type ServerTool struct {
	// Server is the logical server name.
	Server string `json:"server"`
	// Tool is the tool descriptor.
	Tool ToolDescriptor `json:"tool"`
}

// ServerResource pairs a resource with the server that exposes it.
type ServerResource struct {
	// Server is the logical server name.
	Server string `json:"server"`
	// Resource is the resource descriptor.
	Resource ResourceDescriptor `json:"resource"`
}
