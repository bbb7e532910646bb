package agent

import (
	"context"
	"encoding/json"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolSpec describes a callable tool. Parameters is a JSON schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Reply is the model's answer for one round.
type Reply struct {
	Content   string
	ToolCalls []ToolCall
}

// Model is a chat model that can request tool calls.
type Model interface {
	Complete(ctx context.Context, msgs []Message, tools []ToolSpec) (Reply, error)
}

// Specs converts the toolset definitions for a Model.
func (ts *Toolset) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(ts.tools))
	for _, t := range ts.tools {
		params, err := json.Marshal(t.Tool.InputSchema)
		if err != nil {
			params = json.RawMessage(`{"type":"object"}`)
		}
		specs = append(specs, ToolSpec{
			Name:        t.Tool.Name,
			Description: t.Tool.Description,
			Parameters:  params,
		})
	}
	return specs
}
