package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

const DefaultMaxRounds = 10

// MaxRoundsNotice is the message of a run that hit the round limit.
const MaxRoundsNotice = "reached maximum steps; applied the operations planned so far"

const defaultSystemPrompt = `You edit a shared whiteboard by calling tools.
Coordinates are in canvas pixels, x grows right and y grows down.
Area shapes (rect, ellipse, text, sticky) are positioned by the top-left of their bounding box.
Lines use x/y for the start point and x2/y2 for the end point.
create_shape returns the new shape id; use it in later calls in this request.
Call list_shapes when you need the current board.
When you are done, reply with one short sentence describing what changed.`

// Loop runs a bounded tool-calling conversation against a Model.
type Loop struct {
	Model        Model
	MaxRounds    int
	SystemPrompt string
	// NewID mints permanent shape ids for the finalized log. Nil uses typeid.
	NewID func() string
}

// Run plans edits for req. The returned operations already carry permanent ids.
func (l *Loop) Run(ctx context.Context, req Request) Response {
	maxRounds := l.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	system := l.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}

	shadow := NewShadow(req.Shapes)
	tools := NewToolset(shadow)
	specs := tools.Specs()

	msgs := []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: userPrompt(req)},
	}

	for round := 0; round < maxRounds; round++ {
		reply, err := l.Model.Complete(ctx, msgs, specs)
		if err != nil {
			slog.Warn("agent model call failed", "request", req.RequestID, "round", round, "error", err)
			return Response{
				RequestID:  req.RequestID,
				Operations: []Operation{},
				Error:      err.Error(),
			}
		}

		if len(reply.ToolCalls) == 0 {
			return Response{
				RequestID:  req.RequestID,
				Operations: Finalize(shadow.Operations(), l.NewID),
				Message:    strings.TrimSpace(reply.Content),
			}
		}

		msgs = append(msgs, Message{Role: RoleAssistant, Content: reply.Content, ToolCalls: reply.ToolCalls})
		for _, call := range reply.ToolCalls {
			result, err := tools.Call(ctx, call.Name, call.Arguments)
			if err != nil {
				slog.Debug("agent tool rejected", "tool", call.Name, "error", err)
				result = fmt.Sprintf("Error: %v", err)
			}
			msgs = append(msgs, Message{Role: RoleTool, Content: result, ToolCallID: call.ID})
		}
	}

	return Response{
		RequestID:  req.RequestID,
		Operations: Finalize(shadow.Operations(), l.NewID),
		Message:    MaxRoundsNotice,
		Truncated:  true,
	}
}

func userPrompt(req Request) string {
	board, err := json.Marshal(req.Shapes)
	if err != nil || len(req.Shapes) == 0 {
		board = []byte("[]")
	}
	return fmt.Sprintf("Current shapes: %s\n\nRequest: %s", board, req.Prompt)
}
