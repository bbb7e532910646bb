package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/inkboard/inkboard/internal/shape"
)

const (
	ToolCreate = "create_shape"
	ToolUpdate = "update_shape"
	ToolDelete = "delete_shape"
	ToolList   = "list_shapes"
)

var errUnknownTool = errors.New("unknown tool")

// Toolset exposes a shadow board as callable tools. The same definitions serve
// the in-process loop and the stdio MCP server.
type Toolset struct {
	shadow *Shadow
	tools  []server.ServerTool
}

func NewToolset(sh *Shadow) *Toolset {
	ts := &Toolset{shadow: sh}
	kinds := make([]string, 0, len(shape.Kinds))
	for _, k := range shape.Kinds {
		kinds = append(kinds, string(k))
	}

	ts.tools = []server.ServerTool{
		{
			Tool: mcp.NewTool(ToolCreate,
				mcp.WithDescription("Create a shape. Area shapes use x/y as the top-left of their bounding box. Lines use x/y and x2/y2. Returns the new shape with its id."),
				mcp.WithString("type", mcp.Description("Shape type"), mcp.Enum(kinds...), mcp.Required()),
				mcp.WithNumber("x", mcp.Description("Left edge, or line start x"), mcp.Required()),
				mcp.WithNumber("y", mcp.Description("Top edge, or line start y"), mcp.Required()),
				mcp.WithNumber("width", mcp.Description("Width (default 150)")),
				mcp.WithNumber("height", mcp.Description("Height (default 100)")),
				mcp.WithNumber("x2", mcp.Description("Line end x")),
				mcp.WithNumber("y2", mcp.Description("Line end y")),
				mcp.WithNumber("rotation", mcp.Description("Rotation in degrees")),
				mcp.WithString("text", mcp.Description("Text content, or a label for rect and ellipse")),
				mcp.WithString("fill", mcp.Description("Fill color hex, e.g. #60a5fa")),
				mcp.WithString("stroke", mcp.Description("Stroke color hex")),
				mcp.WithNumber("strokeWidth", mcp.Description("Stroke width")),
				mcp.WithNumber("fontSize", mcp.Description("Font size for text and sticky notes")),
				mcp.WithBoolean("arrowStart", mcp.Description("Arrowhead at the line start")),
				mcp.WithBoolean("arrowEnd", mcp.Description("Arrowhead at the line end")),
			),
			Handler: ts.handleCreate,
		},
		{
			Tool: mcp.NewTool(ToolUpdate,
				mcp.WithDescription("Update fields of an existing shape by id. Only the given fields change."),
				mcp.WithString("id", mcp.Description("Shape id"), mcp.Required()),
				mcp.WithNumber("x", mcp.Description("Left edge, or line start x")),
				mcp.WithNumber("y", mcp.Description("Top edge, or line start y")),
				mcp.WithNumber("width", mcp.Description("Width")),
				mcp.WithNumber("height", mcp.Description("Height")),
				mcp.WithNumber("x2", mcp.Description("Line end x")),
				mcp.WithNumber("y2", mcp.Description("Line end y")),
				mcp.WithNumber("rotation", mcp.Description("Rotation in degrees")),
				mcp.WithString("text", mcp.Description("Text content or label")),
				mcp.WithString("fill", mcp.Description("Fill color hex")),
				mcp.WithString("stroke", mcp.Description("Stroke color hex")),
				mcp.WithNumber("strokeWidth", mcp.Description("Stroke width")),
				mcp.WithNumber("fontSize", mcp.Description("Font size")),
				mcp.WithBoolean("arrowStart", mcp.Description("Arrowhead at the line start")),
				mcp.WithBoolean("arrowEnd", mcp.Description("Arrowhead at the line end")),
			),
			Handler: ts.handleUpdate,
		},
		{
			Tool: mcp.NewTool(ToolDelete,
				mcp.WithDescription("Delete a shape by id"),
				mcp.WithString("id", mcp.Description("Shape id"), mcp.Required()),
				mcp.WithDestructiveHintAnnotation(true),
			),
			Handler: ts.handleDelete,
		},
		{
			Tool: mcp.NewTool(ToolList,
				mcp.WithDescription("List every shape on the board with id, type, position, size, text and fill"),
			),
			Handler: ts.handleList,
		},
	}
	return ts
}

// Tools returns the tool definitions with their handlers.
func (ts *Toolset) Tools() []server.ServerTool {
	return ts.tools
}

// Call runs a tool with JSON-encoded arguments and returns its text result. A
// tool that rejects its input returns the message as an error.
func (ts *Toolset) Call(ctx context.Context, name, arguments string) (string, error) {
	var handler server.ToolHandlerFunc
	for _, t := range ts.tools {
		if t.Tool.Name == name {
			handler = t.Handler
			break
		}
	}
	if handler == nil {
		return "", fmt.Errorf("%s: %w", name, errUnknownTool)
	}

	args := map[string]any{}
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := handler(ctx, req)
	if err != nil {
		return "", err
	}
	text := resultText(res)
	if res.IsError {
		return "", errors.New(text)
	}
	return text, nil
}

func resultText(res *mcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func (ts *Toolset) handleCreate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	kind, _ := args["type"].(string)
	d := shape.Draft{
		Type:        shape.Kind(kind),
		X:           num(args, "x"),
		Y:           num(args, "y"),
		Width:       num(args, "width"),
		Height:      num(args, "height"),
		X2:          optNum(args, "x2"),
		Y2:          optNum(args, "y2"),
		Rotation:    num(args, "rotation"),
		StrokeWidth: num(args, "strokeWidth"),
		FontSize:    num(args, "fontSize"),
	}
	d.Text, _ = args["text"].(string)
	d.Fill, _ = args["fill"].(string)
	d.Stroke, _ = args["stroke"].(string)
	d.ArrowStart, _ = args["arrowStart"].(bool)
	d.ArrowEnd, _ = args["arrowEnd"].(bool)

	sum, err := ts.shadow.Create(d)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sum)
}

func (ts *Toolset) handleUpdate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, _ := args["id"].(string)
	c := Changes{
		X:           optNum(args, "x"),
		Y:           optNum(args, "y"),
		Width:       optNum(args, "width"),
		Height:      optNum(args, "height"),
		X2:          optNum(args, "x2"),
		Y2:          optNum(args, "y2"),
		Rotation:    optNum(args, "rotation"),
		Text:        optString(args, "text"),
		Fill:        optString(args, "fill"),
		Stroke:      optString(args, "stroke"),
		StrokeWidth: optNum(args, "strokeWidth"),
		FontSize:    optNum(args, "fontSize"),
		ArrowStart:  optBool(args, "arrowStart"),
		ArrowEnd:    optBool(args, "arrowEnd"),
	}
	if c.IsEmpty() {
		return mcp.NewToolResultError("no fields to update"), nil
	}

	sum, err := ts.shadow.Update(id, c)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sum)
}

func (ts *Toolset) handleDelete(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, _ := req.GetArguments()["id"].(string)
	if err := ts.shadow.Delete(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %s", id)), nil
}

func (ts *Toolset) handleList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(ts.shadow.List())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func num(args map[string]any, key string) float64 {
	v, _ := args[key].(float64)
	return v
}

func optNum(args map[string]any, key string) *float64 {
	if v, ok := args[key].(float64); ok {
		return &v
	}
	return nil
}

func optString(args map[string]any, key string) *string {
	if v, ok := args[key].(string); ok {
		return &v
	}
	return nil
}

func optBool(args map[string]any, key string) *bool {
	if v, ok := args[key].(bool); ok {
		return &v
	}
	return nil
}
