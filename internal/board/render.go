package board

import (
	"encoding/json"

	"github.com/inkboard/inkboard/internal/geometry"
	"github.com/inkboard/inkboard/internal/shape"
)

// DrawCommand is a single drawing operation for the canvas. The frontend runs the
// list in painter's order. Transform maps the shape's local frame, where (0, 0)
// is the top-left of its unrotated box, to world space.
type DrawCommand struct {
	Op          string             `json:"op"` // "rect", "ellipse", "line", "text", "sticky", "selection", "handle", "band"
	ObjectID    string             `json:"objectId,omitempty"`
	Transform   *geometry.Matrix2D `json:"transform,omitempty"`
	Width       float64            `json:"width,omitempty"`
	Height      float64            `json:"height,omitempty"`
	Points      []float64          `json:"points,omitempty"` // world x1, y1, x2, y2 for lines
	Fill        string             `json:"fill,omitempty"`
	Stroke      string             `json:"stroke,omitempty"`
	StrokeWidth float64            `json:"strokeWidth,omitempty"`
	Opacity     float64            `json:"opacity,omitempty"`
	Text        string             `json:"text,omitempty"`
	FontSize    float64            `json:"fontSize,omitempty"`
	ArrowStart  bool               `json:"arrowStart,omitempty"`
	ArrowEnd    bool               `json:"arrowEnd,omitempty"`
	Zone        geometry.Zone      `json:"zone,omitempty"`
}

const handleSize = 8.0

// Render returns the draw commands for the board and its selection overlay.
func (c *Controller) Render() []DrawCommand {
	all := c.mem.All()
	commands := make([]DrawCommand, 0, len(all)+8)
	for _, s := range all {
		commands = append(commands, compileShape(s))
	}
	return append(commands, c.overlay()...)
}

// RenderJSON serializes Render for the browser bridge.
func (c *Controller) RenderJSON() string {
	data, err := json.Marshal(c.Render())
	if err != nil {
		return "[]"
	}
	return string(data)
}

func compileShape(s shape.Shape) DrawCommand {
	b := s.Meta()
	f := geometry.Frame(s)
	m := geometry.FrameMatrix(s)
	cmd := DrawCommand{
		Op:        string(s.Kind()),
		ObjectID:  b.ID,
		Transform: &m,
		Width:     f.Width,
		Height:    f.Height,
		Fill:      b.Fill,
		Opacity:   1,
	}
	if b.Opacity != nil {
		cmd.Opacity = *b.Opacity
	}
	if b.Label != nil {
		cmd.Text, cmd.FontSize = b.Label.Text, b.Label.FontSize
	}

	switch v := s.(type) {
	case shape.Rect:
		cmd.Stroke, cmd.StrokeWidth = v.Stroke, v.StrokeWidth
	case shape.Ellipse:
		cmd.Stroke, cmd.StrokeWidth = v.Stroke, v.StrokeWidth
	case shape.Line:
		cmd.Transform = nil
		cmd.Points = []float64{v.X, v.Y, v.X2, v.Y2}
		cmd.Stroke, cmd.Fill = v.Fill, ""
		cmd.StrokeWidth = v.StrokeWidth
		cmd.ArrowStart, cmd.ArrowEnd = v.ArrowStart, v.ArrowEnd
	case shape.Text:
		cmd.Text, cmd.FontSize = v.Text, v.FontSize
	case shape.Sticky:
		cmd.Text, cmd.FontSize = v.Text, v.FontSize
	}
	return cmd
}

// overlay draws the selection box, the singleton's handles and the rubber band.
func (c *Controller) overlay() []DrawCommand {
	var out []DrawCommand
	if band, ok := c.sel.RubberBand(); ok {
		out = append(out, boxCommand("band", band))
	}

	if id, ok := c.sel.Singleton(); ok {
		if s, ok := c.mem.Get(id); ok {
			return append(out, handles(s)...)
		}
	}
	if b, ok := c.sel.Bounds(); ok {
		out = append(out, boxCommand("selection", b))
	}
	return out
}

func boxCommand(op string, r geometry.Rect) DrawCommand {
	m := geometry.Translate(r.X, r.Y)
	return DrawCommand{Op: op, Transform: &m, Width: r.Width, Height: r.Height}
}

func handles(s shape.Shape) []DrawCommand {
	if l, ok := s.(shape.Line); ok {
		return []DrawCommand{
			handleAt(geometry.ZoneStartPoint, l.X, l.Y),
			handleAt(geometry.ZoneEndPoint, l.X2, l.Y2),
		}
	}

	f := geometry.Frame(s)
	m := geometry.FrameMatrix(s)
	out := []DrawCommand{{Op: "selection", ObjectID: shape.ID(s), Transform: &m, Width: f.Width, Height: f.Height}}
	corners := []struct {
		zone   geometry.Zone
		lx, ly float64
	}{
		{geometry.ZoneNWCorner, 0, 0},
		{geometry.ZoneNECorner, f.Width, 0},
		{geometry.ZoneSECorner, f.Width, f.Height},
		{geometry.ZoneSWCorner, 0, f.Height},
	}
	for _, c := range corners {
		x, y := geometry.ToWorld(s, c.lx, c.ly)
		out = append(out, handleAt(c.zone, x, y))
	}
	return out
}

func handleAt(zone geometry.Zone, x, y float64) DrawCommand {
	m := geometry.Translate(x-handleSize/2, y-handleSize/2)
	return DrawCommand{Op: "handle", Transform: &m, Width: handleSize, Height: handleSize, Zone: zone}
}
