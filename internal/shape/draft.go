package shape

import (
	"fmt"
	"math"
)

// Draft is the shape-shaped payload of a create request. Area shapes use X/Y as the
// top-left of their bounding box, including ellipses; lines use X/Y and X2/Y2.
type Draft struct {
	Type        Kind     `json:"type"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Width       float64  `json:"width,omitempty"`
	Height      float64  `json:"height,omitempty"`
	X2          *float64 `json:"x2,omitempty"`
	Y2          *float64 `json:"y2,omitempty"`
	Rotation    float64  `json:"rotation,omitempty"`
	Text        string   `json:"text,omitempty"`
	Fill        string   `json:"fill,omitempty"`
	Stroke      string   `json:"stroke,omitempty"`
	StrokeWidth float64  `json:"strokeWidth,omitempty"`
	FontSize    float64  `json:"fontSize,omitempty"`
	ArrowStart  bool     `json:"arrowStart,omitempty"`
	ArrowEnd    bool     `json:"arrowEnd,omitempty"`
}

const (
	DefaultWidth       = 150
	DefaultHeight      = 100
	DefaultFontSize    = 18
	DefaultStrokeWidth = 2
)

var defaultFill = map[Kind]string{
	KindRect:    "#60a5fa",
	KindEllipse: "#34d399",
	KindLine:    "#1f2937",
	KindText:    "#111827",
	KindSticky:  "#fde68a",
}

// DefaultFill returns the fill used when a draft leaves it empty.
func DefaultFill(k Kind) string {
	return defaultFill[k]
}

// FromDraft builds a full shape from a draft.
func FromDraft(id string, d Draft, createdBy string, z int64) (Shape, error) {
	if !d.Type.Valid() {
		return nil, fmt.Errorf("%q: %w", d.Type, ErrUnknownKind)
	}

	w, h := d.Width, d.Height
	if w <= 0 || math.IsNaN(w) {
		w = DefaultWidth
	}
	if h <= 0 || math.IsNaN(h) {
		h = DefaultHeight
	}
	fill := d.Fill
	if fill == "" {
		fill = DefaultFill(d.Type)
	}

	base := Base{
		ID:        id,
		X:         d.X,
		Y:         d.Y,
		Rotation:  d.Rotation,
		ZIndex:    z,
		Fill:      fill,
		CreatedBy: createdBy,
	}

	switch d.Type {
	case KindRect:
		r := Rect{Base: base, Width: w, Height: h, Stroke: d.Stroke, StrokeWidth: d.StrokeWidth}
		return withDraftLabel(r, d.Text), nil
	case KindEllipse:
		base.X = d.X + w/2
		base.Y = d.Y + h/2
		e := Ellipse{Base: base, RadiusX: w / 2, RadiusY: h / 2, Stroke: d.Stroke, StrokeWidth: d.StrokeWidth}
		return withDraftLabel(e, d.Text), nil
	case KindLine:
		x2, y2 := d.X+d.Width, d.Y+d.Height
		if d.X2 != nil {
			x2 = *d.X2
		}
		if d.Y2 != nil {
			y2 = *d.Y2
		}
		sw := d.StrokeWidth
		if sw <= 0 {
			sw = DefaultStrokeWidth
		}
		return Line{Base: base, X2: x2, Y2: y2, StrokeWidth: sw, ArrowStart: d.ArrowStart, ArrowEnd: d.ArrowEnd}, nil
	case KindText:
		return Text{Base: base, Text: d.Text, Width: w, Height: h, FontSize: fontSizeOr(d.FontSize)}, nil
	default:
		return Sticky{Base: base, Text: d.Text, Width: w, Height: h, FontSize: fontSizeOr(d.FontSize)}, nil
	}
}

func withDraftLabel(s Shape, text string) Shape {
	if text == "" {
		return s
	}
	return Apply(s, Patch{LabelText: String(text)})
}

func fontSizeOr(v float64) float64 {
	if v <= 0 {
		return DefaultFontSize
	}
	return v
}

// Summary is the compact projection sent to the agent. Area shapes report their
// bounding box the same way Draft does.
type Summary struct {
	ID       string   `json:"id"`
	Type     Kind     `json:"type"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	X2       *float64 `json:"x2,omitempty"`
	Y2       *float64 `json:"y2,omitempty"`
	Rotation float64  `json:"rotation,omitempty"`
	Text     string   `json:"text,omitempty"`
	Fill     string   `json:"fill,omitempty"`
}

func Summarize(s Shape) Summary {
	b := s.Meta()
	sum := Summary{ID: b.ID, Type: s.Kind(), X: b.X, Y: b.Y, Rotation: b.Rotation, Fill: b.Fill}
	if b.Label != nil {
		sum.Text = b.Label.Text
	}

	switch v := s.(type) {
	case Rect:
		sum.Width, sum.Height = v.Width, v.Height
	case Ellipse:
		sum.X, sum.Y = v.X-v.RadiusX, v.Y-v.RadiusY
		sum.Width, sum.Height = v.RadiusX*2, v.RadiusY*2
	case Line:
		sum.Width, sum.Height = v.X2-v.X, v.Y2-v.Y
		sum.X2, sum.Y2 = Float(v.X2), Float(v.Y2)
	case Text:
		sum.Width, sum.Height, sum.Text = v.Width, v.Height, v.Text
	case Sticky:
		sum.Width, sum.Height, sum.Text = v.Width, v.Height, v.Text
	}
	return sum
}

// SummarizeAll projects every shape.
func SummarizeAll(shapes []Shape) []Summary {
	out := make([]Summary, 0, len(shapes))
	for _, s := range shapes {
		out = append(out, Summarize(s))
	}
	return out
}

// Draft converts a summary back into a create payload.
func (s Summary) Draft() Draft {
	return Draft{
		Type:     s.Type,
		X:        s.X,
		Y:        s.Y,
		Width:    s.Width,
		Height:   s.Height,
		X2:       s.X2,
		Y2:       s.Y2,
		Rotation: s.Rotation,
		Text:     s.Text,
		Fill:     s.Fill,
	}
}
