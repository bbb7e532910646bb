package agent

import "github.com/inkboard/inkboard/internal/shape"

// Changes is a partial update expressed the way the model sees shapes: area
// shapes by their bounding box, lines by start point plus either an end point or
// a width/height vector.
type Changes struct {
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	X2          *float64 `json:"x2,omitempty"`
	Y2          *float64 `json:"y2,omitempty"`
	Rotation    *float64 `json:"rotation,omitempty"`
	Text        *string  `json:"text,omitempty"`
	Fill        *string  `json:"fill,omitempty"`
	Stroke      *string  `json:"stroke,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`
	FontSize    *float64 `json:"fontSize,omitempty"`
	ArrowStart  *bool    `json:"arrowStart,omitempty"`
	ArrowEnd    *bool    `json:"arrowEnd,omitempty"`
}

func (c Changes) IsEmpty() bool {
	return c == Changes{}
}

// PatchFor translates c into a store patch for the current record s.
func (c Changes) PatchFor(s shape.Shape) shape.Patch {
	p := shape.Patch{
		Rotation:    c.Rotation,
		Fill:        c.Fill,
		Stroke:      c.Stroke,
		StrokeWidth: c.StrokeWidth,
	}

	switch v := s.(type) {
	case shape.Rect:
		p.X, p.Y, p.Width, p.Height = c.X, c.Y, c.Width, c.Height
		p.LabelText = c.Text
	case shape.Ellipse:
		if c.X != nil || c.Y != nil || c.Width != nil || c.Height != nil {
			x := or(c.X, v.X-v.RadiusX)
			y := or(c.Y, v.Y-v.RadiusY)
			w := or(c.Width, v.RadiusX*2)
			h := or(c.Height, v.RadiusY*2)
			p.X, p.Y = shape.Float(x+w/2), shape.Float(y+h/2)
			p.RadiusX, p.RadiusY = shape.Float(w/2), shape.Float(h/2)
		}
		p.LabelText = c.Text
	case shape.Line:
		if c.X != nil || c.Y != nil || c.Width != nil || c.Height != nil || c.X2 != nil || c.Y2 != nil {
			x := or(c.X, v.X)
			y := or(c.Y, v.Y)
			dx := or(c.Width, v.X2-v.X)
			dy := or(c.Height, v.Y2-v.Y)
			p.X, p.Y = shape.Float(x), shape.Float(y)
			p.X2 = shape.Float(or(c.X2, x+dx))
			p.Y2 = shape.Float(or(c.Y2, y+dy))
		}
		p.ArrowStart, p.ArrowEnd = c.ArrowStart, c.ArrowEnd
	case shape.Text, shape.Sticky:
		p.X, p.Y, p.Width, p.Height = c.X, c.Y, c.Width, c.Height
		p.Text = c.Text
		p.FontSize = c.FontSize
	}
	return p
}

func or(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}
