package shape

// Patch is a partial update. Nil fields are left untouched, and fields that do not
// belong to the target variant are ignored.
type Patch struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	Opacity  *float64 `json:"opacity,omitempty"`
	ZIndex   *int64   `json:"zIndex,omitempty"`
	Fill     *string  `json:"fill,omitempty"`

	LabelText     *string  `json:"labelText,omitempty"`
	LabelFontSize *float64 `json:"labelFontSize,omitempty"`
	LabelColor    *string  `json:"labelColor,omitempty"`

	Width   *float64 `json:"width,omitempty"`
	Height  *float64 `json:"height,omitempty"`
	RadiusX *float64 `json:"radiusX,omitempty"`
	RadiusY *float64 `json:"radiusY,omitempty"`

	Stroke      *string  `json:"stroke,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`

	X2         *float64 `json:"x2,omitempty"`
	Y2         *float64 `json:"y2,omitempty"`
	ArrowStart *bool    `json:"arrowStart,omitempty"`
	ArrowEnd   *bool    `json:"arrowEnd,omitempty"`

	Text     *string  `json:"text,omitempty"`
	FontSize *float64 `json:"fontSize,omitempty"`
}

const (
	DefaultLabelFontSize = 16
	DefaultLabelColor    = "#111827"
)

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// Apply merges p into a copy of s and returns the copy.
func Apply(s Shape, p Patch) Shape {
	b := applyBase(s.Meta(), p)

	switch v := s.(type) {
	case Rect:
		v.Base = b
		setF(&v.Width, p.Width)
		setF(&v.Height, p.Height)
		setS(&v.Stroke, p.Stroke)
		setF(&v.StrokeWidth, p.StrokeWidth)
		return v
	case Ellipse:
		v.Base = b
		setF(&v.RadiusX, p.RadiusX)
		setF(&v.RadiusY, p.RadiusY)
		setS(&v.Stroke, p.Stroke)
		setF(&v.StrokeWidth, p.StrokeWidth)
		return v
	case Line:
		v.Base = b
		setF(&v.X2, p.X2)
		setF(&v.Y2, p.Y2)
		setF(&v.StrokeWidth, p.StrokeWidth)
		if p.ArrowStart != nil {
			v.ArrowStart = *p.ArrowStart
		}
		if p.ArrowEnd != nil {
			v.ArrowEnd = *p.ArrowEnd
		}
		return v
	case Text:
		v.Base = b
		setS(&v.Text, p.Text)
		setF(&v.Width, p.Width)
		setF(&v.Height, p.Height)
		setF(&v.FontSize, p.FontSize)
		return v
	case Sticky:
		v.Base = b
		setS(&v.Text, p.Text)
		setF(&v.Width, p.Width)
		setF(&v.Height, p.Height)
		setF(&v.FontSize, p.FontSize)
		return v
	default:
		return s
	}
}

func applyBase(b Base, p Patch) Base {
	setF(&b.X, p.X)
	setF(&b.Y, p.Y)
	setF(&b.Rotation, p.Rotation)
	setS(&b.Fill, p.Fill)
	if p.Opacity != nil {
		b.Opacity = Float(clamp01(*p.Opacity))
	}
	if p.ZIndex != nil {
		b.ZIndex = *p.ZIndex
	}

	if p.LabelText != nil || p.LabelFontSize != nil || p.LabelColor != nil {
		label := Label{FontSize: DefaultLabelFontSize, Color: DefaultLabelColor}
		if b.Label != nil {
			label = *b.Label
		}
		setS(&label.Text, p.LabelText)
		setF(&label.FontSize, p.LabelFontSize)
		setS(&label.Color, p.LabelColor)
		b.Label = &label
	}
	return b
}

func setF(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setS(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
