package shape

// Kind tags the variant of a Shape.
type Kind string

const (
	KindRect    Kind = "rect"
	KindEllipse Kind = "ellipse"
	KindLine    Kind = "line"
	KindText    Kind = "text"
	KindSticky  Kind = "sticky"
)

// Kinds lists every variant in a stable order.
var Kinds = []Kind{KindRect, KindEllipse, KindLine, KindText, KindSticky}

func (k Kind) Valid() bool {
	switch k {
	case KindRect, KindEllipse, KindLine, KindText, KindSticky:
		return true
	default:
		return false
	}
}

// Label is optional text centered on a shape.
type Label struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"fontSize"`
	Color    string  `json:"color"`
}

// Base holds the fields every variant carries.
//
// X and Y are the top-left corner of the unrotated box for rect, text and sticky,
// the center for ellipse, and the start point for line.
type Base struct {
	ID        string   `json:"id"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Rotation  float64  `json:"rotation,omitempty"`
	Opacity   *float64 `json:"opacity,omitempty"`
	ZIndex    int64    `json:"zIndex"`
	Fill      string   `json:"fill"`
	CreatedBy string   `json:"createdBy"`
	Label     *Label   `json:"label,omitempty"`
}

// Shape is a closed union over Rect, Ellipse, Line, Text and Sticky.
// Values are immutable copies; mutation goes through Apply.
type Shape interface {
	Kind() Kind
	Meta() Base
	withMeta(Base) Shape
}

type Rect struct {
	Base
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

type Ellipse struct {
	Base
	RadiusX     float64 `json:"radiusX"`
	RadiusY     float64 `json:"radiusY"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

type Line struct {
	Base
	X2          float64 `json:"x2"`
	Y2          float64 `json:"y2"`
	StrokeWidth float64 `json:"strokeWidth"`
	ArrowStart  bool    `json:"arrowStart"`
	ArrowEnd    bool    `json:"arrowEnd"`
}

type Text struct {
	Base
	Text     string  `json:"text"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	FontSize float64 `json:"fontSize"`
}

type Sticky struct {
	Base
	Text     string  `json:"text"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	FontSize float64 `json:"fontSize"`
}

func (Rect) Kind() Kind    { return KindRect }
func (Ellipse) Kind() Kind { return KindEllipse }
func (Line) Kind() Kind    { return KindLine }
func (Text) Kind() Kind    { return KindText }
func (Sticky) Kind() Kind  { return KindSticky }

func (s Rect) Meta() Base    { return s.Base }
func (s Ellipse) Meta() Base { return s.Base }
func (s Line) Meta() Base    { return s.Base }
func (s Text) Meta() Base    { return s.Base }
func (s Sticky) Meta() Base  { return s.Base }

func (s Rect) withMeta(b Base) Shape {
	s.Base = b
	return s
}

func (s Ellipse) withMeta(b Base) Shape {
	s.Base = b
	return s
}

func (s Line) withMeta(b Base) Shape {
	s.Base = b
	return s
}

func (s Text) withMeta(b Base) Shape {
	s.Base = b
	return s
}

func (s Sticky) withMeta(b Base) Shape {
	s.Base = b
	return s
}

// ID returns the shape id, or "" for a nil shape.
func ID(s Shape) string {
	if s == nil {
		return ""
	}
	return s.Meta().ID
}

// WithID returns a copy of s carrying a different id.
func WithID(s Shape, id string) Shape {
	b := s.Meta()
	b.ID = id
	return s.withMeta(b)
}

// WithAuthor returns a copy of s attributed to author.
func WithAuthor(s Shape, author string) Shape {
	b := s.Meta()
	b.CreatedBy = author
	return s.withMeta(b)
}

// Translate returns a copy of s moved by (dx, dy). Lines move both endpoints.
func Translate(s Shape, dx, dy float64) Shape {
	b := s.Meta()
	b.X += dx
	b.Y += dy
	if l, ok := s.(Line); ok {
		l.Base = b
		l.X2 += dx
		l.Y2 += dy
		return l
	}
	return s.withMeta(b)
}

func Float(v float64) *float64 { return &v }
func String(v string) *string  { return &v }
func Bool(v bool) *bool        { return &v }
func Int(v int64) *int64       { return &v }
