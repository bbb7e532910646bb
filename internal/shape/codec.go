package shape

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownKind = errors.New("unknown shape type")

// Marshal encodes s with a "type" discriminator next to its fields.
func Marshal(s Shape) ([]byte, error) {
	switch v := s.(type) {
	case Rect:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Rect
		}{KindRect, v})
	case Ellipse:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Ellipse
		}{KindEllipse, v})
	case Line:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Line
		}{KindLine, v})
	case Text:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Text
		}{KindText, v})
	case Sticky:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			Sticky
		}{KindSticky, v})
	default:
		return nil, fmt.Errorf("marshal %T: %w", s, ErrUnknownKind)
	}
}

// Unmarshal decodes a record produced by Marshal.
func Unmarshal(data []byte) (Shape, error) {
	var probe struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode shape type: %w", err)
	}

	switch probe.Type {
	case KindRect:
		return decode[Rect](data)
	case KindEllipse:
		return decode[Ellipse](data)
	case KindLine:
		return decode[Line](data)
	case KindText:
		return decode[Text](data)
	case KindSticky:
		return decode[Sticky](data)
	default:
		return nil, fmt.Errorf("%q: %w", probe.Type, ErrUnknownKind)
	}
}

func decode[T Shape](data []byte) (Shape, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", v.Kind(), err)
	}
	return v, nil
}

// Record wraps a Shape so it can sit inside JSON messages.
type Record struct {
	Shape
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.Shape == nil {
		return []byte("null"), nil
	}
	return Marshal(r.Shape)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	s, err := Unmarshal(data)
	if err != nil {
		return err
	}
	r.Shape = s
	return nil
}

// Records wraps a slice of shapes.
func Records(shapes []Shape) []Record {
	out := make([]Record, len(shapes))
	for i, s := range shapes {
		out[i] = Record{Shape: s}
	}
	return out
}

// Unwrap returns the shapes held by records, skipping empty entries.
func Unwrap(records []Record) []Shape {
	out := make([]Shape, 0, len(records))
	for _, r := range records {
		if r.Shape != nil {
			out = append(out, r.Shape)
		}
	}
	return out
}
