package shape

import "github.com/inkboard/inkboard/internal/typeid"

// NewSampleBoard returns one shape of every variant, used to seed playground boards.
func NewSampleBoard(createdBy string) []Shape {
	label := &Label{Text: "Start here", FontSize: DefaultLabelFontSize, Color: DefaultLabelColor}

	return []Shape{
		Rect{
			Base: Base{
				ID:        typeid.NewShapeID(),
				X:         100,
				Y:         100,
				ZIndex:    1,
				Fill:      DefaultFill(KindRect),
				CreatedBy: createdBy,
				Label:     label,
			},
			Width:       300,
			Height:      250,
			Stroke:      "#1e3a8a",
			StrokeWidth: 2,
		},
		Ellipse{
			Base: Base{
				ID:        typeid.NewShapeID(),
				X:         620,
				Y:         220,
				ZIndex:    2,
				Fill:      DefaultFill(KindEllipse),
				CreatedBy: createdBy,
			},
			RadiusX: 110,
			RadiusY: 80,
		},
		Line{
			Base: Base{
				ID:        typeid.NewShapeID(),
				X:         400,
				Y:         225,
				ZIndex:    3,
				Fill:      DefaultFill(KindLine),
				CreatedBy: createdBy,
			},
			X2:          510,
			Y2:          225,
			StrokeWidth: DefaultStrokeWidth,
			ArrowEnd:    true,
		},
		Text{
			Base: Base{
				ID:        typeid.NewShapeID(),
				X:         100,
				Y:         40,
				ZIndex:    4,
				Fill:      DefaultFill(KindText),
				CreatedBy: createdBy,
			},
			Text:     "Welcome to the board",
			Width:    320,
			Height:   40,
			FontSize: 24,
		},
		Sticky{
			Base: Base{
				ID:        typeid.NewShapeID(),
				X:         520,
				Y:         420,
				Rotation:  -4,
				ZIndex:    5,
				Fill:      DefaultFill(KindSticky),
				CreatedBy: createdBy,
			},
			Text:     "Ask the assistant to lay out a flowchart",
			Width:    200,
			Height:   160,
			FontSize: DefaultFontSize,
		},
	}
}
