package scene

import (
	"encoding/json"
	"fmt"

	"github.com/gogpu/reel"
)

// Wire format notes.
//
// Unions are externally tagged: a Container is {"Node": {...}} or
// {"Leaf": {...}}, an Object is {"Bezier": {...}}, {"Img": {...}} or
// {"Text": {...}}. Settings fields are optional with defaults (black
// background, identity camera). A transform scale may be a scalar or a
// {x, y} pair. Angles are degrees on the wire.

type wirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type wireColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// UnmarshalJSON decodes a transform, accepting either a scalar or a
// point for the scale component.
func (t *Transform) UnmarshalJSON(data []byte) error {
	var raw struct {
		Pos   wirePoint       `json:"pos"`
		Scale json.RawMessage `json:"scale"`
		Angle float64         `json:"angle"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Pos = reel.Pt(raw.Pos.X, raw.Pos.Y)
	t.Angle = raw.Angle
	t.Scale = reel.Pt(1, 1)
	if len(raw.Scale) == 0 {
		return nil
	}

	var scalar float64
	if err := json.Unmarshal(raw.Scale, &scalar); err == nil {
		t.Scale = reel.Pt(scalar, scalar)
		return nil
	}
	var pt wirePoint
	if err := json.Unmarshal(raw.Scale, &pt); err != nil {
		return fmt.Errorf("transform scale: %w", err)
	}
	t.Scale = reel.Pt(pt.X, pt.Y)
	return nil
}

// UnmarshalJSON decodes a node.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw struct {
		Z         float64     `json:"z"`
		Transform *Transform  `json:"transform"`
		Visible   bool        `json:"visible"`
		Children  []Container `json:"children"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Z = raw.Z
	if raw.Transform != nil {
		n.Transform = *raw.Transform
	} else {
		n.Transform = IdentityTransform()
	}
	n.Visible = raw.Visible
	n.Children = raw.Children
	return nil
}

// UnmarshalJSON decodes the Container union from its external tag.
func (c *Container) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("container: want exactly one of Node/Leaf, got %d keys", len(raw))
	}
	if body, ok := raw["Node"]; ok {
		var n Node
		if err := json.Unmarshal(body, &n); err != nil {
			return err
		}
		*c = Container{Node: &n}
		return nil
	}
	if body, ok := raw["Leaf"]; ok {
		obj, err := unmarshalObject(body)
		if err != nil {
			return err
		}
		*c = Container{Leaf: obj}
		return nil
	}
	return fmt.Errorf("container: unknown variant")
}

func unmarshalObject(data []byte) (Object, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) != 1 {
		return nil, fmt.Errorf("object: want exactly one variant, got %d keys", len(raw))
	}
	for tag, body := range raw {
		switch tag {
		case "Bezier":
			var w struct {
				Thickness float64      `json:"thickness"`
				Color     wireColor    `json:"color"`
				Points    [3]wirePoint `json:"points"`
			}
			if err := json.Unmarshal(body, &w); err != nil {
				return nil, err
			}
			b := Bezier{
				Thickness: w.Thickness,
				Color:     reel.RGB8{R: w.Color.R, G: w.Color.G, B: w.Color.B},
			}
			for i, p := range w.Points {
				b.Points[i] = reel.Pt(p.X, p.Y)
			}
			return b, nil
		case "Img":
			var w struct {
				ID      uint32 `json:"id"`
				Subrect *struct {
					X float64 `json:"x"`
					Y float64 `json:"y"`
					W float64 `json:"w"`
					H float64 `json:"h"`
				} `json:"subrect"`
			}
			if err := json.Unmarshal(body, &w); err != nil {
				return nil, err
			}
			img := Image{ID: w.ID}
			if w.Subrect != nil {
				img.Subrect = &Rect{X: w.Subrect.X, Y: w.Subrect.Y, W: w.Subrect.W, H: w.Subrect.H}
			}
			return img, nil
		case "Text":
			var w struct {
				Content   string  `json:"content"`
				Alignment string  `json:"alignment"`
				Width     float64 `json:"width"`
			}
			if err := json.Unmarshal(body, &w); err != nil {
				return nil, err
			}
			align := AlignLeft
			switch w.Alignment {
			case "Center":
				align = AlignCenter
			case "Right":
				align = AlignRight
			}
			return Text{Content: w.Content, Alignment: align, Width: w.Width}, nil
		default:
			return nil, fmt.Errorf("object: unknown variant %q", tag)
		}
	}
	return nil, fmt.Errorf("object: empty union")
}

// UnmarshalJSON decodes settings, filling in the black background and
// identity camera defaults for absent fields.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw struct {
		BG     *wireColor `json:"bg"`
		Camera *struct {
			Pos  wirePoint `json:"pos"`
			Zoom float64   `json:"zoom"`
		} `json:"camera"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = DefaultSettings()
	if raw.BG != nil {
		s.Background = reel.RGB8{R: raw.BG.R, G: raw.BG.G, B: raw.BG.B}
	}
	if raw.Camera != nil {
		s.Camera = Camera{Pos: reel.Pt(raw.Camera.Pos.X, raw.Camera.Pos.Y), Zoom: raw.Camera.Zoom}
	}
	return nil
}

// UnmarshalJSON decodes a frame; absent settings take the defaults.
func (f *FrameDescription) UnmarshalJSON(data []byte) error {
	var raw struct {
		Things   []Node    `json:"things"`
		Settings *Settings `json:"settings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Things = raw.Things
	if raw.Settings != nil {
		f.Settings = *raw.Settings
	} else {
		f.Settings = DefaultSettings()
	}
	return nil
}

// DefaultFPS is used when a clip omits its frame rate.
const DefaultFPS = 16

// UnmarshalJSON decodes a clip, defaulting fps when omitted or zero.
func (v *VideoDescription) UnmarshalJSON(data []byte) error {
	var raw struct {
		Frames []FrameDescription `json:"frames"`
		Sounds []AudioDescription `json:"sounds"`
		FPS    int                `json:"fps"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.Frames = raw.Frames
	v.Sounds = raw.Sounds
	v.FPS = raw.FPS
	if v.FPS <= 0 {
		v.FPS = DefaultFPS
	}
	return nil
}

// UnmarshalJSON decodes an audio entry.
func (a *AudioDescription) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      uint32 `json:"id"`
		Start   int    `json:"start"`
		End     *int   `json:"end"`
		Looping bool   `json:"looping"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.ID = raw.ID
	a.Start = raw.Start
	a.End = raw.End
	a.Looping = raw.Looping
	return nil
}
