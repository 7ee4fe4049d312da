package scene

import (
	"encoding/json"
	"testing"
)

func TestDecodeVideoDescription(t *testing.T) {
	const doc = `{
		"frames": [{
			"things": [{
				"z": 1.5,
				"transform": {"pos": {"x": 3, "y": 4}, "scale": {"x": 2, "y": 2}, "angle": 90},
				"visible": true,
				"children": [
					{"Leaf": {"Bezier": {
						"thickness": 0.1,
						"color": {"r": 255, "g": 128, "b": 0},
						"points": [{"x": 0, "y": 0}, {"x": 1, "y": 0}, {"x": 2, "y": 0}]
					}}},
					{"Node": {"z": -1, "transform": {"pos": {"x": 0, "y": 0}, "scale": {"x": 1, "y": 1}, "angle": 0}, "visible": false, "children": []}}
				]
			}],
			"settings": {"bg": {"r": 10, "g": 20, "b": 30}, "camera": {"pos": {"x": 1, "y": 2}, "zoom": 3}}
		}],
		"sounds": [{"id": 4, "start": 0, "end": 12, "looping": true}],
		"fps": 24
	}`

	var v VideoDescription
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.FPS != 24 {
		t.Errorf("fps = %d, want 24", v.FPS)
	}
	if len(v.Frames) != 1 || len(v.Frames[0].Things) != 1 {
		t.Fatalf("unexpected shape: %d frames", len(v.Frames))
	}

	n := v.Frames[0].Things[0]
	if n.Z != 1.5 || !n.Visible {
		t.Errorf("node = %+v", n)
	}
	if len(n.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(n.Children))
	}
	b, ok := n.Children[0].Leaf.(Bezier)
	if !ok {
		t.Fatalf("first child is %T, want Bezier", n.Children[0].Leaf)
	}
	if b.Color.R != 255 || b.Color.G != 128 || b.Points[2].X != 2 {
		t.Errorf("bezier = %+v", b)
	}
	if n.Children[1].Node == nil || n.Children[1].Node.Visible {
		t.Errorf("second child should be an invisible node")
	}

	s := v.Frames[0].Settings
	if s.Background.B != 30 || s.Camera.Zoom != 3 {
		t.Errorf("settings = %+v", s)
	}

	if len(v.Sounds) != 1 || v.Sounds[0].End == nil || *v.Sounds[0].End != 12 {
		t.Errorf("sounds = %+v", v.Sounds)
	}
}

func TestDecodeSettingsDefaults(t *testing.T) {
	var s Settings
	if err := json.Unmarshal([]byte(`{}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Background != (DefaultSettings().Background) {
		t.Errorf("background = %+v, want black", s.Background)
	}
	if s.Camera.Zoom != 1 || s.Camera.Pos.X != 0 || s.Camera.Pos.Y != 0 {
		t.Errorf("camera = %+v, want identity", s.Camera)
	}
}

func TestDecodeScalarScale(t *testing.T) {
	var tr Transform
	if err := json.Unmarshal([]byte(`{"pos": {"x": 0, "y": 0}, "scale": 2.5, "angle": 0}`), &tr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tr.Scale.X != 2.5 || tr.Scale.Y != 2.5 {
		t.Errorf("scale = %+v, want uniform 2.5", tr.Scale)
	}
}

func TestDecodeImgSubrectDefault(t *testing.T) {
	obj, err := unmarshalObject([]byte(`{"Img": {"id": 9}}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	img := obj.(Image)
	if img.ID != 9 || img.Subrect != nil {
		t.Errorf("img = %+v, want id 9 and nil subrect", img)
	}
}

func TestDecodeTextAlignment(t *testing.T) {
	obj, err := unmarshalObject([]byte(`{"Text": {"content": "hi", "alignment": "Center", "width": 5}}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	txt := obj.(Text)
	if txt.Alignment != AlignCenter || txt.Content != "hi" {
		t.Errorf("text = %+v", txt)
	}
}

func TestDecodeFPSDefault(t *testing.T) {
	var v VideoDescription
	if err := json.Unmarshal([]byte(`{"frames": [], "sounds": []}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.FPS != DefaultFPS {
		t.Errorf("fps = %d, want default %d", v.FPS, DefaultFPS)
	}
}

func TestDecodeRejectsAmbiguousContainer(t *testing.T) {
	var c Container
	err := json.Unmarshal([]byte(`{"Node": {}, "Leaf": {"Img": {"id": 1}}}`), &c)
	if err == nil {
		t.Error("expected error for two-variant container")
	}
}

func TestDecodeRejectsUnknownObject(t *testing.T) {
	_, err := unmarshalObject([]byte(`{"Sprite": {}}`))
	if err == nil {
		t.Error("expected error for unknown object variant")
	}
}
