package inspector

import "testing"

type probe struct {
	Speed   float64 `inspect:"bar,max:200"`
	Label   string
	Active  bool
	Hidden  int `inspect:"skip"`
	Ratio   float64 `inspect:"label,fmt:%.1f"`
	private int
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		tag    string
		widget Widget
		opts   map[string]string
	}{
		{"", WidgetAuto, map[string]string{}},
		{"bar,max:200", WidgetBar, map[string]string{"max": "200"}},
		{"label, fmt:%.1f", WidgetLabel, map[string]string{"fmt": "%.1f"}},
		{"skip", WidgetSkip, map[string]string{}},
		{"whatever", WidgetAuto, map[string]string{}},
	}
	for _, tt := range tests {
		w, opts := ParseTag(tt.tag)
		if w != tt.widget {
			t.Errorf("ParseTag(%q) widget = %v, want %v", tt.tag, w, tt.widget)
		}
		if len(opts) != len(tt.opts) {
			t.Errorf("ParseTag(%q) options = %v, want %v", tt.tag, opts, tt.opts)
			continue
		}
		for k, v := range tt.opts {
			if opts[k] != v {
				t.Errorf("ParseTag(%q)[%q] = %q, want %q", tt.tag, k, opts[k], v)
			}
		}
	}
}

func TestExtractFields(t *testing.T) {
	fields := ExtractFields(&probe{Speed: 90, Label: "hero", Active: true, Ratio: 0.3})
	if len(fields) != 4 {
		t.Fatalf("len(fields) = %d, want 4: %+v", len(fields), fields)
	}
	want := []struct {
		name   string
		widget Widget
	}{
		{"Speed", WidgetBar},
		{"Label", WidgetLabel},
		{"Active", WidgetBool},
		{"Ratio", WidgetLabel},
	}
	for i, w := range want {
		if fields[i].Name != w.name || fields[i].Widget != w.widget {
			t.Errorf("field %d = %s/%v, want %s/%v", i, fields[i].Name, fields[i].Widget, w.name, w.widget)
		}
		if fields[i].Component != "probe" {
			t.Errorf("field %d component = %q", i, fields[i].Component)
		}
	}
	if got := GetMax(fields[0].Options); got != 200 {
		t.Errorf("GetMax = %v, want 200", got)
	}
	if v, ok := GetFloatValue(fields[0].Value); !ok || v != 90 {
		t.Errorf("GetFloatValue = %v, %v", v, ok)
	}

	if ExtractFields((*probe)(nil)) != nil || ExtractFields(3) != nil {
		t.Error("non-struct values produced fields")
	}
}

func TestFieldMap(t *testing.T) {
	m := FieldMap(probe{Speed: 90, Label: "hero", Ratio: 0.3})
	tests := map[string]string{
		"probe.Speed":  "90.00",
		"probe.Label":  "hero",
		"probe.Active": "false",
		"probe.Ratio":  "0.3",
	}
	for k, want := range tests {
		if m[k] != want {
			t.Errorf("FieldMap[%q] = %q, want %q", k, m[k], want)
		}
	}
	if _, ok := m["probe.Hidden"]; ok {
		t.Error("skipped field present")
	}
}
