package models

import (
	"reflect"
	"testing"
)

func TestCatalog_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want StringList
	}{
		{"keys", []string{"guitar", "vocals"}, StringList{"Guitar", "Vocals"}},
		{"labels any case", []string{"GUITAR", " drums "}, StringList{"Guitar", "Drums"}},
		{"comma joined", []string{"guitar, bass"}, StringList{"Guitar", "Bass"}},
		{"dedupe", []string{"guitar", "Guitar"}, StringList{"Guitar"}},
		{"custom kept", []string{"Theremin"}, StringList{"Theremin"}},
		{"empties skipped", []string{"", " , "}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Instruments.Normalize(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCatalog_KeysRoundTrip(t *testing.T) {
	stored := Instruments.Normalize([]string{"guitar", "vocals"})
	if got := Instruments.Keys(stored); !reflect.DeepEqual(got, []string{"guitar", "vocals"}) {
		t.Errorf("instrument keys = %v", got)
	}

	genres := Genres.Normalize([]string{"rock"})
	if got := Genres.Keys(genres); !reflect.DeepEqual(got, []string{"rock"}) {
		t.Errorf("genre keys = %v", got)
	}

	if got := Genres.Keys([]string{"Shoegaze"}); !reflect.DeepEqual(got, []string{"shoegaze"}) {
		t.Errorf("custom keys = %v", got)
	}
}

func TestCatalog_Label(t *testing.T) {
	if got := Genres.Label("r&b"); got != "R&B" {
		t.Errorf("Label(r&b) = %q", got)
	}
	if got := Genres.Label("opm"); got != "OPM" {
		t.Errorf("Label(opm) = %q", got)
	}
	if got := Genres.Label("shoegaze"); got != "Shoegaze" {
		t.Errorf("Label(shoegaze) = %q", got)
	}
}

func TestCatalog_Used(t *testing.T) {
	used := Genres.Used([]string{"Jazz", "Rock"}, []string{"Rock", "Custom"})
	want := []Choice{{"rock", "Rock"}, {"jazz", "Jazz"}}
	if !reflect.DeepEqual(used, want) {
		t.Errorf("Used() = %v, want %v", used, want)
	}
}

func TestStringList_ValueScan(t *testing.T) {
	v, err := StringList{"R&B", "Hip-Hop"}.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != `["R&B","Hip-Hop"]` {
		t.Errorf("Value() = %v", v)
	}

	empty, _ := StringList(nil).Value()
	if empty != "[]" {
		t.Errorf("empty Value() = %v", empty)
	}

	var l StringList
	if err := l.Scan([]byte(`["Guitar","Bass"]`)); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !reflect.DeepEqual(l, StringList{"Guitar", "Bass"}) {
		t.Errorf("Scan() = %v", l)
	}
	if err := l.Scan("not json"); err == nil {
		t.Error("Scan should reject invalid JSON")
	}
	if err := l.Scan(42); err == nil {
		t.Error("Scan should reject unsupported types")
	}
}

func TestListElementPattern(t *testing.T) {
	if got := ListElementPattern(" R&B "); got != `%"r&b"%` {
		t.Errorf("ListElementPattern = %q", got)
	}
	if got := ListElementPattern("Hip_Hop 100%"); got != `%"hip!_hop 100!%"%` {
		t.Errorf("ListElementPattern = %q", got)
	}
}

func TestContainsPattern(t *testing.T) {
	tests := []struct{ in, want string }{
		{"rock", "%rock%"},
		{"100%", "%100!%%"},
		{"a_b", "%a!_b%"},
		{"wow!", "%wow!!%"},
	}
	for _, tt := range tests {
		if got := ContainsPattern(tt.in); got != tt.want {
			t.Errorf("ContainsPattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
