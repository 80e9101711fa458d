package task

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   Type
		wantOK bool
	}{
		{"question", Question, true},
		{"summary", Summary, true},
		{"creative", Creative, true},
		{"advice", Advice, true},
		{"Question", "", false},
		{"", "", false},
		{"poem", "", false},
	}

	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Parse(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestTag(t *testing.T) {
	if got := Summary.Tag(); got != "[summary]" {
		t.Errorf("Summary.Tag() = %q, want %q", got, "[summary]")
	}
}

func TestTemperature(t *testing.T) {
	for _, tt := range All {
		want := float32(0.3)
		if tt == Creative {
			want = 0.8
		}
		if got := tt.Temperature(); got != want {
			t.Errorf("%s.Temperature() = %v, want %v", tt, got, want)
		}
	}
}
