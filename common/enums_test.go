package common

import "testing"

func TestParseOutputMode(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputMode
		wantErr bool
	}{
		{"separate", OutputModeSeparate, false},
		{"merged", OutputModeMerged, false},
		{"Merged", OutputMode(0), true},
		{"sideways", OutputMode(0), true},
		{"", OutputMode(0), true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputMode(%q) error = %v", tt.in, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseOutputMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOutputMode_Text(t *testing.T) {
	var m OutputMode
	if err := m.UnmarshalText([]byte("merged")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if m != OutputModeMerged || !m.IsValid() {
		t.Errorf("UnmarshalText() = %v", m)
	}
	text, err := m.MarshalText()
	if err != nil || string(text) != "merged" {
		t.Errorf("MarshalText() = %q, %v", text, err)
	}
	if OutputMode(7).IsValid() {
		t.Error("OutputMode(7) must not be valid")
	}
}
