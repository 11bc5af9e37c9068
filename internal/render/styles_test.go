package render

import "testing"

func TestResolveStyle(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty defaults to auto", input: "", want: StyleAuto},
		{name: "exact match", input: "dark", want: "dark"},
		{name: "fuzzy prefix", input: "drac", want: "dracula"},
		{name: "fuzzy typo", input: "tokyonight", want: "tokyo-night"},
		{name: "no match", input: "zzzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveStyle(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ResolveStyle(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveStyle(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ResolveStyle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStylesIsACopy(t *testing.T) {
	first := Styles()
	first[0] = "mutated"
	if second := Styles(); second[0] == "mutated" {
		t.Error("Styles() exposes internal slice")
	}
}

func TestTerminalRendersNotty(t *testing.T) {
	out, err := Terminal("# Hi\n\nsome **bold** text\n", "notty", 60)
	if err != nil {
		t.Fatalf("Terminal() error: %v", err)
	}
	if out == "" {
		t.Error("Terminal() returned empty output")
	}
}
