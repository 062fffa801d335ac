package fountain

import "testing"

func TestParseStyle(t *testing.T) {
	tests := []struct {
		attr string
		want Style
	}{
		{"", Plain},
		{"Bold", Bold},
		{"Italic", Italic},
		{"Underline", Underline},
		{"Bold+Italic", Bold | Italic},
		{"Italic+Bold", Bold | Italic},
		{"Underline+Bold+Italic", Bold | Italic | Underline},
		{"Bold+Bold", Bold},
		{"AllCaps+Strikeout", Plain},
		{"bold", Plain},
		{"Bold+", Bold},
	}

	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			if got := ParseStyle(tt.attr); got != tt.want {
				t.Errorf("ParseStyle(%q) = %v, want %v", tt.attr, got, tt.want)
			}
		})
	}
}

func TestStyleWrap(t *testing.T) {
	tests := []struct {
		style Style
		want  string
	}{
		{Plain, "text"},
		{Bold, "**text**"},
		{Italic, "*text*"},
		{Underline, "_text_"},
		{Bold | Italic, "***text***"},
		{Bold | Underline, "_**text**_"},
		{Italic | Underline, "_*text*_"},
		{Bold | Italic | Underline, "_***text***_"},
	}

	for _, tt := range tests {
		t.Run(tt.style.String(), func(t *testing.T) {
			if got := tt.style.Wrap("text"); got != tt.want {
				t.Errorf("Wrap() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStyleString(t *testing.T) {
	if got := (Underline | Bold).String(); got != "Bold+Underline" {
		t.Errorf("String() = %q, want Bold+Underline", got)
	}
	if got := Plain.String(); got != "" {
		t.Errorf("Plain.String() = %q, want empty", got)
	}
	// String and ParseStyle round-trip every combination.
	for s := Plain; s <= Bold|Italic|Underline; s++ {
		if got := ParseStyle(s.String()); got != s {
			t.Errorf("ParseStyle(%q) = %v, want %v", s.String(), got, s)
		}
	}
}
