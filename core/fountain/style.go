package fountain

import "strings"

// Style is the set of emphasis flags carried by a text run.
type Style uint8

// Style flags.
const (
	Bold Style = 1 << iota
	Italic
	Underline
)

// Plain is a run without emphasis.
const Plain Style = 0

// ParseStyle parses a "+"-joined FDX style attribute such as
// "Bold+Underline". Unknown names, including FDX styles with no Fountain
// equivalent (AllCaps, Strikeout), are ignored.
func ParseStyle(attr string) Style {
	var s Style
	if attr == "" {
		return s
	}
	for _, name := range strings.Split(attr, "+") {
		switch name {
		case "Bold":
			s |= Bold
		case "Italic":
			s |= Italic
		case "Underline":
			s |= Underline
		}
	}
	return s
}

// Has reports whether all flags in f are set.
func (s Style) Has(f Style) bool {
	return s&f == f
}

// Wrap applies Fountain emphasis markup to text. Bold is applied first and
// underline last, so the nesting is always _*(**text**)*_ whatever order
// the attribute listed the styles in.
func (s Style) Wrap(text string) string {
	if s.Has(Bold) {
		text = "**" + text + "**"
	}
	if s.Has(Italic) {
		text = "*" + text + "*"
	}
	if s.Has(Underline) {
		text = "_" + text + "_"
	}
	return text
}

// String returns the style in FDX attribute form.
func (s Style) String() string {
	var names []string
	if s.Has(Bold) {
		names = append(names, "Bold")
	}
	if s.Has(Italic) {
		names = append(names, "Italic")
	}
	if s.Has(Underline) {
		names = append(names, "Underline")
	}
	return strings.Join(names, "+")
}
