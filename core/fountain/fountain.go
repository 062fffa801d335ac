// Package fountain converts FinalDraft documents to Fountain screenplay
// markup.
//
// Blank-line placement depends on the pair (previous paragraph type,
// current paragraph type); only the six types Fountain distinguishes take
// part. Paragraphs of any other type are dropped and do not affect the
// spacing of their neighbours.
package fountain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/FocuswithJustin/fdx2fountain/core/fdx"
)

// ParagraphType is a screenplay block type Fountain knows how to lay out.
type ParagraphType int

// Recognized paragraph types.
const (
	Unrecognized ParagraphType = iota
	SceneHeading
	Action
	Character
	Dialogue
	Parenthetical
	Transition
)

var paragraphTypeNames = map[string]ParagraphType{
	"Scene Heading": SceneHeading,
	"Action":        Action,
	"Character":     Character,
	"Dialogue":      Dialogue,
	"Parenthetical": Parenthetical,
	"Transition":    Transition,
}

// ParseParagraphType maps an FDX Type attribute to a ParagraphType.
// Matching is exact; anything else is Unrecognized.
func ParseParagraphType(name string) ParagraphType {
	return paragraphTypeNames[name]
}

// String returns the FDX name of the type.
func (t ParagraphType) String() string {
	switch t {
	case SceneHeading:
		return "Scene Heading"
	case Action:
		return "Action"
	case Character:
		return "Character"
	case Dialogue:
		return "Dialogue"
	case Parenthetical:
		return "Parenthetical"
	case Transition:
		return "Transition"
	}
	return "Unrecognized"
}

// Recognized reports whether t has layout rules.
func (t ParagraphType) Recognized() bool {
	return t != Unrecognized
}

// Emit returns the Fountain text for one paragraph given the type of the
// last recognized paragraph before it.
func Emit(previous, current ParagraphType, text string) string {
	switch current {
	case SceneHeading, Transition:
		return "\n" + text + "\n\n"
	case Character:
		text = upper(text)
		if previous == Transition || previous == SceneHeading {
			return text + "\n"
		}
		return "\n" + text + "\n"
	case Parenthetical, Dialogue:
		return text + "\n"
	case Action:
		if previous == Dialogue || previous == Parenthetical {
			return "\n" + text + "\n"
		}
		return text + "\n"
	}
	return ""
}

// upper applies full Unicode case mapping, so "ß" becomes "SS".
func upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

// Formatter is an fdx.Sink that builds Fountain output. A Formatter holds
// the state of one conversion; use a new one per document.
type Formatter struct {
	out      strings.Builder
	text     strings.Builder
	previous ParagraphType
	current  ParagraphType
}

var _ fdx.Sink = (*Formatter)(nil)

// NewFormatter returns an empty Formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// DocumentStart resets the formatter.
func (f *Formatter) DocumentStart() {
	f.out.Reset()
	f.text.Reset()
	f.previous = Unrecognized
	f.current = Unrecognized
}

// DocumentEnd is a no-op; the output has no trailer.
func (f *Formatter) DocumentEnd() {}

// ParagraphStart begins accumulating a paragraph of the given FDX type.
func (f *Formatter) ParagraphStart(typ string) {
	f.current = ParseParagraphType(typ)
	f.text.Reset()
}

// Text appends one styled run to the current paragraph. An empty run in an
// Action paragraph is an explicit line break.
func (f *Formatter) Text(text, style string) {
	if text == "" && f.current == Action {
		f.text.WriteString("\n")
		return
	}
	f.text.WriteString(ParseStyle(style).Wrap(text))
}

// ParagraphEnd emits the accumulated paragraph.
func (f *Formatter) ParagraphEnd() {
	if f.current.Recognized() {
		f.out.WriteString(Emit(f.previous, f.current, f.text.String()))
		f.previous = f.current
	}
	f.text.Reset()
}

// String returns the Fountain output produced so far.
func (f *Formatter) String() string {
	return f.out.String()
}

// Convert converts an FDX document to Fountain. Errors are those of
// fdx.Parse; no partial output is returned.
func Convert(data []byte) (string, error) {
	f := NewFormatter()
	if err := fdx.Parse(data, f); err != nil {
		return "", err
	}
	return f.String(), nil
}

// ConvertString is Convert for string input.
func ConvertString(s string) (string, error) {
	return Convert([]byte(s))
}

// ConvertDocument converts an already loaded document.
func ConvertDocument(doc *fdx.Document) (string, error) {
	f := NewFormatter()
	if err := doc.Walk(f); err != nil {
		return "", err
	}
	return f.String(), nil
}
