package fdx

import (
	"sort"

	"github.com/antchfx/xpath"
)

// RecognizedTypes lists the paragraph types that carry Fountain semantics,
// in the order they are reported.
var RecognizedTypes = []string{
	"Scene Heading",
	"Action",
	"Character",
	"Dialogue",
	"Parenthetical",
	"Transition",
}

// Compiled xpath expressions keep iteration state, so they are compiled
// per call rather than shared between goroutines. Only the first child of
// the root is walked, so the expressions are anchored to it.
const (
	paragraphCountExpr = "count(/FinalDraft/*[1][self::Content]/Paragraph)"
	textCountExpr      = "count(/FinalDraft/*[1][self::Content]/Paragraph/Text)"
)

// TypeCount is the number of paragraphs of one type.
type TypeCount struct {
	Type       string `json:"type"`
	Count      int    `json:"count"`
	Recognized bool   `json:"recognized"`
}

// Summary describes the paragraph make-up of a document.
type Summary struct {
	Paragraphs   int         `json:"paragraphs"`
	Runs         int         `json:"runs"`
	Unrecognized int         `json:"unrecognized"`
	Types        []TypeCount `json:"types"`
}

// Summarize counts paragraphs and runs by type. Recognized types come
// first in their canonical order, followed by other types sorted by name.
func (d *Document) Summarize() Summary {
	s := Summary{
		Paragraphs: int(d.xml.Evaluate(xpath.MustCompile(paragraphCountExpr)).(float64)),
		Runs:       int(d.xml.Evaluate(xpath.MustCompile(textCountExpr)).(float64)),
	}

	counts := make(map[string]int)
	for _, para := range d.paragraphNodes() {
		counts[para.Attr(TypeAttr)]++
	}

	known := make(map[string]bool, len(RecognizedTypes))
	for _, typ := range RecognizedTypes {
		known[typ] = true
		if n := counts[typ]; n > 0 {
			s.Types = append(s.Types, TypeCount{Type: typ, Count: n, Recognized: true})
		}
	}

	var other []TypeCount
	for typ, n := range counts {
		if known[typ] {
			continue
		}
		other = append(other, TypeCount{Type: typ, Count: n})
		s.Unrecognized += n
	}
	sort.Slice(other, func(i, j int) bool { return other[i].Type < other[j].Type })
	s.Types = append(s.Types, other...)

	return s
}
