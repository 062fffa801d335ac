// Package fdx walks FinalDraft (FDX) screenplay documents.
//
// An FDX document looks like this:
//
//	<FinalDraft>
//	  <Content>
//	    <Paragraph Type="Scene Heading">
//	      <Text Style="Bold+Italic">INT. HOUSE - DAY</Text>
//	    </Paragraph>
//	  </Content>
//	</FinalDraft>
//
// The walker reports paragraphs and their direct Text runs in document
// order, either by pushing events into a Sink or as a lazy sequence of
// Paragraph values. Other elements nested in a paragraph (scene properties,
// script notes) are skipped without being traversed.
package fdx

import (
	"iter"
	"reflect"

	"github.com/FocuswithJustin/fdx2fountain/core/errors"
	"github.com/FocuswithJustin/fdx2fountain/core/xml"
)

// Element names of the FDX structure.
const (
	RootElement      = "FinalDraft"
	ContentElement   = "Content"
	ParagraphElement = "Paragraph"
	TextElement      = "Text"
)

// Attribute names read by the walker.
const (
	TypeAttr  = "Type"
	StyleAttr = "Style"
)

// Sink receives walker events. Every method is called synchronously from
// the walking goroutine.
type Sink interface {
	DocumentStart()
	DocumentEnd()
	// ParagraphStart receives the raw Type attribute, "" when absent.
	ParagraphStart(typ string)
	ParagraphEnd()
	// Text receives the decoded text of a run and its raw Style attribute,
	// "" when absent.
	Text(text, style string)
}

// Run is a contiguous span of text with a single style attribute.
type Run struct {
	Text  string
	Style string
}

// Paragraph is a typed screenplay block and its runs.
type Paragraph struct {
	Type string
	Runs []Run
}

// Document is a structurally valid FDX document.
type Document struct {
	xml     *xml.Document
	content *xml.Node
}

// Load parses data and checks that it is a FinalDraft document.
func Load(data []byte) (*Document, error) {
	doc, err := xml.Parse(data)
	if err != nil {
		return nil, err
	}

	root := doc.Root()
	if root.Name() != RootElement {
		return nil, errors.NewStructural(RootElement, root.Name(),
			"Not FinalDraft document. Root is not FinalDraft.")
	}

	content := root.FirstChild()
	if content.Name() != ContentElement {
		return nil, errors.NewStructural(ContentElement, content.Name(),
			"Not FinalDraft document. Content is not a child of FinalDraft.")
	}

	return &Document{xml: doc, content: content}, nil
}

// Parse loads data and walks it into sink.
func Parse(data []byte, sink Sink) error {
	doc, err := Load(data)
	if err != nil {
		return err
	}
	return doc.Walk(sink)
}

// Walk pushes the document's events into sink.
func (d *Document) Walk(sink Sink) error {
	if isNil(sink) {
		return errors.NewConfiguration("No sink passed.")
	}

	sink.DocumentStart()
	for _, para := range d.paragraphNodes() {
		sink.ParagraphStart(para.Attr(TypeAttr))
		for _, run := range runNodes(para) {
			sink.Text(run.InnerText(), run.Attr(StyleAttr))
		}
		sink.ParagraphEnd()
	}
	sink.DocumentEnd()
	return nil
}

// isNil reports whether sink is nil or holds a nil pointer, map or func.
func isNil(sink Sink) bool {
	if sink == nil {
		return true
	}
	v := reflect.ValueOf(sink)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Paragraphs returns the document's paragraphs as a lazy sequence.
func (d *Document) Paragraphs() iter.Seq[Paragraph] {
	return func(yield func(Paragraph) bool) {
		for _, para := range d.paragraphNodes() {
			p := Paragraph{Type: para.Attr(TypeAttr)}
			for _, run := range runNodes(para) {
				p.Runs = append(p.Runs, Run{
					Text:  run.InnerText(),
					Style: run.Attr(StyleAttr),
				})
			}
			if !yield(p) {
				return
			}
		}
	}
}

func (d *Document) paragraphNodes() []*xml.Node {
	var out []*xml.Node
	for _, child := range d.content.Children() {
		if child.Name() == ParagraphElement {
			out = append(out, child)
		}
	}
	return out
}

func runNodes(para *xml.Node) []*xml.Node {
	var out []*xml.Node
	for _, child := range para.Children() {
		if child.Name() == TextElement {
			out = append(out, child)
		}
	}
	return out
}

// SinkFuncs adapts plain functions to the Sink interface. Nil fields are
// treated as no-ops.
type SinkFuncs struct {
	OnDocumentStart  func()
	OnDocumentEnd    func()
	OnParagraphStart func(typ string)
	OnParagraphEnd   func()
	OnText           func(text, style string)
}

func (s SinkFuncs) DocumentStart() {
	if s.OnDocumentStart != nil {
		s.OnDocumentStart()
	}
}

func (s SinkFuncs) DocumentEnd() {
	if s.OnDocumentEnd != nil {
		s.OnDocumentEnd()
	}
}

func (s SinkFuncs) ParagraphStart(typ string) {
	if s.OnParagraphStart != nil {
		s.OnParagraphStart(typ)
	}
}

func (s SinkFuncs) ParagraphEnd() {
	if s.OnParagraphEnd != nil {
		s.OnParagraphEnd()
	}
}

func (s SinkFuncs) Text(text, style string) {
	if s.OnText != nil {
		s.OnText(text, style)
	}
}
