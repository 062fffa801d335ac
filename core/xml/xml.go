// Package xml provides pure Go XML parsing, validation and XPath evaluation
// for FinalDraft documents.
//
// Security Notes:
//   - XXE (External Entity) attacks are mitigated by using Go's xml.Decoder
//     which doesn't fetch external entities by default, and we explicitly
//     disable entity expansion in validation functions.
//   - The xmlquery library is used for parsing, which uses Go's encoding/xml
//     internally and inherits its security properties.
package xml

import (
	"bytes"
	"encoding/xml"
	stderrors "errors"
	"fmt"
	"io"
	"regexp"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/FocuswithJustin/fdx2fountain/core/errors"
)

// Document represents a parsed XML document.
type Document struct {
	root *xmlquery.Node
}

// Node represents an XML element.
type Node struct {
	node *xmlquery.Node
}

// ValidationResult contains the result of XML validation.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// ValidationError represents a single validation error.
type ValidationError struct {
	Line    int
	Column  int
	Message string
}

var (
	bomUTF8    = []byte{0xef, 0xbb, 0xbf}
	bomUTF16LE = []byte{0xff, 0xfe}
	bomUTF16BE = []byte{0xfe, 0xff}

	// encodingDecl matches the encoding pseudo-attribute of the XML declaration.
	encodingDecl = regexp.MustCompile(`^(\s*<\?xml[^>]*?)\s+encoding\s*=\s*("[^"]*"|'[^']*')`)
)

// Parse parses XML data and returns a Document. Malformed input, and input
// without a root element, yields a *errors.SyntaxError.
func Parse(data []byte) (*Document, error) {
	data, err := Normalize(data)
	if err != nil {
		return nil, errors.NewSyntax(0, 0, err)
	}

	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		line := 0
		var se *xml.SyntaxError
		if stderrors.As(err, &se) {
			line = se.Line
		}
		return nil, errors.NewSyntax(line, 0, fmt.Errorf("parsing XML: %w", err))
	}

	doc := &Document{root: root}
	if doc.Root() == nil {
		return nil, &errors.SyntaxError{Message: "Could not parse the final draft document. No root element."}
	}

	// xmlquery keeps text and extra elements next to the root.
	decoder := newDecoder(data)
	var top topLevel
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		if err := top.check(tok); err != nil {
			line, column := decoder.InputPos()
			return nil, errors.NewSyntax(line, column, err)
		}
	}
	return doc, nil
}

// topLevel tracks element depth and rejects content outside the single
// root element.
type topLevel struct {
	depth int
	roots int
}

func (t *topLevel) check(tok xml.Token) error {
	switch tok := tok.(type) {
	case xml.StartElement:
		if t.depth == 0 {
			t.roots++
			if t.roots > 1 {
				return fmt.Errorf("element <%s> after the root element", tok.Name.Local)
			}
		}
		t.depth++
	case xml.EndElement:
		t.depth--
	case xml.CharData:
		if t.depth == 0 && len(bytes.Trim(tok, " \t\r\n")) > 0 {
			return stderrors.New("text outside the root element")
		}
	}
	return nil
}

func newDecoder(data []byte) *xml.Decoder {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Entity = map[string]string{}
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return decoder
}

// Normalize converts UTF-16 input (detected by its byte order mark) to
// UTF-8 and strips a UTF-8 byte order mark. The encoding declaration of a
// transcoded document is dropped so the decoder does not convert it twice.
func Normalize(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], nil
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		out, _, err := transform.Bytes(decoder, data)
		if err != nil {
			return nil, fmt.Errorf("decoding UTF-16: %w", err)
		}
		return encodingDecl.ReplaceAll(out, []byte("$1")), nil
	}
	return data, nil
}

// Validate checks XML data for well-formedness and returns a
// ValidationResult. Positions are 1-based.
//
// Security: entity expansion is disabled. Go's xml.Decoder does not fetch
// external entities by default, and internal expansion is turned off too.
func Validate(data []byte) ValidationResult {
	result := ValidationResult{Valid: true}

	data, err := Normalize(data)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{Message: err.Error()})
		return result
	}

	decoder := newDecoder(data)
	var top topLevel
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err == nil {
			err = top.check(tok)
		}
		if err != nil {
			line, column := decoder.InputPos()
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Line:    line,
				Column:  column,
				Message: err.Error(),
			})
			return result
		}
	}

	if top.roots == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Message: "document has no root element",
		})
	}

	return result
}

// Root returns the root element of the document.
func (d *Document) Root() *Node {
	if d == nil || d.root == nil {
		return nil
	}
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return &Node{node: child}
		}
	}
	return nil
}

// XPath executes an XPath query and returns matching nodes.
func (d *Document) XPath(expr string) ([]*Node, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}

	nodes := xmlquery.QuerySelectorAll(d.root, compiled)
	result := make([]*Node, len(nodes))
	for i, n := range nodes {
		result[i] = &Node{node: n}
	}
	return result, nil
}

// XPathFirst executes an XPath query and returns the first matching node,
// or nil when nothing matches.
func (d *Document) XPathFirst(expr string) (*Node, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}

	node := xmlquery.QuerySelector(d.root, compiled)
	if node == nil {
		return nil, nil
	}
	return &Node{node: node}, nil
}

// Evaluate evaluates an XPath expression that yields a value rather than a
// node set, such as count() or string(). Numbers are returned as float64.
func (d *Document) Evaluate(expr *xpath.Expr) interface{} {
	return expr.Evaluate(xmlquery.CreateXPathNavigator(d.root))
}

// Name returns the local element name.
func (n *Node) Name() string {
	if n == nil || n.node == nil {
		return ""
	}
	return n.node.Data
}

// InnerText returns all text content of the node and its descendants with
// entities decoded.
func (n *Node) InnerText() string {
	if n == nil || n.node == nil {
		return ""
	}
	return n.node.InnerText()
}

// Children returns the child element nodes in document order.
func (n *Node) Children() []*Node {
	if n == nil || n.node == nil {
		return nil
	}

	var children []*Node
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			children = append(children, &Node{node: child})
		}
	}
	return children
}

// FirstChild returns the first child element, or nil if there is none.
func (n *Node) FirstChild() *Node {
	if n == nil || n.node == nil {
		return nil
	}
	for child := n.node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return &Node{node: child}
		}
	}
	return nil
}

// Attributes returns all attributes of the node.
func (n *Node) Attributes() map[string]string {
	if n == nil || n.node == nil {
		return nil
	}

	attrs := make(map[string]string)
	for _, attr := range n.node.Attr {
		attrs[attr.Name.Local] = attr.Value
	}
	return attrs
}

// Attr returns the value of a specific attribute, or "" if absent.
func (n *Node) Attr(name string) string {
	v, _ := n.LookupAttr(name)
	return v
}

// LookupAttr returns the value of a specific attribute and whether it was
// present on the element.
func (n *Node) LookupAttr(name string) (string, bool) {
	if n == nil || n.node == nil {
		return "", false
	}
	for _, attr := range n.node.Attr {
		if attr.Name.Local == name {
			return attr.Value, true
		}
	}
	return "", false
}
