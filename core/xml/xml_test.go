package xml

import (
	"testing"
	"unicode/utf16"

	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/fdx2fountain/core/errors"
)

// TestParseValidXML verifies parsing of well-formed XML.
func TestParseValidXML(t *testing.T) {
	xmlData := `<?xml version="1.0"?>
<root>
	<element attr="value">text</element>
</root>`

	doc, err := Parse([]byte(xmlData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Root().Name() != "root" {
		t.Errorf("Root().Name() = %q, want root", doc.Root().Name())
	}
}

// TestParseInvalidXML verifies error handling for malformed XML.
func TestParseInvalidXML(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"unclosed tag", "<root><element></root>"},
		{"mismatched tags", "<root></other>"},
		{"invalid chars", "<root>\x00</root>"},
		{"plain text", "HelloWorld"},
		{"empty", ""},
		{"declaration only", `<?xml version="1.0"?>`},
		{"text before root", "junk<root/>"},
		{"text after root", "<root/>junk"},
		{"second root", "<root/><extra/>"},
		{"cdata after root", "<root/><![CDATA[x]]>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.xml))
			if err == nil {
				t.Fatal("Parse should fail for invalid XML")
			}
			if !errors.Is(err, errors.ErrSyntax) {
				t.Errorf("error = %v, want ErrSyntax", err)
			}
		})
	}
}

func TestParseReportsLine(t *testing.T) {
	_, err := Parse([]byte("<root>\n<a>\n</b>\n</root>"))
	var se *errors.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *SyntaxError", err)
	}
	if se.Line != 3 {
		t.Errorf("Line = %d, want 3", se.Line)
	}
}

func encodeUTF16LE(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := []byte{0xff, 0xfe}
	for _, u := range units {
		out = append(out, byte(u), byte(u>>8))
	}
	return out
}

func TestParseUTF16(t *testing.T) {
	src := `<?xml version="1.0" encoding="UTF-16"?><root><item>Café</item></root>`

	doc, err := Parse(encodeUTF16LE(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	items := doc.Root().Children()
	if len(items) != 1 {
		t.Fatalf("len(Children()) = %d, want 1", len(items))
	}
	if got := items[0].InnerText(); got != "Café" {
		t.Errorf("InnerText() = %q, want Café", got)
	}
}

func TestParseUTF8BOM(t *testing.T) {
	data := append([]byte{0xef, 0xbb, 0xbf}, []byte(`<?xml version="1.0"?><root/>`)...)
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Root().Name() != "root" {
		t.Errorf("Root().Name() = %q, want root", doc.Root().Name())
	}
}

func TestNormalize(t *testing.T) {
	t.Run("plain utf8 untouched", func(t *testing.T) {
		in := []byte(`<?xml version="1.0" encoding="UTF-8"?><a/>`)
		out, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if string(out) != string(in) {
			t.Errorf("Normalize() = %q, want input unchanged", out)
		}
	})

	t.Run("utf16 drops encoding declaration", func(t *testing.T) {
		out, err := Normalize(encodeUTF16LE(`<?xml version="1.0" encoding="UTF-16"?><a/>`))
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if string(out) != `<?xml version="1.0"?><a/>` {
			t.Errorf("Normalize() = %q", out)
		}
	})
}

// TestValidateWellFormed verifies well-formedness validation.
func TestValidateWellFormed(t *testing.T) {
	valid := `<?xml version="1.0"?><root><child/></root>`
	result := Validate([]byte(valid))
	if !result.Valid {
		t.Errorf("Valid XML should pass: %v", result.Errors)
	}
}

func TestValidateMalformed(t *testing.T) {
	tests := []struct {
		name     string
		xml      string
		wantLine int
	}{
		{"mismatched close", "<root>\n  <a>\n  </b>\n</root>", 3},
		{"unexpected eof", "<root>\n<a>", 2},
		{"no root", "just text", 1},
		{"text before root", "junk<root/>", 1},
		{"second root", "<root>\n</root>\n<extra/>", 3},
		{"text after root", "<root/>\n\ntrailing", 3},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate([]byte(tt.xml))
			if result.Valid {
				t.Fatal("Malformed XML should not pass")
			}
			if len(result.Errors) != 1 {
				t.Fatalf("len(Errors) = %d, want 1", len(result.Errors))
			}
			if result.Errors[0].Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", result.Errors[0].Line, tt.wantLine)
			}
		})
	}
}

func TestTopLevelWhitespaceAndMarkup(t *testing.T) {
	data := "<?xml version=\"1.0\"?>\n<!-- draft -->\n<!DOCTYPE root>\n<root/>\n\t\r\n<?pi data?>\n"
	if _, err := Parse([]byte(data)); err != nil {
		t.Errorf("Parse failed: %v", err)
	}
	if result := Validate([]byte(data)); !result.Valid {
		t.Errorf("Validate failed: %v", result.Errors)
	}
}

func TestParseTopLevelPosition(t *testing.T) {
	_, err := Parse([]byte("<root>\n</root>\n<extra/>"))
	var se *errors.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *SyntaxError", err)
	}
	if se.Line != 3 {
		t.Errorf("Line = %d, want 3", se.Line)
	}
}

// TestXPathQuery verifies XPath query execution.
func TestXPathQuery(t *testing.T) {
	xmlData := `<?xml version="1.0"?>
<FinalDraft>
	<Content>
		<Paragraph Type="Action"><Text>One</Text></Paragraph>
		<Paragraph Type="Dialogue"><Text>Two</Text></Paragraph>
	</Content>
</FinalDraft>`

	doc, err := Parse([]byte(xmlData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	results, err := doc.XPath("/FinalDraft/Content/Paragraph")
	if err != nil {
		t.Fatalf("XPath failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("XPath should return 2 results, got %d", len(results))
	}

	first, err := doc.XPathFirst("//Paragraph[@Type='Dialogue']/Text")
	if err != nil {
		t.Fatalf("XPathFirst failed: %v", err)
	}
	if first == nil || first.InnerText() != "Two" {
		t.Errorf("XPathFirst() = %v, want Text node 'Two'", first)
	}

	missing, err := doc.XPathFirst("//Paragraph[@Type='Transition']")
	if err != nil {
		t.Fatalf("XPathFirst failed: %v", err)
	}
	if missing != nil {
		t.Error("XPathFirst should return nil when nothing matches")
	}
}

func TestXPathInvalidExpression(t *testing.T) {
	doc, err := Parse([]byte(`<root/>`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := doc.XPath("//[invalid"); err == nil {
		t.Error("XPath should fail for invalid expression")
	}
	if _, err := doc.XPathFirst("//[invalid"); err == nil {
		t.Error("XPathFirst should fail for invalid expression")
	}
}

func TestEvaluateCount(t *testing.T) {
	doc, err := Parse([]byte(`<root><p/><p/><p/><q/></root>`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got := doc.Evaluate(xpath.MustCompile("count(/root/p)"))
	if n, ok := got.(float64); !ok || n != 3 {
		t.Errorf("Evaluate(count) = %v, want 3", got)
	}
}

func TestNodeChildren(t *testing.T) {
	doc, err := Parse([]byte(`<root>text<a/> more <b/><!-- c --><c/></root>`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	children := doc.Root().Children()
	if len(children) != 3 {
		t.Fatalf("len(Children()) = %d, want 3", len(children))
	}
	for i, want := range []string{"a", "b", "c"} {
		if children[i].Name() != want {
			t.Errorf("Children()[%d] = %q, want %q", i, children[i].Name(), want)
		}
	}
	if first := doc.Root().FirstChild(); first == nil || first.Name() != "a" {
		t.Errorf("FirstChild() = %v, want a", first)
	}
}

func TestNodeAttributes(t *testing.T) {
	doc, err := Parse([]byte(`<root Type="Action" Style=""/>`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	root := doc.Root()

	if got := root.Attr("Type"); got != "Action" {
		t.Errorf("Attr(Type) = %q, want Action", got)
	}
	if v, ok := root.LookupAttr("Style"); !ok || v != "" {
		t.Errorf("LookupAttr(Style) = %q, %v; want empty, true", v, ok)
	}
	if _, ok := root.LookupAttr("Missing"); ok {
		t.Error("LookupAttr(Missing) should report absent")
	}
	if attrs := root.Attributes(); len(attrs) != 2 {
		t.Errorf("len(Attributes()) = %d, want 2", len(attrs))
	}
}

func TestNodeInnerTextDecodesEntities(t *testing.T) {
	doc, err := Parse([]byte(`<root>Fish &amp; Chips &lt;3</root>`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := doc.Root().InnerText(); got != "Fish & Chips <3" {
		t.Errorf("InnerText() = %q", got)
	}
}

func TestNilNodeAccessors(t *testing.T) {
	var n *Node
	if n.Name() != "" || n.InnerText() != "" || n.Attr("x") != "" {
		t.Error("nil Node accessors should return empty strings")
	}
	if n.Children() != nil || n.FirstChild() != nil || n.Attributes() != nil {
		t.Error("nil Node accessors should return nil")
	}

	var d *Document
	if d.Root() != nil {
		t.Error("nil Document Root() should be nil")
	}
}
