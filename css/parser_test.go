package css_test

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"pleasant/css"
)

func TestParser_StyleRule(t *testing.T) {
	p := css.NewParser(zaptest.NewLogger(t))

	sheet := p.Parse([]byte(`p { color: red; text-indent: 1em; }`))
	if len(sheet.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(sheet.Rules))
	}

	rule := sheet.Rules[0]
	if rule.Kind != css.KindStyle {
		t.Errorf("expected style rule, got %s", rule.Kind)
	}
	if rule.Prelude != "p" {
		t.Errorf("expected selector 'p', got %q", rule.Prelude)
	}
	want := []css.Declaration{
		{Property: "color", Value: "red"},
		{Property: "text-indent", Value: "1em"},
	}
	if len(rule.Declarations) != len(want) {
		t.Fatalf("expected %d declarations, got %d", len(want), len(rule.Declarations))
	}
	for i, d := range rule.Declarations {
		if d != want[i] {
			t.Errorf("declaration %d = %+v, want %+v", i, d, want[i])
		}
	}
}

func TestParser_DeclarationOrderAndDuplicates(t *testing.T) {
	p := css.NewParser(zap.NewNop())

	sheet := p.Parse([]byte(`a { color: blue; background-color: white; color: green; }`))
	if len(sheet.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(sheet.Rules))
	}
	var names []string
	for _, d := range sheet.Rules[0].Declarations {
		names = append(names, d.Property+"="+d.Value)
	}
	got := strings.Join(names, ";")
	if got != "color=blue;background-color=white;color=green" {
		t.Errorf("unexpected declarations: %s", got)
	}
}

func TestParser_Values(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		property  string
		value     string
		important bool
	}{
		{name: "functional color", input: `a { color: rgb(255, 0, 0); }`, property: "color", value: "rgb(255, 0, 0)"},
		{name: "compact functional color", input: `a { color: rgba(1,2,3,0.5); }`, property: "color", value: "rgba(1,2,3,0.5)"},
		{name: "hex", input: `a { color: #ABCDEF; }`, property: "color", value: "#ABCDEF"},
		{name: "important", input: `a { color: red !important; }`, property: "color", value: "red", important: true},
		{name: "property case", input: `a { COLOR: red; }`, property: "color", value: "red"},
		{name: "shadow", input: `a { box-shadow: 2px 2px   rgba(255, 0, 0, 1); }`, property: "box-shadow", value: "2px 2px rgba(255, 0, 0, 1)"},
		{name: "var", input: `a { color: var(--main); }`, property: "color", value: "var(--main)"},
		{name: "url", input: `a { background: url(img.png) no-repeat; }`, property: "background", value: "url(img.png) no-repeat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := css.NewParser(zaptest.NewLogger(t))
			sheet := p.Parse([]byte(tt.input))
			if len(sheet.Rules) != 1 || len(sheet.Rules[0].Declarations) != 1 {
				t.Fatalf("expected single rule with single declaration, got %s", sheet)
			}
			d := sheet.Rules[0].Declarations[0]
			if d.Property != tt.property {
				t.Errorf("property = %q, want %q", d.Property, tt.property)
			}
			if d.Value != tt.value {
				t.Errorf("value = %q, want %q", d.Value, tt.value)
			}
			if d.Important != tt.important {
				t.Errorf("important = %v, want %v", d.Important, tt.important)
			}
		})
	}
}

func TestParser_CustomProperty(t *testing.T) {
	p := css.NewParser(zaptest.NewLogger(t))

	sheet := p.Parse([]byte(`:root { --Link-Color: #00f; }`))
	if len(sheet.Rules) != 1 || len(sheet.Rules[0].Declarations) != 1 {
		t.Fatalf("unexpected result: %s", sheet)
	}
	d := sheet.Rules[0].Declarations[0]
	if d.Property != "--Link-Color" {
		t.Errorf("custom property name must keep case, got %q", d.Property)
	}
	if d.Value != "#00f" {
		t.Errorf("value = %q, want #00f", d.Value)
	}
}

func TestParser_SelectorList(t *testing.T) {
	p := css.NewParser(zaptest.NewLogger(t))

	sheet := p.Parse([]byte(`h1, h2 > em, .note { color: red; }`))
	if len(sheet.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(sheet.Rules))
	}
	if got := sheet.Rules[0].Prelude; got != "h1, h2 > em, .note" {
		t.Errorf("selector = %q", got)
	}
	if len(sheet.RulesBySelector("h1, h2 > em, .note")) != 1 {
		t.Error("RulesBySelector did not find the rule")
	}
}

func TestParser_AtRules(t *testing.T) {
	p := css.NewParser(zaptest.NewLogger(t))

	sheet := p.Parse([]byte(`@charset "utf-8";
@import url("other.css");
@media screen and (min-width: 100px) {
  a { color: red; }
}
@font-face { font-family: Foo; src: url(foo.woff); }
b { color: blue; }`))

	kinds := make([]css.RuleKind, 0, len(sheet.Rules))
	for _, r := range sheet.Rules {
		kinds = append(kinds, r.Kind)
	}
	want := []css.RuleKind{css.KindStatement, css.KindGroup, css.KindDescriptor, css.KindStyle}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("rule %d kind = %s, want %s", i, kinds[i], want[i])
		}
	}

	if imports := sheet.Imports(); len(imports) != 1 || !strings.HasPrefix(imports[0], "@import") {
		t.Errorf("imports = %v", imports)
	}

	media := sheet.Rules[1]
	if !strings.HasPrefix(media.Prelude, "@media screen") {
		t.Errorf("media prelude = %q", media.Prelude)
	}
	if len(media.Rules) != 1 || media.Rules[0].Prelude != "a" {
		t.Errorf("media must contain nested rule, got %+v", media.Rules)
	}

	face := sheet.Rules[2]
	if len(face.Declarations) != 2 {
		t.Errorf("font-face declarations = %+v", face.Declarations)
	}
}

func TestParser_ParseDeclarations(t *testing.T) {
	p := css.NewParser(zaptest.NewLogger(t))

	decls := p.ParseDeclarations([]byte(`color: red; background-image: url(a.png)`))
	if len(decls) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(decls))
	}
	if decls[1].Property != "background-image" || decls[1].Value != "url(a.png)" {
		t.Errorf("unexpected declaration %+v", decls[1])
	}
}

func TestStylesheet_String(t *testing.T) {
	sheet := &css.Stylesheet{Rules: []*css.Rule{
		{Kind: css.KindStatement, Prelude: `@import url("a.css")`},
		{Kind: css.KindStyle, Prelude: "a", Declarations: []css.Declaration{
			{Property: "color", Value: "rgba(76, 76, 76, 1)"},
			{Property: "filter", Value: "grayscale(100%)", Important: true},
		}},
		{Kind: css.KindGroup, Prelude: "@media print", Rules: []*css.Rule{
			{Kind: css.KindStyle, Prelude: "b", Declarations: []css.Declaration{{Property: "color", Value: "black"}}},
		}},
	}}

	want := `@import url("a.css");

a {
  color: rgba(76, 76, 76, 1);
  filter: grayscale(100%) !important;
}

@media print {
  b {
    color: black;
  }
}
`
	if got := sheet.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestStylesheet_RoundTrip(t *testing.T) {
	p := css.NewParser(zaptest.NewLogger(t))

	first := p.Parse([]byte(`a{color:red;box-shadow:1px 1px rgb(0,0,0),2px 2px blue}@media print{b{color:black}}`))
	second := p.Parse([]byte(first.String()))
	if first.String() != second.String() {
		t.Errorf("serialization is not stable:\n%s\n---\n%s", first, second)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "plain", input: []byte("a{color:red}"), want: "a{color:red}"},
		{name: "bom", input: append([]byte{0xEF, 0xBB, 0xBF}, "a{}"...), want: "a{}"},
		{name: "utf-8 charset", input: []byte(`@charset "utf-8"; a{}`), want: `@charset "utf-8"; a{}`},
		{name: "latin1 charset", input: append([]byte(`@charset "iso-8859-1"; a{content:"`), 0xE9, '"', '}'), want: `@charset "iso-8859-1"; a{content:"é"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := css.Decode(tt.input)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Decode() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := css.Decode([]byte(`@charset "no-such-charset"; a{}`)); err == nil {
		t.Error("expected error for unknown charset")
	}
}
