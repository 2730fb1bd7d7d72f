package css

import (
	"bytes"
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into rules keeping source order and the
// original text of values.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Rules:    make([]*Rule, 0),
		Warnings: make([]string, 0),
	}

	// Log parsing start with source identifier if provided
	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)
	decls, rules := p.parseBlock(parser, sheet, css.ErrorGrammar)
	if len(decls) > 0 {
		sheet.Warnings = append(sheet.Warnings, "declarations outside of any rule ignored")
	}
	sheet.Rules = rules
	return sheet
}

// ParseDeclarations parses content of a style attribute.
func (p *Parser) ParseDeclarations(data []byte) []Declaration {
	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), true)
	decls, _ := p.parseBlock(parser, &Stylesheet{}, css.ErrorGrammar)
	return decls
}

// parseBlock reads declarations and nested rules until the end grammar of
// the enclosing block or the end of input.
func (p *Parser) parseBlock(parser *css.Parser, sheet *Stylesheet, end css.GrammarType) ([]Declaration, []*Rule) {
	var (
		decls     []Declaration
		rules     []*Rule
		selectors []string
	)

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			// End of input or error
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				p.log.Debug("CSS parse error", zap.Error(err))
				sheet.Warnings = append(sheet.Warnings, "parse error: "+err.Error())
			}
			return decls, rules

		case css.EndRulesetGrammar, css.EndAtRuleGrammar:
			if gt == end {
				return decls, rules
			}

		case css.DeclarationGrammar:
			if d, ok := declaration(strings.ToLower(string(data)), parser.Values()); ok {
				decls = append(decls, d)
			}

		case css.CustomPropertyGrammar:
			// custom property names are case sensitive
			if d, ok := declaration(string(data), parser.Values()); ok {
				decls = append(decls, d)
			}

		case css.AtRuleGrammar:
			// Simple @-rule without block (e.g., @import)
			prelude := atPrelude(data, parser.Values())
			if strings.HasPrefix(prelude, "@charset") {
				// output is always UTF-8
				p.log.Debug("Dropping @charset", zap.String("rule", prelude))
				continue
			}
			rules = append(rules, &Rule{Kind: KindStatement, Prelude: prelude})

		case css.BeginAtRuleGrammar:
			rule := &Rule{Prelude: atPrelude(data, parser.Values())}
			rule.Declarations, rule.Rules = p.parseBlock(parser, sheet, css.EndAtRuleGrammar)
			rule.Kind = atRuleKind(rule)
			p.log.Debug("Parsed @-rule block", zap.String("rule", rule.Prelude), zap.Stringer("kind", rule.Kind))
			rules = append(rules, rule)

		case css.QualifiedRuleGrammar:
			// all but last selector of a comma separated list
			selectors = append(selectors, selectorText(data, parser.Values()))

		case css.BeginRulesetGrammar:
			selectors = append(selectors, selectorText(data, parser.Values()))
			rule := &Rule{Kind: KindStyle, Prelude: strings.Join(selectors, ", ")}
			rule.Declarations, rule.Rules = p.parseBlock(parser, sheet, css.EndRulesetGrammar)
			rules = append(rules, rule)
			selectors = nil
		}
	}
}

// atRuleKind decides whether at-rule block groups rules or describes
// something with declarations.
func atRuleKind(rule *Rule) RuleKind {
	keyword, _, _ := strings.Cut(rule.Prelude, " ")
	switch keyword {
	case "@media", "@supports", "@document", "@layer", "@container", "@scope", "@starting-style":
		return KindGroup
	}
	if strings.HasSuffix(keyword, "keyframes") || len(rule.Rules) > 0 {
		return KindGroup
	}
	return KindDescriptor
}

// declaration builds a declaration out of value tokens, splitting off
// trailing !important.
func declaration(name string, tokens []css.Token) (Declaration, bool) {
	// trim trailing whitespace and comments
	end := len(tokens)
	for end > 0 && (tokens[end-1].TokenType == css.WhitespaceToken || tokens[end-1].TokenType == css.CommentToken) {
		end--
	}
	tokens = tokens[:end]

	d := Declaration{Property: name}
	if n := len(tokens); n >= 2 &&
		tokens[n-1].TokenType == css.IdentToken && strings.EqualFold(string(tokens[n-1].Data), "important") {
		i := n - 2
		for i > 0 && tokens[i].TokenType == css.WhitespaceToken {
			i--
		}
		if tokens[i].TokenType == css.DelimToken && string(tokens[i].Data) == "!" {
			d.Important = true
			tokens = tokens[:i]
		}
	}

	d.Value = joinTokens(nil, tokens)
	if d.Value == "" {
		return d, false
	}
	return d, true
}

// selectorText returns text of a single selector of a selector list.
func selectorText(data []byte, tokens []css.Token) string {
	return strings.Trim(joinTokens(data, tokens), ", ")
}

// atPrelude returns lowercased at-keyword followed by its prelude.
func atPrelude(keyword []byte, tokens []css.Token) string {
	prelude := joinTokens(nil, tokens)
	if prelude == "" {
		return strings.ToLower(string(keyword))
	}
	return strings.ToLower(string(keyword)) + " " + prelude
}

// joinTokens builds text from token data collapsing whitespace runs into a
// single space and dropping comments.
func joinTokens(data []byte, tokens []css.Token) string {
	var sb strings.Builder
	sb.Write(data)

	space := false
	for _, t := range tokens {
		switch t.TokenType {
		case css.WhitespaceToken:
			space = true
			continue
		case css.CommentToken:
			continue
		}
		if space && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		space = false
		sb.Write(t.Data)
	}
	return strings.TrimSpace(sb.String())
}
