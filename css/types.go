package css

import (
	"fmt"
	"io"
	"strings"
)

// RuleKind tells what a rule carries.
type RuleKind int

const (
	KindStyle      RuleKind = iota // selector { declarations }
	KindStatement                  // @import ...; and other block-less at-rules
	KindDescriptor                 // @font-face { declarations }, @page { ... }
	KindGroup                      // @media { rules }, @supports, @keyframes
)

// String returns human readable kind name.
func (k RuleKind) String() string {
	switch k {
	case KindStyle:
		return "style"
	case KindStatement:
		return "statement"
	case KindDescriptor:
		return "descriptor"
	case KindGroup:
		return "group"
	default:
		return ""
	}
}

// Declaration is a single property binding.
type Declaration struct {
	Property  string // Property name as written, custom properties keep case
	Value     string // Value text with whitespace runs collapsed
	Important bool   // true when declared with !important
}

// String returns CSS text of the declaration without trailing semicolon.
func (d Declaration) String() string {
	if d.Important {
		return d.Property + ": " + d.Value + " !important"
	}
	return d.Property + ": " + d.Value
}

// Rule is a single stylesheet rule.
type Rule struct {
	Kind         RuleKind
	Prelude      string        // Selector list or at-keyword with its prelude (e.g. "@media screen")
	Declarations []Declaration // KindStyle and KindDescriptor
	Rules        []*Rule       // KindGroup, or nested style rules
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Rules    []*Rule  // All top-level rules in source order
	Warnings []string // Warnings for skipped input
}

// Imports returns all @import preludes in source order.
func (s *Stylesheet) Imports() []string {
	var imports []string
	for _, r := range s.Rules {
		if r.Kind == KindStatement && strings.HasPrefix(strings.ToLower(r.Prelude), "@import") {
			imports = append(imports, r.Prelude)
		}
	}
	return imports
}

// RulesBySelector returns all top-level style rules with the given selector text.
func (s *Stylesheet) RulesBySelector(selector string) []*Rule {
	var matches []*Rule
	for _, r := range s.Rules {
		if r.Kind == KindStyle && r.Prelude == selector {
			matches = append(matches, r)
		}
	}
	return matches
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
// Declarations keep their order.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i, rule := range s.Rules {
		n, err := writeRule(w, rule, "")
		total += int64(n)
		if err != nil {
			return total, err
		}

		// Add blank line between rules (except after last)
		if i < len(s.Rules)-1 {
			n, err = fmt.Fprint(w, "\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// writeRule writes a single rule to w, nested rules get additional indent.
func writeRule(w io.Writer, rule *Rule, indent string) (int, error) {
	var total int
	if rule.Kind == KindStatement {
		return fmt.Fprintf(w, "%s%s;\n", indent, rule.Prelude)
	}

	n, err := fmt.Fprintf(w, "%s%s {\n", indent, rule.Prelude)
	total += n
	if err != nil {
		return total, err
	}

	for _, d := range rule.Declarations {
		n, err = fmt.Fprintf(w, "%s  %s;\n", indent, d)
		total += n
		if err != nil {
			return total, err
		}
	}
	for i, nested := range rule.Rules {
		if i > 0 || len(rule.Declarations) > 0 {
			n, err = fmt.Fprint(w, "\n")
			total += n
			if err != nil {
				return total, err
			}
		}
		n, err = writeRule(w, nested, indent+"  ")
		total += n
		if err != nil {
			return total, err
		}
	}

	n, err = fmt.Fprintf(w, "%s}\n", indent)
	total += n
	return total, err
}
