package detector

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
	regexp "github.com/wasilibs/go-re2"
)

// minLiteralLen bounds the string literals worth inspecting in the AST pass.
const minLiteralLen = 12

// secretKeywordPattern flags literals that name secret-like material.
var secretKeywordPattern = regexp.MustCompile(
	`(?i)(secret|token|api[_-]?key|access|passwd|password|private_key|client_secret)`,
)

// extractStringLiterals parses content as JavaScript and returns every string
// literal in the tree, template spans included. Real-world script assets lean
// on const/let, arrow functions and template literals, so the parser must
// accept modern syntax. A parse failure returns an error; the caller skips
// the AST pass for that asset only.
func extractStringLiterals(content string) ([]string, error) {
	program, err := parser.ParseFile(nil, "", content, 0)
	if err != nil {
		return nil, err
	}

	collector := &literalCollector{}
	ast.Walk(collector, program)
	return collector.literals, nil
}

type literalCollector struct {
	literals []string
}

func (c *literalCollector) Enter(n ast.Node) ast.Visitor {
	switch lit := n.(type) {
	case *ast.StringLiteral:
		c.literals = append(c.literals, string(lit.Value))
	case *ast.TemplateLiteral:
		for _, elem := range lit.Elements {
			if elem.Valid {
				c.literals = append(c.literals, string(elem.Parsed))
			}
		}
	}
	return c
}

func (c *literalCollector) Exit(ast.Node) {}
