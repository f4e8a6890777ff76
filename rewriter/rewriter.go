// Package rewriter performs the source-level specifier rewrite: it parses a
// module with the grammar matching its dialect, locates every import/export
// specifier string, and splices in replacements chosen by an updater.
package rewriter

import (
	"context"
	"fmt"
	"os"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/morganney/vite-plugin-specifier/specifier"
)

// Options selects the grammar for one update call.
type Options struct {
	Dialect       specifier.Dialect
	IsDeclaration bool
}

// language maps options to a tree-sitter grammar. The javascript grammar
// covers JSX as well; declaration files always parse as TypeScript, whatever
// the dialect tag says.
func language(opts Options) *sitter.Language {
	if opts.IsDeclaration {
		return typescript.GetLanguage()
	}
	switch opts.Dialect {
	case specifier.DialectTS, specifier.DialectDTS:
		return typescript.GetLanguage()
	case specifier.DialectTSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// UpdateSource rewrites specifiers in src and returns the resulting code.
// When no occurrence matches, the input is returned byte-identical. A syntax
// error in src (or a dialect mismatch) fails the whole call; the caller
// records it per file and moves on.
func UpdateSource(ctx context.Context, src []byte, updater specifier.Updater, opts Options) (string, error) {
	fn, err := updater.Normalize()
	if err != nil {
		return "", err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(language(opts))
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return "", fmt.Errorf("parse (%s): %w", opts.Dialect, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return "", fmt.Errorf("parse (%s): syntax error", opts.Dialect)
	}

	edits := collectEdits(root, src, fn)
	if len(edits) == 0 {
		return string(src), nil
	}
	return splice(src, edits), nil
}

// UpdateFile reads path, classifies it by suffix, and rewrites its
// specifiers. The file itself is not written back; callers own persistence.
func UpdateFile(ctx context.Context, path string, updater specifier.Updater) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	dialect, isDecl := specifier.Classify(path)
	return UpdateSource(ctx, src, updater, Options{Dialect: dialect, IsDeclaration: isDecl})
}

// edit is a pending replacement of src[start:end] with text.
type edit struct {
	start int
	end   int
	text  string
}

// collectEdits walks the tree and asks the matcher about every specifier
// occurrence, in source order.
func collectEdits(root *sitter.Node, src []byte, fn specifier.HandlerFunc) []edit {
	var edits []edit

	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if occ, ok := occurrenceAt(node, src); ok {
			if repl, changed := fn(occ); changed && repl != occ.Value {
				edits = append(edits, edit{start: occ.Start, end: occ.End, text: repl})
			}
		}

		for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.NamedChild(i))
		}
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	return edits
}

// occurrenceAt extracts the specifier occurrence rooted at node, if any.
func occurrenceAt(node *sitter.Node, src []byte) (specifier.Occurrence, bool) {
	switch node.Type() {
	case "import_statement":
		return stringOccurrence(node.ChildByFieldName("source"), src, specifier.KindImport)
	case "export_statement":
		return stringOccurrence(node.ChildByFieldName("source"), src, specifier.KindExport)
	case "import_require_clause":
		// TypeScript: import x = require("y")
		return stringOccurrence(firstNamedOfType(node, "string"), src, specifier.KindRequire)
	case "call_expression":
		fnNode := node.ChildByFieldName("function")
		if fnNode == nil {
			return specifier.Occurrence{}, false
		}
		var kind specifier.Kind
		switch {
		case fnNode.Type() == "import":
			kind = specifier.KindDynamic
		case fnNode.Type() == "identifier" && fnNode.Content(src) == "require":
			kind = specifier.KindRequire
		default:
			return specifier.Occurrence{}, false
		}
		args := node.ChildByFieldName("arguments")
		if args == nil {
			return specifier.Occurrence{}, false
		}
		return stringOccurrence(firstNamedOfType(args, "string"), src, kind)
	}
	return specifier.Occurrence{}, false
}

// stringOccurrence resolves a string node to the byte range of its unquoted
// fragment. Template strings and empty specifiers are skipped.
func stringOccurrence(strNode *sitter.Node, src []byte, kind specifier.Kind) (specifier.Occurrence, bool) {
	if strNode == nil || strNode.Type() != "string" {
		return specifier.Occurrence{}, false
	}
	frag := firstNamedOfType(strNode, "string_fragment")
	if frag == nil {
		return specifier.Occurrence{}, false
	}
	occ := specifier.Occurrence{
		Value: frag.Content(src),
		Kind:  kind,
		Start: int(frag.StartByte()),
		End:   int(frag.EndByte()),
	}
	return occ, true
}

func firstNamedOfType(node *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if c := node.NamedChild(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

// splice applies edits back-to-front so earlier offsets stay valid.
func splice(src []byte, edits []edit) string {
	out := append([]byte(nil), src...)
	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		out = append(out[:e.start], append([]byte(e.text), out[e.end:]...)...)
	}
	return string(out)
}
