// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/kraklabs/parseltongue/pkg/entities"
	"github.com/kraklabs/parseltongue/pkg/identity"
)

// languageSpec tells the generic extractor which node types matter for one
// grammar.
type languageSpec struct {
	language     *sitter.Language
	entityKinds  map[string]entities.EntityKind // declaration node type → kind
	callNodes    map[string]bool
	importNodes  map[string]bool
	commentNodes map[string]bool
}

var languageSpecs = map[string]*languageSpec{
	"go": {
		language: golang.GetLanguage(),
		entityKinds: map[string]entities.EntityKind{
			"function_declaration": entities.KindFunction,
			"method_declaration":   entities.KindMethod,
		},
		callNodes:    map[string]bool{"call_expression": true},
		importNodes:  map[string]bool{"import_declaration": true},
		commentNodes: map[string]bool{"comment": true},
	},
	"rust": {
		language: rust.GetLanguage(),
		entityKinds: map[string]entities.EntityKind{
			"function_item": entities.KindFunction,
			"struct_item":   entities.KindStruct,
			"enum_item":     entities.KindEnum,
			"trait_item":    entities.KindTrait,
			"mod_item":      entities.KindModule,
		},
		callNodes:    map[string]bool{"call_expression": true},
		importNodes:  map[string]bool{"use_declaration": true},
		commentNodes: map[string]bool{"line_comment": true, "block_comment": true},
	},
	"python": {
		language: python.GetLanguage(),
		entityKinds: map[string]entities.EntityKind{
			"function_definition": entities.KindFunction,
			"class_definition":    entities.KindClass,
		},
		callNodes:    map[string]bool{"call": true},
		importNodes:  map[string]bool{"import_statement": true, "import_from_statement": true},
		commentNodes: map[string]bool{"comment": true},
	},
	"javascript": {
		language: javascript.GetLanguage(),
		entityKinds: map[string]entities.EntityKind{
			"function_declaration": entities.KindFunction,
			"class_declaration":    entities.KindClass,
			"method_definition":    entities.KindMethod,
		},
		callNodes:    map[string]bool{"call_expression": true},
		importNodes:  map[string]bool{"import_statement": true},
		commentNodes: map[string]bool{"comment": true},
	},
}

// extensionLanguages maps file extensions to grammar names.
var extensionLanguages = map[string]string{
	".go": "go",
	".rs": "rust",
	".py": "python",
	".js": "javascript",
	".ts": "javascript", // parsed with the javascript grammar; good enough for entity extraction
}

// TreeSitterParser extracts entities and dependency edges with tree-sitter.
//
// Not safe for concurrent use: the underlying parser handle is mutable C
// state. The parallel streamer allocates one per worker.
type TreeSitterParser struct {
	parser *sitter.Parser
	logger *slog.Logger
}

// NewTreeSitterParser creates a parser.
func NewTreeSitterParser(logger *slog.Logger) *TreeSitterParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &TreeSitterParser{parser: sitter.NewParser(), logger: logger}
}

// SupportedLanguage maps a file path to its grammar name, or "".
func (p *TreeSitterParser) SupportedLanguage(filePath string) string {
	return extensionLanguages[strings.ToLower(filepath.Ext(filePath))]
}

// ParseSource parses one file into entities and edges.
//
// Every declared entity gets a freshly minted ISGL1 v2 key. Call edges
// resolve within the file by name; callees not declared in the file become
// unknown placeholders (lang:fn:<name>:unknown:0-0). Imports become Uses
// edges from the file's module entity to external-dependency placeholders.
func (p *TreeSitterParser) ParseSource(content []byte, filePath string) (*ParseOutput, error) {
	langName := p.SupportedLanguage(filePath)
	if langName == "" {
		return nil, fmt.Errorf("unsupported file extension: %s", filePath)
	}
	spec := languageSpecs[langName]

	root, err := p.parseTree(content, spec)
	if err != nil {
		return nil, err
	}

	out := &ParseOutput{}
	if root.HasError() {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("syntax errors in %s; extraction is best-effort", filePath))
	}

	semanticPath := identity.ExtractSemanticPath(filePath)

	// Collect declarations first so calls can resolve within the file.
	type declared struct {
		entity ParsedEntity
		key    string
		node   *sitter.Node
	}
	var decls []declared
	nameToKey := make(map[string]string)

	var collect func(n *sitter.Node)
	collect = func(n *sitter.Node) {
		if kind, ok := spec.entityKinds[n.Type()]; ok {
			if name := declarationName(n, content); name != "" {
				if strings.Contains(name, ":") {
					out.Warnings = append(out.Warnings,
						fmt.Sprintf("skipping entity with ':' in name: %s", name))
				} else {
					key, err := identity.FormatKey(kind, name, langName, semanticPath,
						identity.ComputeBirthTimestamp(filePath, name))
					if err == nil {
						pe := ParsedEntity{
							Kind:      kind,
							Name:      name,
							Language:  langName,
							StartLine: int(n.StartPoint().Row) + 1,
							EndLine:   int(n.EndPoint().Row) + 1,
							FilePath:  filePath,
							Metadata:  map[string]string{},
						}
						if isTestAnnotated(n, content, langName) {
							pe.Metadata["is_test"] = "true"
						}
						decls = append(decls, declared{entity: pe, key: key, node: n})
						if _, exists := nameToKey[name]; !exists {
							nameToKey[name] = key
						}
					}
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			collect(n.NamedChild(i))
		}
	}
	collect(root)

	for _, d := range decls {
		out.Entities = append(out.Entities, d.entity)
	}

	// Call edges per declaration.
	for _, d := range decls {
		seen := make(map[string]bool)
		var walkCalls func(n *sitter.Node)
		walkCalls = func(n *sitter.Node) {
			if spec.callNodes[n.Type()] {
				if callee := calleeName(n, content); callee != "" && callee != d.entity.Name {
					toKey, ok := nameToKey[callee]
					if !ok {
						toKey = fmt.Sprintf("%s:fn:%s:unknown:0-0", langName, callee)
					}
					if !strings.Contains(callee, ":") && !seen[toKey] {
						seen[toKey] = true
						loc := fmt.Sprintf("%s:%d", filePath, int(n.StartPoint().Row)+1)
						out.Edges = append(out.Edges, entities.DependencyEdge{
							FromKey:        d.key,
							ToKey:          toKey,
							Type:           entities.EdgeCalls,
							SourceLocation: &loc,
						})
					}
				}
			}
			for i := 0; i < int(n.NamedChildCount()); i++ {
				walkCalls(n.NamedChild(i))
			}
		}
		walkCalls(d.node)
	}

	// Import edges from the file's module entity.
	imports := topLevelImports(root, content, spec, langName)
	if len(imports) > 0 {
		moduleName := fileModuleName(filePath)
		moduleKey, err := identity.FormatKey(entities.KindModule, moduleName, langName,
			semanticPath, identity.ComputeBirthTimestamp(filePath, moduleName))
		if err == nil {
			out.Entities = append(out.Entities, ParsedEntity{
				Kind:      entities.KindModule,
				Name:      moduleName,
				Language:  langName,
				StartLine: 1,
				EndLine:   1,
				FilePath:  filePath,
				Metadata:  map[string]string{},
			})
			for _, imp := range imports {
				toKey := fmt.Sprintf("%s:module:%s:external-dependency-%s:0-0", langName, imp, imp)
				out.Edges = append(out.Edges, entities.DependencyEdge{
					FromKey: moduleKey,
					ToKey:   toKey,
					Type:    entities.EdgeUses,
				})
			}
		}
	}

	return out, nil
}

// parseTree runs the tree-sitter parse for one grammar.
func (p *TreeSitterParser) parseTree(content []byte, spec *languageSpec) (*sitter.Node, error) {
	p.parser.SetLanguage(spec.language)
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	return tree.RootNode(), nil
}

// CommentWordCount counts words inside top-level comment nodes.
func (p *TreeSitterParser) CommentWordCount(content []byte, filePath string) int {
	return p.topLevelWordCount(content, filePath, func(spec *languageSpec, t string) bool {
		return spec.commentNodes[t]
	})
}

// ImportWordCount counts words inside top-level import/use nodes.
func (p *TreeSitterParser) ImportWordCount(content []byte, filePath string) int {
	return p.topLevelWordCount(content, filePath, func(spec *languageSpec, t string) bool {
		return spec.importNodes[t]
	})
}

func (p *TreeSitterParser) topLevelWordCount(content []byte, filePath string, match func(*languageSpec, string) bool) int {
	langName := p.SupportedLanguage(filePath)
	if langName == "" {
		return 0
	}
	spec := languageSpecs[langName]
	root, err := p.parseTree(content, spec)
	if err != nil {
		return 0
	}
	words := 0
	// Comments are anonymous "extra" nodes in some grammars; scan all
	// children of the root, named or not.
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if match(spec, child.Type()) {
			words += len(strings.Fields(child.Content(content)))
		}
	}
	return words
}

// declarationName extracts the declared name of an entity node.
func declarationName(n *sitter.Node, content []byte) string {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return nameNode.Content(content)
	}
	return ""
}

// calleeName extracts the called function's bare name from a call node:
// the rightmost segment of selector/path expressions.
func calleeName(n *sitter.Node, content []byte) string {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	text := fn.Content(content)
	if i := strings.LastIndex(text, "::"); i >= 0 {
		text = text[i+2:]
	}
	if i := strings.LastIndex(text, "."); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSpace(text)
	// Drop generic argument or macro suffixes the grammar may include.
	if i := strings.IndexAny(text, "<!("); i >= 0 {
		text = text[:i]
	}
	if text == "" || !isIdentifier(text) {
		return ""
	}
	return text
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return s != ""
}

// isTestAnnotated detects parser-level test markers: Rust #[test]/#[cfg(test)]
// attributes on the preceding sibling.
func isTestAnnotated(n *sitter.Node, content []byte, langName string) bool {
	if langName != "rust" {
		return false
	}
	prev := n.PrevNamedSibling()
	for prev != nil && prev.Type() == "attribute_item" {
		attr := prev.Content(content)
		if strings.Contains(attr, "test") {
			return true
		}
		prev = prev.PrevNamedSibling()
	}
	return false
}

// topLevelImports returns the external package names imported by the file.
// Relative/local imports are skipped: they resolve inside the workspace and
// are not external dependencies.
func topLevelImports(root *sitter.Node, content []byte, spec *languageSpec, langName string) []string {
	seen := make(map[string]bool)
	var names []string

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if spec.importNodes[n.Type()] {
			for _, name := range importedNames(n, content, langName) {
				if name != "" && !seen[name] && isIdentifier(name) {
					seen[name] = true
					names = append(names, name)
				}
			}
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)

	return names
}

// importedNames extracts the top-level package identifiers from one
// import/use node.
func importedNames(n *sitter.Node, content []byte, langName string) []string {
	text := n.Content(content)
	switch langName {
	case "go":
		// Quoted import paths; keep the first path segment of each.
		var names []string
		for _, line := range strings.Split(text, "\n") {
			if start := strings.Index(line, `"`); start >= 0 {
				if end := strings.Index(line[start+1:], `"`); end > 0 {
					path := line[start+1 : start+1+end]
					seg := path
					if i := strings.Index(path, "/"); i >= 0 {
						seg = path[:i]
					}
					// Domain-qualified paths are external; single-segment
					// stdlib imports count too.
					seg = strings.Split(seg, ".")[0]
					names = append(names, seg)
				}
			}
		}
		return names
	case "rust":
		// use foo::bar::Baz; → foo. Skip crate/self/super.
		rest := strings.TrimPrefix(strings.TrimSpace(text), "use ")
		rest = strings.TrimSpace(rest)
		seg := rest
		if i := strings.IndexAny(rest, ":;{ "); i >= 0 {
			seg = rest[:i]
		}
		switch seg {
		case "crate", "self", "super", "":
			return nil
		}
		return []string{seg}
	case "python":
		// import a.b / from a.b import c → a. Relative imports start with '.'.
		fields := strings.Fields(text)
		if len(fields) < 2 || strings.HasPrefix(fields[1], ".") {
			return nil
		}
		return []string{strings.Split(fields[1], ".")[0]}
	case "javascript":
		// import x from 'pkg' → pkg. Relative specifiers are local.
		if start := strings.IndexAny(text, `'"`); start >= 0 {
			quote := text[start]
			if end := strings.IndexByte(text[start+1:], quote); end > 0 {
				src := text[start+1 : start+1+end]
				if strings.HasPrefix(src, ".") {
					return nil
				}
				return []string{strings.Split(src, "/")[0]}
			}
		}
		return nil
	}
	return nil
}

// fileModuleName derives the file's module entity name from its base name.
func fileModuleName(filePath string) string {
	base := filepath.Base(filePath)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return strings.ReplaceAll(base, ":", "_")
}
