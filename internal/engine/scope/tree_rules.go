package scope

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var treeLanguages = map[string]treeLanguage{
	"go": {
		mimetype:   "text/x-go",
		extensions: []string{".go"},
		rules: map[string]declRule{
			"function_declaration": {kind: SymbolFunction, name: field("name")},
			"method_declaration":   {kind: SymbolMethod, name: goMethodName},
			"type_spec":            {kind: SymbolTypeDecl, name: field("name"), bases: goEmbeddedTypes},
		},
	},
	"python-tree": {
		mimetype: "text/x-python-tree",
		stemBase: true,
		rules: map[string]declRule{
			"class_definition":    {kind: SymbolClass, name: field("name"), bases: pythonSuperclasses},
			"function_definition": {kind: SymbolFunction, name: field("name")},
		},
	},
	"javascript": {
		mimetype:   "text/javascript",
		extensions: []string{".js", ".mjs", ".cjs", ".jsx"},
		stemBase:   true,
		rules:      scriptRules(nil),
	},
	"typescript": {
		mimetype:   "text/x-typescript",
		extensions: []string{".ts", ".mts", ".cts"},
		stemBase:   true,
		rules:      scriptRules(typescriptRules),
	},
	"tsx": {
		mimetype:   "text/x-tsx",
		extensions: []string{".tsx"},
		stemBase:   true,
		rules:      scriptRules(typescriptRules),
	},
	"java": {
		mimetype:   "text/x-java",
		extensions: []string{".java"},
		rules: map[string]declRule{
			"class_declaration":       {kind: SymbolClass, name: field("name"), bases: javaClassBases},
			"record_declaration":      {kind: SymbolClass, name: field("name"), bases: javaClassBases},
			"interface_declaration":   {kind: SymbolTypeDecl, name: field("name"), bases: javaInterfaceBases},
			"enum_declaration":        {kind: SymbolTypeDecl, name: field("name"), bases: javaClassBases},
			"method_declaration":      {kind: SymbolMethod, name: field("name")},
			"constructor_declaration": {kind: SymbolMethod, name: field("name")},
		},
	},
	"rust": {
		mimetype:   "text/x-rust",
		extensions: []string{".rs"},
		rules: map[string]declRule{
			"mod_item":                {kind: SymbolTypeDecl, name: field("name")},
			"struct_item":             {kind: SymbolClass, name: field("name")},
			"union_item":              {kind: SymbolClass, name: field("name")},
			"enum_item":               {kind: SymbolTypeDecl, name: field("name")},
			"trait_item":              {kind: SymbolTypeDecl, name: field("name")},
			"impl_item":               {kind: SymbolTypeDecl, name: field("type"), bases: rustImplTrait},
			"function_item":           {kind: SymbolFunction, name: field("name")},
			"function_signature_item": {kind: SymbolMethod, name: field("name")},
		},
	},
	"css": {
		mimetype:   "text/css",
		extensions: []string{".css"},
		rules: map[string]declRule{
			"rule_set": {kind: SymbolTypeDecl, name: cssSelectors},
		},
	},
	"html": {
		mimetype:   "text/html",
		extensions: []string{".html", ".htm"},
		rules: map[string]declRule{
			"element": {kind: SymbolTypeDecl, name: htmlElementID},
		},
	},
}

var typescriptRules = map[string]declRule{
	"abstract_class_declaration": {kind: SymbolClass, name: field("name"), bases: scriptHeritage},
	"interface_declaration":      {kind: SymbolTypeDecl, name: field("name"), bases: typescriptInterfaceBases},
	"enum_declaration":           {kind: SymbolTypeDecl, name: field("name")},
	"type_alias_declaration":     {kind: SymbolTypeDecl, name: field("name")},
	"internal_module":            {kind: SymbolTypeDecl, name: field("name")},
}

func scriptRules(extra map[string]declRule) map[string]declRule {
	rules := map[string]declRule{
		"class_declaration":              {kind: SymbolClass, name: field("name"), bases: scriptHeritage},
		"function_declaration":           {kind: SymbolFunction, name: field("name")},
		"generator_function_declaration": {kind: SymbolFunction, name: field("name")},
		"method_definition":              {kind: SymbolMethod, name: field("name")},
	}
	for kind, rule := range extra {
		rules[kind] = rule
	}
	return rules
}

// goMethodName qualifies a method with its receiver type: (s *Store) Get
// becomes Store.Get.
func goMethodName(n *sitter.Node, src []byte) string {
	name := nodeText(n.ChildByFieldName("name"), src)
	param := namedChildOfKind(n.ChildByFieldName("receiver"), "parameter_declaration")
	if param == nil {
		return name
	}
	recv := strings.TrimLeft(nodeText(param.ChildByFieldName("type"), src), "*")
	if i := strings.IndexByte(recv, '['); i >= 0 {
		recv = recv[:i]
	}
	if recv == "" {
		return name
	}
	return recv + "." + name
}

// goEmbeddedTypes lists embedded fields of a struct type.
func goEmbeddedTypes(n *sitter.Node, src []byte) []string {
	st := n.ChildByFieldName("type")
	if st == nil || st.Kind() != "struct_type" {
		return nil
	}
	fields := namedChildOfKind(st, "field_declaration_list")
	if fields == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < fields.NamedChildCount(); i++ {
		fd := fields.NamedChild(i)
		if fd.Kind() != "field_declaration" || fd.ChildByFieldName("name") != nil {
			continue
		}
		if typ := strings.TrimLeft(nodeText(fd.ChildByFieldName("type"), src), "*"); typ != "" {
			out = append(out, typ)
		}
	}
	return out
}

func pythonSuperclasses(n *sitter.Node, src []byte) []string {
	return namedTexts(n.ChildByFieldName("superclasses"), src, "keyword_argument", "comment")
}

func scriptHeritage(n *sitter.Node, src []byte) []string {
	heritage := namedChildOfKind(n, "class_heritage")
	if heritage == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < heritage.NamedChildCount(); i++ {
		clause := heritage.NamedChild(i)
		switch clause.Kind() {
		case "extends_clause", "implements_clause":
			out = append(out, namedTexts(clause, src, "type_arguments", "comment")...)
		case "comment":
		default:
			out = append(out, strings.TrimSpace(nodeText(clause, src)))
		}
	}
	return out
}

func typescriptInterfaceBases(n *sitter.Node, src []byte) []string {
	return namedTexts(namedChildOfKind(n, "extends_type_clause"), src, "comment")
}

func javaClassBases(n *sitter.Node, src []byte) []string {
	var out []string
	if super := n.ChildByFieldName("superclass"); super != nil {
		out = append(out, namedTexts(super, src, "comment")...)
	}
	if ifaces := n.ChildByFieldName("interfaces"); ifaces != nil {
		out = append(out, namedTexts(namedChildOfKind(ifaces, "type_list"), src, "comment")...)
	}
	return out
}

func javaInterfaceBases(n *sitter.Node, src []byte) []string {
	ext := namedChildOfKind(n, "extends_interfaces")
	return namedTexts(namedChildOfKind(ext, "type_list"), src, "comment")
}

func rustImplTrait(n *sitter.Node, src []byte) []string {
	if trait := nodeText(n.ChildByFieldName("trait"), src); trait != "" {
		return []string{trait}
	}
	return nil
}

func cssSelectors(n *sitter.Node, src []byte) string {
	return strings.Join(strings.Fields(nodeText(namedChildOfKind(n, "selectors"), src)), " ")
}

// htmlElementID names an element by its id attribute, as "#id".
func htmlElementID(n *sitter.Node, src []byte) string {
	tag := namedChildOfKind(n, "start_tag", "self_closing_tag")
	if tag == nil {
		return ""
	}
	for i := uint(0); i < tag.NamedChildCount(); i++ {
		attr := tag.NamedChild(i)
		if attr.Kind() != "attribute" || nodeText(namedChildOfKind(attr, "attribute_name"), src) != "id" {
			continue
		}
		value := namedChildOfKind(attr, "attribute_value")
		if value == nil {
			value = namedChildOfKind(namedChildOfKind(attr, "quoted_attribute_value"), "attribute_value")
		}
		if id := strings.TrimSpace(nodeText(value, src)); id != "" {
			return "#" + id
		}
	}
	return ""
}
