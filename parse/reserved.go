package parse

import "strings"

var reservedWords = []string{
	"await", "break", "case", "catch", "class", "const", "continue", "debugger", "default",
	"delete", "do", "else", "enum", "export", "extends", "false", "finally", "for", "function",
	"if", "implements", "import", "in", "instanceof", "interface", "let", "new", "null",
	"package", "private", "protected", "public", "return", "static", "super", "switch", "this",
	"throw", "true", "try", "typeof", "undefined", "var", "void", "while", "with", "yield",
}

var reservedWordSet map[string]struct{}

func init() {
	reservedWordSet = make(map[string]struct{}, len(reservedWords))
	for _, word := range reservedWords {
		reservedWordSet[word] = struct{}{}
	}
}

// IsReserved reports whether name may not be bound by a template: JavaScript
// reserved words and the "__" prefix used by generated code.
func IsReserved(name string) bool {
	if strings.HasPrefix(name, "__") {
		return true
	}
	_, ok := reservedWordSet[name]
	return ok
}
