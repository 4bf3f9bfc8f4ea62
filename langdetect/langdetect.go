// Package langdetect maps a changed file's path to the LanguageTag the
// Chunker and SyntaxTreeProvider use to decide how to split it.
package langdetect

import (
	"path/filepath"
	"strings"

	"github.com/toyinlola/commitgroup/diffmodel"
)

// extToLanguage maps file extensions to the language tags the Chunker
// understands. Anything not listed here falls back to LangText, which
// forces the line-based chunker.
var extToLanguage = map[string]diffmodel.LanguageTag{
	".py":  diffmodel.LangPython,
	".c":   diffmodel.LangCPP,
	".cc":  diffmodel.LangCPP,
	".cpp": diffmodel.LangCPP,
	".cxx": diffmodel.LangCPP,
	".h":   diffmodel.LangCPP,
	".hpp": diffmodel.LangCPP,
	".java": diffmodel.LangJava,
	".js":  diffmodel.LangJavaScript,
	".jsx": diffmodel.LangJavaScript,
	".ts":  diffmodel.LangTypeScript,
	".tsx": diffmodel.LangTypeScript,
	".go":  diffmodel.LangGo,
}

// Detect returns the LanguageTag for a file path based on its extension.
// Paths with no recognized extension return LangText.
func Detect(path string) diffmodel.LanguageTag {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extToLanguage[ext]; ok {
		return lang
	}
	return diffmodel.LangText
}
