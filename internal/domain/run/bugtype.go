package run

import (
	"fmt"
	"strings"
)

// BugType is the canonical classification of a detected bug.
type BugType string

const (
	BugLinting     BugType = "LINTING"
	BugSyntax      BugType = "SYNTAX"
	BugLogic       BugType = "LOGIC"
	BugTypeError   BugType = "TYPE_ERROR"
	BugImport      BugType = "IMPORT"
	BugIndentation BugType = "INDENTATION"
)

var canonicalBugTypes = map[BugType]struct{}{
	BugLinting: {}, BugSyntax: {}, BugLogic: {},
	BugTypeError: {}, BugImport: {}, BugIndentation: {},
}

// bugTypeAliases maps commonly produced non-canonical classifications
// back to the six canonical ones.
var bugTypeAliases = map[string]BugType{
	"CONFIG":             BugSyntax,
	"CONFIGURATION":      BugSyntax,
	"BUILD":              BugSyntax,
	"BUILD_ERROR":        BugSyntax,
	"COMPILE":            BugSyntax,
	"COMPILE_ERROR":      BugSyntax,
	"RUNTIME":            BugLogic,
	"RUNTIME_ERROR":      BugLogic,
	"ASSERTION":          BugLogic,
	"TEST_FAILURE":       BugLogic,
	"DEPENDENCY":         BugImport,
	"MISSING_DEPENDENCY": BugImport,
	"MISSING_MODULE":     BugImport,
	"MISSING_IMPORT":     BugImport,
	"STYLE":              BugLinting,
	"FORMAT":             BugLinting,
	"FORMATTING":         BugLinting,
	"NULL_REFERENCE":     BugTypeError,
	"WHITESPACE":         BugIndentation,
}

// NormalizeBugType resolves a raw classification to its canonical form.
// Documented aliases are normalized; anything else is rejected, never coerced.
func NormalizeBugType(raw string) (BugType, error) {
	upper := BugType(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := canonicalBugTypes[upper]; ok {
		return upper, nil
	}
	if canonical, ok := bugTypeAliases[string(upper)]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("unknown bug type %q", raw)
}
