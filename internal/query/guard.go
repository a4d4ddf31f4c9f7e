package query

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/examlens/examlens/internal/llm"
)

const selectKeyword = "select"

// keywordDelimiters may follow the keyword directly. Quoted and bracketed
// identifiers are valid there in T-SQL, so SELECT[Name] is still a SELECT.
const keywordDelimiters = "(*[\"`'"

// Authorize admits only statements whose first token is SELECT and returns
// the statement with surrounding whitespace and code fences removed, in its
// original case. It is a pure function of its input.
func Authorize(statement string) (string, error) {
	cleaned := llm.StripFences(statement)
	lower := strings.ToLower(cleaned)
	if !strings.HasPrefix(lower, selectKeyword) {
		return "", ErrUnsafeQuery
	}
	rest := lower[len(selectKeyword):]
	if rest != "" {
		next, _ := utf8.DecodeRuneInString(rest)
		if !unicode.IsSpace(next) && !strings.ContainsRune(keywordDelimiters, next) {
			return "", ErrUnsafeQuery
		}
	}
	return cleaned, nil
}
