package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes extracted text for chunking: runs of horizontal whitespace
// collapse to one space, lines are trimmed, and runs of blank lines collapse to a
// single paragraph break.
func Preprocess(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var b strings.Builder
	blank := false
	for _, line := range lines {
		line = collapseSpaces(line)
		if line == "" {
			blank = b.Len() > 0
			continue
		}
		if b.Len() > 0 {
			if blank {
				b.WriteString("\n\n")
			} else {
				b.WriteByte('\n')
			}
		}
		b.WriteString(line)
		blank = false
	}
	return b.String()
}

func collapseSpaces(line string) string {
	line = strings.TrimSpace(line)
	var b strings.Builder
	wasSpace := false
	for _, r := range line {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
