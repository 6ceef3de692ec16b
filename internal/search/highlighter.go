package search

import (
	"strings"

	"github.com/hyperjump/kotae/pkg/utils"
)

// Highlight returns a single-line excerpt of content, at most maxLen runes plus an ellipsis.
func Highlight(content string, maxLen int) string {
	return utils.Truncate(strings.Join(strings.Fields(content), " "), maxLen)
}
