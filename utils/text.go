package utils

import (
	"regexp"
	"strings"
)

var cdataPattern = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

// StripCDATA unwraps every <![CDATA[...]]> section and trims surrounding whitespace
func StripCDATA(text string) string {
	return strings.TrimSpace(cdataPattern.ReplaceAllString(text, "$1"))
}
