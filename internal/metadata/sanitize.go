package metadata

import (
	"strings"
	"unicode"
)

// uriStructural lists the URI characters kept by CleanURI on top of the ASCII
// graphic range.
const uriStructural = "/:.-_?&=%~"

// CleanURI drops every character that is not ASCII graphic, whitespace, or a
// URI-structural character.
func CleanURI(input string) string {
	return strings.Map(func(r rune) rune {
		if isASCIIGraphic(r) || unicode.IsSpace(r) || strings.ContainsRune(uriStructural, r) {
			return r
		}
		return -1
	}, input)
}

// CleanDescription removes control characters, keeping everything else in order.
func CleanDescription(input string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)
}

func isASCIIGraphic(r rune) bool {
	return r >= '!' && r <= '~'
}
