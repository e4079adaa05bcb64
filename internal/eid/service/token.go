package service

import (
	"strconv"
	"strings"
)

// serviceAccountMarker selects tokens that arrive percent-encoded from the
// municipal service account portal.
const serviceAccountMarker = "servicekonto"

// PrepareToken returns the token URL to embed in RUN_AUTH.
//
// Tokens containing "servicekonto" (any case) are unescaped by repeatedly
// replacing every occurrence of the first %XX sequence with the character of
// code point 0xXX until no '%' remains. Bytes are not reassembled as UTF-8,
// and %25 produces a '%' that is decoded again on the next pass. A '%' not
// followed by two hex digits stops the pass and the rest is left as is.
// All other tokens are returned unchanged.
func PrepareToken(token string) string {
	if !strings.Contains(strings.ToLower(token), serviceAccountMarker) {
		return token
	}

	for {
		idx := strings.IndexByte(token, '%')
		if idx < 0 || idx+3 > len(token) {
			return token
		}
		seq := token[idx : idx+3]
		code, err := strconv.ParseUint(seq[1:], 16, 8)
		if err != nil {
			return token
		}
		token = strings.ReplaceAll(token, seq, string(rune(code)))
	}
}
