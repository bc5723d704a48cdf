package app

import "regexp"

// Hidden codes are 5 characters drawn from a 32-character alphabet that
// leaves out the visually ambiguous 0/O and 1/I, so a code read off a
// flyer can't be mistyped into a different valid code.
var codePattern = regexp.MustCompile(`\b[2-9A-HJ-NP-Z]{5}\b`)

// ExtractCodes scans tweet text for candidate hidden codes. Matching is
// case-insensitive (the text is uppercased first); results are uppercase,
// distinct, and in order of first appearance.
func ExtractCodes(text string) []string {
	if text == "" {
		return nil
	}

	matches := codePattern.FindAllString(upperASCII(text), -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var codes []string
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		codes = append(codes, m)
	}
	return codes
}

// upperASCII uppercases ASCII letters only; code characters are all ASCII
// and locale-dependent case folding must not apply.
func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
