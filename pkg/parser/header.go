package parser

import "strings"

// headerTokens must all appear, as substrings, in the fields of a header line.
var headerTokens = []string{"concepto", "fecha", "importe"}

// FindHeader locates the first line of text whose fields contain every header
// token. It returns the line index and the trimmed fields of that line. Bank
// exports usually carry a few banner lines before the real table.
func FindHeader(text string, delimiter rune) (int, []string, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, string(delimiter))
		if !hasTokens(fields) {
			continue
		}

		names := make([]string, len(fields))
		for j, f := range fields {
			names[j] = strings.TrimSpace(f)
		}
		return i, names, true
	}
	return -1, nil, false
}

func hasTokens(fields []string) bool {
	for _, token := range headerTokens {
		found := false
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), token) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
