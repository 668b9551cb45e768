package tokenizer

// TermCounts scans a document byte stream and counts term occurrences.
// ASCII letters, digits and underscore are token characters; letters are
// lower-cased; every other byte is a boundary. Maximal runs between
// boundaries become terms.
func TermCounts(content []byte) map[string]int {
	counts := make(map[string]int)
	var current []byte

	for _, raw := range content {
		c := raw
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if isTokenByte(c) {
			current = append(current, c)
			continue
		}
		if len(current) > 0 {
			counts[string(current)]++
			current = current[:0]
		}
	}
	if len(current) > 0 {
		counts[string(current)]++
	}
	return counts
}

func isTokenByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_'
}
