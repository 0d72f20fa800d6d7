package cleaner

import "strings"

// DropSetupBlocksBalanced removes the same blocks as DropSetupBlocks but
// skips nested brace groups, so \lstset{a={b},c} is removed whole.
// Unterminated groups are left in place.
func DropSetupBlocksBalanced(text string) string {
	text = dropCommandGroups(text, `\lstdefinelanguage`, 2)
	text = dropCommandGroups(text, `\lstset`, 1)
	return dropBetween(text, `\makeatletter`, `\makeatother`)
}

// dropCommandGroups deletes cmd followed by n brace groups. Whitespace and
// a single [..] option are allowed between groups.
func dropCommandGroups(text, cmd string, n int) string {
	var b strings.Builder
	from := 0
	for {
		i := strings.Index(text[from:], cmd)
		if i < 0 {
			break
		}
		start := from + i
		pos := start + len(cmd)
		if pos < len(text) && isLetter(text[pos]) {
			b.WriteString(text[from:pos])
			from = pos
			continue
		}

		end, ok := pos, true
		for g := 0; g < n && ok; g++ {
			end = skipSpace(text, end)
			if end < len(text) && text[end] == '[' {
				if k := strings.IndexByte(text[end:], ']'); k >= 0 {
					end = skipSpace(text, end+k+1)
				}
			}
			end, ok = skipGroup(text, end)
		}
		if !ok {
			b.WriteString(text[from:pos])
			from = pos
			continue
		}
		b.WriteString(text[from:start])
		from = end
	}
	if from == 0 {
		return text
	}
	b.WriteString(text[from:])
	return b.String()
}

// skipGroup returns the offset after the balanced {...} group at pos.
func skipGroup(text string, pos int) (int, bool) {
	if pos >= len(text) || text[pos] != '{' {
		return pos, false
	}
	depth := 0
	for i := pos; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++ // escaped character, e.g. \{ or \}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return pos, false
}

func dropBetween(text, open, close string) string {
	for {
		i := strings.Index(text, open)
		if i < 0 {
			return text
		}
		k := strings.Index(text[i+len(open):], close)
		if k < 0 {
			return text
		}
		text = text[:i] + text[i+len(open)+k+len(close):]
	}
}

func skipSpace(text string, pos int) int {
	for pos < len(text) && (text[pos] == ' ' || text[pos] == '\t' || text[pos] == '\n') {
		pos++
	}
	return pos
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
