package parser

import "strings"

// predefined are the entities an XML parser resolves without a DTD
var predefined = []string{"amp;", "lt;", "gt;", "quot;", "apos;"}

// Sanitize escapes characters that appear as literal content but would
// break a strict XML parser. Markup (tags, end tags, comments, CDATA,
// processing instructions and the DOCTYPE declaration) is kept as is.
// Outside markup a stray '<', '>' or '"' is escaped, and an '&' that does
// not start a predefined entity or a character reference becomes "&amp;",
// so DTD entities such as "&n;" survive as literal text.
func Sanitize(src string) string {
	var b strings.Builder
	b.Grow(len(src) + len(src)/32)

	for i := 0; i < len(src); {
		switch c := src[i]; c {
		case '<':
			if n := markupLen(src[i:]); n > 0 {
				if src[i+1] == '!' || src[i+1] == '?' || src[i+1] == '/' {
					b.WriteString(src[i : i+n])
				} else {
					writeStartTag(&b, src[i:i+n])
				}
				i += n
				continue
			}
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '&':
			if n := referenceLen(src[i:]); n > 0 {
				b.WriteString(src[i : i+n])
				i += n
				continue
			}
			b.WriteString("&amp;")
		default:
			b.WriteByte(c)
		}
		i++
	}

	return b.String()
}

// markupLen returns the length of the markup construct s starts with, or 0
// when the leading '<' is literal text.
func markupLen(s string) int {
	switch {
	case strings.HasPrefix(s, "<!--"):
		return closedBy(s, 4, "-->")
	case strings.HasPrefix(s, "<![CDATA["):
		return closedBy(s, 9, "]]>")
	case strings.HasPrefix(s, "<?"):
		return closedBy(s, 2, "?>")
	case strings.HasPrefix(s, "<!"):
		return declarationLen(s)
	case strings.HasPrefix(s, "</"):
		return endTagLen(s)
	default:
		return startTagLen(s)
	}
}

func closedBy(s string, from int, end string) int {
	if i := strings.Index(s[from:], end); i >= 0 {
		return from + i + len(end)
	}
	return 0
}

// declarationLen handles <!DOCTYPE ...> including a bracketed internal subset
func declarationLen(s string) int {
	if len(s) < 3 || !isNameStart(s[2]) {
		return 0
	}

	depth := 0
	var quote byte
	for i := 2; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
		case c == '>' && depth <= 0:
			return i + 1
		case depth > 0 && strings.HasPrefix(s[i:], "<!--"):
			n := closedBy(s[i:], 4, "-->")
			if n == 0 {
				return 0
			}
			i += n - 1
		}
	}
	return 0
}

func endTagLen(s string) int {
	i := nameEnd(s, 2)
	if i == 2 {
		return 0
	}
	i = skipSpace(s, i)
	if i < len(s) && s[i] == '>' {
		return i + 1
	}
	return 0
}

func startTagLen(s string) int {
	i := nameEnd(s, 1)
	if i == 1 {
		return 0
	}

	for {
		j := skipSpace(s, i)
		if j >= len(s) {
			return 0
		}
		switch {
		case s[j] == '>':
			return j + 1
		case strings.HasPrefix(s[j:], "/>"):
			return j + 2
		case j == i:
			// attributes must be separated from what precedes them
			return 0
		}

		k := nameEnd(s, j)
		if k == j {
			return 0
		}
		k = skipSpace(s, k)
		if k >= len(s) || s[k] != '=' {
			return 0
		}
		k = skipSpace(s, k+1)
		if k >= len(s) || (s[k] != '"' && s[k] != '\'') {
			return 0
		}
		end := strings.IndexByte(s[k+1:], s[k])
		if end < 0 {
			return 0
		}
		i = k + 1 + end + 1
	}
}

// writeStartTag copies a start tag, escaping stray '<' and '&' inside its
// quoted attribute values.
func writeStartTag(b *strings.Builder, tag string) {
	var quote byte
	for i := 0; i < len(tag); {
		c := tag[i]
		switch {
		case quote == 0:
			if c == '"' || c == '\'' {
				quote = c
			}
		case c == quote:
			quote = 0
		case c == '<':
			b.WriteString("&lt;")
			i++
			continue
		case c == '&':
			if n := referenceLen(tag[i:]); n > 0 {
				b.WriteString(tag[i : i+n])
				i += n
				continue
			}
			b.WriteString("&amp;")
			i++
			continue
		}
		b.WriteByte(c)
		i++
	}
}

// referenceLen returns the length of a predefined entity or character
// reference at the start of s, or 0.
func referenceLen(s string) int {
	rest := s[1:]
	for _, name := range predefined {
		if strings.HasPrefix(rest, name) {
			return 1 + len(name)
		}
	}

	if !strings.HasPrefix(rest, "#") {
		return 0
	}
	i := 1
	hex := false
	if i < len(rest) && (rest[i] == 'x' || rest[i] == 'X') {
		hex = true
		i++
	}
	start := i
	for i < len(rest) && isDigit(rest[i], hex) {
		i++
	}
	if i == start || i >= len(rest) || rest[i] != ';' {
		return 0
	}
	return 1 + i + 1
}

func nameEnd(s string, i int) int {
	if i >= len(s) || !isNameStart(s[i]) {
		return i
	}
	for i++; i < len(s) && isNameChar(s[i]); i++ {
	}
	return i
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isNameStart(c byte) bool {
	return c == '_' || c == ':' || c >= 0x80 || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c == '-' || c == '.' || ('0' <= c && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte, hex bool) bool {
	if '0' <= c && c <= '9' {
		return true
	}
	return hex && (('a' <= c && c <= 'f') || ('A' <= c && c <= 'F'))
}
