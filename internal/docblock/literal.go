package docblock

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Clean normalizes docstring indentation the way Python tools display
// docstrings: tabs are expanded, the first line is left-trimmed, the common
// indentation of the remaining lines is removed, and leading and trailing
// blank lines are dropped. A docstring of only whitespace cleans to "".
func Clean(doc string) string {
	lines := strings.Split(expandTabs(doc), "\n")

	margin := math.MaxInt
	for _, line := range lines[1:] {
		content := strings.TrimLeft(line, " ")
		if strings.TrimSpace(content) == "" {
			continue
		}
		margin = min(margin, len(line)-len(content))
	}

	lines[0] = strings.TrimLeft(lines[0], " \t\r\f\v")
	if margin < math.MaxInt {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " ")
			}
		}
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		switch r {
		case '\t':
			n := 8 - col%8
			b.WriteString(strings.Repeat(" ", n))
			col += n
		case '\n', '\r':
			b.WriteRune(r)
			col = 0
		default:
			b.WriteRune(r)
			col++
		}
	}
	return b.String()
}

var simpleEscapes = map[byte]string{
	'\n': "",
	'\\': `\`,
	'\'': `'`,
	'"':  `"`,
	'a':  "\a",
	'b':  "\b",
	'f':  "\f",
	'n':  "\n",
	'r':  "\r",
	't':  "\t",
	'v':  "\v",
}

// Unescape decodes backslash escapes in the body of a non-raw Python string
// literal. Unknown escapes are kept verbatim, as Python does.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		next := s[i+1]
		if rep, ok := simpleEscapes[next]; ok {
			b.WriteString(rep)
			i++
			continue
		}
		switch {
		case next >= '0' && next <= '7':
			j := i + 1
			for j < len(s) && j < i+4 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i+1:j], 8, 32)
			b.WriteRune(rune(v))
			i = j - 1
		case next == 'x' && i+4 <= len(s):
			if r, ok := hexRune(s[i+2 : i+4]); ok {
				b.WriteRune(r)
				i += 3
				continue
			}
			b.WriteByte(c)
		case next == 'u' && i+6 <= len(s):
			if r, ok := hexRune(s[i+2 : i+6]); ok {
				b.WriteRune(r)
				i += 5
				continue
			}
			b.WriteByte(c)
		case next == 'U' && i+10 <= len(s):
			if r, ok := hexRune(s[i+2 : i+10]); ok {
				b.WriteRune(r)
				i += 9
				continue
			}
			b.WriteByte(c)
		default:
			// \N{NAME} and unknown escapes stay as written.
			b.WriteByte(c)
		}
	}
	return b.String()
}

func hexRune(h string) (rune, bool) {
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil || !utf8.ValidRune(rune(v)) {
		return 0, false
	}
	return rune(v), true
}
