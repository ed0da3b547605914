package llm

import "strings"

// CleanJSONBlock strips markdown fences and any prose around the first JSON
// object. Models prepend explanations despite instructions, and that prose may
// contain brackets, so an array is only taken when the fenced text starts with one.
// Text without a balanced JSON value is returned trimmed but otherwise unchanged.
func CleanJSONBlock(text string) string {
	text = stripFences(strings.TrimSpace(text))

	var found string
	if strings.HasPrefix(text, "[") {
		found = extractJSONArray(text)
	} else if start := strings.IndexByte(text, '{'); start >= 0 {
		found = extractJSONObject(text[start:])
	}
	if found == "" {
		return text
	}
	return found
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Drop a language tag such as "json" on the opening line.
	if idx := strings.Index(text, "\n"); idx >= 0 {
		tag := text[:idx]
		if len(tag) < 20 && !strings.ContainsAny(tag, " {[") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func extractJSONObject(s string) string {
	return extractBalanced(s, '{', '}')
}

func extractJSONArray(s string) string {
	return extractBalanced(s, '[', ']')
}

// extractBalanced returns the prefix of s that closes the bracket s starts
// with, ignoring brackets inside string literals. Unbalanced input yields "".
func extractBalanced(s string, open, close byte) string {
	if len(s) == 0 || s[0] != open {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
