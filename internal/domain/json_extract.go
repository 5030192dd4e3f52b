package domain

import "encoding/json"

// ExtractJSONObject scans free-form model output for the first
// well-formed JSON object and returns it. A missing or unbalanced
// object is a normal outcome, reported via ok=false, never an error.
func ExtractJSONObject(raw string) (json.RawMessage, bool) {
	return extractBalanced(raw, '{', '}')
}

// ExtractJSONArray is the array counterpart of ExtractJSONObject.
func ExtractJSONArray(raw string) (json.RawMessage, bool) {
	return extractBalanced(raw, '[', ']')
}

func extractBalanced(raw string, open, close byte) (json.RawMessage, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		c := raw[i]
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
			if start >= 0 {
				inString = true
			}
		case open:
			if start < 0 {
				start = i
			}
			depth++
		case close:
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				candidate := raw[start : i+1]
				if json.Valid([]byte(candidate)) {
					return json.RawMessage(candidate), true
				}
				// Keep scanning past the invalid candidate.
				start = -1
			}
		}
	}
	return nil, false
}
