package source

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/loaderkit/go-dataload/loaderror"
	"github.com/loaderkit/go-dataload/resource"
)

// decodeText converts a raw text payload into the value for a non-binary
// resource kind. An empty payload is an error, not a valid empty document.
func decodeText(text string, kind resource.Kind) (any, error) {
	if text == "" {
		return nil, loaderror.ErrEmptyResponse
	}
	switch kind {
	case resource.KindText:
		return text, nil
	case resource.KindJSON:
		return decodeJSON(text)
	}
	return nil, fmt.Errorf("cannot decode text payload as %s", kind)
}

// decodeJSON validates that text is a JSON object or array and returns it as
// a raw message. Bare primitives are rejected: a structured request that
// yields "42" or a quoted string is a decode failure, not data.
func decodeJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, loaderror.ErrEmptyResponse
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, loaderror.ErrNotJSON
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, fmt.Errorf("%w: invalid JSON syntax", loaderror.ErrNotJSON)
	}
	return json.RawMessage(trimmed), nil
}

// recoverEmbeddedJSON attempts to extract a JSON object embedded in an HTML
// payload. Some upstream servers wrap the real document in an error or
// interstitial page. The first balanced brace-delimited substring is tried;
// anything else is a decode failure.
func recoverEmbeddedJSON(text string) (json.RawMessage, error) {
	if !looksLikeHTML(text) {
		return nil, loaderror.ErrNotJSON
	}
	candidate, ok := firstBraceSpan(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON found in HTML payload", loaderror.ErrNotJSON)
	}
	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("%w: embedded candidate is not valid JSON", loaderror.ErrNotJSON)
	}
	return json.RawMessage(candidate), nil
}

func looksLikeHTML(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype html")
}

// firstBraceSpan returns the first balanced {...} span in text. Brace
// characters inside JSON string literals are accounted for so that values
// like {"a":"}"} are spanned correctly.
func firstBraceSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", false
	}
	var depth int
	var inString, escaped bool
	for i := start; i < len(text); i++ {
		c := text[i]
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
