package importer

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type outcomeKind int

const (
	outcomeUnknown outcomeKind = iota
	outcomeData
	outcomeError
)

// scrapeOutcome is the decoded form of the service's {data?, error?} body.
type scrapeOutcome struct {
	kind    outcomeKind
	data    json.RawMessage
	message string
}

// decodeScrapeResponse turns a response body into exactly one outcome.
// data is checked before error, so a body carrying both yields the data.
// Any truthy data is passed through whatever its shape.
func decodeScrapeResponse(body []byte) (scrapeOutcome, error) {
	var top json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return scrapeOutcome{}, &ProtocolError{Err: err}
	}
	if !isObject(top) {
		return scrapeOutcome{kind: outcomeUnknown}, nil
	}

	// Keys are matched exactly; a map avoids encoding/json's case folding.
	var env map[string]json.RawMessage
	if err := json.Unmarshal(top, &env); err != nil {
		return scrapeOutcome{}, &ProtocolError{Err: err}
	}

	switch {
	case truthy(env["data"]):
		return scrapeOutcome{kind: outcomeData, data: env["data"]}, nil
	case truthy(env["error"]):
		return scrapeOutcome{kind: outcomeError, message: errorMessage(env["error"])}, nil
	default:
		return scrapeOutcome{kind: outcomeUnknown}, nil
	}
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// truthy reports whether a JSON value counts as present: absent, null, false,
// zero and the empty string do not.
func truthy(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 {
		return false
	}
	switch v[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return false
		}
		return s != ""
	default:
		f, _ := strconv.ParseFloat(string(v), 64)
		return f != 0
	}
}

func errorMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
