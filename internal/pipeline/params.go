package pipeline

import (
	"net/url"
	"strings"
)

// RawParams maps a query-string parameter name to its value, exactly as
// decoded from the request.
type RawParams map[string]string

// FromValues flattens decoded query values into RawParams. Only the first
// value of a repeated parameter is kept.
func FromValues(values url.Values) RawParams {
	params := make(RawParams, len(values))
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		params[key] = vals[0]
	}
	return params
}

// splitFieldList turns "a,-b" (or "a -b") into ["a", "-b"].
func splitFieldList(raw string) []string {
	return strings.Fields(strings.ReplaceAll(raw, ",", " "))
}
