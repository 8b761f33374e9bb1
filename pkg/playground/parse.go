package playground

import (
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// ParseQuery validates a jq filter for Report.Query.
func ParseQuery(filter string) (*gojq.Query, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, fmt.Errorf("query: empty jq expression")
	}
	q, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("parse query: '%s' is an invalid jq expression: %w", filter, err)
	}
	return q, nil
}

// FormatQuery returns the canonical text of a jq filter.
func FormatQuery(filter string) (string, error) {
	q, err := ParseQuery(filter)
	if err != nil {
		return "", err
	}
	return q.String(), nil
}
