// Package sql inspects caller-supplied text for SQL injection patterns.
// Every query in this service is parameterized, so a match is a probe to
// audit rather than a request to reject.
package sql

import (
	"net/url"
	"sort"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes one value libinjection flagged.
type InjectionCheckResult struct {
	ParamName   string
	ParamValue  string
	Fingerprint string // libinjection token fingerprint, e.g. "s&1c"
}

// CheckValue runs libinjection over one value. It returns nil for clean input.
func CheckValue(paramName, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		ParamName:   paramName,
		ParamValue:  value,
		Fingerprint: string(fingerprint),
	}
}

// CheckQuery checks every value of every query parameter, ordered by name.
func CheckQuery(query url.Values) []*InjectionCheckResult {
	names := make([]string, 0, len(query))
	for name := range query {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []*InjectionCheckResult
	for _, name := range names {
		for _, v := range query[name] {
			if r := CheckValue(name, v); r != nil {
				results = append(results, r)
			}
		}
	}
	return results
}
