package sbfs

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// globRegex splits a path into the prefix before the first glob
// metacharacter and the remainder.
var globRegex = regexp.MustCompile(`^(.*?)([\[\*\?\{].*)$`)

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func parseURIWithMap(uri string, validSchemes map[string]bool) (*url.URL, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}

	if _, ok := validSchemes[parsed.Scheme]; !ok {
		return nil, fmt.Errorf("invalid scheme: '%s'", parsed.Scheme)
	}

	if strings.HasPrefix(parsed.Path, "/") {
		parsed.Path = parsed.Path[1:]
	}

	return parsed, err
}
