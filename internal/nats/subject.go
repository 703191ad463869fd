package nats

import "strings"

// subjectMatches reports whether subject matches a NATS subject filter.
// "*" matches exactly one token and ">" matches one or more trailing tokens.
func subjectMatches(filter, subject string) bool {
	if filter == "" || filter == ">" {
		return subject != ""
	}

	ft := strings.Split(filter, ".")
	st := strings.Split(subject, ".")
	for i, tok := range ft {
		if tok == ">" {
			return len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if tok != "*" && tok != st[i] {
			return false
		}
	}
	return len(ft) == len(st)
}

// matchesAny reports whether subject matches one of filters; no filters matches everything
func matchesAny(filters []string, subject string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if subjectMatches(f, subject) {
			return true
		}
	}
	return false
}
