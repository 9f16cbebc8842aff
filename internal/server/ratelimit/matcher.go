package ratelimit

import "strings"

// Match returns the rule for a request, preferring exact paths over
// prefixes. It returns nil when no rule applies.
func Match(path, method string, rules []Rule) *Rule {
	for i := range rules {
		if rules[i].Path == path && rules[i].Method == method {
			return &rules[i]
		}
	}

	var best *Rule
	for i := range rules {
		r := &rules[i]
		if r.Method != method || !strings.HasSuffix(r.Path, "/") || !strings.HasPrefix(path, r.Path) {
			continue
		}
		if best == nil || len(r.Path) > len(best.Path) {
			best = r
		}
	}
	return best
}
