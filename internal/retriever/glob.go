package retriever

import (
	"regexp"
	"strings"
	"sync"
)

var globCache sync.Map // pattern string -> *regexp.Regexp

// matchGlob reports whether s matches pattern, where "*" in pattern matches
// any substring (not just path segments) and a pattern without "*" must
// match s exactly.
func matchGlob(pattern, s string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == s
	}
	re := compileGlob(pattern)
	return re.MatchString(s)
}

func compileGlob(pattern string) *regexp.Regexp {
	if cached, ok := globCache.Load(pattern); ok {
		return cached.(*regexp.Regexp)
	}
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, `\*`, ".*")
	re := regexp.MustCompile("^" + escaped + "$")
	globCache.Store(pattern, re)
	return re
}
