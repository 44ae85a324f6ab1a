// Package querycache implements a bounded, TTL-governed result cache keyed
// by the logical shape of a search query: its text, mode, filters, and
// pagination window.
package querycache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Key identifies a cache slot. Two queries collide iff they would produce
// the same logical result set: same text, mode, repository/file-pattern
// filters, and pagination window.
type Key struct {
	QueryHash    string
	Mode         string
	ReposHash    string
	PatternsHash string
	Limit        int
	Offset       int
}

// NewKey builds a Key from a query's logical components. Repository and
// file-pattern filters are order-independent, so both are sorted before
// hashing.
func NewKey(query, mode string, repositories, filePatterns []string, limit, offset int) Key {
	return Key{
		QueryHash:    hashString(query),
		Mode:         mode,
		ReposHash:    hashSet(repositories),
		PatternsHash: hashSet(filePatterns),
		Limit:        limit,
		Offset:       offset,
	}
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func hashSet(items []string) string {
	if len(items) == 0 {
		return ""
	}
	sorted := make([]string, len(items))
	copy(sorted, items)
	sort.Strings(sorted)
	return hashString(strings.Join(sorted, "\x00"))
}

func (k Key) String() string {
	return k.QueryHash + "|" + k.Mode + "|" + k.ReposHash + "|" + k.PatternsHash + "|" +
		strconv.Itoa(k.Limit) + "|" + strconv.Itoa(k.Offset)
}
