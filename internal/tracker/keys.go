package tracker

import (
	"strconv"
	"strings"
)

// CompareKeys orders issue keys by project then by issue number, so
// CAM-10 sorts after CAM-9. Keys that are not PROJECT-NUMBER fall back to
// string comparison.
func CompareKeys(a, b string) int {
	pa, na, okA := splitKey(a)
	pb, nb, okB := splitKey(b)
	if !okA || !okB {
		return strings.Compare(a, b)
	}
	if c := strings.Compare(pa, pb); c != 0 {
		return c
	}
	switch {
	case na < nb:
		return -1
	case na > nb:
		return 1
	}
	return 0
}

// LatestKey returns the greatest key under CompareKeys, or "" for no keys.
func LatestKey(keys []string) string {
	var latest string
	for _, k := range keys {
		if latest == "" || CompareKeys(k, latest) > 0 {
			latest = k
		}
	}
	return latest
}

func splitKey(key string) (string, int, bool) {
	idx := strings.LastIndex(key, "-")
	if idx <= 0 || idx == len(key)-1 {
		return "", 0, false
	}
	n, err := strconv.Atoi(key[idx+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return key[:idx], n, true
}
