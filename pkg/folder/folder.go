// Package folder derives report grouping keys from object keys.
package folder

import "strings"

// Extract returns the folder an object key is grouped under at the given
// depth: the join of the key's first depth path segments, never going
// deeper than the object's own directory. Depth 0 (or a key with no
// directory) maps to the root folder "".
func Extract(key string, depth int) string {
	if depth <= 0 {
		return ""
	}

	end := strings.LastIndexByte(key, '/')
	if end < 0 {
		return ""
	}
	dir := key[:end]

	idx := 0
	for i := 0; i < depth; i++ {
		next := strings.IndexByte(dir[idx:], '/')
		if next < 0 {
			return dir
		}
		idx += next + 1
	}
	return dir[:idx-1]
}
