package branch

import (
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// splitList splits a branches= string on ':' and '+'. The two separators
// are semantically equivalent in this core; '+' historically grouped
// "sibling" branches for narrower policies this implementation doesn't
// distinguish.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ':' || r == '+'
	})
}

// ParseSpec parses one PATH[=MODE[,MINFREE]] entry, expanding glob patterns
// in PATH, stat-ing each resulting path, and returning one Branch per match.
//
// Grounded on backend/union/upstream/upstream.go's New(), which parses a
// trailing ":ro"/":nc" suffix off a remote string; generalized here to the
// richer "=MODE[,MINFREE]" grammar spec.md requires and to glob expansion.
func ParseSpec(entry string, defaultMinFree uint64) ([]*Branch, error) {
	pathPart := entry
	mode := RW
	minFree := defaultMinFree

	if idx := strings.IndexByte(entry, '='); idx >= 0 {
		pathPart = entry[:idx]
		rest := entry[idx+1:]
		modeStr := rest
		if c := strings.IndexByte(rest, ','); c >= 0 {
			modeStr = rest[:c]
			mfStr := rest[c+1:]
			v, err := strconv.ParseUint(mfStr, 10, 64)
			if err != nil {
				return nil, syscall.EINVAL
			}
			minFree = v
		}
		m, err := ParseMode(modeStr)
		if err != nil {
			return nil, syscall.EINVAL
		}
		mode = m
	}

	if pathPart == "" {
		return nil, syscall.EINVAL
	}

	matches, err := filepath.Glob(pathPart)
	if err != nil {
		return nil, syscall.EINVAL
	}
	if matches == nil {
		// Glob returns (nil, nil) for non-matching patterns; a literal
		// path that doesn't exist must still fail with ENOENT below,
		// while a genuine glob with zero matches is allowed to expand
		// to zero branches (spec.md 4.1).
		if strings.ContainsAny(pathPart, "*?[") {
			return nil, nil
		}
		matches = []string{pathPart}
	}

	out := make([]*Branch, 0, len(matches))
	for _, p := range matches {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, syscall.EINVAL
		}
		var st syscall.Stat_t
		if err := syscall.Stat(abs, &st); err != nil {
			return nil, syscall.ENOENT
		}
		out = append(out, &Branch{
			Path:         abs,
			Mode:         mode,
			MinFreeSpace: minFree,
			Enabled:      true,
			DeviceID:     uint64(st.Dev),
		})
	}
	return out, nil
}

// Parse parses a full branches= configuration string into a List, in
// declaration order, expanding globs and validating each path exists.
func Parse(spec string, defaultMinFree uint64) (List, error) {
	parts := splitList(spec)
	if len(parts) == 0 {
		return nil, syscall.EINVAL
	}
	var list List
	seen := make(map[string]bool)
	for _, part := range parts {
		branches, err := ParseSpec(part, defaultMinFree)
		if err != nil {
			return nil, err
		}
		for _, b := range branches {
			if seen[b.Path] {
				continue
			}
			seen[b.Path] = true
			list = append(list, b)
		}
	}
	if len(list) == 0 {
		return nil, syscall.EINVAL
	}
	return list, nil
}
