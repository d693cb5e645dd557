package urlparam

import (
	"errors"
	"strings"
)

// Errors returned by CanonicalPath.
var (
	ErrNotRelative   = errors.New("urlparam: not a site-relative path")
	ErrBackslash     = errors.New("urlparam: path contains backslash")
	ErrNullByte      = errors.New("urlparam: path contains null byte")
	ErrPercentEscape = errors.New("urlparam: invalid percent escape")
	ErrEscapesRoot   = errors.New("urlparam: path escapes root")
)

// CanonicalPath validates a browser-supplied location and returns it in
// canonical form. The path must be site-relative; absolute and
// scheme-relative URLs are rejected. Repeated slashes collapse, "." and ".."
// segments resolve and a trailing slash is dropped. The query string is kept
// as is.
//
//	CanonicalPath("/products//?search=x") // "/products?search=x"
//	CanonicalPath("//evil.example/")      // ErrNotRelative
func CanonicalPath(raw string) (string, error) {
	path, query, hasQuery := strings.Cut(raw, "?")
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return "", ErrNotRelative
	}
	if strings.Contains(path, `\`) {
		return "", ErrBackslash
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return "", ErrNullByte
	}
	if err := checkEscapes(path); err != nil {
		return "", err
	}

	segs := make([]string, 0, strings.Count(path, "/"))
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segs) == 0 {
				return "", ErrEscapesRoot
			}
			segs = segs[:len(segs)-1]
		default:
			segs = append(segs, seg)
		}
	}

	out := "/" + strings.Join(segs, "/")
	if hasQuery && query != "" {
		out += "?" + query
	}
	return out, nil
}

func checkEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHex(path[i+1]) || !isHex(path[i+2]) {
			return ErrPercentEscape
		}
		i += 2
	}
	return nil
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
