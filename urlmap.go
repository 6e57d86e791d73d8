package ucpschema

import (
	"net/url"
	"path"
	"strings"
)

// URLMapper rewrites a schema URL to a local filesystem path so that
// self-describing payloads can be resolved against a local checkout instead
// of refetching every schema over the network.
type URLMapper struct {
	// LocalBase is the directory schemas are mapped into. If empty, MapURL
	// reports ok=false for every URL and the caller should fall back to
	// fetching the URL directly.
	LocalBase string
	// RemoteBase, if set and a prefix of the URL, is stripped before
	// joining with LocalBase. If unset, or not a prefix of the URL, the
	// URL's path component is used instead.
	RemoteBase string
}

// MapURL maps u to a local path under m.LocalBase. ok is false when
// m.LocalBase is empty, meaning no mapping is configured and u should be
// fetched as-is.
func (m URLMapper) MapURL(u string) (localPath string, ok bool) {
	if m.LocalBase == "" {
		return "", false
	}

	var fragment string
	if m.RemoteBase != "" && strings.HasPrefix(u, m.RemoteBase) {
		fragment = strings.TrimPrefix(u, m.RemoteBase)
	} else if parsed, err := url.Parse(u); err == nil {
		fragment = parsed.Path
	} else {
		fragment = u
	}

	fragment = strings.TrimPrefix(fragment, "/")
	return path.Join(m.LocalBase, fragment), true
}
