package obs

import "strings"

// CanonicalPath collapses variable path segments so metric label cardinality
// stays bounded. Unknown paths pass through as-is.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}

	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	if len(parts) < 3 || parts[0] != "v1" {
		return p
	}

	switch parts[1] {
	case "trustees":
		if len(parts) == 3 {
			return "/v1/trustees/:id"
		}
	case "vault":
		if parts[2] == "upload-url" {
			return p
		}
		switch len(parts) {
		case 3:
			return "/v1/vault/:id"
		case 4:
			return "/v1/vault/:id/" + parts[3]
		}
	}
	return p
}
