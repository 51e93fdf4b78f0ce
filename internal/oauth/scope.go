package oauth

import (
	"strings"

	"github.com/mastobridge/mastobridge/internal/apperror"
)

var recognizedScopes = map[string]bool{
	"read":   true,
	"write":  true,
	"follow": true,
	"push":   true,
}

// parseScope implements spec.md §4.5 scope validation: an empty or absent
// scope string defaults to {read}; any unrecognized scope token fails.
func parseScope(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{"read"}, nil
	}

	fields := strings.Fields(raw)
	scopes := make([]string, 0, len(fields))
	for _, s := range fields {
		if !recognizedScopes[s] {
			return nil, apperror.InvalidScope("unrecognized scope: " + s)
		}
		scopes = append(scopes, s)
	}
	return scopes, nil
}
