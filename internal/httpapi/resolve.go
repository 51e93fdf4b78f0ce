package httpapi

import (
	"context"
	"strconv"

	"github.com/mastobridge/mastobridge/internal/apperror"
	"github.com/mastobridge/mastobridge/internal/snowflake"
)

// parseSnowflakeID parses a Mastodon-shaped entity id back into the
// Snowflake value idmap minted it from.
func parseSnowflakeID(raw string) (snowflake.ID, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, apperror.NotFound("record not found")
	}
	return snowflake.ID(n), nil
}

// resolveAccountDID resolves a Mastodon account id (a Snowflake) back to
// the DID idmap minted it from. Per spec.md §4.2, the cache mapping is
// only ever primed by a prior translation; an id this process never
// translated cannot be resolved and is reported as not_found.
func (s *Server) resolveAccountDID(ctx context.Context, id string) (string, error) {
	sf, err := parseSnowflakeID(id)
	if err != nil {
		return "", err
	}
	did, ok, err := s.mapper.DIDForSnowflake(ctx, sf)
	if err != nil {
		return "", apperror.Internal(err)
	}
	if !ok {
		return "", apperror.NotFound("account not found")
	}
	return did, nil
}

// resolveStatusURI resolves a Mastodon status id back to the AT URI
// idmap minted it from.
func (s *Server) resolveStatusURI(ctx context.Context, id string) (string, error) {
	sf, err := parseSnowflakeID(id)
	if err != nil {
		return "", err
	}
	uri, ok, err := s.mapper.ATURIForSnowflake(ctx, sf)
	if err != nil {
		return "", apperror.Internal(err)
	}
	if !ok {
		return "", apperror.NotFound("status not found")
	}
	return uri, nil
}
