package service

import (
	"context"
	"net/http"
)

// Headers builds request headers from the current credentials. A missing
// token just omits Authorization; the caller handles the resulting 401.
func (c *CredentialStore) Headers(ctx context.Context, includeAuth bool) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")

	if !includeAuth {
		return h
	}
	if token, ok := c.CurrentAccessToken(ctx); ok && token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
