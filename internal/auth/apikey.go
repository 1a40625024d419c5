// Package auth guards the bridge endpoints with API keys.
package auth

import (
	"crypto/subtle"
	"net/http"
	"sync"
)

// HeaderName carries the API key on bridge requests
const HeaderName = "X-Api-Key"

// APIKeyAuth provides a simple API key authentication
type APIKeyAuth struct {
	mu        sync.RWMutex
	validKeys []string
}

// NewAPIKeyAuth creates a new API key authentication middleware
func NewAPIKeyAuth(keys []string) *APIKeyAuth {
	a := &APIKeyAuth{}
	for _, key := range keys {
		a.AddKey(key)
	}
	return a
}

// AddKey adds a new valid API key
func (a *APIKeyAuth) AddKey(key string) {
	if key == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.validKeys = append(a.validKeys, key)
}

// RemoveKey removes a valid API key
func (a *APIKeyAuth) RemoveKey(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.validKeys[:0]
	for _, k := range a.validKeys {
		if k != key {
			kept = append(kept, k)
		}
	}
	a.validKeys = kept
}

// Enabled reports whether any key is configured
func (a *APIKeyAuth) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.validKeys) > 0
}

// IsValidKey checks if a key is valid. Every configured key is compared so
// the timing does not depend on which one matches.
func (a *APIKeyAuth) IsValidKey(key string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	valid := 0
	for _, k := range a.validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(k), []byte(key))
	}
	return valid == 1
}

// KeyFromRequest reads the key from the header, falling back to the
// "api_key" query parameter for browser websocket clients.
func KeyFromRequest(r *http.Request) string {
	if key := r.Header.Get(HeaderName); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}
