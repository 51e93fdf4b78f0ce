package atproto

import (
	"crypto/tls"
	"net/http"
	"sync"
	"time"
)

// transportPool shares one *http.Transport per PDS host across all session
// clients (spec.md §5: "Upstream clients share a pool of connections keyed
// by PDS host"), so that many concurrently-authenticated users hitting the
// same PDS reuse the same keep-alive connections instead of each session
// client paying a fresh TLS handshake.
var transportPool = struct {
	mu         sync.Mutex
	transports map[string]*http.Transport
}{transports: make(map[string]*http.Transport)}

func transportFor(host string) *http.Transport {
	transportPool.mu.Lock()
	defer transportPool.mu.Unlock()

	if t, ok := transportPool.transports[host]; ok {
		return t
	}

	t := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	transportPool.transports[host] = t
	return t
}
