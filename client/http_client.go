package client

import (
	"net/http"
	"time"
)

var transport *http.Transport

func init() {
	// Connection settings for the object store client
	transport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,              // Maximum number of idle connections
		MaxIdleConnsPerHost: 10,               // Maximum idle connections per host
		IdleConnTimeout:     90 * time.Second, // How long to keep idle connections
		TLSHandshakeTimeout: 10 * time.Second, // TLS handshake timeout
		DisableCompression:  true,             // Object bodies are already compressed images
		ForceAttemptHTTP2:   true,             // Enable HTTP/2
	}
}

// GetTransport returns the shared transport used for storage requests
func GetTransport() *http.Transport {
	return transport
}
