package main

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/btccom/connectproxy"
	"golang.org/x/net/proxy"
)

// Dialer is the minimal interface the stratum client needs from either a
// direct net.Dialer or a proxy-wrapped one (spec.md §4.D's "reach the pool
// through whatever transport is configured").
type Dialer interface {
	Dial(network, addr string) (net.Conn, error)
}

// proxyEnvVars lists the environment variables checked for an outbound
// proxy, in priority order, matching the precedence curl and most Go
// HTTP clients give ALL_PROXY over the scheme-specific variables.
var proxyEnvVars = []string{
	"ALL_PROXY", "all_proxy",
	"HTTPS_PROXY", "https_proxy",
	"HTTP_PROXY", "http_proxy",
}

// GetProxyURLFromEnv returns the first non-empty proxy URL found among
// proxyEnvVars, or "" if the miner should dial the pool directly.
func GetProxyURLFromEnv() string {
	for _, name := range proxyEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// normalizeProxyScheme rewrites a bare host:port or a socks4/socks4a/socks5
// scheme into the "http"/"https"/"socks" buckets the dialer switch below
// understands; a scheme-less URL is assumed to be an HTTP-CONNECT proxy.
func normalizeProxyScheme(raw string) string {
	if raw == "" {
		return raw
	}
	raw = strings.TrimSpace(raw)
	scheme, address, found := strings.Cut(raw, "://")
	if !found {
		scheme, address = "http", raw
	}
	scheme = strings.ToLower(scheme)

	switch scheme {
	case "":
		scheme = "http"
	case "socks4", "socks4a", "socks5":
		scheme = "socks"
	}
	return fmt.Sprintf("%s://%s", scheme, address)
}

// GetProxyDialer builds a Dialer that reaches the pool through proxyURL,
// choosing between HTTP-CONNECT and SOCKS5 based on its scheme. timeout
// bounds the proxy handshake itself, not the eventual pool connection.
func GetProxyDialer(proxyURL string, timeout time.Duration, insecureSkipVerify bool) (Dialer, error) {
	normalized := normalizeProxyScheme(proxyURL)
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "socks":
		auth := proxy.Auth{User: u.User.Username()}
		auth.Password, _ = u.User.Password()
		return proxy.SOCKS5("tcp", u.Host, &auth, &net.Dialer{Timeout: timeout})

	case "http", "https":
		return connectproxy.NewWithConfig(
			u,
			&net.Dialer{Timeout: timeout},
			&connectproxy.Config{
				InsecureSkipVerify: insecureSkipVerify,
				DialTimeout:        timeout,
			},
		)

	default:
		if normalized == "" {
			return nil, nil
		}
		return nil, fmt.Errorf("unsupported proxy scheme %q for %q", u.Scheme, proxyURL)
	}
}
