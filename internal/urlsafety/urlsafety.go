// Package urlsafety validates the model-server base URLs a job is
// configured against. Adapted from the teacher's
// internal/ports/adapters/openrouter/baseurl.go ValidateBaseURL, which
// guarded a single fixed third-party host; generalized here for the
// whisper_server_url/chat_server_url config keys (spec §6), which name
// a user-chosen local GPU server rather than a fixed remote API — so
// http is permitted for loopback hosts, and there is no fixed allowlist.
package urlsafety

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateServerURL rejects anything that is not a well-formed,
// unambiguous HTTP(S) base URL: absolute, with a host, no embedded
// credentials, and no query/fragment. Plain http is only allowed for
// loopback hosts, matching the local, GPU-resident deployment model of
// spec §1; any other host requires https.
func ValidateServerURL(field, raw string) error {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return fmt.Errorf("%s: must not be empty", field)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%s %q: %w", field, trimmed, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%s %q: absolute URL with host is required", field, trimmed)
	}
	if u.User != nil {
		return fmt.Errorf("%s %q: userinfo is not allowed", field, trimmed)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%s %q: query and fragment are not allowed", field, trimmed)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%s %q: host is required", field, trimmed)
	}

	switch scheme {
	case "https":
	case "http":
		if !isLoopback(host) {
			return fmt.Errorf("%s %q: https is required for non-loopback hosts", field, trimmed)
		}
	default:
		return fmt.Errorf("%s %q: scheme must be http or https", field, trimmed)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
