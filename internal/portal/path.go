// Package portal is the public-facing router: path normalization, the
// three advisor auth modes (none, a shared secret, Google OAuth), and
// dispatch to the scheduling and availability-link handlers.
package portal

import "strings"

// NormalizePath collapses repeated slashes and strips a trailing slash
// (except on the root), so "/advisor//jane/" and "/advisor/jane" route
// identically.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
