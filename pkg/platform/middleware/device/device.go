// Package device labels requests with a short device description parsed from
// the User-Agent so log lines can say which wallet client made a call.
package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"passbook/pkg/requestcontext"
)

// Unknown is the label used when the User-Agent is missing or unparseable.
const Unknown = "unknown"

// DisplayName turns a raw User-Agent into "<product> <version> (<os>)".
// Bots are reported as "bot: <name>".
func DisplayName(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return Unknown
	}

	ua := useragent.New(userAgent)
	name, version := ua.Browser()
	if ua.Bot() {
		return "bot: " + name
	}

	label := strings.TrimSpace(name + " " + version)
	if label == "" {
		label = Unknown
	}
	if os := ua.OS(); os != "" {
		label += " (" + os + ")"
	}
	return label
}

// Middleware stores DisplayName of the request's User-Agent in the context.
// It reads the User-Agent captured by the metadata middleware when present,
// falling back to the raw header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userAgent := requestcontext.UserAgent(ctx)
		if userAgent == "" {
			userAgent = r.UserAgent()
		}
		ctx = requestcontext.WithDeviceName(ctx, DisplayName(userAgent))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
