// Package observability wires Sentry tracing and metrics into outbound
// HTTP calls and request contexts.
package observability

import (
	"net/http"
	"time"

	sentryhttpclient "github.com/getsentry/sentry-go/httpclient"
)

var tracePropagationTargets = []string{
	"api.resend.com",
	"api.postmarkapp.com",
	"api.mailgun.net",
}

// WrapRoundTripper adds Sentry spans to outbound requests. Trace headers are
// only forwarded to targets, which always include the extra hosts.
func WrapRoundTripper(base http.RoundTripper, extraTargets ...string) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	targets := append(append([]string(nil), tracePropagationTargets...), extraTargets...)
	return sentryhttpclient.NewSentryRoundTripper(
		base,
		sentryhttpclient.WithTracePropagationTargets(targets),
	)
}

func NewHTTPClient(timeout time.Duration, extraTargets ...string) *http.Client {
	client := &http.Client{
		Transport: WrapRoundTripper(http.DefaultTransport, extraTargets...),
	}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return client
}
