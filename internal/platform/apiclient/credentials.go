package apiclient

import (
	"context"
	"net/http"
)

type credentialsKey struct{}

type requestIDKey struct{}

// WithCredentials returns a context whose outbound requests carry cookies.
// The dashboard forwards the browser's session cookie this way, which is the
// server-side equivalent of fetch's credentials: "include".
func WithCredentials(ctx context.Context, cookies ...*http.Cookie) context.Context {
	if len(cookies) == 0 {
		return ctx
	}
	return context.WithValue(ctx, credentialsKey{}, cookies)
}

// WithRequestID propagates the inbound request id to the backend.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// CredentialsFrom returns the cookies attached by WithCredentials.
func CredentialsFrom(ctx context.Context) []*http.Cookie {
	cookies, _ := ctx.Value(credentialsKey{}).([]*http.Cookie)
	return cookies
}

func attachCredentials(ctx context.Context, req *http.Request) {
	for _, ck := range CredentialsFrom(ctx) {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	if rid := RequestIDFrom(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}
}

// RequestIDFrom returns the id attached by WithRequestID.
func RequestIDFrom(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}
