package httpx

import "context"

type ctxKey string

// CtxKeySubject holds the authenticated caller's stable key (the document).
const CtxKeySubject ctxKey = "subject"

// WithSubject records who the request is for, once the gate has decided.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, CtxKeySubject, subject)
}

// SubjectFromContext returns the subject or "" for anonymous requests.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(CtxKeySubject).(string)
	return s
}
