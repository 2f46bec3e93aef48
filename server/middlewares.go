package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Daskott/phonebook/colors"
	"github.com/Daskott/phonebook/server/auth"
	"github.com/Daskott/phonebook/server/models"
	"github.com/Daskott/phonebook/server/views"
)

const sessionCookieName = "phonebook_session"

// Identity is the logged in user of a request.
type Identity struct {
	Email            string
	SessionID        string
	SessionExpiresAt time.Time
}

type identityContextKey struct{}

func contextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

func identityFrom(ctx context.Context) Identity {
	identity, _ := ctx.Value(identityContextKey{}).(Identity)
	return identity
}

type ResponseWriterWithStatus struct {
	http.ResponseWriter
	Status      int
	wroteHeader bool
}

func (r *ResponseWriterWithStatus) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.Status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *ResponseWriterWithStatus) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

func newResponseWriterWithStatus(rw http.ResponseWriter) *ResponseWriterWithStatus {
	return &ResponseWriterWithStatus{ResponseWriter: rw, Status: http.StatusOK}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := newResponseWriterWithStatus(w)

		defer func() {
			duration := time.Since(start)
			s.metrics.RecordRequest(r.Method, responseWriter.Status, duration)

			logg.Info(
				r.Method, " ",
				r.URL.Path, " ",
				colors.Status(responseWriter.Status), " ",
				colors.Yellow(fmt.Sprintf("[%v]", duration)))
		}()

		next.ServeHTTP(responseWriter, r)
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.serverError(w, r, fmt.Errorf("panic: %v", rec))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")

		next.ServeHTTP(w, r)
	})
}

// sessionMiddleware only lets requests with a valid session cookie through,
// with the session's Identity in the request context.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := s.sessionIdentity(r)
		if !ok {
			requireLogin(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(contextWithIdentity(r.Context(), identity)))
	})
}

func (s *Server) sessionIdentity(r *http.Request) (Identity, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, false
	}

	claims, err := auth.DecodeJWT(cookie.Value, s.keyPair)
	if err != nil {
		return Identity{}, false
	}

	return Identity{
		Email:            claims.Email,
		SessionID:        claims.Id,
		SessionExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, true
}

// requireLogin answers a request that has no usable session.
func requireLogin(w http.ResponseWriter, r *http.Request) {
	if views.WantsJSON(r) {
		writeResponse(w, views.ResponsePayload{Errors: []string{"login required"}}, http.StatusUnauthorized)
		return
	}

	redirect(w, r, "/auth/login?"+url.Values{"next": {r.URL.RequestURI()}}.Encode())
}

// signedURLMiddleware refuses requests whose URL signature was not issued
// for this path and session. It runs before any database access.
func (s *Server) signedURLMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature := r.URL.Query().Get(auth.SignatureParam)

		err := s.signer.Verify(signature, r.URL.Path, identityFrom(r.Context()).SessionID)
		if err != nil {
			s.renderError(w, r, http.StatusForbidden, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// revocationMiddleware refuses sessions that were logged out. It runs after
// the signature check, so unsigned requests never reach the database.
func (s *Server) revocationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		revoked, err := s.store.WithContext(r.Context()).IsSessionRevoked(identityFrom(r.Context()).SessionID)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		if revoked {
			requireLogin(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// bufferedResponseWriter holds a response back until the request
// transaction is finished.
type bufferedResponseWriter struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newBufferedResponseWriter() *bufferedResponseWriter {
	return &bufferedResponseWriter{header: http.Header{}, status: http.StatusOK}
}

func (b *bufferedResponseWriter) Header() http.Header {
	return b.header
}

func (b *bufferedResponseWriter) WriteHeader(status int) {
	if b.wroteHeader {
		return
	}
	b.status = status
	b.wroteHeader = true
}

func (b *bufferedResponseWriter) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}

func (b *bufferedResponseWriter) flushTo(w http.ResponseWriter) {
	for name, values := range b.header {
		w.Header()[name] = values
	}
	w.WriteHeader(b.status)

	if _, err := w.Write(b.body.Bytes()); err != nil {
		logg.Errorf("flush response: %v", err)
	}
}

// transactionMiddleware runs the request in one transaction, committed
// when the handler responds with a status below 500 and rolled back
// otherwise. The response is only sent once the outcome is known: a
// failed commit discards it and answers 500 instead.
func (s *Server) transactionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tx, err := s.store.Begin(r.Context())
		if err != nil {
			s.serverError(w, r, err)
			return
		}

		buffer := newBufferedResponseWriter()

		defer func() {
			if rec := recover(); rec != nil {
				if err := tx.Rollback(); err != nil {
					logg.Errorf("rollback after panic: %v", err)
				}
				panic(rec)
			}
		}()

		next.ServeHTTP(buffer, r.WithContext(models.ContextWithStore(r.Context(), tx)))

		if buffer.status >= http.StatusInternalServerError {
			if err := tx.Rollback(); err != nil {
				logg.Errorf("rollback: %v", err)
			}
			buffer.flushTo(w)
			return
		}

		if err := tx.Commit(); err != nil {
			s.serverError(w, r, fmt.Errorf("commit: %v", err))
			return
		}

		buffer.flushTo(w)
	})
}
