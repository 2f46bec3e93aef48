package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Daskott/phonebook/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionMiddleware(t *testing.T) {
	cases := []struct {
		description      string
		handler          func(srv *Server) http.HandlerFunc
		expectedCode     int
		expectedLocation string
		expectedSaved    bool
	}{
		{
			description: "Should commit when the handler succeeds",
			handler: func(srv *Server) http.HandlerFunc {
				return func(rw http.ResponseWriter, r *http.Request) {
					require.Nil(t, srv.txStore(r).CreatePerson(&models.Person{UserEmail: aliceEmail, FirstName: "Alice"}))
					redirect(rw, r, "/")
				}
			},
			expectedCode:     http.StatusSeeOther,
			expectedLocation: "/",
			expectedSaved:    true,
		},
		{
			description: "Should roll back on a server error",
			handler: func(srv *Server) http.HandlerFunc {
				return func(rw http.ResponseWriter, r *http.Request) {
					require.Nil(t, srv.txStore(r).CreatePerson(&models.Person{UserEmail: aliceEmail, FirstName: "Alice"}))
					rw.WriteHeader(http.StatusInternalServerError)
				}
			},
			expectedCode:  http.StatusInternalServerError,
			expectedSaved: false,
		},
		{
			description: "Should roll back on a panic",
			handler: func(srv *Server) http.HandlerFunc {
				return func(rw http.ResponseWriter, r *http.Request) {
					require.Nil(t, srv.txStore(r).CreatePerson(&models.Person{UserEmail: aliceEmail, FirstName: "Alice"}))
					panic("boom")
				}
			},
			expectedCode:  http.StatusInternalServerError,
			expectedSaved: false,
		},
		{
			description: "Should answer 500 instead of the handler's response when the commit fails",
			handler: func(srv *Server) http.HandlerFunc {
				return func(rw http.ResponseWriter, r *http.Request) {
					store := srv.txStore(r)
					require.Nil(t, store.CreatePerson(&models.Person{UserEmail: aliceEmail, FirstName: "Alice"}))
					// Finishing the transaction here leaves nothing for the middleware to commit.
					require.Nil(t, store.Commit())
					redirect(rw, r, "/")
				}
			},
			expectedCode:  http.StatusInternalServerError,
			expectedSaved: true,
		},
	}

	for _, c := range cases {
		srv := newTestServer(t)
		handler := srv.recoveryMiddleware(srv.transactionMiddleware(c.handler(srv)))

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, c.expectedCode, recorder.Code, c.description)
		assert.Equal(t, c.expectedLocation, recorder.Header().Get("Location"), c.description)

		people, err := srv.store.PeopleFor(aliceEmail)
		require.Nil(t, err)
		assert.Equal(t, c.expectedSaved, len(people) == 1, c.description)
	}
}

func TestSignedURLMiddlewareStopsBeforeHandler(t *testing.T) {
	srv := newTestServer(t)
	alice := newTestSession(t, srv, aliceEmail)

	called := false
	handler := srv.sessionMiddleware(srv.signedURLMiddleware(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		called = true
	})))

	request := httptest.NewRequest("GET", "/delete_person/1?_signature=forged", nil)
	request.AddCookie(&http.Cookie{Name: sessionCookieName, Value: alice.token})
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.False(t, called, "Should not reach the handler")

	request = httptest.NewRequest("GET", srv.signed(t, alice, "/delete_person/1"), nil)
	request.AddCookie(&http.Cookie{Name: sessionCookieName, Value: alice.token})
	handler.ServeHTTP(httptest.NewRecorder(), request)
	assert.True(t, called, "Should reach the handler with a valid signature")
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	recorder := httptest.NewRecorder()
	securityHeadersMiddleware(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(recorder, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, "nosniff", recorder.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", recorder.Header().Get("X-Frame-Options"))
}

func TestResponseWriterWithStatus(t *testing.T) {
	recorder := httptest.NewRecorder()
	rw := newResponseWriterWithStatus(recorder)

	_, err := rw.Write([]byte("ok"))
	require.Nil(t, err)
	rw.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusOK, rw.Status, "Should keep the status that was sent")
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestBufferedResponseWriter(t *testing.T) {
	buffer := newBufferedResponseWriter()
	buffer.Header().Set("Location", "/")
	buffer.WriteHeader(http.StatusSeeOther)
	buffer.WriteHeader(http.StatusOK)
	_, err := buffer.Write([]byte("see other"))
	require.Nil(t, err)

	recorder := httptest.NewRecorder()
	recorder.Header().Set("X-Frame-Options", "DENY")
	assert.Equal(t, http.StatusOK, recorder.Code, "Should write nothing before the flush")
	assert.Equal(t, "", recorder.Body.String())

	buffer.flushTo(recorder)
	assert.Equal(t, http.StatusSeeOther, recorder.Code, "Should keep the first status")
	assert.Equal(t, "/", recorder.Header().Get("Location"))
	assert.Equal(t, "DENY", recorder.Header().Get("X-Frame-Options"), "Should keep headers set outside the buffer")
	assert.Equal(t, "see other", recorder.Body.String())
}
