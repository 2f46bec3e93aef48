package server

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Daskott/phonebook/server/auth"
	"github.com/Daskott/phonebook/server/auth/key"
	"github.com/Daskott/phonebook/server/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func init() {
	auth.BcryptCost = bcrypt.MinCost
}

func testKeyPair(t *testing.T) *key.KeyPair {
	testKeyOnce.Do(func() {
		var err error
		testKey, err = rsa.GenerateKey(rand.Reader, 1024)
		if err != nil {
			panic(err)
		}
	})

	return key.NewKeyPair(testKey)
}

func newTestServer(t *testing.T) *Server {
	store, err := models.InitializeTestDb(t.TempDir())
	require.Nil(t, err, "Should open test db")
	t.Cleanup(func() { store.Close() })

	srv, err := New(Options{
		Store:             store,
		KeyPair:           testKeyPair(t),
		URLSigningSecret:  "test-url-signing-secret",
		SignedURLLifespan: time.Hour,
		SessionMaxAge:     time.Hour,
	})
	require.Nil(t, err, "Should create server")

	return srv
}

type testSession struct {
	Email string
	ID    string
	token string
}

func newTestSession(t *testing.T, srv *Server, email string) *testSession {
	claims := auth.NewSessionClaims(email, time.Hour)
	token, err := auth.EncodeJWT(claims, srv.keyPair)
	require.Nil(t, err)

	return &testSession{Email: email, ID: claims.Id, token: token}
}

const testPreauthID = "test-preauth-id"

type testRequest struct {
	method  string
	target  string
	form    url.Values
	json    bool
	session *testSession
	// preauth sends the pre-login cookie holding testPreauthID.
	preauth bool
}

func (srv *Server) serveTest(req testRequest) *httptest.ResponseRecorder {
	var request *http.Request
	if req.form != nil {
		request = httptest.NewRequest(req.method, req.target, strings.NewReader(req.form.Encode()))
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		request = httptest.NewRequest(req.method, req.target, nil)
	}

	if req.json {
		request.Header.Set("Accept", "application/json")
	}

	if req.session != nil {
		request.AddCookie(&http.Cookie{Name: sessionCookieName, Value: req.session.token})
	}
	if req.preauth {
		request.AddCookie(&http.Cookie{Name: preauthCookieName, Value: testPreauthID})
	}

	recorder := httptest.NewRecorder()
	srv.ServeHTTP(recorder, request)

	return recorder
}

// signed returns path signed for session.
func (srv *Server) signed(t *testing.T, session *testSession, path string) string {
	signedURL, err := srv.signer.SignURL(path, session.ID)
	require.Nil(t, err)
	return signedURL
}

// formFor returns values with a valid form key for path added.
func (srv *Server) formFor(t *testing.T, session *testSession, path string, values url.Values) url.Values {
	formKey, err := srv.signer.Sign(formKeyPath(path), session.ID)
	require.Nil(t, err)

	if values == nil {
		values = url.Values{}
	}
	values.Set(formKeyParam, formKey)
	return values
}

// preauthFormFor returns values with a form key for path bound to the
// pre-login id preauthID.
func (srv *Server) preauthFormFor(t *testing.T, preauthID, path string, values url.Values) url.Values {
	formKey, err := srv.signer.Sign(formKeyPath(path), preauthID)
	require.Nil(t, err)

	if values == nil {
		values = url.Values{}
	}
	values.Set(formKeyParam, formKey)
	return values
}

type testPayload struct {
	Errors  []string        `json:"errors"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func decodePayload(t *testing.T, recorder *httptest.ResponseRecorder, data interface{}) testPayload {
	payload := testPayload{}
	require.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &payload), recorder.Body.String())

	if data != nil {
		require.Nil(t, json.Unmarshal(payload.Data, data))
	}

	return payload
}

func createTestPerson(t *testing.T, srv *Server, email, firstName, lastName string, phones ...models.PhoneNumber) *models.Person {
	person := &models.Person{UserEmail: email, FirstName: firstName, LastName: lastName}
	require.Nil(t, srv.store.CreatePerson(person))

	for i := range phones {
		phones[i].PersonID = person.ID
		require.Nil(t, srv.store.AddPhoneNumber(&phones[i]))
	}

	return person
}
