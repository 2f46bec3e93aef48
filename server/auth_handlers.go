package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Daskott/phonebook/server/auth"
	"github.com/Daskott/phonebook/server/auth/key"
	"github.com/Daskott/phonebook/server/models"
	"github.com/Daskott/phonebook/utils"
	"github.com/google/uuid"
)

const preauthCookieName = "phonebook_preauth"

type AuthFormView struct {
	Title   string `json:"title"`
	Form    Form   `json:"form"`
	AltURL  string `json:"alt_url"`
	AltText string `json:"alt_text"`
}

type ErrorView struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func withNext(path, next string) string {
	if next == "/" {
		return path
	}
	return path + "?" + url.Values{"next": {next}}.Encode()
}

// preauthID identifies a browser that has no session yet, so the login and
// register forms can carry keys bound to it. A new id is issued when the
// request has none.
func (s *Server) preauthID(rw http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(preauthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	id := uuid.NewString()
	http.SetCookie(rw, &http.Cookie{
		Name:     preauthCookieName,
		Value:    id,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func (s *Server) logIn(rw http.ResponseWriter, r *http.Request) {
	store := s.txStore(r)
	next := utils.SafeRedirectPath(r.URL.Query().Get("next"), "/")
	preauthID := s.preauthID(rw, r)
	form := newForm(withNext("/auth/login", next), s.formKeyFor(r.URL.Path, preauthID), nil)

	switch r.Method {
	case http.MethodGet:
		// Nobody can log in before the first account exists.
		exists, err := store.AtLeastOneUserExists()
		if err != nil {
			s.serverError(rw, r, err)
			return
		}
		if !exists {
			redirect(rw, r, withNext("/auth/register", next))
			return
		}

	case http.MethodPost:
		if err := bindForm(r, &form, "email", "password"); err != nil {
			s.renderError(rw, r, http.StatusBadRequest, err)
			return
		}
		password := form.Values["password"]
		delete(form.Values, "password")

		if err := s.verifyFormKeyFor(r, preauthID); err != nil {
			form.FormError = expiredFormMessage
			break
		}

		user, err := store.Authenticate(form.Values["email"], password)
		if errors.Is(err, models.ErrInvalidCredentials) {
			form.FormError = "Invalid email or password"
			break
		}
		if err != nil {
			s.serverError(rw, r, err)
			return
		}

		if err := s.startSession(rw, user.Email); err != nil {
			s.serverError(rw, r, err)
			return
		}
		redirect(rw, r, next)
		return
	}

	s.render(rw, r, "login", AuthFormView{
		Title:   "Log in",
		Form:    form,
		AltURL:  withNext("/auth/register", next),
		AltText: "Create an account",
	}, form.Status())
}

func (s *Server) register(rw http.ResponseWriter, r *http.Request) {
	store := s.txStore(r)
	next := utils.SafeRedirectPath(r.URL.Query().Get("next"), "/")
	preauthID := s.preauthID(rw, r)
	form := newForm(withNext("/auth/register", next), s.formKeyFor(r.URL.Path, preauthID), nil)

	if r.Method == http.MethodPost {
		if err := bindForm(r, &form, "email", "password"); err != nil {
			s.renderError(rw, r, http.StatusBadRequest, err)
			return
		}
		user := models.User{Email: form.Values["email"], Password: form.Values["password"]}
		delete(form.Values, "password")

		if err := s.verifyFormKeyFor(r, preauthID); err != nil {
			form.FormError = expiredFormMessage
		}

		if err := s.validateInto(&form, user); err != nil {
			s.serverError(rw, r, err)
			return
		}

		if form.Accepted() {
			_, err := store.FindUserBy("email", strings.ToLower(user.Email))
			switch {
			case err == nil:
				form.AddError("email", "email is already registered")
			case !models.IsNotFound(err):
				s.serverError(rw, r, err)
				return
			}
		}

		if form.Accepted() {
			if err := store.CreateUser(&user); err != nil {
				s.serverError(rw, r, err)
				return
			}

			if err := s.startSession(rw, user.Email); err != nil {
				s.serverError(rw, r, err)
				return
			}
			redirect(rw, r, next)
			return
		}
	}

	s.render(rw, r, "register", AuthFormView{
		Title:   "Register",
		Form:    form,
		AltURL:  withNext("/auth/login", next),
		AltText: "I already have an account",
	}, form.Status())
}

// logOut ends the session: its token is revoked until it expires and the
// cookie is cleared.
func (s *Server) logOut(rw http.ResponseWriter, r *http.Request) {
	if identity, ok := s.sessionIdentity(r); ok {
		if err := s.txStore(r).RevokeSession(identity.SessionID, identity.SessionExpiresAt); err != nil {
			s.serverError(rw, r, err)
			return
		}
	}

	http.SetCookie(rw, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	redirect(rw, r, "/auth/login")
}

func (s *Server) jwks(rw http.ResponseWriter, r *http.Request) {
	jwk, err := s.keyPair.JWK()
	if err != nil {
		writeResponse(rw, errorPayload(err), http.StatusInternalServerError)
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(key.ExportJWKAsJWKS(jwk)); err != nil {
		logg.Errorf("jwks: %v", err)
	}
}

// startSession sets the session cookie for email.
func (s *Server) startSession(rw http.ResponseWriter, email string) error {
	claims := auth.NewSessionClaims(email, s.sessionMaxAge)

	token, err := auth.EncodeJWT(claims, s.keyPair)
	if err != nil {
		return err
	}

	http.SetCookie(rw, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Unix(claims.ExpiresAt, 0),
		MaxAge:   int(s.sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}
