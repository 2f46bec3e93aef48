package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/Daskott/phonebook/server/models"
	"github.com/Daskott/phonebook/server/views"
	"github.com/Daskott/phonebook/utils"
	"github.com/go-co-op/gocron"
	"github.com/go-playground/validator"
)

var errNotOwned = errors.New("person is not owned by the current user")

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad views.ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(payLoad.Errors)
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(payLoad.Errors)
	}

	if err := views.WriteJSON(rw, payLoad, statusCode); err != nil {
		logg.Errorf("writeResponse: %v", err)
	}
}

// render writes page for the request, or a 500 when the page cannot be
// rendered.
func (s *Server) render(rw http.ResponseWriter, r *http.Request, page string, data interface{}, status int) {
	if err := s.renderer.Render(rw, r, page, data, status); err != nil {
		logg.Error(err)
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// renderError reports an error to the client, as JSON or as the error page.
func (s *Server) renderError(rw http.ResponseWriter, r *http.Request, status int, err error) {
	if views.WantsJSON(r) {
		writeResponse(rw, errorPayload(err), status)
		return
	}

	if status >= http.StatusInternalServerError {
		logg.Error(err)
	} else {
		logg.Info(err)
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "Sorry an application error has occurred. Please try again later"
	}

	s.render(rw, r, "error", ErrorView{Status: status, Message: message}, status)
}

func (s *Server) serverError(rw http.ResponseWriter, r *http.Request, err error) {
	s.renderError(rw, r, http.StatusInternalServerError, err)
}

func redirect(rw http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(rw, r, path, http.StatusSeeOther)
}

// txStore returns the request's transaction, see transactionMiddleware.
func (s *Server) txStore(r *http.Request) *models.Store {
	if store, ok := models.StoreFromContext(r.Context()); ok {
		return store
	}

	return s.store.WithContext(r.Context())
}

// ownedPerson loads personID and checks that it belongs to the logged in
// user.
func (s *Server) ownedPerson(r *http.Request, personID uint) (*models.Person, error) {
	person, err := s.txStore(r).FindPerson(personID)
	if err != nil {
		return nil, err
	}

	if !person.IsOwnedBy(identityFrom(r.Context()).Email) {
		return nil, errNotOwned
	}

	return person, nil
}

// isMissing reports whether err means the record is absent as far as the
// current user is concerned.
func isMissing(err error) bool {
	return models.IsNotFound(err) || errors.Is(err, errNotOwned)
}

// signedURL signs path for the current session. Links that cannot be signed
// fall back to the bare path, which the signature check will then refuse.
func (s *Server) signedURL(r *http.Request, path string) string {
	signed, err := s.signer.SignURL(path, identityFrom(r.Context()).SessionID)
	if err != nil {
		logg.Errorf("signedURL: %v", err)
		return path
	}

	return signed
}

func (s *Server) formKey(r *http.Request, action string) string {
	return s.formKeyFor(action, identityFrom(r.Context()).SessionID)
}

// formKeyFor signs a form key for action bound to id, a session or
// pre-login id.
func (s *Server) formKeyFor(action, id string) string {
	key, err := s.signer.Sign(formKeyPath(action), id)
	if err != nil {
		logg.Errorf("formKey: %v", err)
		return ""
	}

	return key
}

func (s *Server) verifyFormKey(r *http.Request) error {
	return s.verifyFormKeyFor(r, identityFrom(r.Context()).SessionID)
}

func (s *Server) verifyFormKeyFor(r *http.Request, id string) error {
	return s.signer.Verify(r.PostFormValue(formKeyParam), formKeyPath(r.URL.Path), id)
}

func formKeyPath(path string) string {
	return "form:" + path
}

// NewValidator returns a validator reporting fields by their form input
// name: the `form` tag, else the json name.
func NewValidator() (*validator.Validate, error) {
	validate := validator.New()
	validate.RegisterTagNameFunc(fieldName)

	if err := RegisterValidators(validate); err != nil {
		return nil, err
	}

	return validate, nil
}

func fieldName(field reflect.StructField) string {
	if name := field.Tag.Get("form"); name != "" {
		return name
	}

	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return strings.ToLower(field.Name)
	}
	return name
}

func RegisterValidators(validate *validator.Validate) error {
	return validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		// if whitespace in password return false
		if strings.ContainsAny(fl.Field().String(), " \t\n\r") {
			return false
		}
		return len(fl.Field().String()) > 0
	})
}

// fieldErrors maps validation failures to a message per field.
func fieldErrors(err error) (map[string]string, error) {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, err
	}

	errs := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		errs[fieldErr.Field()] = fieldErrorMessage(fieldErr)
	}

	return errs, nil
}

func fieldErrorMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", fieldErr.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fieldErr.Field(), fieldErr.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fieldErr.Field())
	case "password":
		return fmt.Sprintf("%s must not be empty or contain whitespace", fieldErr.Field())
	default:
		return fmt.Sprintf("%s is invalid", fieldErr.Field())
	}
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("Phonebook server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(scheduler *gocron.Scheduler, server *http.Server, backup func() error) {
	scheduler.Stop()

	if backup != nil {
		if err := backup(); err != nil {
			logg.Errorf("final backup failed: %v", err)
		}
	}

	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("Phonebook server shutdown failed:%+s", err)
	}

	logg.Infof("Phonebook server stopped properly")
}

// configDirectory retrieves the directory to store phonebook data
// Or logs an error message and then calls os.Exit if it's unable to.
func configDirectory(devMode bool) string {
	configDir, err := DataDirectory(devMode)
	fatalOnError(err)

	return configDir
}

// DataDirectory is where the database lives: 'phonebook' in the home
// directory, or 'dev' in the working directory in dev mode. It is created
// when missing.
func DataDirectory(devMode bool) (string, error) {
	configFolderName := "phonebook"
	rootDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}

	configDir := filepath.Join(rootDir, configFolderName)
	if err := utils.CreateDirIfNotExist(configDir); err != nil {
		return "", err
	}

	return configDir, nil
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}

func errorPayload(err error) views.ResponsePayload {
	return views.ResponsePayload{Errors: []string{err.Error()}}
}
