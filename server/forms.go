package server

import (
	"net/http"
	"strings"
)

const (
	formKeyParam       = "_formkey"
	expiredFormMessage = "This form has expired, please submit it again"
)

// Form is the state of one HTML form. A form is unsubmitted until it is
// posted, then either accepted or rejected with field or form errors.
type Form struct {
	Action    string            `json:"action"`
	FormKey   string            `json:"formkey,omitempty"`
	Values    map[string]string `json:"values"`
	Errors    map[string]string `json:"errors,omitempty"`
	FormError string            `json:"form_error,omitempty"`
	Submitted bool              `json:"submitted"`
}

func newForm(action, formKey string, values map[string]string) Form {
	if values == nil {
		values = map[string]string{}
	}

	return Form{Action: action, FormKey: formKey, Values: values}
}

// bindForm reads the trimmed values of fields from a posted form.
func bindForm(r *http.Request, form *Form, fields ...string) error {
	if err := r.ParseForm(); err != nil {
		return err
	}

	form.Submitted = true
	for _, field := range fields {
		form.Values[field] = strings.TrimSpace(r.PostForm.Get(field))
	}

	return nil
}

func (form *Form) AddError(field, message string) {
	if form.Errors == nil {
		form.Errors = map[string]string{}
	}
	form.Errors[field] = message
}

// Accepted reports whether the form was submitted without errors.
func (form *Form) Accepted() bool {
	return form.Submitted && len(form.Errors) == 0 && form.FormError == ""
}

// Status is the HTTP status a form page is rendered with.
func (form *Form) Status() int {
	if form.Submitted && !form.Accepted() {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}
