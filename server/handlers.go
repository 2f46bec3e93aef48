package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Daskott/phonebook/server/models"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type ContactRow struct {
	ID           uint   `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PhoneNumbers string `json:"phone_numbers"`
	PhonesURL    string `json:"phones_url"`
	EditURL      string `json:"edit_url"`
	DeleteURL    string `json:"delete_url"`
}

type ContactListView struct {
	AddURL string       `json:"add_url"`
	Rows   []ContactRow `json:"rows"`
}

type PersonFormView struct {
	Title string `json:"title"`
	Form  Form   `json:"form"`
}

type PersonDeletedView struct {
	Deleted *models.Person `json:"deleted"`
}

func personPath(action string, personID uint) string {
	return fmt.Sprintf("/%s/%d", action, personID)
}

// pathID parses the numeric route variable name.
func pathID(r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func (s *Server) index(rw http.ResponseWriter, r *http.Request) {
	people, err := s.txStore(r).PeopleFor(identityFrom(r.Context()).Email)
	if err != nil {
		s.serverError(rw, r, err)
		return
	}

	view := ContactListView{AddURL: "/add_contact", Rows: make([]ContactRow, 0, len(people))}
	for _, person := range people {
		view.Rows = append(view.Rows, ContactRow{
			ID:           person.ID,
			FirstName:    person.FirstName,
			LastName:     person.LastName,
			PhoneNumbers: models.FormatPhoneNumbers(person.PhoneNumbers),
			PhonesURL:    personPath("list_phone", person.ID),
			EditURL:      s.signedURL(r, personPath("edit_person", person.ID)),
			DeleteURL:    s.signedURL(r, personPath("delete_person", person.ID)),
		})
	}

	s.render(rw, r, "index", view, http.StatusOK)
}

func (s *Server) addContact(rw http.ResponseWriter, r *http.Request) {
	form := newForm(r.URL.Path, s.formKey(r, r.URL.Path), nil)

	if r.Method == http.MethodPost {
		person := models.Person{UserEmail: identityFrom(r.Context()).Email}
		if err := s.bindPerson(r, &form, &person); err != nil {
			s.serverError(rw, r, err)
			return
		}

		if form.Accepted() {
			if err := s.txStore(r).CreatePerson(&person); err != nil {
				logg.Info(err)
				form.FormError = "Unable to save contact"
			} else {
				s.metrics.RecordMutation("person", "create")
				redirect(rw, r, "/")
				return
			}
		}
	}

	s.render(rw, r, "contact_form", PersonFormView{Title: "Add contact", Form: form}, form.Status())
}

func (s *Server) editPerson(rw http.ResponseWriter, r *http.Request) {
	person, err := s.requestPerson(r)
	if isMissing(err) {
		redirect(rw, r, "/")
		return
	}
	if err != nil {
		s.serverError(rw, r, err)
		return
	}

	// The action keeps the signature the form was reached with.
	form := newForm(r.URL.RequestURI(), s.formKey(r, r.URL.Path), map[string]string{
		"first_name": person.FirstName,
		"last_name":  person.LastName,
	})

	if r.Method == http.MethodPost {
		candidate := models.Person{UserEmail: person.UserEmail}
		if err := s.bindPerson(r, &form, &candidate); err != nil {
			s.serverError(rw, r, err)
			return
		}

		if form.Accepted() {
			err := s.txStore(r).UpdatePersonName(person, candidate.FirstName, candidate.LastName)
			if err != nil {
				logg.Info(err)
				form.FormError = "Unable to save contact"
			} else {
				s.metrics.RecordMutation("person", "update")
				redirect(rw, r, "/")
				return
			}
		}
	}

	s.render(rw, r, "contact_form", PersonFormView{Title: "Edit contact", Form: form}, form.Status())
}

func (s *Server) deletePerson(rw http.ResponseWriter, r *http.Request) {
	person, err := s.requestPerson(r)
	if isMissing(err) {
		redirect(rw, r, "/")
		return
	}
	if err != nil {
		s.serverError(rw, r, err)
		return
	}

	store := s.txStore(r)
	if err := store.DeletePerson(person.ID); err != nil {
		s.serverError(rw, r, err)
		return
	}

	if _, err := store.FindPerson(person.ID); !models.IsNotFound(err) {
		s.serverError(rw, r, fmt.Errorf("person %v still present after delete: %v", person.ID, err))
		return
	}

	s.metrics.RecordMutation("person", "delete")
	s.render(rw, r, "person_deleted", PersonDeletedView{Deleted: person}, http.StatusOK)
}

// requestPerson is the owned person named by the {person_id} route variable.
func (s *Server) requestPerson(r *http.Request) (*models.Person, error) {
	personID, ok := pathID(r, "person_id")
	if !ok {
		return nil, fmt.Errorf("person_id: %w", gorm.ErrRecordNotFound)
	}

	return s.ownedPerson(r, personID)
}

// bindPerson fills person from the posted form and records any problems
// on form.
func (s *Server) bindPerson(r *http.Request, form *Form, person *models.Person) error {
	if err := bindForm(r, form, "first_name", "last_name"); err != nil {
		return err
	}

	if err := s.verifyFormKey(r); err != nil {
		form.FormError = expiredFormMessage
	}

	person.FirstName = form.Values["first_name"]
	person.LastName = form.Values["last_name"]

	return s.validateInto(form, person)
}

// validateInto validates v and adds its field errors to form.
func (s *Server) validateInto(form *Form, v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	errs, err := fieldErrors(err)
	if err != nil {
		return err
	}

	for field, message := range errs {
		form.AddError(field, message)
	}

	return nil
}
