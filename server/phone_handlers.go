package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Daskott/phonebook/server/models"
	"gorm.io/gorm"
)

type PhoneRow struct {
	ID        uint   `json:"id"`
	Number    string `json:"number"`
	Name      string `json:"name"`
	EditURL   string `json:"edit_url"`
	DeleteURL string `json:"delete_url"`
}

type PhoneListView struct {
	PersonID uint       `json:"person_id"`
	Name     string     `json:"name"`
	AddURL   string     `json:"add_url"`
	Rows     []PhoneRow `json:"rows"`
}

type PhoneFormView struct {
	Title   string `json:"title"`
	Name    string `json:"name"`
	BackURL string `json:"back_url"`
	Form    Form   `json:"form"`
}

func phonePath(action string, personID, phoneID uint) string {
	return fmt.Sprintf("/%s/%d/%d", action, personID, phoneID)
}

func (s *Server) listPhone(rw http.ResponseWriter, r *http.Request) {
	person, err := s.requestPerson(r)
	if isMissing(err) {
		redirect(rw, r, "/")
		return
	}
	if err != nil {
		s.serverError(rw, r, err)
		return
	}

	phoneNumbers, err := s.txStore(r).PhoneNumbersFor(person.ID)
	if err != nil {
		s.serverError(rw, r, err)
		return
	}

	view := PhoneListView{
		PersonID: person.ID,
		Name:     person.FullName(),
		AddURL:   personPath("add_phone", person.ID),
		Rows:     make([]PhoneRow, 0, len(phoneNumbers)),
	}
	for _, phone := range phoneNumbers {
		view.Rows = append(view.Rows, PhoneRow{
			ID:        phone.ID,
			Number:    phone.Number,
			Name:      phone.Name,
			EditURL:   phonePath("edit_phone", person.ID, phone.ID),
			DeleteURL: s.signedURL(r, phonePath("delete_phone", person.ID, phone.ID)),
		})
	}

	s.render(rw, r, "phone_list", view, http.StatusOK)
}

func (s *Server) addPhone(rw http.ResponseWriter, r *http.Request) {
	person, err := s.requestPerson(r)
	if isMissing(err) {
		redirect(rw, r, "/")
		return
	}
	if err != nil {
		s.serverError(rw, r, err)
		return
	}

	listURL := personPath("list_phone", person.ID)
	form := newForm(r.URL.Path, s.formKey(r, r.URL.Path), nil)

	if r.Method == http.MethodPost {
		phone := models.PhoneNumber{PersonID: person.ID}
		if err := s.bindPhone(r, &form, &phone); err != nil {
			s.serverError(rw, r, err)
			return
		}

		if form.Accepted() {
			err := s.txStore(r).AddPhoneNumber(&phone)
			if errors.Is(err, models.ErrPersonNotFound) {
				redirect(rw, r, "/")
				return
			}
			if err != nil {
				logg.Info(err)
				form.FormError = "Unable to save phone number"
			} else {
				s.metrics.RecordMutation("phone", "create")
				redirect(rw, r, listURL)
				return
			}
		}
	}

	s.render(rw, r, "phone_form", PhoneFormView{
		Title:   "Add phone",
		Name:    person.FullName(),
		BackURL: listURL,
		Form:    form,
	}, form.Status())
}

func (s *Server) editPhone(rw http.ResponseWriter, r *http.Request) {
	person, err := s.requestPerson(r)
	if isMissing(err) {
		redirect(rw, r, "/")
		return
	}
	if err != nil {
		s.serverError(rw, r, err)
		return
	}

	listURL := personPath("list_phone", person.ID)

	phone, err := s.personPhone(r, person)
	if models.IsNotFound(err) {
		redirect(rw, r, listURL)
		return
	}
	if err != nil {
		s.serverError(rw, r, err)
		return
	}

	form := newForm(r.URL.Path, s.formKey(r, r.URL.Path), map[string]string{
		"number": phone.Number,
		"name":   phone.Name,
	})

	if r.Method == http.MethodPost {
		candidate := models.PhoneNumber{PersonID: person.ID}
		if err := s.bindPhone(r, &form, &candidate); err != nil {
			s.serverError(rw, r, err)
			return
		}

		if form.Accepted() {
			if err := s.txStore(r).UpdatePhoneNumber(phone, candidate.Number, candidate.Name); err != nil {
				logg.Info(err)
				form.FormError = "Unable to save phone number"
			} else {
				s.metrics.RecordMutation("phone", "update")
				redirect(rw, r, listURL)
				return
			}
		}
	}

	s.render(rw, r, "phone_form", PhoneFormView{
		Title:   "Edit phone",
		Name:    person.FullName(),
		BackURL: listURL,
		Form:    form,
	}, form.Status())
}

func (s *Server) deletePhone(rw http.ResponseWriter, r *http.Request) {
	person, err := s.requestPerson(r)
	if errors.Is(err, errNotOwned) {
		// Nothing is deleted, the person's list decides what the user may see.
		personID, _ := pathID(r, "person_id")
		redirect(rw, r, personPath("list_phone", personID))
		return
	}
	if isMissing(err) {
		redirect(rw, r, "/")
		return
	}
	if err != nil {
		s.serverError(rw, r, err)
		return
	}

	if phoneID, ok := pathID(r, "phone_id"); ok {
		removed, err := s.txStore(r).DeletePhoneNumber(person.ID, phoneID)
		if err != nil {
			s.serverError(rw, r, err)
			return
		}
		if removed {
			s.metrics.RecordMutation("phone", "delete")
		}
	}

	redirect(rw, r, personPath("list_phone", person.ID))
}

// personPhone loads the {phone_id} of the request, which must belong to
// person.
func (s *Server) personPhone(r *http.Request, person *models.Person) (*models.PhoneNumber, error) {
	phoneID, ok := pathID(r, "phone_id")
	if !ok {
		return nil, fmt.Errorf("phone_id: %w", gorm.ErrRecordNotFound)
	}

	phone, err := s.txStore(r).FindPhoneNumber(phoneID)
	if err != nil {
		return nil, err
	}

	if phone.PersonID != person.ID {
		return nil, fmt.Errorf("phone %v of person %v: %w", phone.ID, person.ID, gorm.ErrRecordNotFound)
	}

	return phone, nil
}

func (s *Server) bindPhone(r *http.Request, form *Form, phone *models.PhoneNumber) error {
	if err := bindForm(r, form, "number", "name"); err != nil {
		return err
	}

	if err := s.verifyFormKey(r); err != nil {
		form.FormError = expiredFormMessage
	}

	phone.Number = form.Values["number"]
	phone.Name = form.Values["name"]

	return s.validateInto(form, phone)
}
