package models

import (
	"strings"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// Person is a contact owned by the user whose email is UserEmail. Foreign
// keys are not enforced by the sqlite connection, DeletePerson removes the
// phone numbers itself.
type Person struct {
	BaseModel
	UserEmail    string        `json:"user_email" gorm:"not null;index"`
	FirstName    string        `json:"first_name" validate:"required_without=LastName,max=255"`
	LastName     string        `json:"last_name" validate:"required_without=FirstName,max=255"`
	PhoneNumbers []PhoneNumber `json:"phone_numbers,omitempty"`
}

// IsOwnedBy is the single ownership rule: a person, and through it its
// phone numbers, may only be seen or changed by the user it was created by.
func (person *Person) IsOwnedBy(email string) bool {
	return person != nil && email != "" && person.UserEmail == normalizeEmail(email)
}

func (person *Person) FullName() string {
	return strings.TrimSpace(person.FirstName + " " + person.LastName)
}

func (s *Store) CreatePerson(person *Person) error {
	person.UserEmail = normalizeEmail(person.UserEmail)
	return pkgerrors.Wrap(s.db.Omit("PhoneNumbers").Create(person).Error, "create person")
}

func (s *Store) FindPerson(id interface{}) (*Person, error) {
	person := Person{}
	err := s.db.First(&person, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &person, nil
}

// PeopleFor lists the people owned by email in insertion order, each with
// its phone numbers.
func (s *Store) PeopleFor(email string) ([]Person, error) {
	people := []Person{}
	err := s.db.
		Preload("PhoneNumbers", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("user_email = ?", normalizeEmail(email)).
		Order("id").
		Find(&people).Error
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "list people for %q", email)
	}

	return people, nil
}

// UpdatePersonName changes the name fields only; the owner never changes.
func (s *Store) UpdatePersonName(person *Person, firstName, lastName string) error {
	err := s.db.Model(&Person{}).
		Where("id = ?", person.ID).
		Select("first_name", "last_name").
		Updates(map[string]interface{}{"first_name": firstName, "last_name": lastName}).Error
	if err != nil {
		return pkgerrors.Wrapf(err, "update person %v", person.ID)
	}

	person.FirstName = firstName
	person.LastName = lastName
	return nil
}

// DeletePerson removes the person and all of its phone numbers.
func (s *Store) DeletePerson(id uint) error {
	return s.Transaction(func(tx *Store) error {
		if err := tx.db.Where("person_id = ?", id).Delete(&PhoneNumber{}).Error; err != nil {
			return pkgerrors.Wrapf(err, "delete phone numbers of person %v", id)
		}

		return pkgerrors.Wrapf(tx.db.Delete(&Person{}, id).Error, "delete person %v", id)
	})
}
