package models

import (
	"errors"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

var ErrPersonNotFound = errors.New("phone number must belong to an existing person")

type PhoneNumber struct {
	BaseModel
	Number   string `json:"number" validate:"required,max=64" gorm:"not null"`
	Name     string `json:"name" validate:"max=64"`
	PersonID uint   `json:"person_id" validate:"required" gorm:"not null;index"`
}

// Display renders the number with its label, e.g. "555-1234(mobile)".
func (phone PhoneNumber) Display() string {
	return phone.Number + "(" + phone.Name + ")"
}

// FormatPhoneNumbers joins the display form of each number with ", ".
func FormatPhoneNumbers(phoneNumbers []PhoneNumber) string {
	formatted := make([]string, 0, len(phoneNumbers))
	for _, phone := range phoneNumbers {
		formatted = append(formatted, phone.Display())
	}

	return strings.Join(formatted, ", ")
}

// AddPhoneNumber inserts phone, refusing numbers whose person does not exist.
func (s *Store) AddPhoneNumber(phone *PhoneNumber) error {
	if phone.PersonID == 0 {
		return ErrPersonNotFound
	}

	var count int64
	if err := s.db.Model(&Person{}).Where("id = ?", phone.PersonID).Count(&count).Error; err != nil {
		return pkgerrors.Wrapf(err, "look up person %v", phone.PersonID)
	}
	if count == 0 {
		return ErrPersonNotFound
	}

	return pkgerrors.Wrap(s.db.Create(phone).Error, "create phone number")
}

func (s *Store) FindPhoneNumber(id interface{}) (*PhoneNumber, error) {
	phone := PhoneNumber{}
	err := s.db.First(&phone, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &phone, nil
}

func (s *Store) PhoneNumbersFor(personID uint) ([]PhoneNumber, error) {
	phoneNumbers := []PhoneNumber{}
	err := s.db.Where("person_id = ?", personID).Order("id").Find(&phoneNumbers).Error
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "list phone numbers of person %v", personID)
	}

	return phoneNumbers, nil
}

func (s *Store) UpdatePhoneNumber(phone *PhoneNumber, number, name string) error {
	err := s.db.Model(&PhoneNumber{}).
		Where("id = ?", phone.ID).
		Select("number", "name").
		Updates(map[string]interface{}{"number": number, "name": name}).Error
	if err != nil {
		return pkgerrors.Wrapf(err, "update phone number %v", phone.ID)
	}

	phone.Number = number
	phone.Name = name
	return nil
}

// DeletePhoneNumber deletes phoneID only when it belongs to personID, and
// reports whether a row was removed.
func (s *Store) DeletePhoneNumber(personID, phoneID uint) (bool, error) {
	res := s.db.Where("person_id = ?", personID).Delete(&PhoneNumber{}, phoneID)
	if res.Error != nil {
		return false, pkgerrors.Wrapf(res.Error, "delete phone number %v", phoneID)
	}

	return res.RowsAffected > 0, nil
}

// DeleteOrphanedPhoneNumbers removes phone numbers whose person is gone and
// returns how many were removed.
func (s *Store) DeleteOrphanedPhoneNumbers() (int64, error) {
	res := s.db.
		Where("person_id NOT IN (?)", s.db.Session(&gorm.Session{NewDB: true}).Model(&Person{}).Select("id")).
		Delete(&PhoneNumber{})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(res.Error, "delete orphaned phone numbers")
	}

	if res.RowsAffected > 0 {
		logg.Infof("Removed %v orphaned phone number(s)", res.RowsAffected)
	}

	return res.RowsAffected, nil
}
