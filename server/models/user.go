package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Daskott/phonebook/server/auth"
	pkgerrors "github.com/pkg/errors"
)

var (
	ErrInvalidCredentials = errors.New("email/password is invalid")

	allFieldsExceptPassword = []string{"id",
		"email",
		"created_at",
		"updated_at",
	}
)

// User is an account that can log in and own people.
type User struct {
	BaseModel
	Email    string `json:"email" form:"email" validate:"required,email,max=255" gorm:"not null;unique"`
	Password string `json:"-" form:"password" validate:"required,password" gorm:"not null"`
}

// CreateUser stores user with its password replaced by a bcrypt hash.
// Emails are compared case-insensitively.
func (s *Store) CreateUser(user *User) error {
	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = passwordHash
	user.Email = normalizeEmail(user.Email)

	return pkgerrors.Wrapf(s.db.Create(user).Error, "create user %q", user.Email)
}

func (s *Store) FindUserBy(field string, value interface{}) (*User, error) {
	user := User{}
	err := s.db.Select(allFieldsExceptPassword).First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *Store) FindUserPassword(email string) (string, error) {
	user := &User{}
	err := s.db.Select("Password").First(user, "email = ?", normalizeEmail(email)).Error

	if err != nil {
		return "", err
	}
	return user.Password, nil
}

// Authenticate returns the user with email when password matches.
func (s *Store) Authenticate(email, password string) (*User, error) {
	passwordHash, err := s.FindUserPassword(email)
	if IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !auth.CheckPasswordHash(password, passwordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.FindUserBy("email", normalizeEmail(email))
}

func (s *Store) AtLeastOneUserExists() (bool, error) {
	err := s.db.First(&User{}).Error
	if IsNotFound(err) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
