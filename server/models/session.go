package models

import (
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm/clause"
)

// RevokedSession is a logged out session. Its token stays valid as a JWT
// until ExpiresAt, so the id is kept until then and refused.
type RevokedSession struct {
	ID        string    `gorm:"primarykey"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// RevokeSession records that session id may no longer be used. Revoking
// twice is not an error.
func (s *Store) RevokeSession(id string, expiresAt time.Time) error {
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&RevokedSession{ID: id, ExpiresAt: expiresAt}).Error

	return pkgerrors.Wrapf(err, "revoke session %v", id)
}

func (s *Store) IsSessionRevoked(id string) (bool, error) {
	var count int64
	err := s.db.Model(&RevokedSession{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrapf(err, "look up session %v", id)
	}

	return count > 0, nil
}

// DeleteExpiredSessionRevocations forgets revocations of sessions whose
// tokens expired before now.
func (s *Store) DeleteExpiredSessionRevocations(now time.Time) (int64, error) {
	result := s.db.Where("expires_at < ?", now).Delete(&RevokedSession{})
	if result.Error != nil {
		return 0, pkgerrors.Wrap(result.Error, "delete expired session revocations")
	}

	return result.RowsAffected, nil
}
