package models

// InitializeTestDb opens a fresh database in dir (normally t.TempDir()).
func InitializeTestDb(dir string) (*Store, error) {
	return Open("test-passphrase", dir)
}

// InsertPhoneNumberUnchecked stores phone without checking that its person
// exists, for tests that need orphaned rows.
func (s *Store) InsertPhoneNumberUnchecked(phone *PhoneNumber) error {
	return s.db.Create(phone).Error
}

// Exec runs raw sql against the database, for tests that reshape the schema
// (e.g. triggers that make writes fail).
func (s *Store) Exec(sql string) error {
	return s.db.Exec(sql).Error
}
