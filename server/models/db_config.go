package models

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/Daskott/phonebook/server/logger"
	"github.com/Daskott/phonebook/utils"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const DB_NAME = "phonebook.db"

var logg = logger.NewLogger()

// Open opens (creating if needed) the encrypted sqlite database under
// dbRootDir and migrates the schema.
func Open(passPhrase string, dbRootDir string) (*Store, error) {
	dbDSNVal, err := dbDSN(passPhrase, dbRootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to set sqlite DSN: %v", err)
	}

	db, err := gorm.Open(sqliteEncrypt.Open(dbDSNVal), &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %v", err)
	}

	store := NewStore(db)
	if err := store.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	return store, nil
}

// AutoMigrate creates or updates the users, people, phone_numbers &
// revoked_sessions tables.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&User{}, &Person{}, &PhoneNumber{}, &RevokedSession{})
}

// Checkpoint flushes the write-ahead log into the main database file, so the
// file can be copied as a consistent snapshot.
func (s *Store) Checkpoint() error {
	return s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func dbDSN(passPhrase string, dbRootDir string) (string, error) {
	dbFilePath, err := DbFilePath(dbRootDir)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"file:%v?_pragma_key=%s&_pragma_cipher_page_size=4096&_journal_mode=WAL",
		dbFilePath,
		passPhrase,
	), nil
}

// DbFilePath is the location of the sqlite file for dbRootDir.
func DbFilePath(dbRootDir string) (string, error) {
	dbDir, err := DbDirectory(dbRootDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(dbDir, DB_NAME), nil
}

func DbDirectory(dbRootDir string) (string, error) {
	dbDir := filepath.Join(dbRootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return dbDir, nil
}
