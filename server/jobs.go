package server

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/Daskott/phonebook/server/gstorage"
	"github.com/Daskott/phonebook/server/models"
	"github.com/Daskott/phonebook/shared"
	"github.com/Daskott/phonebook/utils"
	"github.com/go-co-op/gocron"
)

const (
	defaultOrphanSweepSchedule     = "0 * * * *"
	defaultRevocationPurgeSchedule = "30 3 * * *"
)

// BackupStorage holds copies of the sqlite database file.
type BackupStorage interface {
	UploadFile(ctx context.Context, bucket, objectName, filePath string) error
	DownloadFile(ctx context.Context, bucket, objectName, destFileName string) error
}

type maintenance struct {
	store         *models.Store
	storage       BackupStorage
	storageConfig shared.StorageConfig
	dbRootDir     string
}

// schedule registers the maintenance jobs with scheduler. The backup job
// only runs when backup storage is configured.
func (m *maintenance) schedule(scheduler *gocron.Scheduler, config shared.MaintenanceConfig) error {
	sweepSchedule := config.OrphanSweepSchedule
	if sweepSchedule == "" {
		sweepSchedule = defaultOrphanSweepSchedule
	}

	_, err := scheduler.Cron(sweepSchedule).Tag("sweepOrphanedPhoneNumbers").Do(m.sweepOrphanedPhoneNumbers)
	if err != nil {
		return err
	}

	purgeSchedule := config.RevocationPurgeSchedule
	if purgeSchedule == "" {
		purgeSchedule = defaultRevocationPurgeSchedule
	}

	_, err = scheduler.Cron(purgeSchedule).Tag("purgeSessionRevocations").Do(m.purgeSessionRevocations)
	if err != nil {
		return err
	}

	if m.storage == nil || !m.storageConfig.EnableSqliteBackupAndSync {
		return nil
	}

	_, err = scheduler.Cron(m.storageConfig.SqliteBackupSchedule).Tag("backupSqliteDb").Do(m.backupSqliteDb)
	return err
}

func (m *maintenance) sweepOrphanedPhoneNumbers() error {
	_, err := m.store.DeleteOrphanedPhoneNumbers()
	if err != nil {
		logg.Errorf("sweepOrphanedPhoneNumbers: %v", err)
	}

	return err
}

// purgeSessionRevocations drops revocations of tokens that have expired on
// their own.
func (m *maintenance) purgeSessionRevocations() error {
	_, err := m.store.DeleteExpiredSessionRevocations(time.Now())
	if err != nil {
		logg.Errorf("purgeSessionRevocations: %v", err)
	}

	return err
}

// backupSqliteDb uploads a consistent copy of the database file.
func (m *maintenance) backupSqliteDb() error {
	if err := m.store.Checkpoint(); err != nil {
		logg.Errorf("backupSqliteDb: %v", err)
		return err
	}

	dbFilePath, err := models.DbFilePath(m.dbRootDir)
	if err != nil {
		logg.Errorf("backupSqliteDb: %v", err)
		return err
	}

	err = m.storage.UploadFile(
		context.Background(),
		m.storageConfig.Bucket,
		backupObjectName(m.storageConfig),
		dbFilePath)
	if err != nil {
		logg.Errorf("backupSqliteDb: %v", err)
	}

	return err
}

// restoreSqliteDb downloads the backup when there is no local database yet.
func restoreSqliteDb(ctx context.Context, storage BackupStorage, storageConfig shared.StorageConfig, dbRootDir string) error {
	dbFilePath, err := models.DbFilePath(dbRootDir)
	if err != nil {
		return err
	}

	exists, err := utils.FileExist(dbFilePath)
	if err != nil || exists {
		return err
	}

	err = storage.DownloadFile(ctx, storageConfig.Bucket, backupObjectName(storageConfig), dbFilePath)
	if errors.Is(err, gstorage.ErrObjectNotExist) {
		logg.Infof("No backup of %v in bucket %v, starting with an empty database", models.DB_NAME, storageConfig.Bucket)
		return nil
	}

	return err
}

func backupObjectName(storageConfig shared.StorageConfig) string {
	return path.Join(storageConfig.Prefix, models.DB_NAME)
}
