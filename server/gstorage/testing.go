package gstorage

import (
	"context"
	"os"
	"sync"
)

// MemoryStorage keeps objects in memory. It stands in for GStorage in tests.
type MemoryStorage struct {
	mu      sync.Mutex
	Objects map[string][]byte

	UploadError   error
	DownloadError error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{Objects: make(map[string][]byte)}
}

func (ms *MemoryStorage) UploadFile(ctx context.Context, bucket, objectName, filePath string) error {
	if ms.UploadError != nil {
		return ms.UploadError
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.Objects[bucket+"/"+objectName] = data

	return nil
}

func (ms *MemoryStorage) DownloadFile(ctx context.Context, bucket, objectName, destFileName string) error {
	if ms.DownloadError != nil {
		return ms.DownloadError
	}

	ms.mu.Lock()
	data, ok := ms.Objects[bucket+"/"+objectName]
	ms.mu.Unlock()
	if !ok {
		return ErrObjectNotExist
	}

	return os.WriteFile(destFileName, data, 0600)
}
