package repository

import (
	"fmt"

	"github.com/atinyakov/gophtodo/internal/client/storage"
	"github.com/atinyakov/gophtodo/internal/config"
	"github.com/atinyakov/gophtodo/internal/db"
)

// Backend is an opened storage backend.
type Backend struct {
	Storage storage.Storage
	// Purger drops idle entries; every backend supports it.
	Purger db.Purger

	close func() error
}

// Close releases the database handle, if any.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

type purgingStorage interface {
	storage.Storage
	db.Purger
}

// Open creates the backend selected by opts.Storage.
func Open(opts *config.Options) (*Backend, error) {
	var st purgingStorage
	var closeFn func() error

	switch opts.Storage {
	case config.StorageMemory:
		st = storage.NewMemoryStorage()
	case config.StorageFile:
		fs, err := storage.OpenFileStorage(opts.StorageFile)
		if err != nil {
			return nil, err
		}
		st = fs
	case config.StoragePostgres:
		conn, err := db.InitPostgres(opts.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		st, closeFn = NewSQLStorage(conn, Postgres), conn.Close
	case config.StorageSQLite:
		conn, err := db.InitSQLite(opts.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		st, closeFn = NewSQLStorage(conn, SQLite), conn.Close
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Storage)
	}
	return &Backend{Storage: st, Purger: st, close: closeFn}, nil
}
