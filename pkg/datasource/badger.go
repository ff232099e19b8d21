// ABOUTME: Badger-backed data source holding persisted resources by locator
// ABOUTME: Filled by the import command and read lazily by object factories

package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/faktorips/faktorips.base-sub009/internal/logger"
)

const resourcePrefix = "res:"

func resourceKey(resource string) []byte {
	return []byte(resourcePrefix + resource)
}

// badgerLoggerAdapter routes badger's log output into zerolog
type badgerLoggerAdapter struct {
	logger *logger.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(strings.TrimSpace(fmt.Sprintf(msg, items...))).Send()
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(strings.TrimSpace(fmt.Sprintf(msg, items...))).Send()
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(strings.TrimSpace(fmt.Sprintf(msg, items...))).Send()
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(strings.TrimSpace(fmt.Sprintf(msg, items...))).Send()
}

// BadgerSource stores resources in a badger database
type BadgerSource struct {
	db     *badger.DB
	logger *logger.Logger
}

// OpenBadger opens a badger data source at dir, creating it if needed. An
// empty dir with inMemory set opens a throwaway in-memory store.
func OpenBadger(dir string, inMemory bool, log *logger.Logger) (*BadgerSource, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.StorageLogger("badger")

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		} else if !info.IsDir() {
			return nil, fmt.Errorf("datasource: %s is not a directory", dir)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLoggerAdapter{logger: log}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("datasource: open badger: %w", err)
	}
	return &BadgerSource{db: db, logger: log}, nil
}

// Open returns the stored bytes of resource
func (s *BadgerSource) Open(ctx context.Context, resource string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(resourceKey(resource))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, resource)
	}
	if err != nil {
		return nil, fmt.Errorf("datasource: read %s: %w", resource, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Put stores data under resource, replacing any previous content
func (s *BadgerSource) Put(ctx context.Context, resource string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(resourceKey(resource), data)
	})
}

// PutAll stores every resource in one write batch
func (s *BadgerSource) PutAll(ctx context.Context, resources map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for name, data := range resources {
		if err := wb.Set(resourceKey(name), data); err != nil {
			return fmt.Errorf("datasource: stage %s: %w", name, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("datasource: flush batch: %w", err)
	}
	s.logger.Debug("stored resources").Int("count", len(resources)).Send()
	return nil
}

// List returns every stored resource locator in key order
func (s *BadgerSource) List(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(resourcePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), resourcePrefix))
		}
		return nil
	})
	return names, err
}

// Close closes the database
func (s *BadgerSource) Close() error {
	return s.db.Close()
}
