package cache

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/tradefind/tradefind/internal/db"
)

// fakeStore is an in-memory KV store for tests. When down is set, every
// operation fails as if the store were unreachable.
type fakeStore struct {
	data map[string][]byte
	ttls map[string]time.Duration
	down bool
	info *db.ServerInfo
}

var errStoreDown = errors.New("connection refused")

var dbServerInfo = db.ServerInfo{
	UsedMemoryHuman:        "2.5M",
	ConnectedClients:       2,
	TotalCommandsProcessed: 400,
	KeyspaceHits:           10,
	KeyspaceMisses:         4,
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	if f.down {
		return nil, &db.Error{Op: db.OpGet, Err: errStoreDown}
	}
	v, ok := f.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if f.down {
		return &db.Error{Op: db.OpSet, Err: errStoreDown}
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Del(_ context.Context, key string) error {
	if f.down {
		return &db.Error{Op: db.OpDel, Err: errStoreDown}
	}
	delete(f.data, key)
	return nil
}

func (f *fakeStore) DelMulti(_ context.Context, keys []string) (int, error) {
	if f.down {
		return 0, &db.Error{Op: db.OpDel, Err: errStoreDown}
	}
	n := 0
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if f.down {
		return nil, &db.Error{Op: db.OpScan, Err: errStoreDown}
	}
	var keys []string
	for k := range f.data {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeStore) Info(_ context.Context) (*db.ServerInfo, error) {
	if f.down || f.info == nil {
		return nil, &db.Error{Op: db.OpInfo, Err: errStoreDown}
	}
	return f.info, nil
}

func (f *fakeStore) Ping(_ context.Context) error {
	if f.down {
		return errStoreDown
	}
	return nil
}
