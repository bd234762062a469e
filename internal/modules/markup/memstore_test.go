package markup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/markupsync/internal/platform/authapi"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
)

// memStore is an in-memory ObjectStore.
type memStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failCopy map[string]error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, failCopy: map[string]error{}}
}

func (s *memStore) putString(key, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = []byte(body)
}

func (s *memStore) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return string(b), ok
}

func (s *memStore) keys(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (s *memStore) ListKeys(_ context.Context, prefix string) ([]string, error) {
	return s.keys(prefix), nil
}

func (s *memStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memStore) Put(_ context.Context, key string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	return nil
}

func (s *memStore) Copy(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failCopy[src]; err != nil {
		return err
	}
	b, ok := s.objects[src]
	if !ok {
		return fmt.Errorf("object %s not found", src)
	}
	s.objects[dst] = append([]byte(nil), b...)
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

type eshopLookupFunc func(ctx context.Context, accountID uuid.UUID) (*authapi.Eshop, error)

func (f eshopLookupFunc) GetEshop(ctx context.Context, accountID uuid.UUID) (*authapi.Eshop, error) {
	return f(ctx, accountID)
}

func staticEshop(id int64, platform authapi.Platform) EshopLookup {
	return eshopLookupFunc(func(context.Context, uuid.UUID) (*authapi.Eshop, error) {
		return &authapi.Eshop{ID: id, PlatformID: platform}, nil
	})
}

func testDBC() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}
