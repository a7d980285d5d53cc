package specialist

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sudo-init-do/specialisthub/internal/db"
	"github.com/sudo-init-do/specialisthub/internal/middleware"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), db.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	// one connection, otherwise every new connection is a fresh empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return gdb
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

// Now advances one second per call so created_at ordering is deterministic.
func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	svc        *Service
	store      *GormStore
	db         *gorm.DB
	clock      *testClock
	collisions int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: newTestDB(t), clock: newTestClock()}
	f.store = NewGormStore(f.db)
	f.svc = NewService(f.store, middleware.NewValidator(),
		WithClock(f.clock.Now),
		WithCollisionHook(func() { f.collisions++ }),
	)
	return f
}

func (f *fixture) create(t *testing.T, body string) *Specialist {
	t.Helper()
	p := decodeJSONString(t, body)
	in, err := p.ToCreate()
	if err != nil {
		t.Fatalf("ToCreate(%s): %v", body, err)
	}
	sp, err := f.svc.Create(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("Create(%s): %v", body, err)
	}
	return sp
}

func (f *fixture) update(t *testing.T, id, body string, slots map[int]Attachment) *Specialist {
	t.Helper()
	p := decodeJSONString(t, body)
	in, err := p.ToUpdate()
	if err != nil {
		t.Fatalf("ToUpdate(%s): %v", body, err)
	}
	sp, err := f.svc.Update(context.Background(), id, in, staticSlots(slots))
	if err != nil {
		t.Fatalf("Update(%s): %v", body, err)
	}
	return sp
}

func decodeJSONString(t *testing.T, body string) *Payload {
	t.Helper()
	p, err := decodeJSON(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return p
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *Error of kind %d, got %T %v", want, err, err)
	}
	if appErr.Kind != want {
		t.Fatalf("expected kind %d, got %d (%v)", want, appErr.Kind, appErr)
	}
}

func ptr[T any](v T) *T { return &v }

func staticFiles(files ...Attachment) FileSource {
	return func(context.Context) ([]Attachment, error) { return files, nil }
}

func staticSlots(slots map[int]Attachment) SlotSource {
	return func(context.Context) (map[int]Attachment, error) { return slots, nil }
}
