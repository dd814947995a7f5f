package parsecachesql_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsecache"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsecache/parsecachesql"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsecache/parsecachetest"
)

func newSQLiteStore(t *testing.T) *parsecachesql.Store {
	t.Helper()
	db, err := parsecachesql.Open("sqlite", filepath.Join(t.TempDir(), "parsecache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s := parsecachesql.New(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestSQLiteStore(t *testing.T) {
	parsecachetest.RunStoreTests(t, func(t *testing.T) parsecache.Store {
		return newSQLiteStore(t)
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newSQLiteStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestCacheOverSQLite(t *testing.T) {
	ctx := context.Background()
	c := parsecache.New(newSQLiteStore(t))

	if err := c.Begin(ctx, "fp", 2); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.RecordSuccess(ctx, "fp", parsecachetest.Page(1, "first")); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}
	p, err := c.Progress(ctx, "fp")
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if p.TotalPages != 2 || len(p.SuccessPages) != 1 || len(p.PendingPages) != 1 || p.PendingPages[0] != 2 {
		t.Fatalf("progress = %+v", p)
	}
}
