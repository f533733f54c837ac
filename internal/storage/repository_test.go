package storage

import (
	"context"
	"strings"
	"testing"
)

type fakeRepo struct {
	cfg    Config
	closed bool
}

func (f *fakeRepo) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	return int64(len(rows)), nil
}
func (f *fakeRepo) Exec(ctx context.Context, sql string) error { return nil }
func (f *fakeRepo) Close()                                     { f.closed = true }

func TestRegisterAndNew(t *testing.T) {
	Register("fake", func(ctx context.Context, cfg Config) (Repository, error) {
		return &fakeRepo{cfg: cfg}, nil
	})

	cfg := Config{Kind: "fake", DSN: "dsn://x", Table: "t"}
	repo, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fr, ok := repo.(*fakeRepo)
	if !ok {
		t.Fatalf("repo type = %T, want *fakeRepo", repo)
	}
	if fr.cfg != cfg {
		t.Fatalf("factory received %+v, want %+v", fr.cfg, cfg)
	}

	n, err := repo.CopyFrom(context.Background(), []string{"a"}, [][]any{{1}, {2}})
	if err != nil || n != 2 {
		t.Fatalf("CopyFrom = %d, %v; want 2, nil", n, err)
	}
	repo.Close()
	if !fr.closed {
		t.Fatal("Close should reach the backend")
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(context.Background(), Config{Kind: "no-such-backend"})
	if err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Fatalf("err = %v, want an unknown-kind error", err)
	}
	// The error lists the registered kinds to aid config debugging.
	if !strings.Contains(err.Error(), "registered:") {
		t.Fatalf("err = %v, want the registered kinds listed", err)
	}
}

func TestKindsSorted(t *testing.T) {
	Register("zz-test", func(ctx context.Context, cfg Config) (Repository, error) {
		return &fakeRepo{}, nil
	})
	Register("aa-test", func(ctx context.Context, cfg Config) (Repository, error) {
		return &fakeRepo{}, nil
	})

	kinds := Kinds()
	for i := 1; i < len(kinds); i++ {
		if kinds[i-1] > kinds[i] {
			t.Fatalf("kinds not sorted: %v", kinds)
		}
	}
	found := 0
	for _, k := range kinds {
		if k == "zz-test" || k == "aa-test" {
			found++
		}
	}
	if found != 2 {
		t.Fatalf("kinds = %v, want both test kinds present", kinds)
	}
}
