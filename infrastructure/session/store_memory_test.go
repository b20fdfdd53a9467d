package session_test

import (
	"context"
	"testing"

	domainsession "github.com/fieldteam/orchestrator/domain/session"
	"github.com/fieldteam/orchestrator/infrastructure/session"
)

func TestMemoryStore_SaveGet(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	s := domainsession.New("sess-1", "ship the feature", []string{"coder"})

	if err := store.Save(context.Background(), s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Task != s.Task {
		t.Errorf("Task = %q, want %q", got.Task, s.Task)
	}

	got.Task = "mutated"
	again, err := store.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.Task == "mutated" {
		t.Error("Get() returned a pointer aliasing internal state")
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	if _, err := store.Get(context.Background(), "missing"); err == nil {
		t.Error("Get() error = nil, want not-found error")
	}
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	s := domainsession.New("sess-2", "task", nil)
	if err := store.Update(context.Background(), s); err == nil {
		t.Error("Update() error = nil, want not-found error")
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	s := domainsession.New("sess-3", "task", nil)
	if err := store.Save(context.Background(), s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(context.Background(), "sess-3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(context.Background(), "sess-3"); err == nil {
		t.Error("Get() after Delete() error = nil, want not-found")
	}
}

func TestMemoryStore_ListFilterAndPaginate(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	for i, task := range []string{"deploy the app", "write docs", "deploy the api"} {
		s := domainsession.New(string(rune('a'+i)), task, nil)
		if i == 1 {
			s.Status = domainsession.StatusCompleted
		}
		if err := store.Save(context.Background(), s); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	results, err := store.List(context.Background(), domainsession.ListFilter{TaskPattern: "deploy"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("List() returned %d sessions, want 2", len(results))
	}

	count, err := store.Count(context.Background(), domainsession.ListFilter{Status: []domainsession.Status{domainsession.StatusCompleted}})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}

	limited, err := store.List(context.Background(), domainsession.ListFilter{Limit: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("List() with Limit=1 returned %d, want 1", len(limited))
	}
}
