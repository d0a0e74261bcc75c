package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/medsave/rxwizard/internal/domain/draft"
)

func TestMemory_CreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(time.Hour)

	id, err := repo.Create(ctx, draft.NewStore())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := repo.Update(ctx, id, func(s *draft.Store) error {
		return draft.Set(s, draft.RegistrationNo, "REG24060100001")
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := updated.Document().Patient.RegistrationNo; got != "REG24060100001" {
		t.Errorf("updated store: got %q", got)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Document().Patient.RegistrationNo != "REG24060100001" {
		t.Error("update not persisted")
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemory_FailedUpdateKeepsStoredDraft(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(time.Hour)
	id, _ := repo.Create(ctx, draft.NewStore())

	boom := errors.New("boom")
	_, err := repo.Update(ctx, id, func(s *draft.Store) error {
		if err := draft.Set(s, draft.HospitalID, "h1"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := repo.Get(ctx, id)
	if got.Document().Hospital.ID != "" {
		t.Error("failed update leaked into the stored draft")
	}
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(time.Hour)
	id, _ := repo.Create(ctx, draft.NewStore())

	s, _ := repo.Get(ctx, id)
	_ = draft.Set(s, draft.HospitalID, "h1")

	again, _ := repo.Get(ctx, id)
	if again.Document().Hospital.ID != "" {
		t.Error("mutating a fetched store changed the repository")
	}
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(time.Minute)
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	id, _ := repo.Create(ctx, draft.NewStore())
	other, _ := repo.Create(ctx, draft.NewStore())

	now = now.Add(50 * time.Second)
	if _, err := repo.Update(ctx, id, func(*draft.Store) error { return nil }); err != nil {
		t.Fatalf("update refreshes ttl: %v", err)
	}

	now = now.Add(30 * time.Second)
	if _, err := repo.Get(ctx, id); err != nil {
		t.Errorf("refreshed draft expired early: %v", err)
	}
	if _, err := repo.Get(ctx, other); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected untouched draft to expire, got %v", err)
	}

	now = now.Add(time.Hour)
	repo.sweep()
	if repo.Len() != 0 {
		t.Errorf("sweep left %d drafts", repo.Len())
	}
}

func TestMemory_ConcurrentUpdatesSerialize(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(time.Hour)
	id, _ := repo.Create(ctx, draft.NewStore())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Update(ctx, id, func(s *draft.Store) error {
				return draft.Append(s, draft.Complaints, fmt.Sprintf("c%d", i))
			})
			if err != nil {
				t.Errorf("update %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := repo.Get(ctx, id)
	if n := len(got.Document().Medical.ChiefComplaints); n != 50 {
		t.Errorf("expected 50 complaints, got %d", n)
	}
}

func TestMemory_UpdateUnknown(t *testing.T) {
	repo := NewMemory(0)
	_, err := repo.Update(context.Background(), "nope", func(*draft.Store) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
