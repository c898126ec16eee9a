package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"restoPlay/domain"
)

func TestCreateIfAbsent_PhoneIsDedupKey(t *testing.T) {
	repo := NewParticipantRepository("users")
	ctx := context.Background()

	first := &domain.Participant{Name: "A", Phone: "1", Token: "t1"}
	ok, err := repo.CreateIfAbsent(ctx, "users", first)
	if err != nil || !ok {
		t.Fatalf("first insert: ok=%v err=%v", ok, err)
	}
	if first.ID == 0 || first.CreatedAt.IsZero() {
		t.Errorf("insert did not fill ID/CreatedAt: %+v", first)
	}

	ok, err = repo.CreateIfAbsent(ctx, "users", &domain.Participant{Name: "B", Phone: "1", Token: "t2"})
	if err != nil || ok {
		t.Fatalf("duplicate phone: ok=%v err=%v, want skipped", ok, err)
	}

	_, err = repo.CreateIfAbsent(ctx, "users", &domain.Participant{Name: "C", Phone: "2", Token: "t1"})
	if !errors.Is(err, domain.ErrDuplicateRecord) {
		t.Fatalf("duplicate token err = %v, want ErrDuplicateRecord", err)
	}

	got, err := repo.FindByPhone(ctx, "users", "1")
	if err != nil || got.Token != "t1" || got.Name != "A" {
		t.Errorf("FindByPhone = %+v, %v", got, err)
	}
}

func TestPartitionsAreIsolated(t *testing.T) {
	repo := NewParticipantRepository("a", "b")
	ctx := context.Background()

	if _, err := repo.CreateIfAbsent(ctx, "a", &domain.Participant{Phone: "1", Token: "t"}); err != nil {
		t.Fatal(err)
	}
	ok, err := repo.CreateIfAbsent(ctx, "b", &domain.Participant{Phone: "1", Token: "t"})
	if err != nil || !ok {
		t.Errorf("same identity in another partition: ok=%v err=%v", ok, err)
	}

	if _, err := repo.FindByPhone(ctx, "c", "1"); !errors.Is(err, domain.ErrInvalidTenant) {
		t.Errorf("unknown partition err = %v", err)
	}
	if _, err := repo.FindByToken(ctx, "a", "missing"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("missing token err = %v", err)
	}
}

func TestUpdatesReportAffectedRows(t *testing.T) {
	repo := NewParticipantRepository("users")
	ctx := context.Background()
	if _, err := repo.CreateIfAbsent(ctx, "users", &domain.Participant{Phone: "1", Token: "t"}); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2026, 5, 5, 5, 5, 5, 0, time.UTC)
	if n, err := repo.MarkPlayed(ctx, "users", "t", at, true); err != nil || n != 1 {
		t.Errorf("MarkPlayed = %d, %v", n, err)
	}
	if n, err := repo.MarkPlayed(ctx, "users", "missing", at, true); err != nil || n != 0 {
		t.Errorf("MarkPlayed missing = %d, %v", n, err)
	}
	if n, err := repo.SetRating(ctx, "users", "t", 4); err != nil || n != 1 {
		t.Errorf("SetRating = %d, %v", n, err)
	}
	if n, err := repo.SetRating(ctx, "users", "missing", 4); err != nil || n != 0 {
		t.Errorf("SetRating missing = %d, %v", n, err)
	}

	got, _ := repo.FindByToken(ctx, "users", "t")
	if !got.GamePlayed || got.PlayedOn == nil || *got.Rating != 4 {
		t.Errorf("record = %+v", got)
	}
}

func TestFindReturnsCopies(t *testing.T) {
	repo := NewParticipantRepository("users")
	ctx := context.Background()
	if _, err := repo.CreateIfAbsent(ctx, "users", &domain.Participant{Phone: "1", Token: "t"}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SetRating(ctx, "users", "t", 3); err != nil {
		t.Fatal(err)
	}

	got, _ := repo.FindByToken(ctx, "users", "t")
	*got.Rating = 1

	again, _ := repo.FindByToken(ctx, "users", "t")
	if *again.Rating != 3 {
		t.Errorf("stored rating changed through a returned copy: %d", *again.Rating)
	}
}

func TestCancelledContext(t *testing.T) {
	repo := NewParticipantRepository("users")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.CreateIfAbsent(ctx, "users", &domain.Participant{Phone: "1", Token: "t"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}
