package database

import (
	"context"
	"testing"
	"time"

	"gro-garden-sync/internal/models"
	"gro-garden-sync/internal/store"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("Channel closed unexpectedly")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for snapshot")
	}
	var zero T
	return zero
}

func TestObservePlants_SnapshotThenUpdates(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := service.ObservePlants(ctx, testWallet)
	if err != nil {
		t.Fatalf("ObservePlants failed: %v", err)
	}

	if initial := receive(t, ch); len(initial) != 0 {
		t.Fatalf("Expected empty initial snapshot, got %d plants", len(initial))
	}

	plant := createTestPlant(t, service, solMint, models.SpeciesSol)
	afterCreate := receive(t, ch)
	if len(afterCreate) != 1 || afterCreate[0].Id != plant.Id {
		t.Fatalf("Expected snapshot with created plant, got %+v", afterCreate)
	}

	if _, err := service.WaterPlant(ctx, store.WaterPlantParams{PlantId: plant.Id, Lamports: 10}); err != nil {
		t.Fatalf("WaterPlant failed: %v", err)
	}
	afterWater := receive(t, ch)
	if afterWater[0].TotalDeposits != 2 {
		t.Errorf("Expected 2 deposits after watering, got %d", afterWater[0].TotalDeposits)
	}
}

func TestObserveJournal_CoalescesToLatest(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := service.ObserveJournal(ctx, testWallet, 10)
	if err != nil {
		t.Fatalf("ObserveJournal failed: %v", err)
	}
	receive(t, ch)

	// Nobody reads while three writes land; the next snapshot still reflects all of them.
	for i := 0; i < 3; i++ {
		if _, err := service.AppendJournalEntry(ctx, store.AppendJournalParams{
			WalletAddress: testWallet,
			Action:        models.ActionVisit,
			Details:       "visit",
		}); err != nil {
			t.Fatalf("AppendJournalEntry failed: %v", err)
		}
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case entries := <-ch:
			if len(entries) == 3 {
				return
			}
		case <-deadline:
			t.Fatalf("Never observed a snapshot with all 3 entries")
		}
	}
}

func TestObserveStreak_IgnoresOtherWallets(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := service.ObserveStreak(ctx, testWallet)
	if err != nil {
		t.Fatalf("ObserveStreak failed: %v", err)
	}
	if initial := receive(t, ch); initial != nil {
		t.Fatalf("Expected nil initial streak, got %+v", initial)
	}

	if err := service.SaveStreak(ctx, models.Streak{WalletAddress: "someone-else", CurrentStreak: 1, LongestStreak: 1, LastActiveDate: "2026-03-01", TotalActiveDays: 1}); err != nil {
		t.Fatalf("SaveStreak failed: %v", err)
	}

	select {
	case s := <-ch:
		t.Fatalf("Unexpected snapshot for unrelated write: %+v", s)
	case <-time.After(100 * time.Millisecond):
	}

	if err := service.SaveStreak(ctx, models.Streak{WalletAddress: testWallet, CurrentStreak: 1, LongestStreak: 1, LastActiveDate: "2026-03-01", TotalActiveDays: 1}); err != nil {
		t.Fatalf("SaveStreak failed: %v", err)
	}
	if s := receive(t, ch); s == nil || s.CurrentStreak != 1 {
		t.Errorf("Expected streak of 1, got %+v", s)
	}
}

func TestObserve_ClosesOnCancel(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := service.ObservePlants(ctx, testWallet)
	if err != nil {
		t.Fatalf("ObservePlants failed: %v", err)
	}
	receive(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("Expected channel to close after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Channel did not close after cancel")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		service.plants.mu.Lock()
		remaining := len(service.plants.subs[testWallet])
		service.plants.mu.Unlock()
		if remaining == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("Expected subscription to be removed after cancel")
}
