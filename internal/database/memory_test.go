package database

import (
	"context"
	"testing"
)

func TestMemoryDeviceNameRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDeviceNameRepository()

	if _, ok, err := repo.Get(ctx, "emulator-5554"); err != nil || ok {
		t.Fatalf("Expected no name, got ok=%v err=%v", ok, err)
	}

	if err := repo.Set(ctx, "emulator-5554", "Lobby TV"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	name, ok, err := repo.Get(ctx, "emulator-5554")
	if err != nil || !ok || name != "Lobby TV" {
		t.Errorf("Get() = %q, %v, %v", name, ok, err)
	}

	all, _ := repo.All(ctx)
	all["emulator-5554"] = "mutated"
	if name, _, _ := repo.Get(ctx, "emulator-5554"); name != "Lobby TV" {
		t.Errorf("All() must return a copy, stored name is now %q", name)
	}
}
