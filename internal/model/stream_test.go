package model

import (
	"errors"
	"sync"
	"testing"
)

func TestSessionStoreSingleSessionPerDevice(t *testing.T) {
	store := NewSessionStore()

	token, err := store.Activate("d1")
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if _, err := store.Activate("d1"); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second Activate() error = %v, want ErrSessionActive", err)
	}

	if !store.Deactivate("d1") {
		t.Fatalf("Deactivate() = false, want true")
	}
	if store.IsActive("d1", token) {
		t.Errorf("IsActive() after Deactivate = true")
	}

	// the entry lives until the owning loop removes it
	if _, err := store.Activate("d1"); !errors.Is(err, ErrSessionActive) {
		t.Errorf("Activate() before removal error = %v, want ErrSessionActive", err)
	}
	if len(store.ActiveDevices()) != 0 {
		t.Errorf("ActiveDevices() = %v, want empty", store.ActiveDevices())
	}

	if store.Remove("d1", "other-token") {
		t.Errorf("Remove() with foreign token = true")
	}
	if !store.Remove("d1", token) {
		t.Errorf("Remove() with owner token = false")
	}
	if store.Remove("d1", token) {
		t.Errorf("second Remove() = true")
	}

	if _, err := store.Activate("d1"); err != nil {
		t.Errorf("Activate() after removal error = %v", err)
	}
}

func TestSessionStoreConcurrentActivate(t *testing.T) {
	store := NewSessionStore()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Activate("d1"); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("concurrent Activate() winners = %d, want 1", winners)
	}
}

func TestSessionStoreActiveDevicesSorted(t *testing.T) {
	store := NewSessionStore()
	store.Activate("b")
	store.Activate("a")
	store.Activate("c")
	store.Deactivate("c")

	got := store.ActiveDevices()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("ActiveDevices() = %v, want [a b]", got)
	}
}
