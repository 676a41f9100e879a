package database

import (
	"errors"
	"testing"
	"time"
)

func TestLeaseAcquireAndConflict(t *testing.T) {
	db := openTestDB(t)

	if err := db.AcquireLease("owner-a", time.Hour); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	err := db.AcquireLease("owner-b", time.Hour)
	if !errors.Is(err, ErrLeaseHeld) {
		t.Errorf("expected ErrLeaseHeld, got %v", err)
	}
}

func TestLeaseReleaseAllowsReacquire(t *testing.T) {
	db := openTestDB(t)

	if err := db.AcquireLease("owner-a", time.Hour); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := db.ReleaseLease("owner-a"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := db.AcquireLease("owner-b", time.Hour); err != nil {
		t.Errorf("expected reacquire after release, got %v", err)
	}
}

func TestLeaseReleaseByOtherOwnerIsNoop(t *testing.T) {
	db := openTestDB(t)

	if err := db.AcquireLease("owner-a", time.Hour); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := db.ReleaseLease("owner-b"); err != nil {
		t.Fatalf("release must not error: %v", err)
	}

	err := db.AcquireLease("owner-b", time.Hour)
	if !errors.Is(err, ErrLeaseHeld) {
		t.Errorf("expected lease still held by owner-a, got %v", err)
	}
}

func TestLeaseExpiryReclaim(t *testing.T) {
	db := openTestDB(t)

	// Negative TTL expires the lease immediately.
	if err := db.AcquireLease("owner-a", -time.Minute); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := db.AcquireLease("owner-b", time.Hour); err != nil {
		t.Errorf("expected expired lease reclaimed, got %v", err)
	}
}
