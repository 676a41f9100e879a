package database

import (
	"errors"
	"fmt"
	"time"
)

// ErrLeaseHeld is returned when another sync run holds the advisory lease.
var ErrLeaseHeld = errors.New("sync lease held by another run")

const timeLayout = "2006-01-02 15:04:05"

// AcquireLease takes the single advisory sync lease for the given owner.
// The external scheduler is not trusted to never overlap runs, so a second
// invocation fails fast with ErrLeaseHeld instead of racing on the sink.
// A lease past its expiry is considered abandoned and is reclaimed.
func (db *DB) AcquireLease(owner string, ttl time.Duration) error {
	now := time.Now().UTC()
	expires := now.Add(ttl)

	res, err := db.conn.Exec(`
INSERT INTO sync_lease (id, owner, acquired_at, expires_at)
VALUES (1, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    owner = excluded.owner,
    acquired_at = excluded.acquired_at,
    expires_at = excluded.expires_at
WHERE sync_lease.expires_at < ?`,
		owner, now.Format(timeLayout), expires.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("acquiring sync lease: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking lease acquisition: %w", err)
	}
	if affected == 0 {
		return ErrLeaseHeld
	}
	return nil
}

// ReleaseLease gives up the lease if this owner still holds it.
func (db *DB) ReleaseLease(owner string) error {
	_, err := db.conn.Exec("DELETE FROM sync_lease WHERE id = 1 AND owner = ?", owner)
	if err != nil {
		return fmt.Errorf("releasing sync lease: %w", err)
	}
	return nil
}
