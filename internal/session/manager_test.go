// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// AUTOSAVE TESTS
// =============================================================================

func TestManager_AutoSaveOnlyWhenDirtyAndDue(t *testing.T) {
	m := NewManager(Config{AutoSaveEnabled: true, AutoSaveInterval: time.Millisecond})

	saves := 0
	m.SetAutoSaveCallback(func() error { saves++; return nil })

	// Clean session: nothing to save no matter how much time passes.
	time.Sleep(5 * time.Millisecond)
	m.Check()
	if saves != 0 {
		t.Errorf("saves = %d, clean state must not autosave", saves)
	}

	m.MarkDirty()
	time.Sleep(5 * time.Millisecond)
	m.Check()
	if saves != 1 {
		t.Fatalf("saves = %d, want 1", saves)
	}
	if m.IsDirty() {
		t.Error("successful autosave must mark the session clean")
	}

	// Clean again; the next check is a no-op.
	m.Check()
	if saves != 1 {
		t.Errorf("saves = %d after clean check", saves)
	}
}

func TestManager_FailedAutoSaveStaysDirty(t *testing.T) {
	m := NewManager(Config{AutoSaveEnabled: true, AutoSaveInterval: time.Millisecond})
	m.SetAutoSaveCallback(func() error { return errors.New("disk full") })

	m.MarkDirty()
	time.Sleep(5 * time.Millisecond)
	m.Check()

	if !m.IsDirty() {
		t.Error("failed save must leave the dirty flag set for retry")
	}
}

func TestManager_SetAutoSaveIntervalDisables(t *testing.T) {
	m := NewManager(Config{AutoSaveEnabled: true, AutoSaveInterval: time.Millisecond})
	saves := 0
	m.SetAutoSaveCallback(func() error { saves++; return nil })

	m.SetAutoSaveInterval(0)
	m.MarkDirty()
	time.Sleep(5 * time.Millisecond)
	m.Check()
	if saves != 0 {
		t.Errorf("saves = %d, zero interval disables autosave", saves)
	}
}

// =============================================================================
// IDLE LOCK TESTS
// =============================================================================

func TestManager_IdleLock(t *testing.T) {
	m := NewManager(Config{IdleTimeout: 5 * time.Millisecond})

	locks := 0
	m.SetIdleLockCallback(func() { locks++ })

	if !m.Check() {
		t.Fatal("fresh session must be usable")
	}

	time.Sleep(10 * time.Millisecond)
	if m.Check() {
		t.Fatal("idle session must lock")
	}
	if !m.IsLocked() {
		t.Error("IsLocked = false")
	}
	if locks != 1 {
		t.Errorf("lock callback fired %d times, want 1", locks)
	}

	// Still locked on subsequent checks, but the callback fires only on
	// the transition.
	m.Check()
	if locks != 1 {
		t.Errorf("lock callback fired %d times after repeat check", locks)
	}

	// Activity alone does not unlock; re-authentication does.
	m.RecordActivity()
	if !m.IsLocked() {
		t.Error("activity must not bypass the lock")
	}
	m.Unlock()
	if m.IsLocked() {
		t.Error("Unlock did not clear the lock")
	}
	if !m.Check() {
		t.Error("unlocked session must be usable again")
	}
}

func TestManager_ZeroTimeoutDisablesLock(t *testing.T) {
	m := NewManager(Config{IdleTimeout: 5 * time.Millisecond})
	time.Sleep(10 * time.Millisecond)
	m.Check()
	if !m.IsLocked() {
		t.Fatal("session should have locked")
	}

	// Turning the timeout off at runtime also releases the lock.
	m.SetIdleTimeout(0)
	if m.IsLocked() {
		t.Error("disabling the timeout must unlock")
	}
	time.Sleep(10 * time.Millisecond)
	if !m.Check() {
		t.Error("session must stay usable with the lock disabled")
	}
}

func TestManager_RecordActivityDefersLock(t *testing.T) {
	m := NewManager(Config{IdleTimeout: 20 * time.Millisecond})

	for i := 0; i < 5; i++ {
		time.Sleep(5 * time.Millisecond)
		m.RecordActivity()
	}
	if !m.Check() {
		t.Error("active session locked despite continuous input")
	}
}

// =============================================================================
// IDENTITY TESTS
// =============================================================================

func TestManager_SessionID(t *testing.T) {
	m := NewManager(DefaultConfig())
	if !strings.HasPrefix(m.SessionID(), "sess_") {
		t.Errorf("SessionID = %q", m.SessionID())
	}
	if m.SessionID() != m.SessionID() {
		t.Error("SessionID must be stable")
	}
	if NewManager(DefaultConfig()).SessionID() == m.SessionID() {
		t.Error("distinct sessions must get distinct IDs")
	}
}
