// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package plugin

import (
	"errors"
	"testing"
)

func staticFiller(slot SlotName, name string, priority int, text string) Filler {
	return Filler{
		Slot:     slot,
		Name:     name,
		Priority: priority,
		Render:   func(Props) (string, error) { return text, nil },
	}
}

// =============================================================================
// ACTIVATION TESTS
// =============================================================================

func TestRegistry_ActivationLifecycle(t *testing.T) {
	r := NewRegistry()

	activations := 0
	r.Register(&Plugin{
		Name:       "feedback",
		Fillers:    []Filler{staticFiller(SlotMessageActions, "verdict", 10, "[+1]")},
		OnActivate: func() error { activations++; return nil },
	})

	if r.IsActivated("feedback") {
		t.Error("registration must leave the plugin inactive")
	}
	if r.Plugin("feedback") != nil {
		t.Error("inactive plugin components must be unreachable")
	}

	r.Activate("feedback")
	if !r.IsActivated("feedback") {
		t.Fatal("plugin not active")
	}
	if activations != 1 {
		t.Errorf("activations = %d, want 1", activations)
	}
	if !r.HasSlotFillers(SlotMessageActions) {
		t.Error("fillers not inserted")
	}

	// Repeated activation is a no-op.
	r.Activate("feedback")
	if activations != 1 {
		t.Errorf("activations = %d after repeat, want 1 (idempotent)", activations)
	}

	r.Deactivate("feedback")
	if r.IsActivated("feedback") {
		t.Error("plugin still active")
	}
	if r.HasSlotFillers(SlotMessageActions) {
		t.Error("fillers must be removed on deactivation")
	}
	// The definition stays registered for re-activation.
	r.Activate("feedback")
	if !r.IsActivated("feedback") {
		t.Error("deactivated plugin must be re-activatable")
	}
}

func TestRegistry_ActivateNotifiesOnce(t *testing.T) {
	r := NewRegistry()
	r.Register(&Plugin{Name: "usage"})

	notifications := 0
	unsubscribe := r.Subscribe(func() { notifications++ })
	defer unsubscribe()

	r.Activate("usage")
	if notifications != 1 {
		t.Errorf("notifications = %d, want exactly 1 per state change", notifications)
	}

	r.Activate("usage") // no state change
	if notifications != 1 {
		t.Errorf("notifications = %d, no-op activation must not notify", notifications)
	}

	r.Activate("unknown") // unknown plugin
	if notifications != 1 {
		t.Errorf("notifications = %d, unknown plugin must not notify", notifications)
	}
}

func TestRegistry_DeactivateRemovesOnlyOwnFillers(t *testing.T) {
	r := NewRegistry()
	r.Register(&Plugin{Name: "feedback", Fillers: []Filler{
		staticFiller(SlotMessageActions, "verdict", 10, "[+1]"),
	}})
	r.Register(&Plugin{Name: "share", Fillers: []Filler{
		staticFiller(SlotMessageActions, "share", 5, "[share]"),
	}})
	r.Activate("feedback")
	r.Activate("share")

	r.Deactivate("feedback")

	fillers := r.SlotFillers(SlotMessageActions)
	if len(fillers) != 1 {
		t.Fatalf("fillers = %d, want the surviving plugin's 1", len(fillers))
	}
	if fillers[0].Owner() != "share" {
		t.Errorf("survivor owner = %q, want share", fillers[0].Owner())
	}
}

func TestRegistry_RegisterOverwriteDeactivatesOld(t *testing.T) {
	r := NewRegistry()

	deactivated := false
	r.Register(&Plugin{
		Name:         "history",
		Fillers:      []Filler{staticFiller(SlotConversationMenu, "old", 0, "old")},
		OnDeactivate: func() { deactivated = true },
	})
	r.Activate("history")

	r.Register(&Plugin{
		Name:    "history",
		Fillers: []Filler{staticFiller(SlotConversationMenu, "new", 0, "new")},
	})

	if !deactivated {
		t.Error("overwriting an active plugin must deactivate it first")
	}
	if r.IsActivated("history") {
		t.Error("replacement starts inactive")
	}
	if r.HasSlotFillers(SlotConversationMenu) {
		t.Error("old fillers must be gone")
	}
}

func TestRegistry_HookPanicIsolated(t *testing.T) {
	r := NewRegistry()
	r.Register(&Plugin{
		Name:       "broken",
		OnActivate: func() error { panic("boom") },
	})

	r.Activate("broken") // must not propagate the panic
	if !r.IsActivated("broken") {
		t.Error("a panicking hook must not block activation")
	}
}

// =============================================================================
// SLOT INDEX TESTS
// =============================================================================

func TestRegistry_SlotFillersPriorityOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&Plugin{Name: "a", Fillers: []Filler{
		staticFiller(SlotStatusBar, "low", 1, "low"),
		staticFiller(SlotStatusBar, "first-equal", 5, "x"),
	}})
	r.Register(&Plugin{Name: "b", Fillers: []Filler{
		staticFiller(SlotStatusBar, "high", 10, "high"),
		staticFiller(SlotStatusBar, "second-equal", 5, "y"),
	}})
	r.Activate("a")
	r.Activate("b")

	fillers := r.SlotFillers(SlotStatusBar)
	want := []string{"high", "first-equal", "second-equal", "low"}
	if len(fillers) != len(want) {
		t.Fatalf("fillers = %d, want %d", len(fillers), len(want))
	}
	for i, name := range want {
		if fillers[i].Name != name {
			t.Errorf("fillers[%d] = %q, want %q (descending priority, stable ties)", i, fillers[i].Name, name)
		}
	}
}

func TestRegistry_SlotFillersReferentiallyStable(t *testing.T) {
	r := NewRegistry()
	r.Register(&Plugin{Name: "a", Fillers: []Filler{
		staticFiller(SlotHeader, "h", 0, "h"),
	}})
	r.Activate("a")

	first := r.SlotFillers(SlotHeader)
	second := r.SlotFillers(SlotHeader)
	if len(first) == 0 || &first[0] != &second[0] {
		t.Error("unchanged registry must return the same filler slice")
	}

	version := r.Version()
	r.Deactivate("a")
	if r.Version() == version {
		t.Error("version must advance on mutation")
	}
	if len(r.SlotFillers(SlotHeader)) != 0 {
		t.Error("stale cache served after mutation")
	}
}

// =============================================================================
// RENDERING TESTS
// =============================================================================

func TestRenderSlot_ConditionAndIsolation(t *testing.T) {
	r := NewRegistry()
	r.Register(&Plugin{Name: "mixed", Fillers: []Filler{
		{
			Slot: SlotMessageActions, Name: "gated", Priority: 30,
			Condition: func(p Props) bool {
				return p.(MessageActionsProps).ConversationKey == "conv_1"
			},
			Render: func(Props) (string, error) { return "gated", nil },
		},
		{
			Slot: SlotMessageActions, Name: "panics", Priority: 20,
			Render: func(Props) (string, error) { panic("render boom") },
		},
		{
			Slot: SlotMessageActions, Name: "errors", Priority: 15,
			Render: func(Props) (string, error) { return "", errors.New("no data") },
		},
		staticFiller(SlotMessageActions, "steady", 10, "steady"),
	}})
	r.Activate("mixed")

	got := RenderSlot(r, MessageActionsProps{ConversationKey: "conv_1"})
	if len(got) != 2 || got[0] != "gated" || got[1] != "steady" {
		t.Errorf("fragments = %v, want [gated steady]", got)
	}

	// Condition rejects; broken fillers still never hide the healthy one.
	got = RenderSlot(r, MessageActionsProps{ConversationKey: "conv_2"})
	if len(got) != 1 || got[0] != "steady" {
		t.Errorf("fragments = %v, want [steady]", got)
	}
}

func TestRenderSlot_EmptySlot(t *testing.T) {
	r := NewRegistry()
	if got := RenderSlot(r, HeaderProps{}); got != nil {
		t.Errorf("fragments = %v, want nil", got)
	}
}
