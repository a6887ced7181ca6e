// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package plugin

import (
	"log"
	"sort"
	"sync"
)

// =============================================================================
// SLOT NAMES
// =============================================================================

// SlotName identifies a UI extension point plugins may fill.
type SlotName string

const (
	// SlotMessageActions renders under each finished assistant message.
	SlotMessageActions SlotName = "message.actions"

	// SlotComposerAccessory renders beside the input composer.
	SlotComposerAccessory SlotName = "composer.accessory"

	// SlotHeader renders in the conversation header line.
	SlotHeader SlotName = "header"

	// SlotStatusBar renders in the status bar.
	SlotStatusBar SlotName = "statusbar"

	// SlotConversationMenu renders in the conversation list menu.
	SlotConversationMenu SlotName = "conversation.menu"
)

// Props is the payload handed to a slot's fillers. Each concrete props type
// fixes one slot name, so a filler registered for a slot only ever sees that
// slot's payload shape.
type Props interface {
	Slot() SlotName
}

// =============================================================================
// FILLER AND PLUGIN TYPES
// =============================================================================

// Filler is one component a plugin attaches to a slot.
type Filler struct {
	// Slot is the extension point this filler renders into.
	Slot SlotName

	// Name identifies the filler within its plugin (for debugging).
	Name string

	// Priority orders fillers within a slot, highest first. Fillers with
	// equal priority keep their activation order.
	Priority int

	// Condition, when set, gates rendering per props payload.
	Condition func(props Props) bool

	// Render produces the filler's fragment for the given props.
	Render func(props Props) (string, error)

	// owner is the plugin that contributed this filler.
	owner string
}

// Owner returns the name of the contributing plugin.
func (f Filler) Owner() string {
	return f.owner
}

// Plugin is an optional feature module.
type Plugin struct {
	Name    string
	Fillers []Filler

	// OnActivate runs when the plugin transitions to active.
	OnActivate func() error

	// OnDeactivate runs when the plugin transitions to inactive.
	OnDeactivate func()
}

// pluginEntry tracks one registered plugin and its activation state.
type pluginEntry struct {
	def       *Plugin
	activated bool
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry tracks registered and activated plugins and the slot index.
// All mutating operations are atomic from a caller's perspective: listeners
// never observe a partially applied activation.
type Registry struct {
	mu sync.Mutex

	plugins map[string]*pluginEntry
	slots   map[SlotName][]Filler

	// Per-slot cached filler slices, invalidated on mutation, so unchanged
	// reads return the same slice for cheap reference comparison.
	cache   map[SlotName][]Filler
	version uint64

	listeners    map[int]func()
	nextListener int
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins:   make(map[string]*pluginEntry),
		slots:     make(map[SlotName][]Filler),
		cache:     make(map[SlotName][]Filler),
		listeners: make(map[int]func()),
	}
}

// =============================================================================
// REGISTRATION AND ACTIVATION
// =============================================================================

// Register adds a plugin definition in the inactive state. Registering a
// second plugin under the same name overwrites the first; an overwritten
// active plugin is deactivated first.
func (r *Registry) Register(p *Plugin) {
	if p == nil || p.Name == "" {
		return
	}
	r.mu.Lock()
	if existing, ok := r.plugins[p.Name]; ok && existing.activated {
		r.deactivateLocked(p.Name)
	}
	r.plugins[p.Name] = &pluginEntry{def: p}
	r.mu.Unlock()
	r.notify()
}

// Activate marks a plugin active, inserts its slot fillers and runs its
// activation hook. A no-op for unknown or already-active plugins; listeners
// are notified exactly once per call that changes state.
func (r *Registry) Activate(name string) {
	r.mu.Lock()
	entry, ok := r.plugins[name]
	if !ok || entry.activated {
		r.mu.Unlock()
		return
	}
	entry.activated = true

	for _, filler := range entry.def.Fillers {
		filler.owner = name
		r.insertFillerLocked(filler)
	}
	r.cache = make(map[SlotName][]Filler)
	r.version++
	hook := entry.def.OnActivate
	r.mu.Unlock()

	runHook(name, "activate", func() error {
		if hook != nil {
			return hook()
		}
		return nil
	})
	r.notify()
}

// Deactivate removes exactly this plugin's slot contributions and runs its
// deactivation hook. A no-op for unknown or inactive plugins.
func (r *Registry) Deactivate(name string) {
	r.mu.Lock()
	entry, ok := r.plugins[name]
	if !ok || !entry.activated {
		r.mu.Unlock()
		return
	}
	hook := r.deactivateLocked(name)
	r.mu.Unlock()

	runHook(name, "deactivate", func() error {
		if hook != nil {
			hook()
		}
		return nil
	})
	r.notify()
}

// deactivateLocked flips the entry inactive and strips its fillers,
// returning the deactivation hook to run outside the lock.
func (r *Registry) deactivateLocked(name string) func() {
	entry := r.plugins[name]
	entry.activated = false
	for slot, fillers := range r.slots {
		kept := fillers[:0]
		for _, f := range fillers {
			if f.owner != name {
				kept = append(kept, f)
			}
		}
		if len(kept) == 0 {
			delete(r.slots, slot)
		} else {
			r.slots[slot] = kept
		}
	}
	r.cache = make(map[SlotName][]Filler)
	r.version++
	return entry.def.OnDeactivate
}

// insertFillerLocked places a filler into its slot index, keeping the slot
// sorted by descending priority with stable order for equal priorities.
func (r *Registry) insertFillerLocked(filler Filler) {
	fillers := append(r.slots[filler.Slot], filler)
	sort.SliceStable(fillers, func(a, b int) bool {
		return fillers[a].Priority > fillers[b].Priority
	})
	r.slots[filler.Slot] = fillers
}

// runHook executes a plugin hook, isolating panics and errors so one broken
// plugin cannot take down the application.
func runHook(plugin, phase string, hook func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("plugin %s: %s hook panicked: %v", plugin, phase, rec)
		}
	}()
	if err := hook(); err != nil {
		log.Printf("plugin %s: %s hook failed: %v", plugin, phase, err)
	}
}

// =============================================================================
// READS
// =============================================================================

// IsActivated reports whether the named plugin is active.
func (r *Registry) IsActivated(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.plugins[name]
	return ok && entry.activated
}

// Plugin returns the named plugin's definition only while it is active.
// A deactivated plugin's components are unreachable through this accessor
// even though its definition stays registered.
func (r *Registry) Plugin(name string) *Plugin {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.plugins[name]
	if !ok || !entry.activated {
		return nil
	}
	return entry.def
}

// SlotFillers returns the active fillers for a slot in priority order. The
// returned slice is referentially stable until the registry changes, so
// subscribers can compare old and new results to skip redundant re-renders.
func (r *Registry) SlotFillers(slot SlotName) []Filler {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[slot]; ok {
		return cached
	}
	fillers := append([]Filler(nil), r.slots[slot]...)
	r.cache[slot] = fillers
	return fillers
}

// HasSlotFillers reports whether any active filler targets the slot.
func (r *Registry) HasSlotFillers(slot SlotName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots[slot]) > 0
}

// Version returns the registry's mutation counter.
func (r *Registry) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// ActivePlugins returns the names of all active plugins, sorted.
func (r *Registry) ActivePlugins() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for name, entry := range r.plugins {
		if entry.activated {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers a change listener and returns its unsubscribe
// function.
func (r *Registry) Subscribe(listener func()) func() {
	r.mu.Lock()
	id := r.nextListener
	r.nextListener++
	r.listeners[id] = listener
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// notify invokes all listeners outside the lock.
func (r *Registry) notify() {
	r.mu.Lock()
	listeners := make([]func(), 0, len(r.listeners))
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.mu.Unlock()
	for _, l := range listeners {
		l()
	}
}
