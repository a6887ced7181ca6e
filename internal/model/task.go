// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "sort"

// =============================================================================
// TASK STATUS
// =============================================================================

// TaskStatus represents the state of one execution-plan step.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// String returns the string representation of the task status.
func (s TaskStatus) String() string {
	return string(s)
}

// =============================================================================
// TASK TYPES
// =============================================================================

// TaskItem is one step of an assistant execution plan.
//
// ParentID is a weak back-reference, not an ownership link; the flat list in
// TaskTree owns all items.
type TaskItem struct {
	ID          string     `json:"id"`
	ParentID    string     `json:"parent_id,omitempty"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Order       int        `json:"order"`
}

// TaskTree holds the execution-plan steps of one assistant message as a flat
// list with parent references. Children are ordered by their explicit Order
// field; traversal is depth-first, parent before children.
type TaskTree struct {
	Items []*TaskItem `json:"items"`
}

// NewTaskTree creates an empty task tree.
func NewTaskTree() *TaskTree {
	return &TaskTree{}
}

// =============================================================================
// TREE OPERATIONS
// =============================================================================

// Get returns the task with the given ID, or nil.
func (t *TaskTree) Get(id string) *TaskItem {
	for _, item := range t.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// Upsert inserts a task or patches the existing one with the same ID.
// Zero-valued fields of the incoming item leave the stored fields untouched,
// so a status-only task_update does not erase the description.
func (t *TaskTree) Upsert(item TaskItem) *TaskItem {
	existing := t.Get(item.ID)
	if existing == nil {
		stored := item
		if stored.Status == "" {
			stored.Status = TaskPending
		}
		t.Items = append(t.Items, &stored)
		return &stored
	}
	if item.Description != "" {
		existing.Description = item.Description
	}
	if item.ParentID != "" {
		existing.ParentID = item.ParentID
	}
	if item.Order != 0 {
		existing.Order = item.Order
	}
	if item.Status != "" {
		existing.SetStatus(item.Status)
		if item.Status == TaskCompleted {
			t.completeDescendants(existing.ID)
		}
	}
	return existing
}

// SetStatus updates the item's status.
func (i *TaskItem) SetStatus(status TaskStatus) {
	i.Status = status
}

// Complete marks the task and all of its descendants completed.
// Returns false if the task is unknown.
func (t *TaskTree) Complete(id string) bool {
	item := t.Get(id)
	if item == nil {
		return false
	}
	item.Status = TaskCompleted
	t.completeDescendants(id)
	return true
}

// completeDescendants cascades completion through the parent references.
func (t *TaskTree) completeDescendants(id string) {
	for _, child := range t.Children(id) {
		child.Status = TaskCompleted
		t.completeDescendants(child.ID)
	}
}

// Children returns the direct children of the given task, sorted by Order.
// Pass the empty string for root tasks.
func (t *TaskTree) Children(parentID string) []*TaskItem {
	var children []*TaskItem
	for _, item := range t.Items {
		if item.ParentID == parentID {
			children = append(children, item)
		}
	}
	sort.SliceStable(children, func(a, b int) bool {
		return children[a].Order < children[b].Order
	})
	return children
}

// Walk visits every task depth-first, parent before children.
// depth is 0 for root tasks.
func (t *TaskTree) Walk(visit func(item *TaskItem, depth int)) {
	t.walkFrom("", 0, visit)
}

func (t *TaskTree) walkFrom(parentID string, depth int, visit func(item *TaskItem, depth int)) {
	for _, item := range t.Children(parentID) {
		visit(item, depth)
		t.walkFrom(item.ID, depth+1, visit)
	}
}

// Len returns the number of tasks in the tree.
func (t *TaskTree) Len() int {
	return len(t.Items)
}

// CompletedCount returns how many tasks are completed.
func (t *TaskTree) CompletedCount() int {
	n := 0
	for _, item := range t.Items {
		if item.Status == TaskCompleted {
			n++
		}
	}
	return n
}
