// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// CONFIRMATION STATUS
// =============================================================================

// ConfirmationStatus is the state of a single tool confirmation.
//
// The state machine is pending -> {confirmed | declined | skipped}; a
// confirmation never leaves a terminal state.
type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "pending"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
	ConfirmationDeclined  ConfirmationStatus = "declined"
	ConfirmationSkipped   ConfirmationStatus = "skipped"
)

// String returns the string representation of the status.
func (s ConfirmationStatus) String() string {
	return string(s)
}

// IsTerminal returns true once a decision has been recorded.
func (s ConfirmationStatus) IsTerminal() bool {
	return s == ConfirmationConfirmed || s == ConfirmationDeclined || s == ConfirmationSkipped
}

// =============================================================================
// CONFIRMATION REQUEST
// =============================================================================

// ConfirmationRequest is a pending tool-use action the user must approve or
// skip before the assistant can proceed.
type ConfirmationRequest struct {
	ID          string `json:"id"`
	ToolName    string `json:"tool_name"`
	Description string `json:"description,omitempty"`
	Input       string `json:"input,omitempty"`
}

// AddConfirmationRequest registers a pending confirmation on the message.
// A request that is already known (same ID) is ignored; the server may
// redeliver requests after a reconnect.
func (m *Message) AddConfirmationRequest(req ConfirmationRequest) {
	if m.ConfirmationStates == nil {
		m.ConfirmationStates = make(map[string]ConfirmationStatus)
	}
	if _, seen := m.ConfirmationStates[req.ID]; seen {
		return
	}
	m.ConfirmationRequests = append(m.ConfirmationRequests, req)
	m.ConfirmationStates[req.ID] = ConfirmationPending
}

// ResolveConfirmation records a decision for a pending confirmation.
// Returns false if the confirmation is unknown or already decided.
func (m *Message) ResolveConfirmation(id string, decision ConfirmationStatus) bool {
	current, ok := m.ConfirmationStates[id]
	if !ok || current.IsTerminal() || !decision.IsTerminal() {
		return false
	}
	m.ConfirmationStates[id] = decision
	return true
}

// PendingConfirmations returns the requests still awaiting a decision, in
// arrival order.
func (m *Message) PendingConfirmations() []ConfirmationRequest {
	var pending []ConfirmationRequest
	for _, req := range m.ConfirmationRequests {
		if m.ConfirmationStates[req.ID] == ConfirmationPending {
			pending = append(pending, req)
		}
	}
	return pending
}
