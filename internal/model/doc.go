// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat conversations, streamed assistant messages, execution
// plans and tool confirmations.
//
// # Key Types
//
//   - Conversation: Container for a chat thread with keyed history and
//     in-flight stream state
//   - Message: Single message with role, accumulated content, references,
//     live updates, images, tasks, confirmations, usage and extensions
//   - TaskTree: Execution-plan steps with parent references and cascading
//     completion
//   - Role: Message role enumeration (user, assistant, system)
//
// # Usage
//
// Create a new conversation and append a user message:
//
//	conv := model.NewConversation()
//	msg := conv.AddUserMessage("Hello!")
//	_ = msg.ID // stable client-generated id
package model
