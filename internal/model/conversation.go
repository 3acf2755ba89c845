// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
)

// =============================================================================
// CHANGE NOTIFICATIONS
// =============================================================================

// ChangeKind describes what happened to the conversation.
type ChangeKind int

const (
	ChangeAppend ChangeKind = iota
	ChangeUpdate
	ChangeClear
)

// Change is sent to subscribers after every mutation.
type Change struct {
	Kind    ChangeKind
	Message Message // zero for ChangeClear
}

// subscriberBuffer bounds each subscriber channel; slow readers drop changes
// and re-read Messages() instead of blocking the writer.
const subscriberBuffer = 64

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the ordered message store of the active thread.
//
// Insertion order is chronological turn order. Only the chat session writes;
// any number of renderers may read concurrently.
type Conversation struct {
	mu       sync.RWMutex
	messages []Message
	index    map[string]int

	subMu   sync.Mutex
	subs    map[int]chan Change
	nextSub int
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{
		index: make(map[string]int),
		subs:  make(map[int]chan Change),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AppendUser creates and appends a user message. It runs synchronously with
// submit, before any network call.
func (c *Conversation) AppendUser(content string) Message {
	msg := NewUserMessage(content)
	c.mu.Lock()
	c.appendLocked(msg)
	c.mu.Unlock()

	c.notify(Change{Kind: ChangeAppend, Message: msg.Clone()})
	return msg
}

// Upsert replaces the message with the same ID in place, or appends it when
// the ID is not present yet.
func (c *Conversation) Upsert(msg Message) {
	msg = msg.Clone()
	kind := ChangeUpdate

	c.mu.Lock()
	if i, ok := c.index[msg.ID]; ok {
		c.messages[i] = msg
	} else {
		c.appendLocked(msg)
		kind = ChangeAppend
	}
	c.mu.Unlock()

	c.notify(Change{Kind: kind, Message: msg.Clone()})
}

// Load replaces the conversation with previously persisted messages.
// Messages without an ID get one; all loaded messages are finalized.
func (c *Conversation) Load(msgs []Message) {
	c.mu.Lock()
	c.messages = make([]Message, 0, len(msgs))
	c.index = make(map[string]int, len(msgs))
	for _, m := range msgs {
		m = m.Clone()
		if m.ID == "" {
			m.ID = generateID()
		}
		m.Finalized = true
		c.appendLocked(m)
	}
	c.mu.Unlock()

	c.notify(Change{Kind: ChangeClear})
	for _, m := range c.Messages() {
		c.notify(Change{Kind: ChangeAppend, Message: m})
	}
}

// Clear empties the conversation.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.messages = nil
	c.index = make(map[string]int)
	c.mu.Unlock()

	c.notify(Change{Kind: ChangeClear})
}

// appendLocked appends msg; c.mu must be held.
func (c *Conversation) appendLocked(msg Message) {
	c.index[msg.ID] = len(c.messages)
	c.messages = append(c.messages, msg)
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Messages returns a copy of all messages in order.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.Clone()
	}
	return out
}

// Get returns the message with the given ID.
func (c *Conversation) Get(id string) (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return Message{}, false
	}
	return c.messages[i].Clone(), true
}

// Last returns the most recent message.
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1].Clone(), true
}

// LastAssistant returns the most recent assistant message.
func (c *Conversation) LastAssistant() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleAssistant {
			return c.messages[i].Clone(), true
		}
	}
	return Message{}, false
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// InFlight returns the number of assistant messages not yet finalized.
func (c *Conversation) InFlight() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, m := range c.messages {
		if m.Role == RoleAssistant && !m.Finalized {
			n++
		}
	}
	return n
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe returns a channel of changes and a function that unsubscribes
// and closes it.
func (c *Conversation) Subscribe() (<-chan Change, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Change, subscriberBuffer)
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
			close(ch)
		})
	}
}

// notify sends a change to every subscriber without blocking.
func (c *Conversation) notify(change Change) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, ch := range c.subs {
		select {
		case ch <- change:
		default:
		}
	}
}
