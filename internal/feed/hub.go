package feed

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"scangofer/internal/scanner"
)

// ErrTooManyAddresses is returned when a subscriber is at its address cap
var ErrTooManyAddresses = errors.New("too many subscribed addresses")

// Subscriber receives published payloads
type Subscriber interface {
	ID() string
	// Send queues data without blocking and reports whether it was accepted
	Send(data []byte) bool
}

type hubEntry struct {
	sub   Subscriber
	addrs map[string]struct{}
}

// Hub tracks which subscribers watch which addresses
type Hub struct {
	mu           sync.RWMutex
	entries      map[string]*hubEntry
	maxAddresses int
	logger       zerolog.Logger
}

// NewHub creates a new Hub. maxAddresses <= 0 means no per-subscriber cap.
func NewHub(maxAddresses int, logger zerolog.Logger) *Hub {
	return &Hub{
		entries:      make(map[string]*hubEntry),
		maxAddresses: maxAddresses,
		logger:       logger.With().Str("component", "feed-hub").Logger(),
	}
}

func normalize(address string) string {
	return strings.ToLower(address)
}

// Subscribe adds address to the watch list of sub
func (h *Hub) Subscribe(sub Subscriber, address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("%w: %s", scanner.ErrInvalidAddress, address)
	}
	key := normalize(address)

	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[sub.ID()]
	if !ok {
		entry = &hubEntry{sub: sub, addrs: make(map[string]struct{})}
		h.entries[sub.ID()] = entry
	}
	if _, exists := entry.addrs[key]; exists {
		return nil
	}
	if h.maxAddresses > 0 && len(entry.addrs) >= h.maxAddresses {
		return fmt.Errorf("%w: limit is %d", ErrTooManyAddresses, h.maxAddresses)
	}
	entry.addrs[key] = struct{}{}

	h.logger.Debug().
		Str("subscriberID", sub.ID()).
		Str("address", key).
		Msg("address subscribed")
	return nil
}

// Unsubscribe removes address from the watch list of the subscriber with id.
// It reports whether the address was watched.
func (h *Hub) Unsubscribe(id, address string) bool {
	key := normalize(address)

	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[id]
	if !ok {
		return false
	}
	if _, exists := entry.addrs[key]; !exists {
		return false
	}
	delete(entry.addrs, key)
	if len(entry.addrs) == 0 {
		delete(h.entries, id)
	}
	return true
}

// Remove drops the subscriber with id and all its addresses
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	delete(h.entries, id)
	h.mu.Unlock()
}

// CloseAll drops every subscriber, closing those that can be closed
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := make([]Subscriber, 0, len(h.entries))
	for _, entry := range h.entries {
		subs = append(subs, entry.sub)
	}
	h.entries = make(map[string]*hubEntry)
	h.mu.Unlock()

	for _, sub := range subs {
		if closer, ok := sub.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

// Addresses returns every watched address once, sorted
func (h *Hub) Addresses() []string {
	h.mu.RLock()
	seen := make(map[string]struct{})
	for _, entry := range h.entries {
		for addr := range entry.addrs {
			seen[addr] = struct{}{}
		}
	}
	h.mu.RUnlock()

	addrs := make([]string, 0, len(seen))
	for addr := range seen {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}

// Len returns the number of subscribers with at least one address
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Publish sends payload to every subscriber watching address and returns how many
// accepted it
func (h *Hub) Publish(address string, payload []byte) int {
	key := normalize(address)

	h.mu.RLock()
	targets := make([]Subscriber, 0)
	for _, entry := range h.entries {
		if _, ok := entry.addrs[key]; ok {
			targets = append(targets, entry.sub)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if sub.Send(payload) {
			delivered++
		} else {
			h.logger.Warn().Str("subscriberID", sub.ID()).Msg("subscriber queue full, dropping update")
		}
	}
	return delivered
}
