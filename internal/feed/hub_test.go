package feed

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scangofer/internal/scanner"
)

const (
	addrA = "0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa"
	addrB = "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"
	addrC = "0xcCCcCCcCCCCcCCCccCccccCCcCcCcCCcCccCCccc"
)

type mockSubscriber struct {
	id     string
	full   bool
	mu     sync.Mutex
	got    [][]byte
	closed bool
}

func (m *mockSubscriber) ID() string { return m.id }

func (m *mockSubscriber) Send(data []byte) bool {
	if m.full {
		return false
	}
	m.mu.Lock()
	m.got = append(m.got, data)
	m.mu.Unlock()
	return true
}

func (m *mockSubscriber) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *mockSubscriber) messages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.got...)
}

func TestHub_SubscribePublish(t *testing.T) {
	h := NewHub(10, zerolog.Nop())
	s1 := &mockSubscriber{id: "s1"}
	s2 := &mockSubscriber{id: "s2"}

	require.NoError(t, h.Subscribe(s1, addrA))
	require.NoError(t, h.Subscribe(s2, addrA))
	require.NoError(t, h.Subscribe(s2, addrB))

	assert.Equal(t, 2, h.Publish(addrA, []byte("a")))
	assert.Equal(t, 1, h.Publish(addrB, []byte("b")))
	assert.Equal(t, 0, h.Publish(addrC, []byte("c")))

	assert.Len(t, s1.messages(), 1)
	assert.Len(t, s2.messages(), 2)
}

func TestHub_AddressesAreCaseInsensitive(t *testing.T) {
	h := NewHub(10, zerolog.Nop())
	s := &mockSubscriber{id: "s"}

	require.NoError(t, h.Subscribe(s, addrA))
	require.NoError(t, h.Subscribe(s, "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"))

	assert.Equal(t, []string{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}, h.Addresses())
	assert.Equal(t, 1, h.Publish("0xAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaa", []byte("x")))
}

func TestHub_InvalidAddress(t *testing.T) {
	h := NewHub(10, zerolog.Nop())

	err := h.Subscribe(&mockSubscriber{id: "s"}, "0x123")
	assert.True(t, errors.Is(err, scanner.ErrInvalidAddress))
	assert.Equal(t, 0, h.Len())
}

func TestHub_AddressCap(t *testing.T) {
	h := NewHub(2, zerolog.Nop())
	s := &mockSubscriber{id: "s"}

	require.NoError(t, h.Subscribe(s, addrA))
	require.NoError(t, h.Subscribe(s, addrB))
	require.NoError(t, h.Subscribe(s, addrA), "re-subscribing is not counted twice")

	err := h.Subscribe(s, addrC)
	assert.True(t, errors.Is(err, ErrTooManyAddresses))

	assert.True(t, h.Unsubscribe("s", addrB))
	assert.NoError(t, h.Subscribe(s, addrC))
}

func TestHub_UnsubscribeAndRemove(t *testing.T) {
	h := NewHub(0, zerolog.Nop())
	s1 := &mockSubscriber{id: "s1"}
	s2 := &mockSubscriber{id: "s2"}

	require.NoError(t, h.Subscribe(s1, addrA))
	require.NoError(t, h.Subscribe(s2, addrB))

	assert.False(t, h.Unsubscribe("s1", addrB))
	assert.False(t, h.Unsubscribe("nobody", addrA))
	assert.True(t, h.Unsubscribe("s1", addrA))
	assert.Equal(t, 1, h.Len())

	h.Remove("s2")
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Addresses())
}

func TestHub_FullSubscriberNotCounted(t *testing.T) {
	h := NewHub(10, zerolog.Nop())
	require.NoError(t, h.Subscribe(&mockSubscriber{id: "full", full: true}, addrA))
	require.NoError(t, h.Subscribe(&mockSubscriber{id: "ok"}, addrA))

	assert.Equal(t, 1, h.Publish(addrA, []byte("x")))
}

func TestHub_CloseAll(t *testing.T) {
	h := NewHub(10, zerolog.Nop())
	s := &mockSubscriber{id: "s"}
	require.NoError(t, h.Subscribe(s, addrA))

	h.CloseAll()
	assert.True(t, s.closed)
	assert.Equal(t, 0, h.Len())
}
