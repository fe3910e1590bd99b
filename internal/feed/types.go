package feed

import (
	"encoding/json"
	"time"
)

// Client actions
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Server message types
const (
	TypeAck     = "ack"
	TypeError   = "error"
	TypeBalance = "balance"
)

// ClientMessage is a request sent by a websocket client
type ClientMessage struct {
	Action  string `json:"action"`
	Address string `json:"address"`
}

// ServerMessage is a message pushed to a websocket client
type ServerMessage struct {
	Type    string          `json:"type"`
	Action  string          `json:"action,omitempty"`
	Address string          `json:"address,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// BalanceUpdate is the payload of a balance message
type BalanceUpdate struct {
	Address   string    `json:"address"`
	BNB       float64   `json:"bnb"`
	PLEX      float64   `json:"plex"`
	USDT      float64   `json:"usdt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func marshalMessage(msg ServerMessage) []byte {
	data, _ := json.Marshal(msg)
	return data
}
