package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// BillSyncMessage announces a submitted bill to export. The worker loads
// the bill itself, so only the id travels.
type BillSyncMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBillSyncMessage creates a sync message for the bill id
func NewBillSyncMessage(id string) *BillSyncMessage {
	return &BillSyncMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BillSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BillSyncMessageFromJSON decodes a message; a missing id is an error.
func BillSyncMessageFromJSON(data []byte) (*BillSyncMessage, error) {
	var msg BillSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("bill sync message without id")
	}
	return &msg, nil
}
