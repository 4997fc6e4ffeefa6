package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransactionRecorded announces a stored inventory movement. Consumers load
// the full transaction by ID.
type TransactionRecorded struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionRecorded builds the message for a movement created at
// createdAt.
func NewTransactionRecorded(id int64, typ string, createdAt time.Time) *TransactionRecorded {
	return &TransactionRecorded{
		ID:        id,
		Type:      typ,
		Year:      createdAt.Year(),
		Month:     int(createdAt.Month()),
		Timestamp: time.Now(),
	}
}

func (m *TransactionRecorded) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionRecordedFromJSON decodes a message and rejects ones without a
// usable ID.
func TransactionRecordedFromJSON(data []byte) (*TransactionRecorded, error) {
	var msg TransactionRecorded
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("message has no transaction id")
	}
	return &msg, nil
}
