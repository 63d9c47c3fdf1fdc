package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kinds of month changes carried by MonthChangedMessage.
const (
	KindDay             = "day"
	KindWeek            = "week"
	KindMonthlyExpenses = "monthly_expenses"
	KindRefresh         = "refresh"
)

// MonthChangedMessage announces that one month of the store was written.
// Consumers recompute from the store; the message carries no figures.
type MonthChangedMessage struct {
	ID        string    `json:"id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"` // 0-based
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMonthChangedMessage(year, month int, kind string) *MonthChangedMessage {
	return &MonthChangedMessage{
		ID:        uuid.NewString(),
		Year:      year,
		Month:     month,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MonthChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MonthChangedMessageFromJSON decodes and checks a message body.
func MonthChangedMessageFromJSON(data []byte) (*MonthChangedMessage, error) {
	var msg MonthChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Month < 0 || msg.Month > 11 {
		return nil, fmt.Errorf("month %d out of range", msg.Month)
	}
	if msg.Year < 1 {
		return nil, fmt.Errorf("year %d out of range", msg.Year)
	}
	return &msg, nil
}
