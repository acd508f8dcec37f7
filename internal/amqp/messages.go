package amqp

import (
	"encoding/json"
	"time"
)

// SyncMessage signals the worker that queued mutations are waiting in the
// local database. It only identifies the report; the worker reads the actual
// operations from the sync queue.
type SyncMessage struct {
	ReportID  string    `json:"reportId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncMessage(reportID string) *SyncMessage {
	return &SyncMessage{
		ReportID:  reportID,
		Timestamp: time.Now(),
	}
}

func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
