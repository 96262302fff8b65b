package amqp

import (
	"encoding/json"
	"time"
)

// Routing keys double as message types.
const (
	TypeSessionCompleted = "session.completed"
	TypeMedalAwarded     = "medal.awarded"
)

// SessionCompletedMessage announces a finished game. The worker loads the
// full session from the database by id.
type SessionCompletedMessage struct {
	SessionID int64     `json:"session_id"`
	UserID    string    `json:"user_id"`
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSessionCompletedMessage(sessionID int64, userID string, score int) *SessionCompletedMessage {
	return &SessionCompletedMessage{
		SessionID: sessionID,
		UserID:    userID,
		Score:     score,
		Timestamp: time.Now(),
	}
}

func (m *SessionCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SessionCompletedMessageFromJSON(data []byte) (*SessionCompletedMessage, error) {
	var msg SessionCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MedalAwardedMessage announces that a closed period got its podium.
type MedalAwardedMessage struct {
	Kind        string    `json:"kind"`
	PeriodStart time.Time `json:"period_start"`
	Count       int       `json:"count"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewMedalAwardedMessage(kind string, periodStart time.Time, count int) *MedalAwardedMessage {
	return &MedalAwardedMessage{
		Kind:        kind,
		PeriodStart: periodStart,
		Count:       count,
		Timestamp:   time.Now(),
	}
}

func (m *MedalAwardedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MedalAwardedMessageFromJSON(data []byte) (*MedalAwardedMessage, error) {
	var msg MedalAwardedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
