package models

import (
	"encoding/json"
	"time"
)

type MissionReport struct {
	ID        int64           `json:"id"`
	MissionID *int64          `json:"mission_id"`
	UserID    int64           `json:"user_id"`
	Enemy     bool            `json:"enemy"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
