package ws

import (
	"time"

	"ride-chat/internal/models"
)

type ConnInfo struct {
	ConnID      string
	UserID      int
	Role        models.Role
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
