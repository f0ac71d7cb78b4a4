package observability

// EventEnvelope wraps one observability event for the AMQP pipeline.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// WSEventPayload describes one websocket lifecycle event on a conversation.
type WSEventPayload struct {
	WS       WSEventInfo `json:"ws"`
	Identity Identity    `json:"identity"`
}

type WSEventInfo struct {
	ConversationID int    `json:"conversation_id"`
	Event          string `json:"event"`
	ConnID         string `json:"conn_id"`
	DurationMS     int64  `json:"duration_ms"`
	Reason         string `json:"reason"`
}

type Identity struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	IP     string `json:"ip"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
