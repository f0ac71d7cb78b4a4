package models

import "time"

// ClientRequest describes one ride and anchors its conversation. Every
// message in a conversation shares the request id.
type ClientRequest struct {
	ID        int       `db:"id" json:"id"`
	ClientID  int       `db:"id_client" json:"id_client"`
	DriverID  int       `db:"id_driver" json:"id_driver"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ParticipantFor returns the participant id for the given role.
func (r ClientRequest) ParticipantFor(role Role) int {
	if role == RoleDriver {
		return r.DriverID
	}
	return r.ClientID
}
