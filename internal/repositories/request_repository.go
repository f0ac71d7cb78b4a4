package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"ride-chat/internal/models"
)

var ErrRequestNotFound = errors.New("client request not found")

// RequestRepository abstracts ride (client request) persistence as far as the
// chat pipeline needs it.
type RequestRepository interface {
	ActiveForUser(ctx context.Context, userID int, role models.Role) (models.ClientRequest, error)
	GetRequest(ctx context.Context, requestID int) (models.ClientRequest, error)
	IsParticipant(ctx context.Context, requestID int, userID int) (bool, error)
}

// RequestRepo is a sqlx implementation of RequestRepository.
type RequestRepo struct {
	db *sqlx.DB
}

// NewRequestRepo constructs a RequestRepo.
func NewRequestRepo(db *sqlx.DB) *RequestRepo {
	return &RequestRepo{db: db}
}

// ActiveForUser returns the user's open ride for the given role.
func (r *RequestRepo) ActiveForUser(ctx context.Context, userID int, role models.Role) (models.ClientRequest, error) {
	column := "id_client"
	if role == models.RoleDriver {
		column = "id_driver"
	}
	var request models.ClientRequest
	query := `SELECT id, id_client, id_driver, status, created_at FROM client_requests
        WHERE ` + column + `=$1 AND status='active'
        ORDER BY created_at DESC LIMIT 1`
	err := r.db.GetContext(ctx, &request, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ClientRequest{}, ErrRequestNotFound
	}
	return request, err
}

// GetRequest fetches a client request by id.
func (r *RequestRepo) GetRequest(ctx context.Context, requestID int) (models.ClientRequest, error) {
	var request models.ClientRequest
	err := r.db.GetContext(ctx, &request,
		`SELECT id, id_client, id_driver, status, created_at FROM client_requests WHERE id=$1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ClientRequest{}, ErrRequestNotFound
	}
	return request, err
}

// IsParticipant checks whether a user is the client or the driver of the ride.
func (r *RequestRepo) IsParticipant(ctx context.Context, requestID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM client_requests WHERE id=$1 AND (id_client=$2 OR id_driver=$2))`,
		requestID, userID)
	return exists, err
}
