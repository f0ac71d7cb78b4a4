package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-chat/internal/models"
)

func TestCreateReturnsDurableMessage(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Message{
			ID:             42,
			ConversationID: 9,
			SenderID:       2,
			ReceiverID:     7,
			Body:           "hello",
			Status:         models.StateSent,
			CreatedAt:      time.Now().UTC(),
		})
	}))
	defer srv.Close()

	st := NewHTTPStore(srv.URL, srv.Client())
	msg, err := st.Create(context.Background(), models.MessageDraft{
		ConversationID: 9,
		SenderID:       2,
		ReceiverID:     7,
		Body:           "hello",
		SenderRole:     models.RoleClient,
	})
	require.NoError(t, err)
	assert.Equal(t, 42, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())

	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, float64(9), got["id_client_request"])
	assert.Equal(t, false, got["is_driver"])
}

func TestCreateTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	st := NewHTTPStore(srv.URL, nil)
	_, err := st.Create(context.Background(), models.MessageDraft{ConversationID: 9, SenderID: 2, ReceiverID: 7, Body: "x"})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCreateUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	st := NewHTTPStore(srv.URL, srv.Client())
	_, err := st.Create(context.Background(), models.MessageDraft{ConversationID: 9, SenderID: 2, ReceiverID: 7, Body: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestListReversesToOldestFirst(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/messages/9", r.URL.Path)
		// The API serves newest-first.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": []models.Message{
				{ID: 3, CreatedAt: base.Add(2 * time.Minute)},
				{ID: 2, CreatedAt: base.Add(time.Minute)},
				{ID: 1, CreatedAt: base},
			},
		})
	}))
	defer srv.Close()

	st := NewHTTPStore(srv.URL, srv.Client())
	msgs, err := st.ListByConversation(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestListTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	st := NewHTTPStore(srv.URL, nil)
	_, err := st.ListByConversation(context.Background(), 9)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestActiveConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/client_request/2/client", r.URL.Path)
		json.NewEncoder(w).Encode(models.ClientRequest{ID: 9, ClientID: 2, DriverID: 7, Status: "active"})
	}))
	defer srv.Close()

	st := NewHTTPStore(srv.URL, srv.Client())
	request, err := st.ActiveConversation(context.Background(), 2, models.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, 9, request.ID)
	assert.Equal(t, 7, request.DriverID)
}

func TestActiveConversationNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	st := NewHTTPStore(srv.URL, srv.Client())
	_, err := st.ActiveConversation(context.Background(), 2, models.RoleClient)
	require.ErrorIs(t, err, ErrNoActiveConversation)
}
