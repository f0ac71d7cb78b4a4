package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ride-chat/internal/models"
	"ride-chat/internal/repositories"
	"ride-chat/internal/store"
)

type MessageStoreMock struct {
	mock.Mock
}

func (m *MessageStoreMock) Create(ctx context.Context, draft models.MessageDraft) (models.Message, error) {
	args := m.Called(ctx, draft)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageStoreMock) ListByConversation(ctx context.Context, conversationID int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageStoreMock) ActiveConversation(ctx context.Context, userID int, role models.Role) (models.ClientRequest, error) {
	args := m.Called(ctx, userID, role)
	var request models.ClientRequest
	if val := args.Get(0); val != nil {
		request = val.(models.ClientRequest)
	}
	return request, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, draft models.MessageDraft, status models.DeliveryState) (models.Message, error) {
	args := m.Called(ctx, draft, status)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListByConversation(ctx context.Context, conversationID int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type RequestRepositoryMock struct {
	mock.Mock
}

func (m *RequestRepositoryMock) ActiveForUser(ctx context.Context, userID int, role models.Role) (models.ClientRequest, error) {
	args := m.Called(ctx, userID, role)
	var request models.ClientRequest
	if val := args.Get(0); val != nil {
		request = val.(models.ClientRequest)
	}
	return request, args.Error(1)
}

func (m *RequestRepositoryMock) GetRequest(ctx context.Context, requestID int) (models.ClientRequest, error) {
	args := m.Called(ctx, requestID)
	var request models.ClientRequest
	if val := args.Get(0); val != nil {
		request = val.(models.ClientRequest)
	}
	return request, args.Error(1)
}

func (m *RequestRepositoryMock) IsParticipant(ctx context.Context, requestID int, userID int) (bool, error) {
	args := m.Called(ctx, requestID, userID)
	return args.Bool(0), args.Error(1)
}

var _ store.MessageStore = (*MessageStoreMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.RequestRepository = (*RequestRepositoryMock)(nil)
