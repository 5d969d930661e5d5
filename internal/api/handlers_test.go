package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messagehub/internal/config"
	"messagehub/internal/fanout"
	"messagehub/internal/notify"
	"messagehub/internal/presence"
	"messagehub/internal/server"
	"messagehub/internal/stats"
	"messagehub/internal/store"
	"messagehub/internal/testutil"
)

type appMocks struct {
	repo      *store.MockRepository
	tracker   *presence.MockTracker
	escalator *notify.MockEscalator
	stats     *stats.MockStatsUpdater
	bus       *fanout.MemoryBus
}

func newTestApp(t *testing.T) (*App, *http.ServeMux, *appMocks) {
	mocks := &appMocks{
		repo:      &store.MockRepository{},
		tracker:   &presence.MockTracker{},
		escalator: &notify.MockEscalator{},
		stats:     &stats.MockStatsUpdater{},
	}
	mocks.stats.On("RegisterMetric", mock.AnythingOfType("string")).Times(4)

	logger := testutil.TestLogger(t)
	mocks.bus = fanout.NewMemoryBus()
	t.Cleanup(func() { mocks.bus.Close() })

	gw := server.NewGateway(logger, mocks.repo, mocks.tracker, mocks.bus, mocks.escalator, mocks.stats, false)

	mux := http.NewServeMux()
	app := NewApp(mux, logger, gw, mocks.repo, mocks.bus, &config.Config{ServerAddr: "localhost:0"})

	return app, mux, mocks
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestCreateConversationHandler(t *testing.T) {
	_, mux, mocks := newTestApp(t)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	conv := store.Conversation{
		Id:            "conv-1",
		UserA:         "alice",
		UserB:         "bob",
		NameA:         "Alice",
		NameB:         "Bob",
		CreatedAt:     now,
		LastMessageAt: now,
	}
	mocks.repo.On("FindOrCreateConversation", mock.Anything, store.CreateConversationParams{
		UserId1:   "alice",
		UserId2:   "bob",
		User1Name: "Alice",
		User2Name: "Bob",
	}).Return(conv, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations",
		strings.NewReader(`{"userId1":"alice","userId2":"bob","user1Name":"Alice","user2Name":"Bob"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	conversation, ok := body["conversation"].(map[string]any)
	require.True(t, ok, "expected conversation in response")
	assert.Equal(t, "conv-1", conversation["_id"])
	assert.ElementsMatch(t, []any{"alice", "bob"}, conversation["participants"])
	assert.Nil(t, conversation["lastMessage"])
	assert.EqualValues(t, 0, conversation["unreadCount"])

	info, ok := conversation["participantsInfo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"name": "Alice"}, info["alice"])
	assert.Equal(t, map[string]any{"name": "Bob"}, info["bob"])

	mocks.repo.AssertExpectations(t)
}

func TestCreateConversationHandlerBadJson(t *testing.T) {
	_, mux, mocks := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/conversations", strings.NewReader(`{`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "bad request", decodeBody(t, rr)["message"])
	mocks.repo.AssertNotCalled(t, "FindOrCreateConversation", mock.Anything, mock.Anything)
}

func TestCreateConversationHandlerMissingParticipant(t *testing.T) {
	_, mux, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/conversations",
		strings.NewReader(`{"userId1":"alice"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeBody(t, rr)["message"], "userId1 and userId2 are required")
}

func TestListConversationsHandler(t *testing.T) {
	_, mux, mocks := newTestApp(t)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mocks.repo.On("ListConversations", mock.Anything, "alice").Return([]store.Conversation{
		{
			Id:            "conv-2",
			UserA:         "alice",
			UserB:         "carol",
			NameA:         "Alice",
			NameB:         "Carol",
			LastMessage:   sql.NullString{String: "see you", Valid: true},
			CreatedAt:     now,
			LastMessageAt: now,
			UnreadCount:   3,
		},
		{
			Id:            "conv-1",
			UserA:         "alice",
			UserB:         "bob",
			NameA:         "Alice",
			NameB:         "Bob",
			CreatedAt:     now.Add(-time.Hour),
			LastMessageAt: now.Add(-time.Hour),
		},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/alice", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	conversations, ok := decodeBody(t, rr)["conversations"].([]any)
	require.True(t, ok, "expected conversations in response")
	require.Len(t, conversations, 2)

	first := conversations[0].(map[string]any)
	assert.Equal(t, "conv-2", first["_id"])
	assert.Equal(t, "see you", first["lastMessage"])
	assert.EqualValues(t, 3, first["unreadCount"])

	second := conversations[1].(map[string]any)
	assert.Equal(t, "conv-1", second["_id"])
	assert.Nil(t, second["lastMessage"])

	mocks.repo.AssertExpectations(t)
}

func TestSendMessageHandler(t *testing.T) {
	_, mux, mocks := newTestApp(t)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	params := store.AppendMessageParams{
		ConversationId: "conv-1",
		SenderId:       "alice",
		SenderName:     "Alice",
		Content:        "hello",
	}
	stored := store.Message{
		Id:             "msg-1",
		ConversationId: "conv-1",
		SenderId:       "alice",
		SenderName:     "Alice",
		Content:        "hello",
		CreatedAt:      now,
	}
	conv := store.Conversation{Id: "conv-1", UserA: "alice", UserB: "bob"}

	mocks.repo.On("AppendMessage", mock.Anything, params).Return(stored, nil).Once()
	mocks.repo.On("GetConversation", mock.Anything, "conv-1").Return(conv, nil).Once()
	mocks.stats.On("Incr", "MessagesSent").Once()
	mocks.escalator.On("MessageSent", mock.Anything, "bob", "Alice").Once()

	req := httptest.NewRequest(http.MethodPost, "/messages",
		strings.NewReader(`{"conversationId":"conv-1","senderId":"alice","senderName":"Alice","content":"hello"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	message, ok := decodeBody(t, rr)["message"].(map[string]any)
	require.True(t, ok, "expected message in response")
	assert.Equal(t, "msg-1", message["_id"])
	assert.Equal(t, "conv-1", message["conversationId"])
	assert.Equal(t, "hello", message["content"])
	assert.Equal(t, false, message["read"])

	mocks.repo.AssertExpectations(t)
	mocks.escalator.AssertExpectations(t)
}

func TestSendMessageHandlerConversationNotFound(t *testing.T) {
	_, mux, mocks := newTestApp(t)

	mocks.repo.On("AppendMessage", mock.Anything, mock.Anything).
		Return(store.Message{}, store.ErrConversationNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages",
		strings.NewReader(`{"conversationId":"missing","senderId":"alice","content":"hello"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not found", decodeBody(t, rr)["message"])
}

func TestSendMessageHandlerMissingContent(t *testing.T) {
	_, mux, mocks := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/messages",
		strings.NewReader(`{"conversationId":"conv-1","senderId":"alice"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	mocks.repo.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything)
}

func TestListMessagesHandler(t *testing.T) {
	_, mux, mocks := newTestApp(t)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mocks.repo.On("ListMessages", mock.Anything, "conv-1", 5, 2).Return([]store.Message{
		{Id: "msg-1", ConversationId: "conv-1", SenderId: "alice", Content: "first", CreatedAt: now.Add(-time.Minute)},
		{Id: "msg-2", ConversationId: "conv-1", SenderId: "bob", Content: "second", CreatedAt: now},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages/conv-1?limit=5&skip=2", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	messages, ok := decodeBody(t, rr)["messages"].([]any)
	require.True(t, ok, "expected messages in response")
	require.Len(t, messages, 2)
	assert.Equal(t, "msg-1", messages[0].(map[string]any)["_id"])
	assert.Equal(t, "msg-2", messages[1].(map[string]any)["_id"])

	mocks.repo.AssertExpectations(t)
}

func TestListMessagesHandlerMalformedPagination(t *testing.T) {
	_, mux, mocks := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/messages/conv-1?limit=abc", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	mocks.repo.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkReadHandler(t *testing.T) {
	_, mux, mocks := newTestApp(t)

	mocks.repo.On("MarkRead", mock.Anything, "conv-1", "alice").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/messages/conv-1/read",
		strings.NewReader(`{"userId":"alice"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decodeBody(t, rr)["success"])
	mocks.repo.AssertExpectations(t)
}

func TestMarkReadHandlerStoreError(t *testing.T) {
	_, mux, mocks := newTestApp(t)

	mocks.repo.On("MarkRead", mock.Anything, "conv-1", "alice").
		Return(errors.New("connection reset")).Once()

	req := httptest.NewRequest(http.MethodPatch, "/messages/conv-1/read",
		strings.NewReader(`{"userId":"alice"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal server error", decodeBody(t, rr)["message"])
}

func TestDeleteConversationHandler(t *testing.T) {
	_, mux, mocks := newTestApp(t)

	mocks.repo.On("DeleteConversation", mock.Anything, "conv-1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/conversations/conv-1", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decodeBody(t, rr)["success"])
	mocks.repo.AssertExpectations(t)
}

func TestHealthHandler(t *testing.T) {
	_, mux, mocks := newTestApp(t)

	mocks.repo.On("Ping").Return(nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "messagehub", body["service"])
	assert.Equal(t, "connected", body["store"])

	fanoutStatus, ok := body["fanout"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, fanoutStatus["connected"])

	ws, ok := body["websocket"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 0, ws["clients"])
	assert.EqualValues(t, 0, ws["authenticated"])
}

func TestHealthHandlerStoreDown(t *testing.T) {
	_, mux, mocks := newTestApp(t)

	mocks.repo.On("Ping").Return(errors.New("connection refused")).Once()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "disconnected", decodeBody(t, rr)["store"])
}
