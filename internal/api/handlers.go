package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"

	"messagehub/internal/server"
	"messagehub/internal/store"
	"messagehub/internal/types"
)

type CreateConversationRequest struct {
	UserId1   string `json:"userId1"`
	UserId2   string `json:"userId2"`
	User1Name string `json:"user1Name"`
	User2Name string `json:"user2Name"`
}

type SendMessageRequest struct {
	ConversationId string `json:"conversationId"`
	SenderId       string `json:"senderId"`
	SenderName     string `json:"senderName"`
	Content        string `json:"content"`
}

type MarkReadRequest struct {
	UserId string `json:"userId"`
}

func (s *App) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

// apiError maps gateway/store failures onto the HTTP error taxonomy.
func apiError(err error) *ApiError {
	switch {
	case errors.Is(err, server.ErrInvalidArgument):
		return &ApiError{StatusCode: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, store.ErrConversationNotFound):
		return NewNotFoundError()
	default:
		return NewInternalServerError(err)
	}
}

func (s *App) createConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conv, err := s.gateway.CreateConversation(r.Context(), store.CreateConversationParams{
		UserId1:   req.UserId1,
		UserId2:   req.UserId2,
		User1Name: req.User1Name,
		User2Name: req.User2Name,
	})
	if err != nil {
		s.log.Println("create conversation:", err)
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{
		"conversation": apiConversation(conv),
	})
}

func (s *App) listConversations(w http.ResponseWriter, r *http.Request) {
	userId := r.PathValue("userId")

	convs, err := s.gateway.ListConversations(r.Context(), userId)
	if err != nil {
		s.log.Println("list conversations:", err)
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conversations := make([]types.Conversation, 0, len(convs))
	for _, c := range convs {
		conversations = append(conversations, apiConversation(c))
	}

	s.writeJson(w, http.StatusOK, map[string]any{
		"conversations": conversations,
	})
}

func (s *App) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.gateway.SendMessage(r.Context(), store.AppendMessageParams{
		ConversationId: req.ConversationId,
		SenderId:       req.SenderId,
		SenderName:     req.SenderName,
		Content:        req.Content,
	})
	if err != nil {
		s.log.Println("send message:", err)
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{
		"message": server.WireMessage(msg),
	})
}

func (s *App) listMessages(w http.ResponseWriter, r *http.Request) {
	conversationId := r.PathValue("conversationId")

	var limit, skip int
	var err error

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	if skipStr := r.URL.Query().Get("skip"); skipStr != "" {
		skip, err = strconv.Atoi(skipStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	msgs, err := s.gateway.ListMessages(r.Context(), conversationId, limit, skip)
	if err != nil {
		s.log.Println("list messages:", err)
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		messages = append(messages, server.WireMessage(m))
	}

	s.writeJson(w, http.StatusOK, map[string]any{
		"messages": messages,
	})
}

func (s *App) markRead(w http.ResponseWriter, r *http.Request) {
	conversationId := r.PathValue("conversationId")

	var req MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.gateway.MarkRead(r.Context(), conversationId, req.UserId); err != nil {
		s.log.Println("mark read:", err)
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{"success": true})
}

func (s *App) deleteConversation(w http.ResponseWriter, r *http.Request) {
	conversationId := r.PathValue("conversationId")

	if err := s.gateway.DeleteConversation(r.Context(), conversationId); err != nil {
		s.log.Println("delete conversation:", err)
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{"success": true})
}

func (s *App) health(w http.ResponseWriter, r *http.Request) {
	storeStatus := "connected"
	if err := s.db.Ping(); err != nil {
		s.log.Println("health: store ping:", err)
		storeStatus = "disconnected"
	}

	clients, authenticated := s.gateway.Counts()

	s.writeJson(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "messagehub",
		"store":   storeStatus,
		"fanout": map[string]any{
			"connected": s.bus.Connected(),
		},
		"websocket": map[string]any{
			"clients":       clients,
			"authenticated": authenticated,
		},
	})
}

func (s *App) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(conn, s.gateway, s.log)
	s.gateway.RegisterClient(client)
	go client.Write()
	go client.Read()
}

func apiConversation(c store.Conversation) types.Conversation {
	var last *string
	if c.LastMessage.Valid {
		v := c.LastMessage.String
		last = &v
	}

	return types.Conversation{
		Id:           c.Id,
		Participants: []string{c.UserA, c.UserB},
		ParticipantsInfo: map[string]types.ParticipantInfo{
			c.UserA: {Name: c.NameA},
			c.UserB: {Name: c.NameB},
		},
		LastMessage:   last,
		CreatedAt:     c.CreatedAt,
		LastMessageAt: c.LastMessageAt,
		UnreadCount:   c.UnreadCount,
	}
}
