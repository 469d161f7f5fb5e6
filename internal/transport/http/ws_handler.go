package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/auth"
	"quiz-assessment-service/internal/domain"
)

// AttemptService is the session API the websocket surface drives.
type AttemptService interface {
	StartSession(ctx context.Context, quizID string, identity domain.Identity) (app.Snapshot, error)
	RecordAnswer(ctx context.Context, sessionID, questionID, value string) (app.Snapshot, error)
	Submit(ctx context.Context, sessionID string) (app.Outcome, error)
	Subscribe(ctx context.Context, sessionID string) (<-chan app.Snapshot, func(), error)
	Teardown(ctx context.Context, sessionID string)
}

type WSHandler struct {
	service  AttemptService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWSHandler(service AttemptService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: slog.Default(),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

func errorMessage(err error) outboundMessage[any] {
	payload := errorPayload{Code: errorCode(err), Message: err.Error()}
	var incomplete *domain.IncompleteAnswersError
	if errors.As(err, &incomplete) {
		payload.Missing = incomplete.Missing
	}
	return outboundMessage[any]{Type: "error", Payload: payload}
}

func errorCode(err error) string {
	var (
		incomplete  *domain.IncompleteAnswersError
		persistence *domain.PersistenceError
		partial     *domain.PartialSubmissionError
	)
	switch {
	case errors.As(err, &incomplete):
		return "incomplete_answers"
	case errors.As(err, &partial):
		return "partial_submission"
	case errors.As(err, &persistence):
		return "persistence_failed"
	case errors.Is(err, domain.ErrQuizNotFound):
		return "quiz_not_found"
	case errors.Is(err, domain.ErrAuthenticationRequired):
		return "authentication_required"
	case errors.Is(err, domain.ErrQuestionNotFound):
		return "question_not_found"
	case errors.Is(err, domain.ErrOptionNotFound):
		return "option_not_found"
	case errors.Is(err, domain.ErrSessionNotActive):
		return "session_not_active"
	case errors.Is(err, domain.ErrSessionClosed), errors.Is(err, domain.ErrSessionNotFound):
		return "session_closed"
	default:
		return "internal"
	}
}

// ServeWS upgrades the request and runs one attempt session for the connection.
// The session is torn down when the socket closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	identity := auth.IdentityFrom(r.Context())
	if identity.Anonymous() {
		identity = auth.FromRequest(r)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	snap, err := h.service.StartSession(ctx, quizID, identity)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[app.Snapshot]{Type: "snapshot", Payload: snap})
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	sessionID := snap.SessionID
	defer h.service.Teardown(context.Background(), sessionID)

	updates, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", "session_id", sessionID, "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		announced := false
		deadlineReported := false
		forward := func(msg outboundMessage[any]) bool {
			select {
			case send <- msg:
				return true
			case <-closeSignals:
				return false
			case <-writerDone:
				return false
			}
		}
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				if !forward(outboundMessage[any]{Type: "snapshot", Payload: update}) {
					return
				}
				// nobody is waiting on a deadline submission, so its failure is reported here
				if update.DeadlineErr != nil && !deadlineReported {
					deadlineReported = true
					if !forward(errorMessage(update.DeadlineErr)) {
						return
					}
				}
				if update.Outcome != nil && !announced {
					announced = true
					if !forward(outboundMessage[any]{Type: "submitted", Payload: update.Outcome}) {
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "invalid_payload", Message: "invalid answer payload"}})
				continue
			}
			if _, err := h.service.RecordAnswer(ctx, sessionID, payload.QuestionID, payload.Value); err != nil {
				push(errorMessage(err))
			}
		case "submit":
			// success is announced through the snapshot stream
			if _, err := h.service.Submit(ctx, sessionID); err != nil {
				push(errorMessage(err))
			}
		default:
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "unsupported", Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
