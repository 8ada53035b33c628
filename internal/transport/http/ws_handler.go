package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mikailyan/moscow-zoo-bot/internal/assets"
	"github.com/mikailyan/moscow-zoo-bot/internal/domain"
	"github.com/mikailyan/moscow-zoo-bot/internal/transport/callback"
	"github.com/mikailyan/moscow-zoo-bot/internal/transport/view"
)

// Engine is the quiz core as seen by a request/response host.
type Engine interface {
	OnStart(ctx context.Context, participantID string) (domain.Effect, error)
	OnAnswer(ctx context.Context, participantID string, questionIndex, optionIndex int) (domain.Effect, error)
	OnRestart(ctx context.Context, participantID string) (domain.Effect, error)
}

// Images looks up the picture shown with a result.
type Images interface {
	Image(category domain.Category) (assets.Image, error)
}

type WSHandler struct {
	engine   Engine
	catalog  view.Catalog
	images   Images
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(engine Engine, catalog view.Catalog, images Images, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		engine:  engine,
		catalog: catalog,
		images:  images,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// answerPayload accepts either the opaque button data or explicit indexes.
type answerPayload struct {
	Data          string `json:"data"`
	QuestionIndex *int   `json:"questionIndex"`
	OptionIndex   *int   `json:"optionIndex"`
}

type readyPayload struct {
	ParticipantID string `json:"participantId"`
	Total         int    `json:"total"`
}

type resultPayload struct {
	view.ResultView
	ImageURL string `json:"imageUrl,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

var errBadAnswer = errors.New("invalid answer payload")

// participantPrefix keeps websocket clients apart from other hosts sharing the engine.
const participantPrefix = "ws:"

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz engine.
// Messages from one connection are applied in the order they arrive.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("participantId")
	if clientID == "" {
		http.Error(w, "missing participantId", http.StatusBadRequest)
		return
	}
	participantID := participantPrefix + clientID

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if err := conn.WriteJSON(outboundMessage[readyPayload]{
		Type:    "ready",
		Payload: readyPayload{ParticipantID: clientID, Total: h.catalog.Len()},
	}); err != nil {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		var (
			effect domain.Effect
			err    error
		)
		switch inbound.Type {
		case "start":
			effect, err = h.engine.OnStart(ctx, participantID)
		case "restart":
			effect, err = h.engine.OnRestart(ctx, participantID)
		case "answer":
			q, o, perr := parseAnswer(inbound.Payload)
			if perr != nil {
				if werr := writeError(conn, perr.Error()); werr != nil {
					return
				}
				continue
			}
			effect, err = h.engine.OnAnswer(ctx, participantID, q, o)
		default:
			if werr := writeError(conn, "unsupported message type"); werr != nil {
				return
			}
			continue
		}
		if err != nil {
			h.logger.Warn("quiz event failed", "participant", participantID, "type", inbound.Type, "error", err)
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if err := h.render(conn, effect); err != nil {
			h.logger.Warn("ws write error", "participant", participantID, "error", err)
			return
		}
	}
}

func (h *WSHandler) render(conn *websocket.Conn, effect domain.Effect) error {
	switch effect.Kind {
	case domain.EffectPresentQuestion:
		q, err := view.Question(h.catalog, effect.QuestionIndex)
		if err != nil {
			h.logger.Error("question not rendered", "question", effect.QuestionIndex, "error", err)
			return nil
		}
		return conn.WriteJSON(outboundMessage[view.QuestionView]{Type: "question", Payload: q})
	case domain.EffectPresentResult:
		payload := resultPayload{ResultView: view.Result(h.catalog, *effect.Result)}
		if img, err := h.images.Image(effect.Result.Winner); err == nil {
			payload.ImageURL = "/images/" + img.Name
		}
		return conn.WriteJSON(outboundMessage[resultPayload]{Type: "result", Payload: payload})
	default:
		return nil
	}
}

func parseAnswer(raw json.RawMessage) (int, int, error) {
	var payload answerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, 0, errBadAnswer
	}
	if payload.Data != "" {
		p, err := callback.Parse(payload.Data)
		if err != nil || p.Kind != callback.KindAnswer {
			return 0, 0, errBadAnswer
		}
		return p.QuestionIndex, p.OptionIndex, nil
	}
	if payload.QuestionIndex == nil || payload.OptionIndex == nil {
		return 0, 0, errBadAnswer
	}
	return *payload.QuestionIndex, *payload.OptionIndex, nil
}

func writeError(conn *websocket.Conn, message string) error {
	return conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: message}})
}
