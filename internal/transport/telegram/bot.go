// Package telegram hosts the quiz as a Telegram bot over long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mikailyan/moscow-zoo-bot/internal/assets"
	"github.com/mikailyan/moscow-zoo-bot/internal/domain"
	"github.com/mikailyan/moscow-zoo-bot/internal/transport/callback"
	"github.com/mikailyan/moscow-zoo-bot/internal/transport/view"
)

const (
	welcomeText  = "👋 Привет! Добро пожаловать в викторину «Какое у вас тотемное животное?»\nПоехали!"
	helpText     = "/start — начать викторину\n/help — справка\n/feedback — отзыв"
	feedbackText = "Отправьте ваш отзыв, мы учтём его!"
	resultFormat = "🎉 Ваше тотемное животное: *%s*! 🎉\nУзнайте больше и станьте опекуном."

	guardianshipButton = "Узнать больше об опеке 🧡"
	restartButton      = "Попробовать ещё раз 🔄"
	shareButton        = "Поделиться в Telegram 📢"

	// participantPrefix keeps Telegram users apart from other hosts sharing the engine.
	participantPrefix = "tg:"
)

// Sender is the subset of *tgbotapi.BotAPI the bot writes through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Engine accepts quiz events without blocking the update loop.
type Engine interface {
	Enqueue(ev domain.Event, deliver func(domain.Effect, error))
}

// Images looks up the picture shown with a result.
type Images interface {
	Image(category domain.Category) (assets.Image, error)
}

type Config struct {
	// GuardianshipURL is linked from the result message; empty hides the button.
	GuardianshipURL string
}

// Bot translates Telegram updates into engine events and renders the effects.
type Bot struct {
	sender  Sender
	engine  Engine
	catalog view.Catalog
	images  Images
	cfg     Config
	logger  *slog.Logger
}

func NewBot(sender Sender, engine Engine, catalog view.Catalog, images Images, cfg Config, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		sender:  sender,
		engine:  engine,
		catalog: catalog,
		images:  images,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run reads updates on the calling goroutine until ctx ends or updates is closed.
// Events are handed to the engine, so one participant's updates keep their order while
// different participants are served in parallel.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(update)
		}
	}
}

func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(update.Message)
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		b.engine.Enqueue(domain.StartEvent(participantID(msg.From, chatID)), b.deliver(chatID, true))
	case "help":
		b.send(tgbotapi.NewMessage(chatID, helpText))
	case "feedback":
		b.send(tgbotapi.NewMessage(chatID, feedbackText))
	}
}

func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
	go b.ack(cq.ID)

	payload, err := callback.Parse(cq.Data)
	if err != nil {
		b.logger.Warn("unknown callback data", "data", cq.Data, "error", err)
		return
	}

	var chatID int64
	switch {
	case cq.Message != nil && cq.Message.Chat != nil:
		chatID = cq.Message.Chat.ID
	case cq.From != nil:
		chatID = cq.From.ID
	default:
		return
	}
	pid := participantID(cq.From, chatID)

	switch payload.Kind {
	case callback.KindAnswer:
		b.engine.Enqueue(domain.AnswerEvent(pid, payload.QuestionIndex, payload.OptionIndex), b.deliver(chatID, false))
	case callback.KindRestart:
		b.engine.Enqueue(domain.RestartEvent(pid), b.deliver(chatID, true))
	}
}

// ack answers a callback query so the client stops its spinner. It runs off the update loop.
func (b *Bot) ack(callbackID string) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		b.logger.Warn("callback ack failed", "error", err)
	}
}

// deliver renders an effect. The engine calls it in event order per participant.
func (b *Bot) deliver(chatID int64, greet bool) func(domain.Effect, error) {
	return func(effect domain.Effect, err error) {
		if err != nil {
			b.logger.Error("quiz event failed", "chat", chatID, "error", err)
			return
		}
		if greet && effect.Kind != domain.EffectIgnored {
			b.send(tgbotapi.NewMessage(chatID, welcomeText))
		}
		b.render(chatID, effect)
	}
}

func (b *Bot) render(chatID int64, effect domain.Effect) {
	switch effect.Kind {
	case domain.EffectPresentQuestion:
		b.renderQuestion(chatID, effect.QuestionIndex)
	case domain.EffectPresentResult:
		b.renderResult(chatID, *effect.Result)
	}
}

func (b *Bot) renderQuestion(chatID int64, index int) {
	q, err := view.Question(b.catalog, index)
	if err != nil {
		b.logger.Error("question not rendered", "question", index, "error", err)
		return
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(q.Options))
	for _, opt := range q.Options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(opt.Label, opt.Data)))
	}
	msg := tgbotapi.NewMessage(chatID, q.Prompt)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.logger.Debug("sending question", "chat", chatID, "question", index)
	b.send(msg)
}

func (b *Bot) renderResult(chatID int64, result domain.Result) {
	rv := view.Result(b.catalog, result)
	text := fmt.Sprintf(resultFormat, tgbotapi.EscapeText(tgbotapi.ModeMarkdown, rv.Name))
	markup := b.resultKeyboard()

	img, err := b.images.Image(rv.Winner)
	if err == nil {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: img.Name, Bytes: img.Data})
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeMarkdown
		photo.ReplyMarkup = markup
		if _, err = b.sender.Send(photo); err == nil {
			return
		}
		b.logger.Warn("result photo not sent, falling back to text", "chat", chatID, "error", err)
	} else if !errors.Is(err, domain.ErrImageNotFound) {
		b.logger.Warn("result image unavailable", "category", string(rv.Winner), "error", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = markup
	b.send(msg)
}

func (b *Bot) resultKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 3)
	if b.cfg.GuardianshipURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(guardianshipButton, b.cfg.GuardianshipURL)))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(restartButton, callback.Restart())),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonSwitch(shareButton, "")),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.sender.Send(c); err != nil {
		b.logger.Error("telegram send failed", "error", err)
	}
}

func participantID(user *tgbotapi.User, chatID int64) string {
	if user != nil {
		return participantPrefix + strconv.FormatInt(user.ID, 10)
	}
	return participantPrefix + strconv.FormatInt(chatID, 10)
}
