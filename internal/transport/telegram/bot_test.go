package telegram

import (
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikailyan/moscow-zoo-bot/internal/app"
	"github.com/mikailyan/moscow-zoo-bot/internal/assets"
	"github.com/mikailyan/moscow-zoo-bot/internal/catalog"
	"github.com/mikailyan/moscow-zoo-bot/internal/domain"
	"github.com/mikailyan/moscow-zoo-bot/internal/infra/memory"
	"github.com/mikailyan/moscow-zoo-bot/internal/scoring"
)

func TestStartSendsWelcomeAndFirstQuestion(t *testing.T) {
	sender := &fakeSender{}
	bot := newTestBot(sender, noImages{})

	bot.HandleUpdate(command(42, "/start"))

	sent := sender.waitFor(t, 2)
	welcome := sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, welcomeText, welcome.Text)
	assert.EqualValues(t, 42, welcome.ChatID)

	question := sent[1].(tgbotapi.MessageConfig)
	assert.Equal(t, "Где вы хотели бы провести выходные?", question.Text)
	markup := question.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.Len(t, markup.InlineKeyboard, 4)
	assert.Equal(t, "answer:0:2", *markup.InlineKeyboard[2][0].CallbackData)
}

func TestHelpAndFeedback(t *testing.T) {
	sender := &fakeSender{}
	bot := newTestBot(sender, noImages{})

	bot.HandleUpdate(command(7, "/help"))
	bot.HandleUpdate(command(7, "/feedback"))
	bot.HandleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 7}}})

	sent := sender.waitFor(t, 2)
	assert.Equal(t, helpText, sent[0].(tgbotapi.MessageConfig).Text)
	assert.Equal(t, feedbackText, sent[1].(tgbotapi.MessageConfig).Text)
}

func TestFullQuizEndsWithTextResultWhenImageMissing(t *testing.T) {
	sender := &fakeSender{}
	bot := newTestBot(sender, noImages{})

	bot.HandleUpdate(command(42, "/start"))
	bot.HandleUpdate(tap(42, "answer:0:1"))
	bot.HandleUpdate(tap(42, "answer:1:1"))
	bot.HandleUpdate(tap(42, "answer:2:1"))

	// welcome + 3 questions + result, plus 3 callback acks.
	sent := sender.waitFor(t, 5)
	result := sent[4].(tgbotapi.MessageConfig)
	assert.Contains(t, result.Text, "Азиатский слон")
	assert.Equal(t, tgbotapi.ModeMarkdown, result.ParseMode)

	markup := result.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.Len(t, markup.InlineKeyboard, 3)
	assert.Equal(t, "https://moscowzoo.ru/about/guardianship", *markup.InlineKeyboard[0][0].URL)
	assert.Equal(t, "restart", *markup.InlineKeyboard[1][0].CallbackData)
	require.NotNil(t, markup.InlineKeyboard[2][0].SwitchInlineQuery)
	assert.Eventually(t, func() bool { return sender.acks() == 3 }, time.Second, 5*time.Millisecond)
}

func TestResultPhotoWhenImageExists(t *testing.T) {
	sender := &fakeSender{}
	bot := newTestBot(sender, staticImages{})

	bot.HandleUpdate(command(42, "/start"))
	bot.HandleUpdate(tap(42, "answer:0:1"))
	bot.HandleUpdate(tap(42, "answer:1:1"))
	bot.HandleUpdate(tap(42, "answer:2:1"))

	sent := sender.waitFor(t, 5)
	photo := sent[4].(tgbotapi.PhotoConfig)
	assert.Contains(t, photo.Caption, "Азиатский слон")
	assert.Equal(t, tgbotapi.FileBytes{Name: "elephant.jpg", Bytes: []byte("jpg")}, photo.File)
}

func TestResultFallsBackToTextWhenPhotoFails(t *testing.T) {
	sender := &fakeSender{failPhotos: true}
	bot := newTestBot(sender, staticImages{})

	bot.HandleUpdate(command(42, "/start"))
	bot.HandleUpdate(tap(42, "answer:0:1"))
	bot.HandleUpdate(tap(42, "answer:1:1"))
	bot.HandleUpdate(tap(42, "answer:2:1"))

	sent := sender.waitFor(t, 5)
	result := sent[4].(tgbotapi.MessageConfig)
	assert.Contains(t, result.Text, "Азиатский слон")
}

func TestDoubleTapAdvancesOnce(t *testing.T) {
	sender := &fakeSender{}
	bot := newTestBot(sender, noImages{})

	bot.HandleUpdate(command(42, "/start"))
	bot.HandleUpdate(tap(42, "answer:0:0"))
	bot.HandleUpdate(tap(42, "answer:0:0"))
	bot.HandleUpdate(tap(42, "answer:0:3"))

	sent := sender.waitFor(t, 3)
	assert.Equal(t, "Какой ваш любимый тип еды?", sent[2].(tgbotapi.MessageConfig).Text)
	assert.Eventually(t, func() bool { return sender.acks() == 3 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return len(sender.messages()) > 3 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestRestartCallbackResetsQuiz(t *testing.T) {
	sender := &fakeSender{}
	bot := newTestBot(sender, noImages{})

	bot.HandleUpdate(command(42, "/start"))
	bot.HandleUpdate(tap(42, "answer:0:0"))
	bot.HandleUpdate(tap(42, "restart"))

	sent := sender.waitFor(t, 5)
	assert.Equal(t, welcomeText, sent[3].(tgbotapi.MessageConfig).Text)
	assert.Equal(t, "Где вы хотели бы провести выходные?", sent[4].(tgbotapi.MessageConfig).Text)
}

func TestMalformedCallbackIsAcknowledgedOnly(t *testing.T) {
	sender := &fakeSender{}
	bot := newTestBot(sender, noImages{})

	bot.HandleUpdate(tap(42, "vote:1"))

	assert.Eventually(t, func() bool { return sender.acks() == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, sender.messages())
}

func TestSlowAckDoesNotStallUpdates(t *testing.T) {
	sender := &fakeSender{holdRequests: make(chan struct{})}
	defer close(sender.holdRequests)
	bot := newTestBot(sender, noImages{})

	handled := make(chan struct{})
	go func() {
		bot.HandleUpdate(command(1, "/start"))
		bot.HandleUpdate(tap(1, "answer:0:0"))
		bot.HandleUpdate(command(2, "/start"))
		close(handled)
	}()
	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("update loop waited on a callback ack")
	}

	sent := sender.waitFor(t, 5)
	var chatOne int
	for _, c := range sent {
		if c.(tgbotapi.MessageConfig).ChatID == 1 {
			chatOne++
		}
	}
	assert.Equal(t, 3, chatOne, "welcome, first and second question for chat 1")
}

func TestParticipantIDsAreNamespaced(t *testing.T) {
	assert.Equal(t, "tg:7", participantID(&tgbotapi.User{ID: 7}, 99))
	assert.Equal(t, "tg:99", participantID(nil, 99))
}

func newTestBot(sender *fakeSender, images Images) *Bot {
	cat := catalog.Totem()
	engine := app.NewQuizEngine(cat, memory.NewSessionStore(), scoring.FirstPick{})
	return NewBot(sender, engine, cat, images, Config{GuardianshipURL: "https://moscowzoo.ru/about/guardianship"}, nil)
}

func command(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func tap(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

type fakeSender struct {
	mu         sync.Mutex
	sent       []tgbotapi.Chattable
	requests   []tgbotapi.Chattable
	failPhotos bool
	// holdRequests, when set, blocks every Request until it is closed.
	holdRequests chan struct{}
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := c.(tgbotapi.PhotoConfig); ok && f.failPhotos {
		return tgbotapi.Message{}, errors.New("photo rejected")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if f.holdRequests != nil {
		<-f.holdRequests
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) messages() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...)
}

func (f *fakeSender) acks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeSender) waitFor(t *testing.T, n int) []tgbotapi.Chattable {
	t.Helper()
	require.Eventually(t, func() bool { return len(f.messages()) >= n }, 2*time.Second, 5*time.Millisecond)
	return f.messages()
}

type noImages struct{}

func (noImages) Image(domain.Category) (assets.Image, error) {
	return assets.Image{}, domain.ErrImageNotFound
}

type staticImages struct{}

func (staticImages) Image(c domain.Category) (assets.Image, error) {
	return assets.Image{Name: string(c) + ".jpg", Data: []byte("jpg")}, nil
}
