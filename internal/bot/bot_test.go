package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/intake"
)

type fakeAPI struct {
	mu        sync.Mutex
	updates   chan tgbotapi.Update
	sent      []tgbotapi.MessageConfig
	callbacks []string
	fileURL   string
	stopped   bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.callbacks = append(f.callbacks, cb.CallbackQueryID)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	if f.fileURL == "" {
		return "", errors.New("no such file")
	}
	return f.fileURL + "/" + fileID, nil
}

type echoHandler struct {
	mu     sync.Mutex
	inputs []intake.Input
	err    error
}

func (h *echoHandler) Handle(_ context.Context, in intake.Input) ([]intake.Reply, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inputs = append(h.inputs, in)
	if h.err != nil {
		return nil, h.err
	}
	return []intake.Reply{{Text: "got " + in.Text + in.Callback}}, nil
}

func message(chatID, userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: userID},
		Text: text,
	}
}

func TestToInput(t *testing.T) {
	in, ok := ToInput(tgbotapi.Update{Message: message(10, 20, "/report")})
	require.True(t, ok)
	assert.Equal(t, intake.Input{ChatID: 10, UserID: "20", Text: "/report"}, in)

	in, ok = ToInput(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 20},
		Message: message(10, 99, "pick one"),
		Data:    "hostel:John",
	}})
	require.True(t, ok)
	assert.Equal(t, "hostel:John", in.Callback)
	assert.Equal(t, "20", in.UserID)

	photo := message(10, 20, "")
	photo.Photo = []tgbotapi.PhotoSize{
		{FileID: "small", Width: 90, Height: 90},
		{FileID: "large", Width: 1280, Height: 960},
		{FileID: "medium", Width: 320, Height: 240},
	}
	in, ok = ToInput(tgbotapi.Update{Message: photo})
	require.True(t, ok)
	require.NotNil(t, in.Photo)
	assert.Equal(t, "large", in.Photo.FileID)

	doc := message(10, 20, "")
	doc.Document = &tgbotapi.Document{FileID: "doc", FileName: "leak.png", MimeType: "image/png"}
	in, _ = ToInput(tgbotapi.Update{Message: doc})
	require.NotNil(t, in.Photo)
	assert.Equal(t, "leak.png", in.Photo.FileName)

	pdf := message(10, 20, "")
	pdf.Document = &tgbotapi.Document{FileID: "doc", MimeType: "application/pdf"}
	in, _ = ToInput(tgbotapi.Update{Message: pdf})
	assert.Nil(t, in.Photo)

	_, ok = ToInput(tgbotapi.Update{})
	assert.False(t, ok)
}

func TestRenderKeyboard(t *testing.T) {
	msg := Render(5, intake.Reply{Text: "Pick", Buttons: [][]intake.Button{
		{{Label: "John", Data: "hostel:John"}, {Label: "Paul", Data: "hostel:Paul"}},
		{{Label: "Mary", Data: "hostel:Mary"}},
	}})
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	require.NotNil(t, markup.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "hostel:Mary", *markup.InlineKeyboard[1][0].CallbackData)

	plain := Render(5, intake.Reply{Text: "hi"})
	assert.Nil(t, plain.ReplyMarkup)
}

func TestRunKeepsPerChatOrder(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 64)}
	handler := &echoHandler{}
	b := New(api, handler, nil)

	texts := []string{"/report", "John", "a101", "plumbing"}
	for _, text := range texts {
		api.updates <- tgbotapi.Update{Message: message(7, 7, text)}
	}
	api.updates <- tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "cb-9", From: &tgbotapi.User{ID: 8}, Message: message(8, 1, ""), Data: "severity:low",
	}}
	close(api.updates)

	b.Run(context.Background(), 1)

	assert.True(t, api.stopped)
	assert.Equal(t, []string{"cb-9"}, api.callbacks)
	var chat7 []string
	for _, in := range handler.inputs {
		if in.ChatID == 7 {
			chat7 = append(chat7, in.Text)
		}
	}
	assert.Equal(t, texts, chat7)
	assert.Len(t, api.sent, 5)
}

func TestRunReportsHandlerFailure(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 1)}
	b := New(api, &echoHandler{err: errors.New("redis down")}, nil)
	api.updates <- tgbotapi.Update{Message: message(1, 1, "hello")}
	close(api.updates)

	b.Run(context.Background(), 1)
	require.Len(t, api.sent, 1)
	assert.Contains(t, api.sent[0].Text, "went wrong")
}

func TestRunStopsOnCancel(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	b := New(api, &echoHandler{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx, 1)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bot did not stop")
	}
}

func TestMediaFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	fetcher := NewMediaFetcher(&fakeAPI{fileURL: server.URL}, time.Second)
	content, err := fetcher.Fetch(context.Background(), intake.Media{FileID: "photo"})
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(content))

	_, err = fetcher.Fetch(context.Background(), intake.Media{FileID: "missing"})
	assert.Error(t, err)

	_, err = NewMediaFetcher(&fakeAPI{}, time.Second).Fetch(context.Background(), intake.Media{FileID: "x"})
	assert.Error(t, err)
}

func TestAlertSender(t *testing.T) {
	api := &fakeAPI{}
	sender := NewAlertSender(api)
	require.NoError(t, sender.SendText(context.Background(), -100, "New complaint"))
	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(-100), api.sent[0].ChatID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, sender.SendText(ctx, -100, "late"))
}
