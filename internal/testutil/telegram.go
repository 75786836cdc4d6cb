package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"
)

// Call is one Bot API request received by FakeTelegram.
type Call struct {
	Method string
	Params map[string]any
}

// Param returns a request parameter in its string form.
func (c Call) Param(key string) string {
	v, ok := c.Params[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// FakeTelegram is an in-process Bot API that records every call and answers
// with a minimal message. Chats and methods can be told to fail.
type FakeTelegram struct {
	srv *httptest.Server

	mu          sync.Mutex
	calls       []Call
	failChats   map[string]bool
	failMethods map[string]bool
}

// NewFakeTelegram starts the server and stops it when t finishes.
func NewFakeTelegram(t *testing.T) *FakeTelegram {
	t.Helper()

	f := &FakeTelegram{
		failChats:   make(map[string]bool),
		failMethods: make(map[string]bool),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

// Bot returns an offline telebot instance pointed at the fake server.
func (f *FakeTelegram) Bot(t *testing.T) *telebot.Bot {
	t.Helper()

	b, err := telebot.NewBot(telebot.Settings{URL: f.srv.URL, Token: "test-token", Offline: true})
	require.NoError(t, err)
	return b
}

// FailChat makes every request addressed to chatID fail.
func (f *FakeTelegram) FailChat(chatID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failChats[strconv.FormatInt(chatID, 10)] = true
}

// FailMethod makes every call of method fail.
func (f *FakeTelegram) FailMethod(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failMethods[method] = true
}

// Calls returns the recorded requests in arrival order.
func (f *FakeTelegram) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the recorded requests of one method.
func (f *FakeTelegram) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Texts returns the text of every sendMessage call, in order.
func (f *FakeTelegram) Texts() []string {
	var out []string
	for _, c := range f.CallsTo("sendMessage") {
		out = append(out, c.Param("text"))
	}
	return out
}

// LastText returns the text of the latest sendMessage call.
func (f *FakeTelegram) LastText() string {
	texts := f.Texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

// Reset forgets the recorded requests.
func (f *FakeTelegram) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *FakeTelegram) serve(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	params := make(map[string]any)
	body, _ := io.ReadAll(r.Body)
	if len(body) > 0 {
		_ = json.Unmarshal(body, &params)
	}

	call := Call{Method: method, Params: params}
	chatID := call.Param("chat_id")

	f.mu.Lock()
	f.calls = append(f.calls, call)
	fail := f.failMethods[method] || (chatID != "" && f.failChats[chatID])
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		_, _ = io.WriteString(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
		return
	}

	id, _ := strconv.ParseInt(chatID, 10, 64)
	result := map[string]any{
		"message_id": 1,
		"date":       0,
		"chat":       map[string]any{"id": id, "type": "private"},
	}
	// telebot reads the sent media back from the reply
	if field, ok := mediaFields[method]; ok {
		file := map[string]any{"file_id": call.Param(field)}
		if field == "photo" {
			result[field] = []any{file}
		} else {
			result[field] = file
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

var mediaFields = map[string]string{
	"sendPhoto":     "photo",
	"sendVideo":     "video",
	"sendAnimation": "animation",
	"sendDocument":  "document",
}

// User builds the sender of test updates.
func User(id int64) *telebot.User {
	return &telebot.User{ID: id, FirstName: "Tester", LanguageCode: "en"}
}

// TextUpdate builds a private text message from userID.
func TextUpdate(updateID int, userID int64, text string) telebot.Update {
	return telebot.Update{
		ID: updateID,
		Message: &telebot.Message{
			ID:     updateID,
			Sender: User(userID),
			Chat:   &telebot.Chat{ID: userID, Type: telebot.ChatPrivate},
			Text:   text,
		},
	}
}

// CallbackUpdate builds an inline button press by userID on message 10.
func CallbackUpdate(updateID int, userID int64, data string) telebot.Update {
	return telebot.Update{
		ID: updateID,
		Callback: &telebot.Callback{
			ID:     "cb-" + strconv.Itoa(updateID),
			Sender: User(userID),
			Data:   data,
			Message: &telebot.Message{
				ID:   10,
				Chat: &telebot.Chat{ID: userID, Type: telebot.ChatPrivate},
			},
		},
	}
}

// PhotoUpdate builds a photo message with caption.
func PhotoUpdate(updateID int, userID int64, fileID, caption string) telebot.Update {
	upd := TextUpdate(updateID, userID, "")
	upd.Message.Photo = &telebot.Photo{File: telebot.File{FileID: fileID}}
	upd.Message.Caption = caption
	return upd
}

// VideoUpdate builds a video message lasting seconds.
func VideoUpdate(updateID int, userID int64, fileID string, seconds int) telebot.Update {
	upd := TextUpdate(updateID, userID, "")
	upd.Message.Video = &telebot.Video{File: telebot.File{FileID: fileID}, Duration: seconds}
	return upd
}
