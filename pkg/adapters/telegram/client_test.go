package telegram

import (
	"fmt"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/quizcast/pkg/ports"
)

func TestRetryDelay_FloodControl(t *testing.T) {
	err := &tgbotapi.Error{
		Code:    429,
		Message: "Too Many Requests",
		ResponseParameters: tgbotapi.ResponseParameters{
			RetryAfter: 7,
		},
	}

	wait, retry := RetryDelay(err, 2*time.Second, 1)
	assert.True(t, retry)
	// Server hint plus one second of slack
	assert.Equal(t, 8*time.Second, wait)
}

func TestRetryDelay_ClientErrorNotRetried(t *testing.T) {
	err := &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}

	_, retry := RetryDelay(err, 2*time.Second, 1)
	assert.False(t, retry)
}

func TestRetryDelay_ServerErrorBacksOffLinearly(t *testing.T) {
	err := &tgbotapi.Error{Code: 502, Message: "Bad Gateway"}

	wait, retry := RetryDelay(err, 2*time.Second, 1)
	assert.True(t, retry)
	assert.Equal(t, 2*time.Second, wait)

	wait, retry = RetryDelay(err, 2*time.Second, 3)
	assert.True(t, retry)
	assert.Equal(t, 6*time.Second, wait)
}

func TestRetryDelay_NetworkError(t *testing.T) {
	err := fmt.Errorf("dial tcp: connection refused")

	wait, retry := RetryDelay(err, time.Second, 2)
	assert.True(t, retry)
	assert.Equal(t, 2*time.Second, wait)
}

func TestConvertUpdate_Command(t *testing.T) {
	raw := tgbotapi.Update{
		UpdateID: 5,
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 42, FirstName: "Ada"},
			Chat: &tgbotapi.Chat{ID: 100},
			Text: "/generate the solar system",
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: 9},
			},
		},
	}

	update, ok := ConvertUpdate(raw)
	require.True(t, ok)
	assert.Equal(t, 5, update.UpdateID)
	assert.Equal(t, int64(42), update.UserID)
	assert.Equal(t, int64(100), update.ChatID)
	assert.Equal(t, "Ada", update.FirstName)
	assert.Equal(t, "generate", update.Command)
	assert.Equal(t, "the solar system", update.CommandArgs)
	assert.Empty(t, update.Text)
	assert.True(t, update.IsCommand())
}

func TestConvertUpdate_PlainText(t *testing.T) {
	raw := tgbotapi.Update{
		UpdateID: 6,
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 42},
			Chat: &tgbotapi.Chat{ID: 100},
			Text: `{"all_q":[]}`,
		},
	}

	update, ok := ConvertUpdate(raw)
	require.True(t, ok)
	assert.Empty(t, update.Command)
	assert.Equal(t, `{"all_q":[]}`, update.Text)
	assert.False(t, update.IsCommand())
	assert.False(t, update.IsCallback())
}

func TestConvertUpdate_Callback(t *testing.T) {
	raw := tgbotapi.Update{
		UpdateID: 7,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-9",
			From: &tgbotapi.User{ID: 42, FirstName: "Ada"},
			Data: "anonymous_true",
			Message: &tgbotapi.Message{
				Chat: &tgbotapi.Chat{ID: 100},
			},
		},
	}

	update, ok := ConvertUpdate(raw)
	require.True(t, ok)
	assert.Equal(t, "cb-9", update.CallbackID)
	assert.Equal(t, "anonymous_true", update.CallbackData)
	assert.Equal(t, int64(100), update.ChatID)
	assert.True(t, update.IsCallback())
}

func TestConvertUpdate_IgnoredKinds(t *testing.T) {
	_, ok := ConvertUpdate(tgbotapi.Update{UpdateID: 8})
	assert.False(t, ok)

	// Messages without a sender (channel posts) are ignored
	_, ok = ConvertUpdate(tgbotapi.Update{
		UpdateID: 9,
		Message:  &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}},
	})
	assert.False(t, ok)
}

func TestBuildKeyboard(t *testing.T) {
	markup := buildKeyboard([][]ports.Button{
		{{Text: "Yes", Data: "yes"}, {Text: "No", Data: "no"}},
		{{Text: "Maybe", Data: "maybe"}},
	})

	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "Yes", markup.InlineKeyboard[0][0].Text)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "yes", *markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "Maybe", markup.InlineKeyboard[1][0].Text)
}
