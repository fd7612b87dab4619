package bot

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrentbot/internal/domain"
	"torrentbot/internal/pager"
)

func testView(t *testing.T) pager.View {
	t.Helper()
	session, err := pager.NewSession("sess-1", testUser, []domain.SearchResult{
		{Title: "Show", MagnetLink: "magnet:?xt=urn:btih:show", SizeText: "1.2 GiB"},
		{Title: "Other", MagnetLink: "magnet:?xt=urn:btih:other", SizeText: "300 MiB"},
	})
	require.NoError(t, err)
	return session.Render()
}

func TestFormatView(t *testing.T) {
	got := FormatView(testView(t))

	assert.Equal(t, "Result 1/2\nTitle: Show\nSize: 1.2 GiB\nMagnet: magnet:?xt=urn:btih:show", got)
}

func TestViewKeyboard(t *testing.T) {
	kb := viewKeyboard(testView(t))

	require.Len(t, kb.InlineKeyboard, 1)
	row := kb.InlineKeyboard[0]
	require.Len(t, row, 3)
	assert.Equal(t, "◀", row[0].Text)
	assert.Equal(t, "pg|sess-1|prev", row[0].CallbackData)
	assert.Equal(t, "▶", row[1].Text)
	assert.Equal(t, "pg|sess-1|next", row[1].CallbackData)
	assert.Equal(t, "📥", row[2].Text)
	assert.Equal(t, "pg|sess-1|add", row[2].CallbackData)

	for _, b := range row {
		assert.LessOrEqual(t, len(b.CallbackData), 64, "telegram limits callback data to 64 bytes")
	}
}

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		data    string
		session string
		action  pager.Action
		ok      bool
	}{
		{"pg|abc|prev", "abc", pager.ActionPrevious, true},
		{"pg|abc|next", "abc", pager.ActionNext, true},
		{"pg|abc|add", "abc", pager.ActionAdd, true},
		{callbackData("3f2b", pager.ActionAdd), "3f2b", pager.ActionAdd, true},
		{"pg|abc|delete", "", "", false},
		{"pg||next", "", "", false},
		{"pg|abc", "", "", false},
		{"xx|abc|next", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		session, action, ok := parseCallbackData(tt.data)
		assert.Equal(t, tt.ok, ok, tt.data)
		assert.Equal(t, tt.session, session, tt.data)
		assert.Equal(t, tt.action, action, tt.data)
	}
}

func TestCallbackMessage(t *testing.T) {
	chatID, messageID, ok := callbackMessage(models.MaybeInaccessibleMessage{
		Message: &models.Message{ID: 10, Chat: models.Chat{ID: 99}},
	})
	assert.True(t, ok)
	assert.Equal(t, int64(99), chatID)
	assert.Equal(t, 10, messageID)

	chatID, messageID, ok = callbackMessage(models.MaybeInaccessibleMessage{
		InaccessibleMessage: &models.InaccessibleMessage{MessageID: 11, Chat: models.Chat{ID: 98}},
	})
	assert.True(t, ok)
	assert.Equal(t, int64(98), chatID)
	assert.Equal(t, 11, messageID)

	_, _, ok = callbackMessage(models.MaybeInaccessibleMessage{})
	assert.False(t, ok)
}
