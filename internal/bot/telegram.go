package bot

import (
	"context"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"torrentbot/internal/pager"
)

// callbackPrefix marks inline button data that belongs to a result view.
const callbackPrefix = "pg|"

var actionLabels = map[pager.Action]string{
	pager.ActionPrevious: "◀",
	pager.ActionNext:     "▶",
	pager.ActionAdd:      "📥",
}

// Handler connects the Telegram bot API to the Router.
type Handler struct {
	bot    *tgbot.Bot
	router *Router
	log    logrus.FieldLogger
}

// NewHandler creates a new bot handler instance.
func NewHandler(token string, router *Router, logger logrus.FieldLogger) (*Handler, error) {
	log := logger.WithField("component", "bot_handler")

	b, err := tgbot.New(token)
	if err != nil {
		log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	h := &Handler{
		bot:    b,
		router: router,
		log:    log,
	}
	h.registerHandlers()

	log.Info("Telegram bot handler initialized")
	return h, nil
}

func (h *Handler) registerHandlers() {
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, h.startHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, callbackPrefix, tgbot.MatchTypePrefix, h.callbackHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "", tgbot.MatchTypeContains, h.messageHandler)
	h.log.Info("Registered message and callback handlers")
}

// Start begins polling for updates from Telegram.
// This function blocks until the context is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling...")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped.")
}

// startHandler answers /start with the help text.
func (h *Handler) startHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	h.router.Handle(ctx, Request{
		UserID: msg.From.ID,
		ChatID: msg.Chat.ID,
		Text:   h.router.Prefix() + "help_command",
	}, newReplier(b, msg.Chat.ID, 0))
}

func (h *Handler) messageHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	h.router.Handle(ctx, Request{
		UserID: msg.From.ID,
		ChatID: msg.Chat.ID,
		Text:   msg.Text,
	}, newReplier(b, msg.Chat.ID, 0))
}

func (h *Handler) callbackHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	log := h.log.WithField("user_id", cq.From.ID)

	// Acknowledge first so the client stops its spinner.
	if _, err := b.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: cq.ID,
	}); err != nil {
		log.WithError(err).Warn("Failed to answer callback query")
	}

	sessionID, action, ok := parseCallbackData(cq.Data)
	if !ok {
		log.WithField("data", cq.Data).Warn("Ignoring malformed callback data")
		return
	}

	chatID, messageID, ok := callbackMessage(cq.Message)
	if !ok {
		log.Warn("Callback query has no message")
		return
	}

	h.router.HandleAction(ctx, cq.From.ID, sessionID, action, newReplier(b, chatID, messageID))
}

func callbackMessage(m models.MaybeInaccessibleMessage) (chatID int64, messageID int, ok bool) {
	switch {
	case m.Message != nil:
		return m.Message.Chat.ID, m.Message.ID, true
	case m.InaccessibleMessage != nil:
		return m.InaccessibleMessage.Chat.ID, m.InaccessibleMessage.MessageID, true
	default:
		return 0, 0, false
	}
}

// callbackData encodes a view button as "pg|<session>|<action>".
func callbackData(sessionID string, action pager.Action) string {
	return callbackPrefix + sessionID + "|" + string(action)
}

func parseCallbackData(data string) (string, pager.Action, bool) {
	rest, ok := strings.CutPrefix(data, callbackPrefix)
	if !ok {
		return "", "", false
	}
	sessionID, action, ok := strings.Cut(rest, "|")
	if !ok || sessionID == "" {
		return "", "", false
	}
	switch a := pager.Action(action); a {
	case pager.ActionPrevious, pager.ActionNext, pager.ActionAdd:
		return sessionID, a, true
	default:
		return "", "", false
	}
}

// FormatView renders a view as message text.
func FormatView(v pager.View) string {
	var b strings.Builder
	b.WriteString(v.Heading)
	for _, f := range v.Fields {
		fmt.Fprintf(&b, "\n%s: %s", f.Name, f.Value)
	}
	return b.String()
}

func viewKeyboard(v pager.View) *models.InlineKeyboardMarkup {
	row := make([]models.InlineKeyboardButton, 0, len(v.Actions))
	for _, action := range v.Actions {
		label, ok := actionLabels[action]
		if !ok {
			label = string(action)
		}
		row = append(row, models.InlineKeyboardButton{
			Text:         label,
			CallbackData: callbackData(v.SessionID, action),
		})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
}

// telegramReplier answers in one chat. messageID is the view message to
// edit, or zero when replying to a plain message.
type telegramReplier struct {
	bot       *tgbot.Bot
	chatID    int64
	messageID int
}

func newReplier(b *tgbot.Bot, chatID int64, messageID int) *telegramReplier {
	return &telegramReplier{bot: b, chatID: chatID, messageID: messageID}
}

func (r *telegramReplier) Send(ctx context.Context, text string) error {
	_, err := r.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: r.chatID,
		Text:   text,
	})
	return err
}

func (r *telegramReplier) SendView(ctx context.Context, view pager.View) error {
	_, err := r.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      r.chatID,
		Text:        FormatView(view),
		ReplyMarkup: viewKeyboard(view),
	})
	return err
}

func (r *telegramReplier) EditView(ctx context.Context, view pager.View) error {
	if r.messageID == 0 {
		return r.SendView(ctx, view)
	}
	_, err := r.bot.EditMessageText(ctx, &tgbot.EditMessageTextParams{
		ChatID:      r.chatID,
		MessageID:   r.messageID,
		Text:        FormatView(view),
		ReplyMarkup: viewKeyboard(view),
	})
	return err
}
