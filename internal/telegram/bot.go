package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/hunterwarburton/tokenscope/internal/logger"
	"github.com/hunterwarburton/tokenscope/internal/metadata"
	"github.com/hunterwarburton/tokenscope/internal/token"
)

const (
	// maxMessageLength is Telegram's limit for a text message.
	maxMessageLength = 4096
	refreshPrefix    = "refresh:"
)

// TokenResolver runs a full token lookup.
type TokenResolver interface {
	Resolve(ctx context.Context, address string) token.Outcome
}

// PolicyService defines the interface for checking user permissions.
type PolicyService interface {
	IsAllowed(userID int64) bool
	IsCommandAllowed(userID int64, command string) bool
}

// Sender is the part of the Telegram API the bot talks to. *bot.Bot implements it.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Bot answers token lookups over Telegram.
type Bot struct {
	bot           *bot.Bot
	sender        Sender
	resolver      TokenResolver
	policyService PolicyService
	lookupTimeout time.Duration

	lookups  atomic.Int64
	failures atomic.Int64
}

// NewBot creates a new bot instance.
func NewBot(token string, resolver TokenResolver, policyService PolicyService, lookupTimeout time.Duration) (*Bot, error) {
	b := newBot(nil, resolver, policyService, lookupTimeout)

	botAPI, err := bot.New(token, bot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}

	b.bot = botAPI
	b.sender = botAPI
	return b, nil
}

func newBot(sender Sender, resolver TokenResolver, policyService PolicyService, lookupTimeout time.Duration) *Bot {
	if lookupTimeout <= 0 {
		lookupTimeout = time.Minute
	}
	return &Bot{
		sender:        sender,
		resolver:      resolver,
		policyService: policyService,
		lookupTimeout: lookupTimeout,
	}
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.bot.Start(ctx)
}

// handleUpdate handles a Telegram update.
func (b *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message != nil {
		message := update.Message
		if message.From == nil || message.Text == "" {
			logger.TelegramDebug("Chat[%d]: Ignored message without sender or text.", message.Chat.ID)
			return
		}

		if message.Text[0] == '/' {
			b.handleCommand(ctx, message)
			return
		}
		b.handleTextMessage(ctx, message)

	} else if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

// handleCommand processes a command message.
func (b *Bot) handleCommand(ctx context.Context, message *models.Message) {
	fields := strings.Fields(message.Text)
	command := strings.TrimPrefix(fields[0], "/")
	// Commands in groups may be addressed as /token@SomeBot.
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	chatID := message.Chat.ID
	userID := message.From.ID
	logger.TelegramInfo("Chat[%d] User[%d]: Received command: /%s", chatID, userID, command)

	if !b.policyService.IsCommandAllowed(userID, command) {
		if !b.policyService.IsAllowed(userID) {
			b.reply(ctx, chatID, "Sorry, you are not allowed to use this bot.")
			return
		}
		logger.TelegramInfo("Chat[%d] User[%d]: Unknown or forbidden command: /%s", chatID, userID, command)
		b.reply(ctx, chatID, "Unknown command. Try /help to see available commands.")
		return
	}

	switch command {
	case "start":
		b.reply(ctx, chatID, "👋 Hello! Send me a Solana token mint address and I'll look up its metadata.\n\n"+helpText)

	case "help":
		b.reply(ctx, chatID, helpText)

	case "token":
		if len(fields) < 2 {
			b.reply(ctx, chatID, "Usage: /token <mint address>")
			return
		}
		b.lookup(ctx, chatID, fields[1])

	case "status":
		b.reply(ctx, chatID, fmt.Sprintf("Lookups served: %d\nLookups with errors: %d", b.lookups.Load(), b.failures.Load()))
	}
}

const helpText = "Available commands:" +
	"\n/start - Start the bot" +
	"\n/help - Show this help message" +
	"\n/token <mint> - Look up a token" +
	"\n\nYou can also just paste a mint address."

// handleTextMessage treats a single-word message as a mint address.
func (b *Bot) handleTextMessage(ctx context.Context, message *models.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID
	logger.TelegramInfo("Chat[%d] User[%d]: Received text message.", chatID, userID)

	if !b.policyService.IsCommandAllowed(userID, "token") {
		b.reply(ctx, chatID, "Sorry, you are not allowed to use this bot.")
		return
	}

	fields := strings.Fields(message.Text)
	if len(fields) != 1 {
		b.reply(ctx, chatID, "Send a single mint address, or use /help.")
		return
	}
	b.lookup(ctx, chatID, fields[0])
}

// handleCallbackQuery re-runs a lookup when the refresh button is pressed.
func (b *Bot) handleCallbackQuery(ctx context.Context, query *models.CallbackQuery) {
	b.sender.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
	})

	if query.Message.Message == nil {
		logger.TelegramWarn("User[%d]: Received callback query with inaccessible message. Data: %s", query.From.ID, query.Data)
		return
	}
	chatID := query.Message.Message.Chat.ID
	userID := query.From.ID
	logger.TelegramInfo("Chat[%d] User[%d]: Received callback query: %s", chatID, userID, query.Data)

	if !strings.HasPrefix(query.Data, refreshPrefix) {
		logger.TelegramInfo("Chat[%d] User[%d]: Ignoring unhandled callback query data: %s", chatID, userID, query.Data)
		return
	}
	if !b.policyService.IsCommandAllowed(userID, "token") {
		return
	}
	b.lookup(ctx, chatID, strings.TrimPrefix(query.Data, refreshPrefix))
}

// lookup resolves address and replies with the record and any errors.
func (b *Bot) lookup(ctx context.Context, chatID int64, address string) {
	address = metadata.NormalizeAddress(address)

	typingDone := make(chan struct{})
	go b.sendContinuousTypingAction(ctx, chatID, typingDone)
	defer close(typingDone)

	lookupCtx, cancel := context.WithTimeout(ctx, b.lookupTimeout)
	defer cancel()

	start := time.Now()
	out := b.resolver.Resolve(lookupCtx, address)
	b.lookups.Add(1)
	if out.Err() != nil {
		b.failures.Add(1)
	}
	logger.TelegramDebug("Chat[%d]: Resolved %s in %v (complete=%v)", chatID, address, time.Since(start), out.Complete())

	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      formatOutcome(out),
		ParseMode: models.ParseModeHTML,
	}
	if out.Record != nil {
		params.ReplyMarkup = &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "🔄 Refresh", CallbackData: refreshPrefix + address},
			}},
		}
	}
	if _, err := b.sender.SendMessage(ctx, params); err != nil {
		logger.TelegramError("Chat[%d]: Failed to send lookup result: %v", chatID, err)
	}
}

// formatOutcome renders a lookup as HTML: the record as preformatted JSON
// followed by one line per error.
func formatOutcome(out token.Outcome) string {
	var builder strings.Builder

	if out.Record != nil {
		encoded, err := token.MarshalRecord(out.Record)
		if err != nil {
			logger.TelegramError("Failed to encode record: %v", err)
		} else {
			body := string(encoded)
			// Leave room for the surrounding markup and error lines.
			if limit := maxMessageLength - 512; len(body) > limit {
				body = strings.ToValidUTF8(body[:limit], "") + "\n…"
			}
			builder.WriteString("<b>Token Information:</b>\n<pre>")
			builder.WriteString(html.EscapeString(body))
			builder.WriteString("</pre>")
		}
	}

	for _, err := range out.Errors() {
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("⚠️ ")
		builder.WriteString(html.EscapeString(err.Error()))
	}

	if builder.Len() == 0 {
		return "No information found."
	}
	return builder.String()
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		logger.TelegramError("Chat[%d]: Failed to send message: %v", chatID, err)
	}
}

// sendContinuousTypingAction sends the typing action periodically until the done channel is closed
func (b *Bot) sendContinuousTypingAction(ctx context.Context, chatID int64, done chan struct{}) {
	ticker := time.NewTicker(4 * time.Second) // Telegram typing status lasts ~5 seconds
	defer ticker.Stop()

	b.sender.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			b.sender.SendChatAction(ctx, &bot.SendChatActionParams{
				ChatID: chatID,
				Action: models.ChatActionTyping,
			})
		case <-ctx.Done():
			logger.TelegramDebug("Chat[%d]: Context cancelled, stopping typing action.", chatID)
			return
		}
	}
}
