// Package bot wires the webhook surface to the core: rate limiting,
// conversation history, the model stream and the coalesced reply edits.
package bot

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/JillVernus/tc-relay/internal/config"
	"github.com/JillVernus/tc-relay/internal/history"
	"github.com/JillVernus/tc-relay/internal/providers"
	"github.com/JillVernus/tc-relay/internal/ratelimit"
	"github.com/JillVernus/tc-relay/internal/store"
	"github.com/JillVernus/tc-relay/internal/telegram"
	"github.com/gin-gonic/gin"
)

// Transport is the messaging gateway surface the bot depends on
type Transport interface {
	SendMessage(chatID int64, text string) (int64, error)
	EditMessageText(chatID, messageID int64, text string) error
	SendChatAction(chatID int64, action string)
	GetMe() (string, error)
}

// Streamer opens one streaming model call
type Streamer interface {
	Stream(ctx context.Context, mc config.ModelConfig, apiKey string, messages []providers.Message, onDelta func(string)) (string, error)
}

// 用户可见的固定文案
const (
	replyMediaOnly = "抱歉，我目前只能处理文字消息。请发送文字内容与我交流。"
	replyApology   = "抱歉，处理您的请求时发生错误，请稍后再试。"
	replyThinking  = "🤔 思考中..."
)

// Handler processes webhook updates
type Handler struct {
	cfg     *config.EnvConfig
	store   store.Store
	limiter *ratelimit.Limiter
	history *history.Manager
	tg      Transport
	llm     Streamer

	systemPrompt string

	mu          sync.Mutex
	botUsername string
}

// NewHandler assembles the bot
func NewHandler(cfg *config.EnvConfig, st store.Store, limiter *ratelimit.Limiter, hist *history.Manager, tg Transport, llm Streamer) *Handler {
	return &Handler{
		cfg:          cfg,
		store:        st,
		limiter:      limiter,
		history:      hist,
		tg:           tg,
		llm:          llm,
		systemPrompt: config.LoadSystemPrompt(cfg.SystemPromptFile),
	}
}

// Webhook handles one Bot API update. Telegram only needs a 200 to stop
// redelivering, so every path acknowledges; user-visible outcomes travel
// through the transport, never the webhook response.
func (h *Handler) Webhook(c *gin.Context) {
	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		log.Printf("⚠️ [Bot] Failed to parse update: %v", err)
		c.String(http.StatusOK, "OK")
		return
	}

	if update.Message == nil || update.Message.From == nil {
		c.String(http.StatusOK, "OK")
		return
	}
	h.dispatch(update.Message)
	c.String(http.StatusOK, "OK")
}

// dispatch routes one inbound message
func (h *Handler) dispatch(msg *telegram.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	username := msg.From.Username
	text := msg.Text

	if text == "" && msg.HasMedia() {
		h.reply(chatID, replyMediaOnly)
		return
	}
	if text == "" {
		return
	}

	log.Printf("💬 [Bot] Message received: chat=%d user=%d(%s) text=%q", chatID, userID, username, truncateForLog(text))

	// 命令不受频率限制
	if strings.HasPrefix(text, "/") {
		h.handleCommand(chatID, userID, username, text)
		return
	}

	// 群聊中只响应 @机器人 或回复机器人的消息
	if !msg.Chat.IsPrivate() {
		clean, addressed := h.addressedText(msg)
		if !addressed {
			return
		}
		text = clean
	}

	h.handleChat(context.Background(), chatID, userID, username, text)
}

// addressedText decides whether a group message targets the bot, and strips
// the @mention when it does.
func (h *Handler) addressedText(msg *telegram.Message) (string, bool) {
	botName := h.selfUsername()
	if botName == "" {
		return "", false
	}

	mention := "@" + botName
	tagged := strings.Contains(msg.Text, mention)
	replied := msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil &&
		msg.ReplyToMessage.From.Username == botName
	if !tagged && !replied {
		return "", false
	}

	clean := strings.TrimSpace(strings.ReplaceAll(msg.Text, mention, ""))
	if clean == "" {
		clean = msg.Text
	}
	return clean, true
}

// selfUsername resolves and caches the bot's own handle
func (h *Handler) selfUsername() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.botUsername == "" {
		name, err := h.tg.GetMe()
		if err != nil {
			log.Printf("⚠️ [Bot] getMe failed: %v", err)
			return ""
		}
		h.botUsername = name
	}
	return h.botUsername
}

// reply sends a plain response; transport failures are logged only, since
// the user-facing channel is itself the failing resource.
func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.tg.SendMessage(chatID, text); err != nil {
		log.Printf("⚠️ [Bot] Failed to send message to chat %d: %v", chatID, err)
	}
}

func truncateForLog(s string) string {
	runes := []rune(s)
	if len(runes) <= 100 {
		return s
	}
	return string(runes[:100])
}
