package bot

import (
	"context"
	"log"

	"github.com/JillVernus/tc-relay/internal/coalesce"
	"github.com/JillVernus/tc-relay/internal/config"
	"github.com/JillVernus/tc-relay/internal/history"
	"github.com/JillVernus/tc-relay/internal/providers"
)

// handleChat runs the full per-message flow: quota check, history append,
// streamed model call with coalesced edits, final history append.
func (h *Handler) handleChat(ctx context.Context, chatID, userID int64, username, text string) {
	h.tg.SendChatAction(chatID, "typing")

	decision, err := h.limiter.CheckAndConsume(userID, h.isAdmin(username))
	if err != nil {
		log.Printf("🚨 [Bot] Rate limit check failed: chat=%d user=%d err=%v", chatID, userID, err)
		h.reply(chatID, replyApology)
		return
	}
	if !decision.Allowed {
		// 拒绝是正常结果，不是错误：原因原样回给用户
		log.Printf("⛔ [Bot] Request denied: chat=%d user=%d scope=%s", chatID, userID, decision.Scope)
		h.reply(chatID, decision.Reason)
		return
	}

	if err := h.history.Append(chatID, userID, history.Turn{Role: "user", Content: text}); err != nil {
		log.Printf("🚨 [Bot] Failed to append user turn: chat=%d user=%d err=%v", chatID, userID, err)
		h.reply(chatID, replyApology)
		return
	}

	provider := h.modelPref(userID)
	mc, ok := config.GetModel(provider)
	if !ok {
		mc, _ = config.GetModel(h.cfg.DefaultProvider)
	}

	turns, err := h.history.Read(chatID, userID)
	if err != nil {
		log.Printf("🚨 [Bot] Failed to read history: chat=%d user=%d err=%v", chatID, userID, err)
		h.reply(chatID, replyApology)
		return
	}

	messages := make([]providers.Message, 0, len(turns)+1)
	messages = append(messages, providers.Message{Role: "system", Content: h.systemPrompt})
	for _, t := range turns {
		messages = append(messages, providers.Message{Role: t.Role, Content: t.Content})
	}

	placeholderID, err := h.tg.SendMessage(chatID, replyThinking)
	if err != nil {
		// 用户可见通道本身不可用，只能记录
		log.Printf("⚠️ [Bot] Failed to send placeholder: chat=%d err=%v", chatID, err)
		return
	}

	co := coalesce.New(h.tg, chatID)
	co.Start(placeholderID)

	log.Printf("🤖 [Bot] Calling model: chat=%d user=%d provider=%s model=%s history=%d",
		chatID, userID, mc.Provider, mc.Model, len(turns))

	final, err := h.llm.Stream(ctx, mc, config.APIKeyFor(mc), messages, func(partial string) {
		if err := co.OnDelta(partial); err != nil {
			log.Printf("⚠️ [Bot] Failed to update reply: chat=%d err=%v", chatID, err)
		}
	})
	if err != nil {
		// 超时或上游错误：记录完整上下文，用户只看到统一的道歉。
		// 不写入助手回合 —— 历史保留"问了但没有答案"的状态。
		if providers.IsTimeout(err) {
			log.Printf("⏰ [Bot] Model call timed out: chat=%d user=%d provider=%s text=%q",
				chatID, userID, mc.Provider, truncateForLog(text))
		} else {
			log.Printf("🚨 [Bot] Model call failed: chat=%d user=%d provider=%s text=%q err=%v",
				chatID, userID, mc.Provider, truncateForLog(text), err)
		}
		h.reply(chatID, replyApology)
		return
	}

	if err := co.Flush(); err != nil {
		log.Printf("⚠️ [Bot] Failed to flush reply: chat=%d err=%v", chatID, err)
	}

	if final != "" {
		if err := h.history.Append(chatID, userID, history.Turn{Role: "assistant", Content: final}); err != nil {
			log.Printf("⚠️ [Bot] Failed to append assistant turn: chat=%d user=%d err=%v", chatID, userID, err)
		}
	}

	log.Printf("✅ [Bot] Reply complete: chat=%d user=%d provider=%s length=%d",
		chatID, userID, mc.Provider, len(final))
}
