package bot

import (
	"fmt"
	"log"
	"strings"
)

const welcomeText = `👋 欢迎使用 TransColors LLM！

我是为追求自我定义与突破既定命运的人设计的助手。提供医疗知识、心理支持、身份探索、生活适应、移民信息、职业发展和法律权益等多方面支持。所有信息仅供参考，重要决策请咨询专业人士。`

// handleCommand dispatches slash commands. Commands are not rate limited.
func (h *Handler) handleCommand(chatID, userID int64, username, text string) {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	// 支持群聊中的 /cmd@botname 形式
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch cmd {
	case "/start":
		h.reply(chatID, welcomeText)

	case "/help":
		h.cmdHelp(chatID)

	case "/quota":
		h.cmdQuota(chatID, userID)

	case "/model":
		h.cmdModel(chatID, userID, arg)

	case "/clear":
		h.cmdClear(chatID, userID)

	case "/grant":
		h.cmdGrant(chatID, username, arg)
	}
}

func (h *Handler) cmdHelp(chatID int64) {
	limits := h.limiter.Limits()
	h.reply(chatID, fmt.Sprintf(`🌈 TransColors LLM 使用指南

可用命令:
/start - 开始对话
/help - 显示此帮助信息
/quota - 查看您的使用额度
/model - 选择使用的模型
/clear - 清除当前对话记录

您可以直接向我提问，我会尽力提供准确、有用的信息。

使用限制:
- 每人每日最多%d次请求
- 每分钟最多%d次请求

备注：所有信息仅供参考，重要决策请咨询专业人士。`, limits.RequestsPerUser, limits.RequestsPerMinute))
}

func (h *Handler) cmdQuota(chatID, userID int64) {
	status, err := h.limiter.Status(userID)
	if err != nil {
		log.Printf("⚠️ [Bot] Failed to read quota status: user=%d err=%v", userID, err)
		h.reply(chatID, replyApology)
		return
	}
	h.reply(chatID, fmt.Sprintf(`📊 使用额度统计

今日已使用: %d次
剩余额度: %d次
每日上限: %d次

每分钟最多可发送%d次请求。`,
		status.DailyUsed, status.DailyRemaining, status.DailyLimit, status.MinuteLimit))
}

func (h *Handler) cmdModel(chatID, userID int64, arg string) {
	arg = strings.ToLower(arg)

	if arg != "" {
		mc, ok := h.setModelPref(userID, arg)
		if !ok {
			h.reply(chatID, fmt.Sprintf("❌ 未知的模型: %s\n使用 /model 查看可用模型列表。", arg))
			return
		}
		h.reply(chatID, fmt.Sprintf(`✅ 您的默认模型已设置为: %s

当前模型参数:
- temperature(越低越理性, 越高越感性): %.1f
- 最大令牌数: %d`, arg, mc.Temperature, mc.MaxTokens))
		return
	}

	h.reply(chatID, h.modelListText(userID))
}

func (h *Handler) cmdClear(chatID, userID int64) {
	if err := h.history.Clear(chatID, userID); err != nil {
		log.Printf("⚠️ [Bot] Failed to clear history: chat=%d user=%d err=%v", chatID, userID, err)
		h.reply(chatID, replyApology)
		return
	}
	h.reply(chatID, "🗑️ 对话记录已清除，我们可以重新开始。")
}

func (h *Handler) cmdGrant(chatID int64, username, arg string) {
	if !h.isAdmin(username) {
		// 非管理员静默忽略，不暴露命令的存在
		return
	}
	target := strings.TrimPrefix(arg, "@")
	if target == "" {
		h.reply(chatID, "用法: /grant <用户名>")
		return
	}
	if err := h.grantAdmin(target); err != nil {
		log.Printf("⚠️ [Bot] Failed to grant admin to %s: %v", target, err)
		h.reply(chatID, replyApology)
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ 已将 @%s 加入管理员列表。", target))
}
