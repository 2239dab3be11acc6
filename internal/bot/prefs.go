package bot

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/JillVernus/tc-relay/internal/config"
)

// Admin set and per-user model preference are plain keyed lookups against
// the shared store; they are thin accessors, not components of their own.

const adminSetKey = "admins"

func modelPrefKey(userID int64) string {
	return fmt.Sprintf("prefs:user:%d:model", userID)
}

// isAdmin reports whether the user bypasses rate limit checks. The env seed
// list covers bootstrap; the store set covers grants made at runtime.
func (h *Handler) isAdmin(username string) bool {
	if username == "" {
		return false
	}
	for _, seed := range h.cfg.AdminSeed {
		if strings.EqualFold(seed, username) {
			return true
		}
	}
	for _, name := range h.readAdminSet() {
		if strings.EqualFold(name, username) {
			return true
		}
	}
	return false
}

// grantAdmin adds a username to the persisted admin set. Idempotent.
func (h *Handler) grantAdmin(username string) error {
	admins := h.readAdminSet()
	for _, name := range admins {
		if strings.EqualFold(name, username) {
			return nil
		}
	}
	admins = append(admins, username)

	data, err := json.Marshal(admins)
	if err != nil {
		return err
	}
	// 管理员名单永不过期
	return h.store.Put(adminSetKey, string(data), 0)
}

func (h *Handler) readAdminSet() []string {
	value, ok, err := h.store.Get(adminSetKey)
	if err != nil {
		log.Printf("⚠️ [Bot] Failed to read admin set: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	var admins []string
	if err := json.Unmarshal([]byte(value), &admins); err != nil {
		log.Printf("⚠️ [Bot] Corrupt admin set: %v", err)
		return nil
	}
	return admins
}

// modelPref returns the user's preferred provider, falling back to the
// configured default.
func (h *Handler) modelPref(userID int64) string {
	value, ok, err := h.store.Get(modelPrefKey(userID))
	if err != nil {
		log.Printf("⚠️ [Bot] Failed to read model preference: user=%d err=%v", userID, err)
	}
	if !ok || value == "" {
		return h.cfg.DefaultProvider
	}
	return value
}

// setModelPref validates and persists the user's provider choice
func (h *Handler) setModelPref(userID int64, provider string) (config.ModelConfig, bool) {
	mc, ok := config.GetModel(provider)
	if !ok {
		return config.ModelConfig{}, false
	}
	if err := h.store.Put(modelPrefKey(userID), mc.Provider, 0); err != nil {
		log.Printf("⚠️ [Bot] Failed to save model preference: user=%d err=%v", userID, err)
	}
	return mc, true
}

func (h *Handler) modelListText(userID int64) string {
	pref := h.modelPref(userID)

	var b strings.Builder
	b.WriteString("🤖 可用模型\n\n")
	for _, name := range config.ModelNames() {
		b.WriteString("- " + name)
		if name == h.cfg.DefaultProvider {
			b.WriteString(" (默认)")
		}
		if name == pref {
			b.WriteString(" (✓ 您的选择)")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n要选择模型，请使用命令: /model [模型名称]\n例如: /model grok")
	return b.String()
}
