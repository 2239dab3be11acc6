package config

import (
	"log"
	"os"
	"sort"
	"strings"
)

// ModelConfig 单个模型提供商的调用参数
type ModelConfig struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Endpoint    string  `json:"endpoint"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	// 读取 API Key 的环境变量名
	KeyEnv string `json:"key_env"`
}

// models 内置的提供商注册表。端点都是 OpenAI 兼容的 chat/completions。
var models = map[string]ModelConfig{
	"openai": {
		Provider:    "openai",
		Model:       "gpt-4o",
		Endpoint:    "https://api.openai.com/v1/chat/completions",
		Temperature: 0.5,
		MaxTokens:   4096,
		KeyEnv:      "OPENAI_API_KEY",
	},
	"grok": {
		Provider:    "grok",
		Model:       "grok-3-latest",
		Endpoint:    "https://api.x.ai/v1/chat/completions",
		Temperature: 0.5,
		MaxTokens:   4096,
		KeyEnv:      "XAI_API_KEY",
	},
}

// GetModel 按提供商名查找模型配置
func GetModel(provider string) (ModelConfig, bool) {
	mc, ok := models[strings.ToLower(strings.TrimSpace(provider))]
	return mc, ok
}

// ModelNames 返回已注册的提供商名（排序后）
func ModelNames() []string {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// APIKeyFor 从环境变量读取指定提供商的 API Key
func APIKeyFor(mc ModelConfig) string {
	return os.Getenv(mc.KeyEnv)
}

// defaultSystemPrompt 内置系统提示词，可被 SYSTEM_PROMPT_FILE 覆盖
const defaultSystemPrompt = `你是TransColors助手，为所有追求自我定义、挑战既定命运的人提供支持和信息。你涵盖医学知识、心理健康、身体自主、社会适应、地理流动、职业发展和法律权益等领域。

回答时保持开放、尊重和专业，不预设任何人的身份或选择。承认每个人的经历和需求都是独特的，避免给出一刀切的建议。提供信息时注明这些仅供参考，关键决策应结合个人情况和专业咨询。`

// LoadSystemPrompt 加载系统提示词
func LoadSystemPrompt(path string) string {
	if path == "" {
		return defaultSystemPrompt
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("⚠️ 读取系统提示词文件失败，使用内置提示词: %v", err)
		return defaultSystemPrompt
	}
	return strings.TrimSpace(string(data))
}
