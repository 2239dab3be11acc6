package config

import (
	"os"
	"strconv"
	"strings"
)

// EnvConfig 环境变量配置
type EnvConfig struct {
	Port          int
	Env           string
	BotToken      string
	WebhookSecret string
	// Telegram Bot API 基础地址（可替换为本地 bot-api-server）
	TelegramAPIBase string
	// 默认使用的模型提供商
	DefaultProvider string
	// 初始管理员用户名列表（逗号分隔）
	AdminSeed []string
	// 系统提示词文件路径，为空时使用内置提示词
	SystemPromptFile string
	// KV 存储（SQLite）路径
	StorePath string
	// 频率限制配置文件路径
	RateLimitFile string
	// 模型流式请求的硬超时（秒）
	StreamTimeout int
	// Telegram API 请求超时（毫秒）
	TransportTimeout int
	// 日志文件相关配置
	LogDir        string
	LogFile       string
	LogMaxSize    int  // 单个日志文件最大大小 (MB)
	LogMaxBackups int  // 保留的旧日志文件最大数量
	LogMaxAge     int  // 保留的旧日志文件最大天数
	LogCompress   bool // 是否压缩旧日志文件
	LogToConsole  bool // 是否同时输出到控制台
}

// NewEnvConfig 创建环境配置
func NewEnvConfig() *EnvConfig {
	env := getEnv("ENV", "")
	if env == "" {
		env = getEnv("NODE_ENV", "development")
	}

	return &EnvConfig{
		Port:             getEnvAsInt("PORT", 3000),
		Env:              env,
		BotToken:         getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookSecret:    getEnv("WEBHOOK_SECRET", ""),
		TelegramAPIBase:  getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"),
		DefaultProvider:  getEnv("DEFAULT_PROVIDER", "grok"),
		AdminSeed:        splitCSV(getEnv("ADMIN_USERS", "")),
		SystemPromptFile: getEnv("SYSTEM_PROMPT_FILE", ""),
		StorePath:        getEnv("STORE_PATH", ".config/tc-relay.db"),
		RateLimitFile:    getEnv("RATE_LIMIT_FILE", ".config/ratelimit.json"),
		StreamTimeout:    getEnvAsInt("STREAM_TIMEOUT", 120),
		TransportTimeout: getEnvAsInt("TRANSPORT_TIMEOUT", 15000),
		// 日志文件配置
		LogDir:        getEnv("LOG_DIR", "logs"),
		LogFile:       getEnv("LOG_FILE", "app.log"),
		LogMaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 10),
		LogMaxAge:     getEnvAsInt("LOG_MAX_AGE", 30),
		LogCompress:   getEnv("LOG_COMPRESS", "true") != "false",
		LogToConsole:  getEnv("LOG_TO_CONSOLE", "true") != "false",
	}
}

// IsDevelopment 是否为开发环境
func (c *EnvConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction 是否为生产环境
func (c *EnvConfig) IsProduction() bool {
	return c.Env == "production"
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt 获取环境变量并转换为整数
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.TrimPrefix(p, "@"))
		}
	}
	return out
}
