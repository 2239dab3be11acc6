package main

import (
	"fmt"
	"log"
	"time"

	"github.com/JillVernus/tc-relay/internal/bot"
	"github.com/JillVernus/tc-relay/internal/config"
	"github.com/JillVernus/tc-relay/internal/history"
	"github.com/JillVernus/tc-relay/internal/logger"
	"github.com/JillVernus/tc-relay/internal/providers"
	"github.com/JillVernus/tc-relay/internal/ratelimit"
	"github.com/JillVernus/tc-relay/internal/store"
	"github.com/JillVernus/tc-relay/internal/telegram"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("没有找到 .env 文件，使用环境变量或默认值")
	}

	envCfg := config.NewEnvConfig()

	// 🔒 安全检查：缺少关键配置直接退出，避免半配置状态上线
	if envCfg.BotToken == "" {
		log.Fatal("🚨 安全错误: 未设置 TELEGRAM_BOT_TOKEN")
	}
	if len(envCfg.WebhookSecret) < 16 {
		log.Fatal("🚨 安全错误: WEBHOOK_SECRET 必须至少16个字符（webhook 路径就是访问凭证）")
	}

	// 初始化日志系统（必须在其他初始化之前）
	logCfg := &logger.Config{
		LogDir:     envCfg.LogDir,
		LogFile:    envCfg.LogFile,
		MaxSize:    envCfg.LogMaxSize,
		MaxBackups: envCfg.LogMaxBackups,
		MaxAge:     envCfg.LogMaxAge,
		Compress:   envCfg.LogCompress,
		Console:    envCfg.LogToConsole,
	}
	if err := logger.Setup(logCfg); err != nil {
		log.Fatalf("初始化日志系统失败: %v", err)
	}

	// 初始化 KV 存储
	kv, err := store.NewSQLite(envCfg.StorePath)
	if err != nil {
		log.Fatalf("初始化存储失败: %v", err)
	}
	defer kv.Close()

	// 初始化频率限制（配置文件支持热更新）
	rlConfig, err := ratelimit.NewConfigManager(envCfg.RateLimitFile)
	if err != nil {
		log.Fatalf("初始化频率限制配置失败: %v", err)
	}
	defer rlConfig.Close()
	limiter := ratelimit.NewLimiter(kv, rlConfig)
	log.Printf("✅ 频率限制已初始化")

	hist := history.NewManager(kv)

	tg := telegram.NewClient(envCfg.TelegramAPIBase, envCfg.BotToken,
		time.Duration(envCfg.TransportTimeout)*time.Millisecond)

	llm := providers.NewStreamClient(time.Duration(envCfg.StreamTimeout) * time.Second)
	log.Printf("✅ 模型客户端已初始化 (默认提供商: %s, 超时: %ds)", envCfg.DefaultProvider, envCfg.StreamTimeout)

	handler := bot.NewHandler(envCfg, kv, limiter, hist, tg, llm)

	// HTTP 路由
	if envCfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	// webhook 路径携带密钥，路径即凭证
	r.POST("/webhook/"+envCfg.WebhookSecret, handler.Webhook)

	log.Printf("🚀 tc-relay 启动，监听端口 %d", envCfg.Port)
	if err := r.Run(fmt.Sprintf(":%d", envCfg.Port)); err != nil {
		log.Fatalf("服务启动失败: %v", err)
	}
}
