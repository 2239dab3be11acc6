// setwebhook registers (or removes) the bot's webhook with the Telegram
// Bot API.
//
// Usage:
//
//	go run ./cmd/setwebhook -base https://example.com
//	go run ./cmd/setwebhook -delete
//
// The webhook URL becomes <base>/webhook/<WEBHOOK_SECRET>.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func main() {
	base := flag.String("base", "", "public base URL of the deployed service")
	remove := flag.Bool("delete", false, "delete the registered webhook instead")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("没有找到 .env 文件，使用环境变量")
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	secret := os.Getenv("WEBHOOK_SECRET")
	apiBase := os.Getenv("TELEGRAM_API_BASE")
	if apiBase == "" {
		apiBase = "https://api.telegram.org"
	}
	if token == "" {
		log.Fatal("🚨 未设置 TELEGRAM_BOT_TOKEN")
	}

	if *remove {
		call(apiBase, token, "deleteWebhook", "{}")
		log.Println("✅ Webhook 已删除")
		return
	}

	if *base == "" || secret == "" {
		log.Fatal("🚨 需要 -base 参数和 WEBHOOK_SECRET 环境变量")
	}

	url := strings.TrimSuffix(*base, "/") + "/webhook/" + secret
	payload, _ := sjson.Set("{}", "url", url)
	call(apiBase, token, "setWebhook", payload)
	log.Printf("✅ Webhook 已注册: %s", url)
}

func call(apiBase, token, method, payload string) {
	resp, err := http.Post(
		fmt.Sprintf("%s/bot%s/%s", strings.TrimSuffix(apiBase, "/"), token, method),
		"application/json",
		strings.NewReader(payload),
	)
	if err != nil {
		log.Fatalf("🚨 %s 请求失败: %v", method, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !gjson.GetBytes(body, "ok").Bool() {
		log.Fatalf("🚨 %s 被拒绝: %s", method, gjson.GetBytes(body, "description").String())
	}
}
