package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vape-market/internal/ad"

	"go.uber.org/zap"
	"golang.org/x/net/context/ctxhttp"
)

const (
	DefaultAPIURL  = "https://api.telegram.org"
	defaultTimeout = 10 * time.Second
)

// Notifier сообщает администратору о новых объявлениях
type Notifier interface {
	NotifyNewAd(ctx context.Context, a ad.Ad) error
}

// TelegramNotifier шлет сообщения через Bot API sendMessage.
// Токен и чат приходят из окружения.
type TelegramNotifier struct {
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
	apiURL     string
	token      string
	chatID     int64
}

func NewTelegramNotifier(apiURL, token string, chatID int64, logger *zap.SugaredLogger) *TelegramNotifier {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	return &TelegramNotifier{
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		Logger:     logger,
		apiURL:     strings.TrimRight(apiURL, "/"),
		token:      token,
		chatID:     chatID,
	}
}

type sendMessageRequest struct {
	ChatID              int64  `json:"chat_id"`
	Text                string `json:"text"`
	DisableNotification bool   `json:"disable_notification"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (n *TelegramNotifier) NotifyNewAd(ctx context.Context, a ad.Ad) error {
	return n.send(ctx, FormatNewAd(a))
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: n.chatID, Text: text})
	if err != nil {
		return err
	}

	// адрес содержит токен, поэтому в ошибки и логи он не попадает
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiURL, n.token)
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram sendMessage: build request failed")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ctxhttp.Do(ctx, n.HTTPClient, req)
	if err != nil {
		n.Logger.Errorw("Failed to send Telegram message", "chatID", n.chatID)
		return fmt.Errorf("telegram sendMessage: request failed: %w", stripURL(err))
	}
	defer resp.Body.Close()

	var body sendMessageResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode != http.StatusOK || !body.OK {
		n.Logger.Errorw("Telegram API rejected message", "status", resp.StatusCode, "description", body.Description)
		return fmt.Errorf("telegram sendMessage: status %d: %s", resp.StatusCode, body.Description)
	}

	return nil
}

func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}

	return err
}

// FormatNewAd - текст уведомления о новом объявлении
func FormatNewAd(a ad.Ad) string {
	seller := a.SellerName
	if seller == "" {
		seller = "anonymous"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📢 New ad!\nFrom: %s (ID: %s)\n", seller, a.SellerID)
	fmt.Fprintf(&b, "Title: %s\n", a.Title)
	fmt.Fprintf(&b, "Price: %.2f\nCategory: %s", a.Price, a.Category)
	if a.Description != "" {
		fmt.Fprintf(&b, "\n%s", a.Description)
	}

	return b.String()
}

// NopNotifier используется, когда токен или чат не заданы
type NopNotifier struct{}

func (NopNotifier) NotifyNewAd(context.Context, ad.Ad) error { return nil }
