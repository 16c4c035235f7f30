package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"gopkg.in/gomail.v2"

	"medrefBack/internal/models"
)

// ChannelSender routes code delivery to the transport matching the agent's
// verified channel. It satisfies the signing protocol's Sender interface.
type ChannelSender struct {
	Telegram *TelegramSender
	Email    *EmailSender
}

func (s *ChannelSender) Send(_ context.Context, channel models.OTPChannel, destination, code string) error {
	switch channel {
	case models.ChannelTelegram:
		if s.Telegram == nil {
			return fmt.Errorf("telegram delivery is not configured")
		}
		return s.Telegram.Send(destination, code)
	case models.ChannelEmail:
		if s.Email == nil {
			return fmt.Errorf("email delivery is not configured")
		}
		return s.Email.Send(destination, code)
	default:
		return fmt.Errorf("unsupported signing channel %q", channel)
	}
}

// TelegramSender delivers signing codes through the Telegram bot API. The
// destination is the agent's verified chat id.
type TelegramSender struct {
	BotToken string
}

func (s *TelegramSender) Send(destination, code string) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.BotToken)
	data := url.Values{
		"chat_id": {destination},
		"text":    {fmt.Sprintf("Код подписания акта: %s. Никому не сообщайте его.", code)},
	}
	resp, err := http.PostForm(endpoint, data)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram send: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// EmailSender delivers signing codes over SMTP.
type EmailSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s *EmailSender) Send(destination, code string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", destination)
	m.SetHeader("Subject", "Код подписания акта")
	m.SetBody("text/plain", fmt.Sprintf("Ваш код подписания: %s\nКод действует 5 минут.", code))

	d := gomail.NewDialer(s.Host, s.Port, s.Username, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("email send: %w", err)
	}
	return nil
}
