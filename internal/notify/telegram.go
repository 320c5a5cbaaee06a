// Package notify delivers alerts and receives watch-list commands through
// the Telegram Bot API.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"llm-scanner-bot/internal/api"
	"llm-scanner-bot/internal/interfaces"
	"llm-scanner-bot/internal/logger"
	"llm-scanner-bot/internal/types"
)

// Command is one instruction received from the chat, e.g. /track TCS INFY.
type Command struct {
	Name string
	Args []string
}

// Handler processes a command and returns the reply text, or "" for silence.
type Handler func(ctx context.Context, cmd Command) string

// Telegram sends alerts to the configured chats and long-polls getUpdates
// for commands.
type Telegram struct {
	client  *api.Client
	token   string
	chatIDs []string
	poll    time.Duration
}

var _ interfaces.Notifier = (*Telegram)(nil)

func NewTelegram(token string, chatIDs []string, poll time.Duration) *Telegram {
	return &Telegram{
		// Timeout must exceed the long-poll window below.
		client:  api.NewClient(api.WithBaseURL("https://api.telegram.org"), api.WithTimeout(70*time.Second)),
		token:   token,
		chatIDs: chatIDs,
		poll:    poll,
	}
}

type tgResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

type tgUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type tgUpdates struct {
	OK     bool       `json:"ok"`
	Result []tgUpdate `json:"result"`
}

// Notify sends the message to every configured chat.
func (t *Telegram) Notify(ctx context.Context, msg string) error {
	var firstErr error
	for _, chatID := range t.chatIDs {
		if err := t.sendTo(ctx, chatID, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *Telegram) sendTo(ctx context.Context, chatID, msg string) error {
	body := map[string]any{
		"chat_id":                  chatID,
		"text":                     msg,
		"disable_web_page_preview": true,
	}
	resp, err := t.client.POST(ctx, "/bot"+t.token+"/sendMessage", body)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	var parsed tgResponse
	if err := resp.ParseJSON(&parsed); err != nil {
		return err
	}
	if !parsed.OK {
		return fmt.Errorf("telegram sendMessage rejected: %s", parsed.Description)
	}
	return nil
}

// Poll long-polls for updates until the context is cancelled, dispatching
// slash commands from authorized chats to the handler.
func (t *Telegram) Poll(ctx context.Context, handle Handler) {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := t.fetchUpdates(ctx, offset)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Warn(ctx, "Telegram poll failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(t.poll):
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			cmd, ok := t.parseCommand(u)
			if !ok {
				continue
			}
			logger.Info(ctx, "Telegram command received", "command", cmd.Name, "args", cmd.Args)
			if reply := handle(ctx, cmd); reply != "" {
				chatID := strconv.FormatInt(u.Message.Chat.ID, 10)
				if err := t.sendTo(ctx, chatID, reply); err != nil {
					logger.Warn(ctx, "Telegram reply failed", "error", err)
				}
			}
		}
	}
}

func (t *Telegram) fetchUpdates(ctx context.Context, offset int64) ([]tgUpdate, error) {
	url := fmt.Sprintf("/bot%s/getUpdates?timeout=50&offset=%d", t.token, offset)
	resp, err := t.client.GET(ctx, url)
	if err != nil {
		return nil, err
	}
	var parsed tgUpdates
	if err := resp.ParseJSON(&parsed); err != nil {
		return nil, err
	}
	if !parsed.OK {
		return nil, errors.New("telegram getUpdates rejected")
	}
	return parsed.Result, nil
}

// parseCommand extracts a slash command from an update. Messages from chats
// outside the configured set are dropped.
func (t *Telegram) parseCommand(u tgUpdate) (Command, bool) {
	text := strings.TrimSpace(u.Message.Text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}
	if !t.authorized(u.Message.Chat.ID) {
		return Command{}, false
	}

	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	// Group chats append the bot name: /track@my_bot.
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	return Command{Name: strings.ToLower(name), Args: fields[1:]}, true
}

func (t *Telegram) authorized(chatID int64) bool {
	if len(t.chatIDs) == 0 {
		return false
	}
	id := strconv.FormatInt(chatID, 10)
	for _, allowed := range t.chatIDs {
		if allowed == id {
			return true
		}
	}
	return false
}

// FormatResult renders one cycle result as an alert message.
func FormatResult(res *types.CycleResult) string {
	var b strings.Builder

	switch res.State {
	case types.StateExecuting:
		fmt.Fprintf(&b, "[%s] %s conf=%d entry=%.2f stop=%.2f qty=%d (%s)",
			res.Symbol, res.Decision.Action, res.Decision.Confidence,
			res.Intent.Entry, res.Intent.StopLoss, res.Intent.Qty, res.Intent.Mode)
		if res.OrderID != "" {
			fmt.Fprintf(&b, " order=%s", res.OrderID)
		}
	case types.StateSuppressed:
		fmt.Fprintf(&b, "[%s] %s conf=%d suppressed (%s)",
			res.Symbol, res.Decision.Action, res.Decision.Confidence, res.SuppressedBy)
	default:
		fmt.Fprintf(&b, "[%s] cycle failed at %s", res.Symbol, res.FailedAt)
	}

	if res.Decision.Reason != "" {
		fmt.Fprintf(&b, "\nreason: %s", res.Decision.Reason)
	}
	if res.Analysis != "" {
		b.WriteString("\n\n")
		b.WriteString(truncate(res.Analysis, 700))
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
