// Package telegram is the bot's front end: the trending.Gateway that posts to the
// public channel and the update handler that drives the user conversation.
package telegram

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"time"

	logging "omni-trending/internal/infra/log"
	"omni-trending/internal/trending"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sender is the part of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// CardRenderer turns a logo URL into the image attached to status posts.
type CardRenderer interface {
	Render(ctx context.Context, logoURL, title, subtitle string) ([]byte, error)
}

type GatewayOptions struct {
	ChannelID         int64
	OperatorChatID    int64 // 0 disables operator messages
	MessagesPerSecond float64
	Cards             CardRenderer // nil posts text only
	PinStatus         bool
}

// Gateway implements trending.Gateway over the Telegram Bot API.
type Gateway struct {
	sender  Sender
	opts    GatewayOptions
	limiter *rate.Limiter
	now     func() time.Time
}

var _ trending.Gateway = (*Gateway)(nil)

func NewGateway(sender Sender, opts GatewayOptions) *Gateway {
	if opts.MessagesPerSecond <= 0 {
		opts.MessagesPerSecond = 20
	}
	return &Gateway{
		sender:  sender,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), 5),
		now:     time.Now,
	}
}

// ParseChatID accepts numeric chat ids such as -1001234567890.
func ParseChatID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", raw, err)
	}
	return id, nil
}

func (g *Gateway) send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	return withContext(ctx, func() (tgbotapi.Message, error) {
		return g.sender.Send(c)
	})
}

func (g *Gateway) request(ctx context.Context, c tgbotapi.Chattable) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := withContext(ctx, func() (*tgbotapi.APIResponse, error) {
		return g.sender.Request(c)
	})
	return err
}

// withContext returns when call does or when ctx is done, whichever comes first.
// The Bot API client has no context support, so a stalled call is abandoned.
func withContext[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("telegram request abandoned: %w", ctx.Err())
	}
}

// PostPublic sends a status, alert or completion post to the trending channel.
// Status posts get the logo card when one can be rendered and are pinned.
func (g *Gateway) PostPublic(ctx context.Context, post trending.Post) (trending.MessageRef, error) {
	text := FormatPost(post, g.now())

	var (
		msg      tgbotapi.Message
		err      error
		hasImage bool
	)
	switch post.Kind {
	case trending.PostStatus:
		if card := g.renderCard(ctx, post.Session); card != nil {
			photo := tgbotapi.NewPhoto(g.opts.ChannelID, tgbotapi.FileBytes{Name: "trending.png", Bytes: card})
			photo.Caption = text
			photo.ParseMode = tgbotapi.ModeHTML
			msg, err = g.send(ctx, photo)
			hasImage = true
		} else {
			msg, err = g.send(ctx, g.textMessage(g.opts.ChannelID, text))
		}
	case trending.PostAlert:
		m := g.textMessage(g.opts.ChannelID, text)
		if id, convErr := strconv.Atoi(post.Session.Message.ID); convErr == nil {
			m.ReplyToMessageID = id
		}
		msg, err = g.send(ctx, m)
	default:
		msg, err = g.send(ctx, g.textMessage(g.opts.ChannelID, text))
	}
	if err != nil {
		return trending.MessageRef{}, fmt.Errorf("failed to send %s post: %w", post.Kind, err)
	}

	ref := trending.MessageRef{ID: strconv.Itoa(msg.MessageID), HasImage: hasImage}

	if post.Kind == trending.PostStatus && g.opts.PinStatus {
		pin := tgbotapi.PinChatMessageConfig{
			ChatID:              g.opts.ChannelID,
			MessageID:           msg.MessageID,
			DisableNotification: true,
		}
		if err := g.request(ctx, pin); err != nil {
			logging.LogWarn("Failed to pin trending post",
				zap.String("message_id", ref.ID),
				zap.Error(err))
		}
	}

	logging.LogDebug("Trending post sent",
		zap.String("kind", string(post.Kind)),
		zap.String("message_id", ref.ID),
		zap.Bool("has_image", hasImage))
	return ref, nil
}

func (g *Gateway) renderCard(ctx context.Context, s trending.Snapshot) []byte {
	if g.opts.Cards == nil || s.LogoURL == "" {
		return nil
	}
	title := "$" + s.Symbol
	card, err := g.opts.Cards.Render(ctx, s.LogoURL, title, "Trending on OmniTrending")
	if err != nil {
		logging.LogWarn("Failed to render logo card, posting text only",
			zap.String("logo_url", s.LogoURL),
			zap.Error(err))
		return nil
	}
	return card
}

func (g *Gateway) textMessage(chatID int64, text string) tgbotapi.MessageConfig {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeHTML
	m.DisableWebPagePreview = true
	return m
}

// EditPublic rewrites a status post in place.
func (g *Gateway) EditPublic(ctx context.Context, ref trending.MessageRef, post trending.Post) error {
	messageID, err := strconv.Atoi(ref.ID)
	if err != nil {
		return fmt.Errorf("invalid message id %q: %w", ref.ID, err)
	}
	text := FormatPost(post, g.now())

	var edit tgbotapi.Chattable
	if ref.HasImage {
		c := tgbotapi.NewEditMessageCaption(g.opts.ChannelID, messageID, text)
		c.ParseMode = tgbotapi.ModeHTML
		edit = c
	} else {
		t := tgbotapi.NewEditMessageText(g.opts.ChannelID, messageID, text)
		t.ParseMode = tgbotapi.ModeHTML
		t.DisableWebPagePreview = true
		edit = t
	}

	if err := g.request(ctx, edit); err != nil {
		if isNotModified(err) {
			return nil
		}
		return fmt.Errorf("failed to edit message %s: %w", ref.ID, err)
	}
	return nil
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

// NotifyUser sends plain text; callers pass raw token symbols.
func (g *Gateway) NotifyUser(ctx context.Context, userID int64, text string) error {
	if _, err := g.send(ctx, tgbotapi.NewMessage(userID, text)); err != nil {
		return fmt.Errorf("failed to notify user %d: %w", userID, err)
	}
	return nil
}

var severityIcons = map[trending.Severity]string{
	trending.SeverityInfo:  "ℹ️",
	trending.SeverityWarn:  "⚠️",
	trending.SeverityError: "🛑",
}

// NotifyOperators posts to the operator chat; fields are listed in key order.
func (g *Gateway) NotifyOperators(ctx context.Context, severity trending.Severity, text string, fields map[string]string) error {
	if g.opts.OperatorChatID == 0 {
		logging.LogDebug("Operator chat not configured, dropping notice", zap.String("text", text))
		return nil
	}
	if _, err := g.send(ctx, g.textMessage(g.opts.OperatorChatID, FormatOperatorNotice(severity, text, fields))); err != nil {
		return fmt.Errorf("failed to notify operators: %w", err)
	}
	return nil
}

func FormatOperatorNotice(severity trending.Severity, text string, fields map[string]string) string {
	icon, ok := severityIcons[severity]
	if !ok {
		icon = severityIcons[trending.SeverityInfo]
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(text)))
	if len(fields) == 0 {
		return b.String()
	}

	keys := lo.Keys(fields)
	sort.Strings(keys)

	b.WriteString("\n<blockquote>")
	for i, k := range keys {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("<b>%s</b>: %s", html.EscapeString(k), html.EscapeString(fields[k])))
	}
	b.WriteString("</blockquote>")
	return b.String()
}
