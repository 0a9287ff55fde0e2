package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"omni-trending/internal/conversation"
	logging "omni-trending/internal/infra/log"
	"omni-trending/internal/market"
	"omni-trending/internal/trending"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message, command, args string) {
	chatID := msg.Chat.ID
	logging.LogInfo("Admin command",
		zap.String("command", command),
		zap.String("args", args),
		zap.Int64("admin_id", msg.From.ID))

	switch command {
	case "approve":
		userID, ok := b.parseUserArg(chatID, args, "/approve {userId}")
		if ok {
			b.handleApprove(ctx, chatID, userID)
		}
	case "reject":
		userID, ok := b.parseUserArg(chatID, args, "/reject {userId} [reason]")
		if ok {
			_, reason, _ := strings.Cut(args, " ")
			b.handleReject(ctx, chatID, userID, strings.TrimSpace(reason))
		}
	case "cancel":
		if args == "" {
			b.reply(chatID, "Usage: <code>/cancel {sessionId}</code>")
			return
		}
		if b.sessions.Cancel(args) {
			b.reply(chatID, fmt.Sprintf("🛑 Session <code>%s</code> is stopping.", html.EscapeString(args)))
		} else {
			b.reply(chatID, fmt.Sprintf("No active session <code>%s</code>.", html.EscapeString(args)))
		}
	case "sessions":
		b.handleSessions(chatID)
	case "pending":
		b.handlePending(chatID)
	}
}

func (b *Bot) parseUserArg(chatID int64, args, usage string) (int64, bool) {
	first, _, _ := strings.Cut(args, " ")
	userID, err := strconv.ParseInt(first, 10, 64)
	if err != nil || userID == 0 {
		b.reply(chatID, fmt.Sprintf("Usage: <code>%s</code>", html.EscapeString(usage)))
		return 0, false
	}
	return userID, true
}

func (b *Bot) handleApprove(ctx context.Context, chatID, userID int64) {
	us, err := b.states.Get(userID)
	if err != nil {
		logging.LogError("Failed to load user state", zap.Int64("user_id", userID), zap.Error(err))
		b.reply(chatID, genericErrorText)
		return
	}
	if us.State != conversation.StateAwaitingApproval {
		b.reply(chatID, fmt.Sprintf("User %d has no pending request.", userID))
		return
	}

	sessionID, err := b.sessions.Activate(ctx, trending.ActivationRequest{
		UserID:          userID,
		Network:         us.Network,
		ContractAddress: us.ContractAddress,
		DurationLabel:   us.Package,
	})
	if err != nil {
		logging.LogError("Failed to activate trending session",
			zap.Int64("user_id", userID),
			zap.String("contract", us.ContractAddress),
			zap.Error(err))
		b.reply(chatID, activationErrorText(userID, err))
		return
	}

	if _, err := b.states.Fire(userID, conversation.EventApproved, nil); err != nil {
		logging.LogError("Failed to close approved request", zap.Int64("user_id", userID), zap.Error(err))
	}

	symbol := us.Symbol
	if symbol == "" {
		symbol = FormatTokenAddress(us.ContractAddress)
	}
	notice := fmt.Sprintf("🎉 Your payment is confirmed. %s is now trending for %s. We'll post price alerts in the channel and message you when it ends.",
		symbol, us.Package)
	if err := b.notifier.NotifyUser(ctx, userID, notice); err != nil {
		logging.LogWarn("Failed to notify user about approval", zap.Int64("user_id", userID), zap.Error(err))
	}

	b.reply(chatID, fmt.Sprintf("✅ Session <code>%s</code> started for user %d (%s, %s).",
		html.EscapeString(sessionID), userID, html.EscapeString(symbol), html.EscapeString(us.Package)))
}

func activationErrorText(userID int64, err error) string {
	var mismatch *market.NetworkMismatchError
	switch {
	case errors.As(err, &mismatch):
		return fmt.Sprintf("⚠️ Not started: the token now trades on %s, not %s. Request for user %d is still pending; /reject it if needed.",
			market.NetworkName(mismatch.Resolved), market.NetworkName(mismatch.Declared), userID)
	case errors.Is(err, trending.ErrProviderUnavailable):
		return fmt.Sprintf("⏳ Not started: market data unavailable. Try /approve %d again later.", userID)
	case errors.Is(err, trending.ErrGateway):
		return "⚠️ Not started: the trending channel post failed. Check the bot's channel permissions."
	case errors.Is(err, trending.ErrShuttingDown):
		return "Not started: the bot is shutting down."
	}
	return fmt.Sprintf("Not started: %s", html.EscapeString(err.Error()))
}

func (b *Bot) handleReject(ctx context.Context, chatID, userID int64, reason string) {
	if _, err := b.states.Fire(userID, conversation.EventRejected, nil); err != nil {
		if errors.Is(err, conversation.ErrIllegalTransition) {
			b.reply(chatID, fmt.Sprintf("User %d has no pending request.", userID))
			return
		}
		logging.LogError("Failed to reject request", zap.Int64("user_id", userID), zap.Error(err))
		b.reply(chatID, genericErrorText)
		return
	}

	// A rejected request leaves nothing worth keeping for the user.
	if err := b.states.Delete(userID); err != nil {
		logging.LogWarn("Failed to purge rejected user state", zap.Int64("user_id", userID), zap.Error(err))
	}

	notice := "Your trending request was not approved."
	if reason != "" {
		notice += " Reason: " + reason
	}
	if b.cfg.Telegram.SupportLink != "" {
		notice += "\nQuestions? " + b.cfg.Telegram.SupportLink
	}
	if err := b.notifier.NotifyUser(ctx, userID, notice); err != nil {
		logging.LogWarn("Failed to notify user about rejection", zap.Int64("user_id", userID), zap.Error(err))
	}
	b.reply(chatID, fmt.Sprintf("Request from user %d rejected.", userID))
}

func (b *Bot) handleSessions(chatID int64) {
	sessions := b.sessions.List()
	if len(sessions) == 0 {
		b.reply(chatID, "No active sessions.")
		return
	}
	now := b.now()
	lines := make([]string, 0, len(sessions)+1)
	lines = append(lines, fmt.Sprintf("<b>Active sessions (%d)</b>", len(sessions)))
	for _, s := range sessions {
		lines = append(lines, FormatSessionLine(s, now))
	}
	b.reply(chatID, strings.Join(lines, "\n"))
}

func (b *Bot) handlePending(chatID int64) {
	pending, err := b.states.ListByState(conversation.StateAwaitingApproval)
	if err != nil {
		logging.LogError("Failed to list pending requests", zap.Error(err))
		b.reply(chatID, genericErrorText)
		return
	}
	if len(pending) == 0 {
		b.reply(chatID, "No pending requests.")
		return
	}

	lines := make([]string, 0, len(pending)+1)
	lines = append(lines, fmt.Sprintf("<b>Pending approval (%d)</b>", len(pending)))
	for _, us := range pending {
		who := strconv.FormatInt(us.UserID, 10)
		if us.Username != "" {
			who += " @" + us.Username
		}
		lines = append(lines, fmt.Sprintf("• <code>%d</code> %s: %s on %s, %s via %s, since %s",
			us.UserID, html.EscapeString(who), tokenTitle(us.Symbol, ""), market.NetworkName(us.Network),
			html.EscapeString(us.Package), paymentNames[us.PaymentMethod], us.UpdatedAt.Format("Jan 2 15:04 MST")))
	}
	if known, err := b.states.Count(); err == nil {
		lines = append(lines, fmt.Sprintf("<i>%d users in conversation</i>", known))
	}
	b.reply(chatID, strings.Join(lines, "\n"))
}
