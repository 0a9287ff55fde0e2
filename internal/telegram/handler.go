package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"omni-trending/internal/conversation"
	"omni-trending/internal/infra/config"
	logging "omni-trending/internal/infra/log"
	"omni-trending/internal/market"
	"omni-trending/internal/risk"
	"omni-trending/internal/trending"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// NetworkChecker validates the network a user picked against where the address actually trades.
type NetworkChecker interface {
	Check(ctx context.Context, declared, address string) (string, error)
}

// SessionController is the part of *trending.Manager the admin commands drive.
type SessionController interface {
	Activate(ctx context.Context, req trending.ActivationRequest) (string, error)
	Cancel(sessionID string) bool
	List() []trending.Snapshot
}

type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, text string) error
	NotifyOperators(ctx context.Context, severity trending.Severity, text string, fields map[string]string) error
}

type Deps struct {
	Sender   Sender
	States   *conversation.Store
	Checker  NetworkChecker
	Fetcher  trending.Fetcher
	Sessions SessionController
	Notifier Notifier
	Config   *config.Config
}

// Bot handles updates one at a time, so it is the only writer of conversation state.
type Bot struct {
	sender        Sender
	states        *conversation.Store
	checker       NetworkChecker
	fetcher       trending.Fetcher
	sessions      SessionController
	notifier      Notifier
	cfg           *config.Config
	lookupTimeout time.Duration
	now           func() time.Time
}

func NewBot(d Deps) *Bot {
	timeout := time.Duration(d.Config.Providers.RequestTimeout) * time.Second * 2
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Bot{
		sender:        d.Sender,
		states:        d.States,
		checker:       d.Checker,
		fetcher:       d.Fetcher,
		sessions:      d.Sessions,
		notifier:      d.Notifier,
		cfg:           d.Config,
		lookupTimeout: timeout,
		now:           time.Now,
	}
}

// Run consumes updates until ctx is cancelled or the channel closes.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	logging.LogInfo("Starting update handler")
	for {
		select {
		case <-ctx.Done():
			logging.LogInfo("Update handler stopped")
			return
		case update, ok := <-updates:
			if !ok {
				logging.LogWarn("Update channel closed")
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogError("Panic while handling update",
				zap.Int("update_id", update.UpdateID),
				zap.Any("panic", r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	if !msg.IsCommand() {
		b.handleText(ctx, msg)
		return
	}

	command := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	logging.LogDebug("Received command",
		zap.String("command", command),
		zap.String("args", args),
		zap.Int64("user_id", msg.From.ID),
		zap.String("username", msg.From.UserName))

	switch command {
	case "start":
		b.handleStart(msg)
	case "help":
		b.reply(chatID, howItWorksText)
	case "approve", "reject", "cancel", "sessions", "pending":
		if !b.cfg.IsAdmin(msg.From.ID) {
			b.reply(chatID, "This command is for admins only.")
			return
		}
		b.handleAdminCommand(ctx, msg, command, args)
	default:
		b.reply(chatID, "Unknown command. Send /start to open the OmniTrending menu.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	_, err := b.states.Fire(msg.From.ID, conversation.EventReset, func(us *conversation.UserState) {
		us.Username = msg.From.UserName
	})
	if err != nil {
		b.transitionFailed(msg.Chat.ID, err)
		return
	}
	b.reply(msg.Chat.ID, welcomeText, StartKeyboard())
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	us, err := b.states.Get(userID)
	if err != nil {
		logging.LogError("Failed to load user state", zap.Int64("user_id", userID), zap.Error(err))
		b.reply(chatID, genericErrorText)
		return
	}
	if us.State != conversation.StateAwaitingAddress && us.State != conversation.StateTokenShown {
		b.reply(chatID, "Send /start to open the OmniTrending menu, or tap Start.")
		return
	}

	address := strings.TrimSpace(msg.Text)
	if !looksLikeAddress(address) {
		b.reply(chatID, "That does not look like a contract address. Paste the token CA, e.g. <code>0xabc123...</code> or a Solana mint.")
		return
	}

	b.reply(chatID, fmt.Sprintf("🔎 Looking up token on <b>%s</b> for CA:\n<code>%s</code>",
		networkLabel(us.Network), html.EscapeString(address)))

	lookupCtx, cancel := context.WithTimeout(ctx, b.lookupTimeout)
	defer cancel()

	network, pair, err := b.lookupToken(lookupCtx, us.Network, address)
	if err != nil {
		b.reply(chatID, lookupErrorText(lo.Ternary(network != "", network, us.Network), err), NetworkKeyboard())
		if !isUserError(err) {
			logging.LogWarn("Token lookup failed",
				zap.String("network", network),
				zap.String("address", address),
				zap.Error(err))
		}
		return
	}

	_, err = b.states.Fire(userID, conversation.EventSubmitAddress, func(us *conversation.UserState) {
		us.Network = network
		us.ContractAddress = address
		us.Symbol = pair.BaseSymbol
		us.Username = msg.From.UserName
	})
	if err != nil {
		b.transitionFailed(chatID, err)
		return
	}

	b.reply(chatID, FormatTokenOverview(pair, risk.Score(pair)), TokenActionKeyboard())
}

// lookupToken resolves the network and fetches the pair shown to the user.
// Coins still on the pump.fun bonding curve have no DEX pair, so a Solana
// address the checker cannot find is tried against the fetcher directly.
func (b *Bot) lookupToken(ctx context.Context, declared, address string) (string, *market.CanonicalPair, error) {
	network, err := b.checker.Check(ctx, declared, address)
	if errors.Is(err, market.ErrAddressNotFound) && b.maybeSolanaMint(declared, address) {
		pair, fetchErr := b.fetcher.Fetch(ctx, market.Solana, address)
		if fetchErr != nil || pair == nil {
			logging.LogDebug("Solana fallback lookup failed", zap.String("address", address), zap.Error(fetchErr))
			return "", nil, err
		}
		return market.Solana, pair, nil
	}
	if err != nil {
		return "", nil, err
	}

	pair, err := b.fetcher.Fetch(ctx, network, address)
	if err == nil && pair == nil {
		err = market.ErrNotFound
	}
	if err != nil {
		return network, nil, err
	}
	return network, pair, nil
}

func (b *Bot) maybeSolanaMint(declared, address string) bool {
	switch declared {
	case market.Solana:
		return true
	case market.AutoDetect, "":
		return !strings.HasPrefix(strings.ToLower(address), "0x") &&
			lo.Contains(b.cfg.Trending.SupportedNetworks, market.Solana)
	}
	return false
}

// looksLikeAddress accepts EVM hex addresses and base58 mints without checking checksums.
func looksLikeAddress(s string) bool {
	if len(s) < 26 || len(s) > 66 || strings.ContainsAny(s, " \t\n") {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

func isUserError(err error) bool {
	return errors.Is(err, market.ErrNetworkMismatch) ||
		errors.Is(err, market.ErrAddressNotFound) ||
		errors.Is(err, market.ErrUnsupportedChain) ||
		errors.Is(err, market.ErrNotFound)
}

func lookupErrorText(declared string, err error) string {
	var mismatch *market.NetworkMismatchError
	switch {
	case errors.As(err, &mismatch):
		return fmt.Sprintf("⚠️ This contract trades on <b>%s</b>, not %s. Pick %s from the network list and send the address again.",
			market.NetworkName(mismatch.Resolved), networkLabel(market.NormalizeNetwork(mismatch.Declared)), market.NetworkName(mismatch.Resolved))
	case errors.Is(err, market.ErrAddressNotFound):
		return "❌ No trading pairs found for this address on any network. Check the CA and try again."
	case errors.Is(err, market.ErrUnsupportedChain):
		return "⚠️ This token trades on a network we do not support yet."
	case errors.Is(err, market.ErrNotFound):
		return fmt.Sprintf("❌ No market data for this address on %s.", networkLabel(declared))
	}
	return "⏳ Market data is unavailable right now. Please try again in a minute."
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		logging.LogDebug("Failed to answer callback", zap.Error(err))
	}
	if q.Message == nil || q.From == nil {
		return
	}

	userID := q.From.ID
	chatID := q.Message.Chat.ID
	messageID := q.Message.MessageID
	data := q.Data

	logging.LogDebug("Received callback",
		zap.String("data", data),
		zap.Int64("user_id", userID))

	switch {
	case data == cbStartFlow || data == cbBackToNetworks:
		if _, err := b.states.Fire(userID, conversation.EventStart, nil); err != nil {
			b.transitionFailed(chatID, err)
			return
		}
		b.edit(chatID, messageID, chooseNetworkText, NetworkKeyboard())

	case data == cbHow:
		b.edit(chatID, messageID, howItWorksText, backKeyboard(cbBackToStart))

	case data == cbSupport:
		b.edit(chatID, messageID, b.supportText(), backKeyboard(cbBackToStart))

	case data == cbBackToStart:
		if _, err := b.states.Fire(userID, conversation.EventReset, nil); err != nil {
			b.transitionFailed(chatID, err)
			return
		}
		b.edit(chatID, messageID, "Main menu:", StartKeyboard())

	case networkCallbacks[data] != "":
		network := networkCallbacks[data]
		_, err := b.states.Fire(userID, conversation.EventSelectNetwork, func(us *conversation.UserState) {
			us.Network = network
			us.Username = q.From.UserName
		})
		if err != nil {
			b.transitionFailed(chatID, err)
			return
		}
		b.reply(chatID, fmt.Sprintf("✅ You selected <b>%s</b>.\n\nPlease send the token contract address (CA) now.\n\nExample: <code>0xabc123...</code> or a Solana address.",
			networkLabel(network)))

	case data == cbViewAnalytics:
		b.handleAnalytics(ctx, userID, chatID)

	case data == cbTrend:
		us, err := b.states.Fire(userID, conversation.EventTrend, nil)
		if err != nil {
			b.transitionFailed(chatID, err)
			return
		}
		b.reply(chatID, fmt.Sprintf("Choose a trending package for <b>%s</b>:", tokenTitle(us.Symbol, "")),
			PackageKeyboard(b.cfg.Payments))

	case data == cbBackToToken:
		if _, err := b.states.Fire(userID, conversation.EventBack, nil); err != nil {
			b.transitionFailed(chatID, err)
			return
		}
		b.edit(chatID, messageID, "Token actions:", TokenActionKeyboard())

	case strings.HasPrefix(data, packagePrefix):
		label := strings.TrimPrefix(data, packagePrefix)
		us, err := b.states.Fire(userID, conversation.EventSelectPackage, func(us *conversation.UserState) {
			us.Package = label
		})
		if err != nil {
			b.transitionFailed(chatID, err)
			return
		}
		b.edit(chatID, messageID, fmt.Sprintf("Package: <b>%s</b> for %s.\n\nChoose a payment method:",
			html.EscapeString(us.Package), PackagePrice(b.cfg.Payments, us.Package)), PaymentKeyboard())

	case data == cbBackToPackages:
		us, err := b.states.Fire(userID, conversation.EventBack, nil)
		if err != nil {
			b.transitionFailed(chatID, err)
			return
		}
		b.edit(chatID, messageID, fmt.Sprintf("Choose a trending package for <b>%s</b>:", tokenTitle(us.Symbol, "")),
			PackageKeyboard(b.cfg.Payments))

	case paymentCallbacks[data] != "":
		b.handlePaymentMethod(userID, chatID, paymentCallbacks[data])

	case data == cbIPaid:
		b.handlePaid(ctx, q.From, chatID)

	default:
		b.reply(chatID, fmt.Sprintf("Received unknown action: %s", html.EscapeString(data)))
	}
}

func (b *Bot) handleAnalytics(ctx context.Context, userID, chatID int64) {
	us, err := b.states.Get(userID)
	if err != nil || us.ContractAddress == "" {
		b.reply(chatID, "Send a contract address first.")
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, b.lookupTimeout)
	defer cancel()
	pair, err := b.fetcher.Fetch(lookupCtx, us.Network, us.ContractAddress)
	if err != nil || pair == nil {
		b.reply(chatID, lookupErrorText(us.Network, err))
		return
	}
	b.reply(chatID, FormatAnalytics(pair, risk.Score(pair)))
}

func (b *Bot) handlePaymentMethod(userID, chatID int64, method string) {
	us, err := b.states.Fire(userID, conversation.EventSelectPayment, func(us *conversation.UserState) {
		us.PaymentMethod = method
	})
	if err != nil {
		b.transitionFailed(chatID, err)
		return
	}

	wallet := PaymentWallet(b.cfg.Payments, method)
	if wallet == "" {
		b.reply(chatID, "This payment method is not available right now. Pick another one or contact support: "+html.EscapeString(b.cfg.Telegram.SupportLink))
		return
	}

	text := fmt.Sprintf("💳 <b>Payment instructions</b>\n\n"+
		"Network: %s\nToken CA: <code>%s</code>\nPackage: %s\nAmount: <b>%s</b> in %s\n\n"+
		"Send the amount to:\n<code>%s</code>\n\nAfter payment, press ✅ I PAID. An admin will verify it and start your trending.",
		market.NetworkName(us.Network), html.EscapeString(us.ContractAddress), html.EscapeString(us.Package),
		PackagePrice(b.cfg.Payments, us.Package), paymentNames[method], html.EscapeString(wallet))
	b.reply(chatID, text, PaidKeyboard())
}

func (b *Bot) handlePaid(ctx context.Context, from *tgbotapi.User, chatID int64) {
	us, err := b.states.Fire(from.ID, conversation.EventConfirmPaid, func(us *conversation.UserState) {
		us.Username = from.UserName
	})
	if err != nil {
		b.transitionFailed(chatID, err)
		return
	}

	b.reply(chatID, "Thanks! Your payment will be verified by an admin. We'll message you when your token starts trending.")

	fields := map[string]string{
		"user_id":  fmt.Sprint(us.UserID),
		"username": "@" + us.Username,
		"network":  us.Network,
		"contract": us.ContractAddress,
		"symbol":   us.Symbol,
		"package":  fmt.Sprintf("%s (%s)", us.Package, PackagePrice(b.cfg.Payments, us.Package)),
		"method":   paymentNames[us.PaymentMethod],
		"approve":  fmt.Sprintf("/approve %d", us.UserID),
	}
	if err := b.notifier.NotifyOperators(ctx, trending.SeverityInfo, "Payment claimed, awaiting approval", fields); err != nil {
		logging.LogError("Failed to notify operators about payment", zap.Int64("user_id", us.UserID), zap.Error(err))
	}
	logging.LogInfo("Payment claimed",
		zap.Int64("user_id", us.UserID),
		zap.String("network", us.Network),
		zap.String("contract", us.ContractAddress),
		zap.String("package", us.Package))
}

func (b *Bot) transitionFailed(chatID int64, err error) {
	if errors.Is(err, conversation.ErrIllegalTransition) {
		if strings.Contains(err.Error(), string(conversation.StateAwaitingApproval)) {
			b.reply(chatID, pendingApprovalText)
			return
		}
		b.reply(chatID, "That button has expired. Send /start to begin again.")
		return
	}
	if errors.Is(err, conversation.ErrIncomplete) {
		b.reply(chatID, "Some details are missing. Send /start to begin again.")
		return
	}
	logging.LogError("Conversation update failed", zap.Int64("chat_id", chatID), zap.Error(err))
	b.reply(chatID, genericErrorText)
}

func (b *Bot) supportText() string {
	if b.cfg.Telegram.SupportLink == "" {
		return "Need help? Reply here and an admin will get back to you."
	}
	return "Need help? Contact support: " + html.EscapeString(b.cfg.Telegram.SupportLink)
}

func (b *Bot) reply(chatID int64, text string, markup ...tgbotapi.InlineKeyboardMarkup) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeHTML
	m.DisableWebPagePreview = true
	if len(markup) > 0 {
		m.ReplyMarkup = markup[0]
	}
	if _, err := b.sender.Send(m); err != nil {
		logging.LogError("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	e := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	e.ParseMode = tgbotapi.ModeHTML
	e.DisableWebPagePreview = true
	if _, err := b.sender.Request(e); err != nil && !isNotModified(err) {
		logging.LogError("Failed to edit message",
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID),
			zap.Error(err))
	}
}

const (
	welcomeText       = "👋 Welcome to <b>OmniTrending</b>. Track. Trend. Dominate.\n\nChoose an option below:"
	chooseNetworkText = "Choose a blockchain network to begin:"
	howItWorksText    = "<b>How it works</b>\n\n" +
		"1. Pick a network and send your token's contract address (CA).\n" +
		"2. Check the token overview and tap <b>Trend This Token</b>.\n" +
		"3. Choose a package, pay, and tap <b>I PAID</b>.\n" +
		"4. Once an admin confirms the payment, your token is pinned in the trending channel " +
		"with live price updates and alerts on every 10% move."

	pendingApprovalText = "⏳ Your payment is waiting for admin approval. We'll message you as soon as it is reviewed."
	genericErrorText    = "Something went wrong. Please try again."
)
