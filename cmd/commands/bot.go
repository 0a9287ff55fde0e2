package commands

// Command to run the Telegram bot together with the trending session engine.
// Wires provider clients, the channel gateway, the session journal and the
// per-user conversation store, then waits for a shutdown signal.

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"omni-trending/internal/clients_api/dexscreener"
	"omni-trending/internal/clients_api/pumpfun"
	"omni-trending/internal/conversation"
	"omni-trending/internal/features/cards"
	"omni-trending/internal/infra/config"
	storage "omni-trending/internal/infra/fs"
	logging "omni-trending/internal/infra/log"
	"omni-trending/internal/market"
	"omni-trending/internal/telegram"
	"omni-trending/internal/trending"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	updatesTimeout  = 60 // seconds, getUpdates long poll
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot and the trending session engine",
	Long:  `Run the OmniTrending bot: user purchase flow, admin approval commands and live trending sessions in the channel.`,
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		logging.LogError("Failed to load config", zap.Error(err))
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	channelID, err := telegram.ParseChatID(cfg.Telegram.ChannelID)
	if err != nil {
		return fmt.Errorf("telegram.channel_id: %w", err)
	}
	operatorChatID, err := telegram.ParseChatID(cfg.Telegram.OperatorChatID)
	if err != nil {
		return fmt.Errorf("telegram.operator_chat_id: %w", err)
	}

	requestTimeout := time.Duration(cfg.Telegram.RequestTimeout) * time.Second
	api, err := newBotAPI(cfg.Telegram.BotToken, tgbotapi.APIEndpoint, requestTimeout)
	if err != nil {
		logging.LogError("Failed to initialize bot", zap.Error(err))
		return fmt.Errorf("failed to initialize bot: %w", err)
	}
	// getUpdates long-polls, so it gets its own client with room for the poll.
	poller, err := newBotAPI(cfg.Telegram.BotToken, tgbotapi.APIEndpoint, updatesTimeout*time.Second+requestTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize update poller: %w", err)
	}
	logging.LogSuccess("Bot authorized", zap.String("username", api.Self.UserName))

	adapter, resolver := newMarket(cfg)

	renderer := cards.NewRenderer(cards.Options{
		FontPath: cfg.App.FontPath,
		Timeout:  providerTimeout(cfg),
	})
	gateway := telegram.NewGateway(api, telegram.GatewayOptions{
		ChannelID:         channelID,
		OperatorChatID:    operatorChatID,
		MessagesPerSecond: cfg.Telegram.MessagesPerSecond,
		Cards:             renderer,
		PinStatus:         true,
	})

	journal := storage.NewSessionJournal(cfg.App.DataDir)
	manager := trending.NewManager(trending.Config{
		PollInterval:    time.Duration(cfg.Trending.PollInterval) * time.Second,
		Thresholds:      cfg.Trending.Thresholds,
		ProviderTimeout: providerTimeout(cfg),
		GatewayTimeout:  requestTimeout,
	}, adapter, gateway, trending.WithRecorder(journal))

	states, err := conversation.FromDataDir(cfg.App.DataDir)
	if err != nil {
		logging.LogError("Failed to open conversation store", zap.Error(err))
		return fmt.Errorf("failed to open conversation store: %w", err)
	}
	if known, err := states.Count(); err == nil {
		logging.LogInfo("Conversation store opened", zap.Int("users", known))
	}

	bot := telegram.NewBot(telegram.Deps{
		Sender:   api,
		States:   states,
		Checker:  resolver,
		Fetcher:  adapter,
		Sessions: manager,
		Notifier: gateway,
		Config:   cfg,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = updatesTimeout
	updates := poller.GetUpdatesChan(u)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		bot.Run(ctx, updates)
	}()

	logging.LogSuccess("Bot is running",
		zap.Int64("channel_id", channelID),
		zap.Strings("networks", resolver.Supported()),
		zap.Ints("thresholds", cfg.Trending.Thresholds),
		zap.Int("poll_interval", cfg.Trending.PollInterval))

	<-ctx.Done()
	logging.LogInfo("Shutdown signal received, stopping trending sessions...")

	return shutdown(poller, manager, states, &wg)
}

// newBotAPI builds a Bot API client whose every call is bounded by timeout.
func newBotAPI(token, endpoint string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
}

func shutdown(poller *tgbotapi.BotAPI, manager *trending.Manager, states *conversation.Store, wg *sync.WaitGroup) error {
	var result error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := manager.Shutdown(shutdownCtx); err != nil {
		logging.LogWarn("Timeout waiting for trending sessions to stop", zap.Error(err))
		result = multierror.Append(result, err)
	}

	poller.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logging.LogWarn("Timeout waiting for update handler to stop, forcing shutdown")
	}

	if err := states.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close conversation store: %w", err))
	}

	if result == nil {
		logging.LogSuccess("Bot stopped gracefully")
	}
	return result
}

// newMarket builds the provider clients shared by the bot and the lookup command.
func newMarket(cfg *config.Config) (*market.Adapter, *market.Resolver) {
	dex := dexscreener.NewClient(dexscreener.Options{
		BaseURL:           cfg.Providers.DexScreenerURL,
		Timeout:           providerTimeout(cfg),
		MaxRetries:        cfg.Providers.MaxRetries,
		RequestsPerMinute: cfg.Providers.RequestsPerMinute,
		MaxResponseSize:   cfg.Providers.MaxResponseSize,
	})
	pump := pumpfun.NewClient(pumpfun.Options{
		BaseURL:           cfg.Providers.PumpFunURL,
		Timeout:           providerTimeout(cfg),
		MaxRetries:        cfg.Providers.MaxRetries,
		RequestsPerMinute: cfg.Providers.RequestsPerMinute,
	})

	return market.NewDefaultAdapter(dex, pump), market.NewResolver(dex, cfg.Trending.SupportedNetworks)
}

func providerTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Providers.RequestTimeout) * time.Second
}
