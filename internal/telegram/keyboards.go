package telegram

import (
	"fmt"

	"omni-trending/internal/infra/config"
	"omni-trending/internal/market"
	"omni-trending/internal/trending"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data carried by inline buttons.
const (
	cbStartFlow      = "start_flow"
	cbHow            = "how"
	cbSupport        = "support"
	cbBackToStart    = "back_to_start"
	cbBackToNetworks = "back_to_networks"
	cbViewAnalytics  = "view_analytics"
	cbTrend          = "trend_pay"
	cbBackToToken    = "back_to_token"
	cbBackToPackages = "back_to_packages"
	cbIPaid          = "i_paid"

	packagePrefix = "pkg_"
)

var networkCallbacks = map[string]string{
	"select_sol":  market.Solana,
	"select_eth":  market.Ethereum,
	"select_bsc":  market.BSC,
	"select_base": market.Base,
	"select_arb":  market.Arbitrum,
	"select_all":  market.AutoDetect,
}

const (
	PaymentSOL     = "sol"
	PaymentUSDTSol = "usdt_sol"
	PaymentUSDTEth = "usdt_eth"
)

var paymentCallbacks = map[string]string{
	"pay_sol":         PaymentSOL,
	"pay_usdt_solana": PaymentUSDTSol,
	"pay_usdt_eth":    PaymentUSDTEth,
}

var paymentNames = map[string]string{
	PaymentSOL:     "SOL",
	PaymentUSDTSol: "USDT (Solana)",
	PaymentUSDTEth: "USDT (Ethereum)",
}

func StartKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚀 Start", cbStartFlow),
			tgbotapi.NewInlineKeyboardButtonData("💡 How It Works", cbHow),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛠️ Support", cbSupport),
		),
	)
}

func backKeyboard(data string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", data)),
	)
}

func NetworkKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔵 Solana", "select_sol"),
			tgbotapi.NewInlineKeyboardButtonData("🟣 Ethereum", "select_eth"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔴 BNB Chain", "select_bsc"),
			tgbotapi.NewInlineKeyboardButtonData("⚡ Base", "select_base"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌊 Arbitrum", "select_arb"),
			tgbotapi.NewInlineKeyboardButtonData("🌐 All Networks", "select_all"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBackToStart),
		),
	)
}

func TokenActionKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📊 View Full Analytics", cbViewAnalytics)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📢 Trend This Token", cbTrend)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBackToNetworks)),
	)
}

func PackageKeyboard(p config.PaymentsConfig) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 4)
	for _, label := range trending.DurationLabels() {
		text := fmt.Sprintf("⏱ %s trending, %s", label, PackagePrice(p, label))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(text, packagePrefix+label)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBackToToken)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func PaymentKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💎 Pay in SOL", "pay_sol"),
			tgbotapi.NewInlineKeyboardButtonData("🪙 Pay in USDT (SOL)", "pay_usdt_solana"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💵 Pay in USDT (ETH)", "pay_usdt_eth"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBackToPackages),
		),
	)
}

func PaidKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ I PAID", cbIPaid)),
	)
}

// PackagePrice returns the configured display price for a duration label.
func PackagePrice(p config.PaymentsConfig, label string) string {
	switch trending.DurationHours(label) {
	case 24:
		return p.Price24h
	case 12:
		return p.Price12h
	default:
		return p.Price3h
	}
}

// PaymentWallet returns the wallet for a payment method, "" when not configured.
func PaymentWallet(p config.PaymentsConfig, method string) string {
	switch method {
	case PaymentSOL:
		return p.SolWallet
	case PaymentUSDTSol:
		return p.UsdtSolWallet
	case PaymentUSDTEth:
		return p.UsdtEthWallet
	}
	return ""
}

func networkLabel(network string) string {
	if network == market.AutoDetect {
		return "All Networks (auto-detect)"
	}
	return market.NetworkName(network)
}
