package telegram

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"omni-trending/internal/market"
	"omni-trending/internal/risk"
	"omni-trending/internal/trending"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// FormatUSDValue: 1234567 -> 1.2M, 45300 -> 45.3K, 812 -> 812
func FormatUSDValue(value float64) string {
	abs := math.Abs(value)
	switch {
	case abs >= 1e9:
		return trimOne(value/1e9) + "B"
	case abs >= 1e6:
		return trimOne(value/1e6) + "M"
	case abs >= 1e3:
		return trimOne(value/1e3) + "K"
	}
	return fmt.Sprintf("%.0f", value)
}

func trimOne(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
}

// FormatUSD renders an optional USD amount, N/A when unknown.
func FormatUSD(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return "$" + FormatUSDValue(*v)
}

var ten = decimal.NewFromInt(10)

// FormatPrice keeps four significant digits for sub-dollar prices.
func FormatPrice(p decimal.NullDecimal) string {
	if !p.Valid {
		return "N/A"
	}
	d := p.Decimal
	if d.IsZero() {
		return "$0"
	}
	if d.Abs().GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return "$" + d.Round(4).String()
	}

	leading := int32(0)
	for v := d.Abs(); v.LessThan(decimal.NewFromInt(1)) && leading < 30; v = v.Mul(ten) {
		leading++
	}
	return "$" + d.Round(leading+3).String()
}

// FormatChange renders a percent change with an explicit sign: +12.00%.
func FormatChange(change decimal.Decimal) string {
	if change.IsPositive() {
		return "+" + change.StringFixed(2) + "%"
	}
	return change.StringFixed(2) + "%"
}

func formatPercent(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return FormatChange(decimal.NewFromFloat(*v))
}

// FormatRemaining: 2h15m -> "2h 15m", under a minute -> "<1m".
func FormatRemaining(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	d = d.Truncate(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func formatAge(seconds *int64) string {
	if seconds == nil {
		return "N/A"
	}
	d := time.Duration(*seconds) * time.Second
	if d >= 48*time.Hour {
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}
	return FormatRemaining(d)
}

// btkn1xegehq3k8gh8hctgvgdegwver5y5f9qt84750reh7xvm49rg0a7qwqh0dl -> btkn1xeg...h0dl
func FormatTokenAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:8] + "..." + address[len(address)-4:]
}

func tokenTitle(symbol, name string) string {
	title := "$" + html.EscapeString(lo.Ternary(symbol != "", symbol, "TOKEN"))
	if name != "" && name != symbol {
		title += " (" + html.EscapeString(name) + ")"
	}
	return title
}

func link(label, url string) string {
	return fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(url), label)
}

func links(s trending.Snapshot) string {
	var parts []string
	if s.ChartURL != "" {
		parts = append(parts, link("Chart", s.ChartURL))
	}
	if u := market.ExplorerURL(s.Network, s.ContractAddress); u != "" {
		parts = append(parts, link("Explorer", u))
	}
	return strings.Join(parts, " | ")
}

// FormatStatus is the pinned post body, rewritten after every poll.
func FormatStatus(s trending.Snapshot, now time.Time) string {
	stopped := s.Status == trending.StatusCancelled || s.Status == trending.StatusFailed

	var b strings.Builder
	if stopped {
		b.WriteString(fmt.Sprintf("⛔️ <b>NOT TRENDING</b> | <b>%s</b>\n", tokenTitle(s.Symbol, s.Name)))
	} else {
		b.WriteString(fmt.Sprintf("🔥 <b>TRENDING</b> | <b>%s</b>\n", tokenTitle(s.Symbol, s.Name)))
	}
	b.WriteString("<blockquote>")
	b.WriteString(fmt.Sprintf("Network: %s\n", market.NetworkName(s.Network)))
	b.WriteString(fmt.Sprintf("CA: <code>%s</code>\n", html.EscapeString(s.ContractAddress)))
	b.WriteString(fmt.Sprintf("Start price: %s\n", FormatPrice(s.Baseline)))
	b.WriteString(fmt.Sprintf("Price: %s (%s)\n", FormatPrice(s.LastPrice), FormatChange(s.ChangePct)))
	if p := s.LastPair; p != nil {
		b.WriteString(fmt.Sprintf("Liquidity: %s | MC: %s\n", FormatUSD(p.LiquidityUSD), FormatUSD(p.MarketCap)))
		b.WriteString(fmt.Sprintf("Volume 24h: %s\n", FormatUSD(p.Volume24hUSD)))
	}
	if len(s.Fired) > 0 {
		b.WriteString(fmt.Sprintf("Alerts: %s\n", strings.Join(s.FiredStrings(), ", ")))
	}
	if stopped {
		b.WriteString("Session stopped")
	} else {
		b.WriteString(fmt.Sprintf("Time left: %s", FormatRemaining(s.Remaining(now))))
	}
	b.WriteString("</blockquote>")
	if l := links(s); l != "" {
		b.WriteString("\n" + l)
	}
	return b.String()
}

func FormatAlert(s trending.Snapshot, key trending.ThresholdKey) string {
	icon, verb := "🚀", "pumped"
	if key.Direction == trending.Dump {
		icon, verb = "🔻", "dumped"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s</b> %s %d%% from trending start\n", icon, tokenTitle(s.Symbol, s.Name), verb, key.Level))
	b.WriteString("<blockquote>")
	b.WriteString(fmt.Sprintf("Start: %s\n", FormatPrice(s.Baseline)))
	b.WriteString(fmt.Sprintf("Now: %s (%s)", FormatPrice(s.LastPrice), FormatChange(s.ChangePct)))
	b.WriteString("</blockquote>")
	if l := links(s); l != "" {
		b.WriteString("\n" + l)
	}
	return b.String()
}

func FormatCompleted(s trending.Snapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("✅ Trending finished for <b>%s</b>\n", tokenTitle(s.Symbol, s.Name)))
	b.WriteString("<blockquote>")
	b.WriteString(fmt.Sprintf("Start: %s\n", FormatPrice(s.Baseline)))
	b.WriteString(fmt.Sprintf("Final: %s (%s)\n", FormatPrice(s.LastPrice), FormatChange(s.ChangePct)))
	b.WriteString(fmt.Sprintf("Alerts fired: %d", len(s.Fired)))
	b.WriteString("</blockquote>")
	return b.String()
}

// FormatPost picks the body for a gateway post.
func FormatPost(post trending.Post, now time.Time) string {
	switch post.Kind {
	case trending.PostAlert:
		return FormatAlert(post.Session, post.Threshold)
	case trending.PostCompleted:
		return FormatCompleted(post.Session)
	default:
		return FormatStatus(post.Session, now)
	}
}

var riskIcons = map[risk.Level]string{
	risk.LevelLow:    "🟢",
	risk.LevelMedium: "🟡",
	risk.LevelHigh:   "🔴",
}

var flagLabels = map[risk.Flag]string{
	risk.FlagVeryNew:                "very new pair",
	risk.FlagLowLiquidity:           "low liquidity",
	risk.FlagHighOwnerConcentration: "owner holds over 50%",
	risk.FlagNoLogo:                 "no logo",
	risk.FlagNoExplorer:             "no explorer page",
}

func FormatRisk(a risk.Assessment) string {
	level := a.Level()
	s := fmt.Sprintf("%s Risk: %s (score %d)", riskIcons[level], strings.ToUpper(string(level)), a.Score)
	if len(a.Flags) > 0 {
		labels := lo.Map(a.Flags, func(f risk.Flag, _ int) string { return flagLabels[f] })
		s += "\nFlags: " + strings.Join(labels, ", ")
	}
	return s
}

// FormatTokenOverview is the reply to a submitted contract address.
func FormatTokenOverview(p *market.CanonicalPair, a risk.Assessment) string {
	var b strings.Builder
	b.WriteString("📊 <b>Token Overview</b>\n\n")
	b.WriteString(fmt.Sprintf("<b>Name:</b> %s\n", html.EscapeString(lo.Ternary(p.BaseName != "", p.BaseName, "N/A"))))
	b.WriteString(fmt.Sprintf("<b>Symbol:</b> %s\n", html.EscapeString(lo.Ternary(p.BaseSymbol != "", p.BaseSymbol, "N/A"))))
	b.WriteString(fmt.Sprintf("<b>Price:</b> %s\n", FormatPrice(p.Price)))
	b.WriteString(fmt.Sprintf("<b>24h Volume:</b> %s\n", FormatUSD(p.Volume24hUSD)))
	b.WriteString(fmt.Sprintf("<b>Liquidity:</b> %s\n", FormatUSD(p.LiquidityUSD)))
	b.WriteString(fmt.Sprintf("<b>Chain:</b> %s\n\n", market.NetworkName(p.Network)))
	b.WriteString(FormatRisk(a))
	if a.Has(risk.FlagLowLiquidity) {
		b.WriteString("\n⚠️ Very low liquidity. Expect sharp price swings while trending.")
	}
	if p.URL != "" {
		b.WriteString("\n" + link("Open chart", p.URL))
	}
	return b.String()
}

// FormatAnalytics is the detailed view behind "View Full Analytics".
func FormatAnalytics(p *market.CanonicalPair, a risk.Assessment) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%s</b> analytics\n", tokenTitle(p.BaseSymbol, p.BaseName)))
	b.WriteString("<blockquote>")
	b.WriteString(fmt.Sprintf("DEX: %s (%s pair)\n", html.EscapeString(lo.Ternary(p.Dex != "", p.Dex, "N/A")), html.EscapeString(lo.Ternary(p.QuoteSymbol != "", p.QuoteSymbol, "?"))))
	b.WriteString(fmt.Sprintf("Price: %s\n", FormatPrice(p.Price)))
	b.WriteString(fmt.Sprintf("Change 1h / 6h / 24h: %s / %s / %s\n", formatPercent(p.Change1h), formatPercent(p.Change6h), formatPercent(p.Change24h)))
	b.WriteString(fmt.Sprintf("Liquidity: %s\n", FormatUSD(p.LiquidityUSD)))
	b.WriteString(fmt.Sprintf("Volume 24h: %s\n", FormatUSD(p.Volume24hUSD)))
	b.WriteString(fmt.Sprintf("FDV: %s | MC: %s\n", FormatUSD(p.FDV), FormatUSD(p.MarketCap)))
	b.WriteString(fmt.Sprintf("Pair age: %s\n", formatAge(p.AgeSeconds)))
	b.WriteString(fmt.Sprintf("Links listed: %d\n", p.LinkCount))
	b.WriteString(fmt.Sprintf("Source: %s", html.EscapeString(p.Provider)))
	b.WriteString("</blockquote>")
	b.WriteString(FormatRisk(a))
	var refs []string
	if p.URL != "" {
		refs = append(refs, link("Chart", p.URL))
	}
	if p.ExplorerURL != "" {
		refs = append(refs, link("Explorer", p.ExplorerURL))
	}
	if len(refs) > 0 {
		b.WriteString("\n" + strings.Join(refs, " | "))
	}
	return b.String()
}

func FormatSessionLine(s trending.Snapshot, now time.Time) string {
	return fmt.Sprintf("• <code>%s</code> %s on %s, %s, %s left, alerts %d",
		html.EscapeString(s.ID), tokenTitle(s.Symbol, ""), market.NetworkName(s.Network),
		FormatChange(s.ChangePct), FormatRemaining(s.Remaining(now)), len(s.Fired))
}
