// Package notify delivers the daily screening summary to Telegram.
package notify

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/news"
	"github.com/raysyhuang/gemini-STST/internal/observability"
	"github.com/raysyhuang/gemini-STST/internal/screener"
)

// headlinesPerSignal caps how many news bullets each momentum pick gets.
const headlinesPerSignal = 2

// Notifier sends MarkdownV2 daily summaries to a single chat. A nil
// Notifier is valid and sends nothing, so unconfigured deployments skip
// alerts without branching at every call site.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    zerolog.Logger
}

// NewNotifier creates a Notifier. Returns (nil, nil) when token or chatID is
// unset.
func NewNotifier(token string, chatID int64, log zerolog.Logger) (*Notifier, error) {
	if token == "" || chatID == 0 {
		log.Warn().Msg("telegram credentials not configured, alerts disabled")
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("telegram bot initialized")
	return &Notifier{api: api, chatID: chatID, log: log}, nil
}

// SendDailySummary formats and sends the combined momentum and reversion
// report. symbols maps ticker IDs to display symbols; newsBySymbol is
// optional headline enrichment.
func (n *Notifier) SendDailySummary(
	momentum *screener.MomentumResult,
	reversion *screener.ReversionResult,
	symbols map[int64]string,
	newsBySymbol map[string][]news.Article,
) error {
	if n == nil {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, buildDailySummary(momentum, reversion, symbols, newsBySymbol))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	_, err := n.api.Send(msg)
	observability.RecordNotification(err)
	if err != nil {
		return fmt.Errorf("send telegram summary: %w", err)
	}
	n.log.Info().Msg("telegram daily summary sent")
	return nil
}

func buildDailySummary(
	momentum *screener.MomentumResult,
	reversion *screener.ReversionResult,
	symbols map[int64]string,
	newsBySymbol map[string][]news.Article,
) string {
	var b strings.Builder

	b.WriteString("*QuantScreener Daily Report*\n")
	b.WriteString("Date: " + escape(momentum.Date.Format("2006-01-02")) + "\n")
	b.WriteString("Market Regime: *" + escape(momentum.Regime.Regime) + "*\n\n")

	if momentum.Regime.Regime == "Bearish" {
		b.WriteString(escape("⚠️ Bearish Regime — exercise caution") + "\n\n")
	}

	fmt.Fprintf(&b, "*— MOMENTUM BREAKOUTS \\(%d\\) —*\n\n", len(momentum.Signals))
	if len(momentum.Signals) == 0 {
		b.WriteString(escape("No momentum signals today.") + "\n\n")
	}
	for _, sig := range momentum.Signals {
		symbol := symbols[sig.TickerID]
		fmt.Fprintf(&b, "*%s* — $%s\n", escape(symbol), escape(formatNum(sig.TriggerPrice)))
		fmt.Fprintf(&b, "  RVOL: %s \\| ATR: %s%%\n",
			escape(formatNum(sig.RVOLAtTrigger)), escape(formatNum(sig.ATRPctAtTrigger)))
		for i, article := range newsBySymbol[symbol] {
			if i == headlinesPerSignal {
				break
			}
			b.WriteString("  • " + escape(article.Headline) + "\n")
		}
		b.WriteString("\n")
	}

	revCount := 0
	if reversion != nil {
		revCount = len(reversion.Signals)
	}
	fmt.Fprintf(&b, "*— OVERSOLD REVERSIONS \\(%d\\) —*\n\n", revCount)
	if reversion == nil || len(reversion.Signals) == 0 {
		b.WriteString(escape("No oversold reversals today.") + "\n")
	} else {
		for _, sig := range reversion.Signals {
			fmt.Fprintf(&b, "*%s* — $%s\n", escape(symbols[sig.TickerID]), escape(formatNum(sig.TriggerPrice)))
			fmt.Fprintf(&b, "  RSI\\(2\\): %s \\| 3d Drop: %s%%\n\n",
				escape(formatNum(sig.RSI2AtTrigger)), escape(formatNum(sig.Drawdown3DPct)))
		}
	}

	return b.String()
}

func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, text)
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
