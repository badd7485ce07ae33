package helpers

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var markdownV2Escaper = strings.NewReplacer(
	"\\", "\\\\",
	".", "\\.", "-", "\\-", "_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
	"(", "\\(", ")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
	"+", "\\+", "=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", "!", "\\!",
)

func EscapeMarkdownV2(text string) string {
	return markdownV2Escaper.Replace(text)
}

func FormatPriceUS(price decimal.Decimal, escapeMarkdown bool) string {
	decimals := 4

	abs := price.Abs()
	if abs.GreaterThanOrEqual(decimal.NewFromInt(1000)) {
		decimals = 2
	} else if abs.GreaterThan(decimal.RequireFromString("1.2")) {
		decimals = 2
	} else if abs.LessThan(decimal.RequireFromString("0.00001")) && !abs.IsZero() {
		decimals = 8
	}

	value, _ := price.Round(int32(decimals)).Float64()

	p := message.NewPrinter(language.English)
	formatted := p.Sprintf("%.*f", decimals, value)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// FormatPercent renders a signed percentage with two decimals, e.g. "+1.33%".
func FormatPercent(percent decimal.Decimal, escapeMarkdown bool) string {
	formatted := percent.StringFixed(2) + "%"
	if percent.IsPositive() {
		formatted = "+" + formatted
	}
	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// Truncate cuts text to at most max runes, ending with an ellipsis when cut.
// It prefers to stop at the last whitespace in the final fifth of the budget.
func Truncate(text string, max int) string {
	text = strings.TrimSpace(text)
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	if max == 1 {
		return "…"
	}

	runes := []rune(text)[:max-1]
	cut := string(runes)
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > 0 && utf8.RuneCountInString(cut[:idx]) >= (max*4)/5 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " \n\t.,;:") + "…"
}
