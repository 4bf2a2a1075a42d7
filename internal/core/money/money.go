// Package money parses and renders funding amounts.
package money

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	Crore = 10_000_000
	Lakh  = 100_000
)

var (
	printer     = message.NewPrinter(language.English)
	numberRe    = regexp.MustCompile(`\d+(?:\.\d+)?`)
	undisclosed = []string{"undisclosed", "unknown", "n/a", "na", "nan", "-"}
)

// Parse converts strings such as "₹5 Cr", "$1,200,000", "2.5M" or "50 lakh"
// to a number. ok is false for empty or undisclosed values.
func Parse(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}
	for _, marker := range undisclosed {
		if s == marker {
			return 0, false
		}
	}

	s = strings.NewReplacer("₹", "", "$", "", "rs.", "", "inr", "", "usd", "", ",", "", "\u00a0", "").Replace(s)
	num := numberRe.FindString(s)
	if num == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}

	unit := strings.TrimSpace(s[strings.Index(s, num)+len(num):])
	return value * multiplier(unit), true
}

func multiplier(unit string) float64 {
	switch {
	case strings.HasPrefix(unit, "cr"), strings.HasPrefix(unit, "crore"):
		return Crore
	case strings.HasPrefix(unit, "l"), strings.HasPrefix(unit, "lakh"), strings.HasPrefix(unit, "lac"):
		return Lakh
	case strings.HasPrefix(unit, "b"), strings.HasPrefix(unit, "bn"), strings.HasPrefix(unit, "billion"):
		return 1_000_000_000
	case strings.HasPrefix(unit, "m"), strings.HasPrefix(unit, "mn"), strings.HasPrefix(unit, "million"):
		return 1_000_000
	case strings.HasPrefix(unit, "k"), strings.HasPrefix(unit, "thousand"):
		return 1_000
	default:
		return 1
	}
}

// Format renders an amount compactly: crore/lakh for INR, K/M/B otherwise.
func Format(amount float64, currency string) string {
	if amount <= 0 {
		return "undisclosed"
	}
	if strings.EqualFold(currency, "INR") {
		switch {
		case amount >= Crore:
			return fmt.Sprintf("₹%.2f Cr", amount/Crore)
		case amount >= Lakh:
			return fmt.Sprintf("₹%.2f L", amount/Lakh)
		default:
			return "₹" + printer.Sprintf("%d", int64(math.Round(amount)))
		}
	}

	symbol := "$"
	if !strings.EqualFold(currency, "USD") && currency != "" {
		symbol = strings.ToUpper(currency) + " "
	}
	switch {
	case amount >= 1_000_000_000:
		return fmt.Sprintf("%s%.2fB", symbol, amount/1_000_000_000)
	case amount >= 1_000_000:
		return fmt.Sprintf("%s%.1fM", symbol, amount/1_000_000)
	case amount >= 1_000:
		return fmt.Sprintf("%s%.0fK", symbol, amount/1_000)
	default:
		return symbol + printer.Sprintf("%d", int64(math.Round(amount)))
	}
}

// FormatExact renders the full amount with thousands separators.
func FormatExact(amount float64, currency string) string {
	symbol := "$"
	switch {
	case strings.EqualFold(currency, "INR"):
		symbol = "₹"
	case currency != "" && !strings.EqualFold(currency, "USD"):
		symbol = strings.ToUpper(currency) + " "
	}
	return symbol + printer.Sprintf("%d", int64(math.Round(amount)))
}
