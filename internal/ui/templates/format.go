package templates

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatINR renders an amount as rupees with grouped thousands and two
// decimals, e.g. ₹1,234,567.50.
func FormatINR(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + "₹" + fixed
	}
	return sign + "₹" + printer.Sprintf("%d", n) + "." + frac
}

// FormatCount renders an integer with grouped thousands.
func FormatCount[T ~int | ~int64](n T) string {
	return printer.Sprintf("%d", int64(n))
}
