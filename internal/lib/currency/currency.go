// Package currency holds monetary values in AED fils (integer minor units)
// and converts to display currencies only at presentation time. Aggregation
// must always happen in fils; converting before summing compounds rounding
// error across line items.
package currency

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Amount is a monetary value in AED fils (1 AED = 100 fils).
type Amount int64

// AED builds an Amount from a fractional AED value, rounded half-up to
// whole fils.
func AED(v float64) Amount {
	return Amount(roundHalfUp(v * 100))
}

// Fils returns the raw minor-unit value.
func (a Amount) Fils() int64 { return int64(a) }

// InAED returns the value as fractional AED.
func (a Amount) InAED() float64 { return float64(a) / 100 }

// DisplayPrice is a converted, formatted presentation value.
type DisplayPrice struct {
	Currency  string  `json:"currency"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
}

// Converter applies per-currency rates plus a flat margin percent on top of
// converted values. Rates express units of target currency per 1 AED.
type Converter struct {
	mu            sync.RWMutex
	rates         map[string]float64
	symbols       map[string]string
	marginPercent float64
}

// NewConverter seeds a converter. AED is always present with rate 1 and no
// margin applied.
func NewConverter(rates map[string]float64, marginPercent float64) *Converter {
	c := &Converter{
		rates:         map[string]float64{"AED": 1},
		symbols:       map[string]string{"AED": "AED", "USD": "$", "EUR": "€", "GBP": "£", "INR": "₹", "RUB": "₽"},
		marginPercent: marginPercent,
	}
	for code, r := range rates {
		if r > 0 {
			c.rates[strings.ToUpper(code)] = r
		}
	}
	return c
}

// SetRate replaces a single rate; used by the periodic refresh job.
func (c *Converter) SetRate(code string, rate float64) {
	if rate <= 0 || strings.EqualFold(code, "AED") {
		return
	}
	c.mu.Lock()
	c.rates[strings.ToUpper(code)] = rate
	c.mu.Unlock()
}

// Convert turns a base-currency amount into a display price. Unknown codes
// fall back to AED rather than failing the whole itinerary response.
func (c *Converter) Convert(a Amount, code string) DisplayPrice {
	code = strings.ToUpper(strings.TrimSpace(code))
	c.mu.RLock()
	rate, ok := c.rates[code]
	margin := c.marginPercent
	c.mu.RUnlock()
	if !ok || code == "" {
		code, rate = "AED", 1
	}

	value := a.InAED() * rate
	if code != "AED" {
		value *= 1 + margin/100
	}
	value = float64(roundHalfUp(value*100)) / 100

	return DisplayPrice{
		Currency:  code,
		Value:     value,
		Formatted: c.format(code, value),
	}
}

// Format is the shorthand most callers want.
func (c *Converter) Format(a Amount, code string) string {
	return c.Convert(a, code).Formatted
}

func (c *Converter) format(code string, value float64) string {
	c.mu.RLock()
	sym, ok := c.symbols[code]
	c.mu.RUnlock()
	if !ok {
		sym = code
	}
	return fmt.Sprintf("%s %s", sym, groupThousands(value))
}

// ApplyDiscount reduces base by percent (clamped 0..100), rounding half-up
// to whole fils.
func ApplyDiscount(base Amount, percent float64) Amount {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return Amount(roundHalfUp(float64(base) * (1 - percent/100)))
}

func roundHalfUp(v float64) int64 {
	if v >= 0 {
		return int64(math.Floor(v + 0.5))
	}
	return int64(math.Ceil(v - 0.5))
}

func groupThousands(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]
	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}
	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}
