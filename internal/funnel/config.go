package funnel

import (
	"strings"
	"time"

	"github.com/ignite/funnel-monitor/internal/domain"
)

// Config selects the funnel's payments and sets its time thresholds.
type Config struct {
	// ProductMatch is the case-insensitive substring a product must contain.
	ProductMatch string
	// ExcludeProducts are substrings that disqualify an otherwise matching product.
	ExcludeProducts []string
	// RecentWindow separates recent from stale paid-not-signed payments.
	RecentWindow time.Duration
	// ExpiringSoonDays is the inclusive upper bound of the expiring-soon band.
	ExpiringSoonDays int
}

// DefaultConfig returns the settings of the intimate-talks funnel.
func DefaultConfig() Config {
	return Config{
		ProductMatch:     "intimate",
		ExcludeProducts:  []string{"69 ebook", "32 ebook"},
		RecentWindow:     30 * 24 * time.Hour,
		ExpiringSoonDays: domain.DefaultExpiringSoonDays,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ProductMatch == "" {
		c.ProductMatch = d.ProductMatch
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = d.RecentWindow
	}
	if c.ExpiringSoonDays <= 0 {
		c.ExpiringSoonDays = d.ExpiringSoonDays
	}
	return c
}

// MatchesProduct reports whether product belongs to the funnel.
func (c Config) MatchesProduct(product string) bool {
	if product == "" {
		return false
	}
	p := strings.ToLower(product)
	for _, ex := range c.ExcludeProducts {
		if ex != "" && strings.Contains(p, strings.ToLower(ex)) {
			return false
		}
	}
	return strings.Contains(p, strings.ToLower(c.ProductMatch))
}

// InFunnel reports whether a payment is a successful funnel purchase.
func (c Config) InFunnel(p domain.Payment) bool {
	return p.Succeeded() && c.MatchesProduct(p.Product)
}
