// Package registry holds the static catalog of known analysis agents.
package registry

import (
	"sort"
	"strings"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
)

// WireSuffix is appended to bare agent keys on the wire, e.g.
// "warren_buffett" becomes "warren_buffett_agent" in analyst signal maps and
// run requests.
const WireSuffix = "_agent"

// Normalize strips the wire suffix if present.
func Normalize(key string) string {
	return strings.TrimSuffix(key, WireSuffix)
}

// WireKey restores the wire form of a bare key.
func WireKey(key string) string {
	if strings.HasSuffix(key, WireSuffix) {
		return key
	}
	return key + WireSuffix
}

// NormalizeKeys maps keys through Normalize, dropping duplicates that
// collapse to the same bare form. Order is preserved.
func NormalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = Normalize(k)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Catalog is an immutable lookup table over the known agents.
type Catalog struct {
	byKey   map[string]models.AgentInfo
	ordered []models.AgentInfo
}

// NewCatalog builds the static catalog.
func NewCatalog() *Catalog {
	agents := []models.AgentInfo{
		{Key: "aswath_damodaran", DisplayName: "Aswath Damodaran", Style: "Fundamental Analysis", Description: "The dean of valuation, values companies from intrinsic story and numbers", Order: 0},
		{Key: "ben_graham", DisplayName: "Ben Graham", Style: "Value Investing", Description: "The father of value investing, buys hidden gems with a margin of safety", Order: 1},
		{Key: "bill_ackman", DisplayName: "Bill Ackman", Style: "Value Investing", Description: "An activist investor, takes bold positions and pushes for change", Order: 2},
		{Key: "cathie_wood", DisplayName: "Cathie Wood", Style: "Growth Investing", Description: "The queen of growth investing, believes in disruptive innovation", Order: 3},
		{Key: "charlie_munger", DisplayName: "Charlie Munger", Style: "Value Investing", Description: "Buys wonderful businesses at fair prices", Order: 4},
		{Key: "michael_burry", DisplayName: "Michael Burry", Style: "Value Investing", Description: "The Big Short contrarian who hunts for deep value", Order: 5},
		{Key: "peter_lynch", DisplayName: "Peter Lynch", Style: "Growth Investing", Description: "Looks for ten-baggers in everyday businesses", Order: 6},
		{Key: "phil_fisher", DisplayName: "Phil Fisher", Style: "Growth Investing", Description: "A scuttlebutt investor focused on superbly managed growth companies", Order: 7},
		{Key: "rakesh_jhunjhunwala", DisplayName: "Rakesh Jhunjhunwala", Style: "Growth Investing", Description: "The Big Bull of India", Order: 8},
		{Key: "stanley_druckenmiller", DisplayName: "Stanley Druckenmiller", Style: "Growth Investing", Description: "A macro legend who rides asymmetric opportunities", Order: 9},
		{Key: "warren_buffett", DisplayName: "Warren Buffett", Style: "Value Investing", Description: "The oracle of Omaha, seeks wonderful companies at fair prices", Order: 10},
		{Key: "technical_analyst", DisplayName: "Technical Analyst", Style: "Technical Analysis", Description: "Chart pattern and momentum specialist", Order: 11},
		{Key: "fundamentals_analyst", DisplayName: "Fundamentals Analyst", Style: "Fundamental Analysis", Description: "Scores profitability, growth, health and valuation ratios", Order: 12},
		{Key: "sentiment_analyst", DisplayName: "Sentiment Analyst", Style: "Sentiment Analysis", Description: "Weighs insider trades and company news", Order: 13},
		{Key: "valuation_analyst", DisplayName: "Valuation Analyst", Style: "Value Investing", Description: "Estimates intrinsic value across multiple methods", Order: 14},
		{Key: "risk_manager", DisplayName: "Risk Manager", Style: "Risk Management", Description: "Sets position limits from portfolio exposure", Order: 15},
		{Key: "portfolio_manager", DisplayName: "Portfolio Manager", Style: "Portfolio Management", Description: "Turns analyst signals into final trading decisions", Order: 16},
	}

	byKey := make(map[string]models.AgentInfo, len(agents))
	for _, a := range agents {
		byKey[a.Key] = a
	}
	return &Catalog{byKey: byKey, ordered: agents}
}

// List returns all agents in display order.
func (c *Catalog) List() []models.AgentInfo {
	out := make([]models.AgentInfo, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Lookup resolves a bare or wire-suffixed key.
func (c *Catalog) Lookup(key string) (models.AgentInfo, bool) {
	a, ok := c.byKey[Normalize(key)]
	return a, ok
}

// KeysByStyle returns the bare keys of all agents with the given style, in
// display order.
func (c *Catalog) KeysByStyle(style string) []string {
	var keys []string
	for _, a := range c.ordered {
		if a.Style == style {
			keys = append(keys, a.Key)
		}
	}
	return keys
}

// Styles returns the distinct styles in the catalog, sorted.
func (c *Catalog) Styles() []string {
	seen := make(map[string]struct{})
	var styles []string
	for _, a := range c.ordered {
		if _, ok := seen[a.Style]; ok {
			continue
		}
		seen[a.Style] = struct{}{}
		styles = append(styles, a.Style)
	}
	sort.Strings(styles)
	return styles
}
