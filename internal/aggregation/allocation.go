package aggregation

import (
	"sort"

	"portfolio-dashboard/internal/models"
)

// Palette is the fixed chart palette; entries cycle through it by position
var Palette = []string{"#F0B90B", "#3B82F6", "#10B981", "#EF4444", "#8B5CF6", "#F97316"}

// Allocation groups trades by pair and adds the wallet balance to the USDT
// bucket. Entries are sorted by value descending, then by name.
func Allocation(trades []models.Trade, balance float64) []models.AllocationEntry {
	index := make(map[string]int)
	var entries []models.AllocationEntry

	add := func(name string, value float64, count int) {
		i, ok := index[name]
		if !ok {
			index[name] = len(entries)
			entries = append(entries, models.AllocationEntry{Name: name})
			i = len(entries) - 1
		}
		entries[i].Value += value
		entries[i].Count += count
	}

	for _, t := range trades {
		add(t.Pair(), t.TradingAmountUSD, 1)
	}
	if balance > 0 {
		add(models.DefaultTradePair, balance, 0)
	}

	total := 0.0
	for _, e := range entries {
		total += e.Value
	}
	// nothing to chart
	if total == 0 {
		return []models.AllocationEntry{}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Name < entries[j].Name
	})

	for i := range entries {
		entries[i].Percentage = entries[i].Value / total * 100
		entries[i].Color = Palette[i%len(Palette)]
	}
	return entries
}
