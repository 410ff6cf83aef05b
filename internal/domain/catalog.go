package domain

import "time"

type ItemKind string

const (
	KindCurrency ItemKind = "currency"
	KindBooster  ItemKind = "booster"
	KindAutotap  ItemKind = "autotap"
)

// ShopItem is one purchasable catalog entry, priced in Telegram Stars.
// Currency items carry GrantAmount; timed perks carry Duration.
type ShopItem struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Kind        ItemKind      `json:"kind"`
	Stars       int           `json:"stars"`
	GrantAmount int64         `json:"grant_amount,omitempty"`
	Duration    time.Duration `json:"-"`
}

// DefaultCatalog returns the fixed shop catalog.
func DefaultCatalog() map[string]ShopItem {
	day := 24 * time.Hour
	items := []ShopItem{
		{ID: "coin_starter", Title: "5 000 монет", Kind: KindCurrency, Stars: 10, GrantAmount: 5000},
		{ID: "coin_small", Title: "10 000 монет", Kind: KindCurrency, Stars: 20, GrantAmount: 10000},
		{ID: "coin_medium", Title: "40 000 монет", Kind: KindCurrency, Stars: 60, GrantAmount: 40000},
		{ID: "coin_large", Title: "100 000 монет", Kind: KindCurrency, Stars: 120, GrantAmount: 100000},
		{ID: "coin_mega", Title: "220 000 монет", Kind: KindCurrency, Stars: 220, GrantAmount: 220000},
		{ID: "booster_3d", Title: "Бустер x2 на 3 дня", Kind: KindBooster, Stars: 20, Duration: 3 * day},
		{ID: "booster_15d", Title: "Бустер x2 на 15 дней", Kind: KindBooster, Stars: 70, Duration: 15 * day},
		{ID: "booster_30d", Title: "Бустер x2 на 30 дней", Kind: KindBooster, Stars: 120, Duration: 30 * day},
		{ID: "autotap_1d", Title: "Автотап на 1 день", Kind: KindAutotap, Stars: 20, Duration: day},
		{ID: "autotap_7d", Title: "Автотап на 7 дней", Kind: KindAutotap, Stars: 80, Duration: 7 * day},
		{ID: "autotap_30d", Title: "Автотап на 30 дней", Kind: KindAutotap, Stars: 200, Duration: 30 * day},
	}

	catalog := make(map[string]ShopItem, len(items))
	for _, it := range items {
		catalog[it.ID] = it
	}
	return catalog
}
