// Package shop holds the cosmetic skin catalog that players buy with points.
package shop

import "snakepill/internal/model"

// DefaultSkins is the catalog seeded into the skins table on first start.
// Adding a skin here makes it available after the next migration run.
var DefaultSkins = []model.Skin{
	{
		ID:             model.DefaultSkin,
		Name:           "Classic",
		CostPoints:     0,
		Description:    "The original green snake",
		ColorPrimary:   "#22c55e",
		ColorSecondary: "#16a34a",
	},
	{
		ID:             "neon",
		Name:           "Neon",
		CostPoints:     5000,
		Description:    "Glows in the dark",
		ColorPrimary:   "#06b6d4",
		ColorSecondary: "#0891b2",
	},
	{
		ID:             "gold",
		Name:           "Gold",
		CostPoints:     25000,
		Description:    "For serious pill collectors",
		ColorPrimary:   "#facc15",
		ColorSecondary: "#ca8a04",
	},
	{
		ID:             "inferno",
		Name:           "Inferno",
		CostPoints:     50000,
		Description:    "Burning trail",
		ColorPrimary:   "#ef4444",
		ColorSecondary: "#f97316",
		IsAnimated:     true,
	},
	{
		ID:             "rainbow",
		Name:           "Rainbow",
		CostPoints:     100000,
		Description:    "Cycles through every color",
		ColorPrimary:   "#a855f7",
		ColorSecondary: "#ec4899",
		IsAnimated:     true,
	},
}

// Find returns the catalog entry for id.
func Find(id string) (model.Skin, bool) {
	for _, s := range DefaultSkins {
		if s.ID == id {
			return s, true
		}
	}
	return model.Skin{}, false
}
