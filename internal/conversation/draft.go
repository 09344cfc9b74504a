package conversation

import (
	"strconv"
	"strings"

	"shopbot/internal/catalog"
)

// PriceOnRequest is the reserved price meaning "price available on request".
// It is only stored for products whose base name matches the configured
// order-only prefix allow-list; display layers never show it as a number.
const PriceOnRequest float64 = -1

// ColorVariant is one finished color entry of a variant group.
type ColorVariant struct {
	Color     string   `json:"color"`
	Price     float64  `json:"price"`
	ImageURLs []string `json:"image_urls"`
}

// VariantGroup is one memory/storage tier. Details grows by exactly one
// entry per color, in color-list order, as the price+photo loop advances.
type VariantGroup struct {
	Memory  *string        `json:"memory"`
	Colors  []string       `json:"colors"`
	Details []ColorVariant `json:"details"`
}

// Complete reports whether every color has its variant collected.
func (g *VariantGroup) Complete() bool {
	return len(g.Colors) > 0 && len(g.Details) == len(g.Colors)
}

// Draft is the accumulating record for one in-progress product creation.
// It is owned exclusively by the dialogue and discarded on submit or cancel.
type Draft struct {
	BaseName     string  `json:"base_name"`
	Description  *string `json:"description"`
	CategoryID   int64   `json:"category_id"`
	CategoryName string  `json:"category_name"`

	// Category options captured when the list was fetched, so selection can
	// be validated without refetching.
	CategoryOptions []CategoryOption `json:"category_options,omitempty"`

	// Simple flow.
	SimplePrice  *float64 `json:"simple_price,omitempty"`
	SimpleImages []string `json:"simple_images,omitempty"`

	// Variant flow. Groups holds completed tiers; Current is the tier whose
	// color loop is still running, with ColorIndex pointing at the pending
	// color and PendingPrice stashed between the price and photo steps.
	Groups       []VariantGroup `json:"groups,omitempty"`
	Current      *VariantGroup  `json:"current,omitempty"`
	ColorIndex   int            `json:"color_index"`
	PendingPrice *float64       `json:"pending_price,omitempty"`

	// Price edit mini-flow.
	EditItemID int64 `json:"edit_item_id,omitempty"`
}

// CategoryOption is a flat category choice shown to the administrator.
type CategoryOption struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// CategoryByID finds a stored category option.
func (d *Draft) CategoryByID(id int64) (CategoryOption, bool) {
	for _, opt := range d.CategoryOptions {
		if opt.ID == id {
			return opt, true
		}
	}
	return CategoryOption{}, false
}

// CurrentColor returns the color the loop is waiting on.
func (d *Draft) CurrentColor() (string, bool) {
	if d.Current == nil || d.ColorIndex >= len(d.Current.Colors) {
		return "", false
	}
	return d.Current.Colors[d.ColorIndex], true
}

// Flatten expands the draft into individual item-creation requests, one per
// group×color for the variant flow or a single request for the simple flow.
func (d *Draft) Flatten() []catalog.ItemCreate {
	if len(d.Groups) == 0 {
		price := 0.0
		if d.SimplePrice != nil {
			price = *d.SimplePrice
		}
		images := d.SimpleImages
		if images == nil {
			images = []string{}
		}
		return []catalog.ItemCreate{{
			Name:        d.BaseName,
			Description: d.Description,
			Price:       price,
			CategoryID:  d.CategoryID,
			ImageURLs:   images,
			IsActive:    true,
		}}
	}

	var items []catalog.ItemCreate
	for _, group := range d.Groups {
		for _, v := range group.Details {
			color := v.Color
			images := v.ImageURLs
			if images == nil {
				images = []string{}
			}
			items = append(items, catalog.ItemCreate{
				Name:        d.BaseName,
				Description: d.Description,
				Price:       v.Price,
				CategoryID:  d.CategoryID,
				Memory:      group.Memory,
				Color:       &color,
				ImageURLs:   images,
				IsActive:    true,
			})
		}
	}
	return items
}

// ParsePrice interprets the administrator's price entry. Comma decimals are
// accepted. A non-numeric entry yields the PriceOnRequest sentinel, but only
// when the base name matches one of the order-only prefixes.
func ParsePrice(text, baseName string, orderOnlyPrefixes []string) (float64, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, false
	}
	normalized := strings.ReplaceAll(trimmed, ",", ".")
	if price, err := strconv.ParseFloat(normalized, 64); err == nil {
		if price <= 0 {
			return 0, false
		}
		return price, true
	}
	if matchesOrderOnly(baseName, orderOnlyPrefixes) {
		return PriceOnRequest, true
	}
	return 0, false
}

func matchesOrderOnly(baseName string, prefixes []string) bool {
	name := strings.ToLower(strings.TrimSpace(baseName))
	for _, p := range prefixes {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// ParseColors splits a comma-separated color list, dropping blank tokens
// while preserving order.
func ParseColors(text string) []string {
	parts := strings.Split(text, ",")
	colors := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := strings.TrimSpace(p); c != "" {
			colors = append(colors, c)
		}
	}
	return colors
}

// skipMarker is the single-character answer that skips an optional field.
const skipMarker = "-"

// ParseOptionalText returns nil for the skip marker, otherwise the trimmed text.
func ParseOptionalText(text string) *string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == skipMarker {
		return nil
	}
	return &trimmed
}
