package conversation

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	promptName        = "Product name?"
	promptDescription = "Description? Send - to skip."
	promptFlowChoice  = "Does the product come in variants (memory/colors)?"
	promptPrice       = "Price?"
	promptPhoto       = "Send a photo, or skip."
	promptMemory      = "Memory size for this tier (e.g. 256GB)? Send - if not applicable."
	promptColors      = "Colors for this tier, comma-separated (e.g. Black, White)."
	promptVariantMenu = "Tier saved. Add another memory tier or finish?"

	msgEmptyName       = "Name cannot be empty. Product name?"
	msgBadPrice        = "Could not parse that price. Send a positive number."
	msgBadCategory     = "Unknown category ID. Pick one from the list."
	msgEmptyColors     = "Color list cannot be empty. Send at least one color."
	msgUploadFailed    = "Photo upload failed, try sending it again."
	msgNoGroups        = "Nothing to submit yet. Add at least one memory tier."
	msgCancelled       = "Cancelled. The draft has been discarded."
	msgNoActiveDialog  = "No active dialog. Use /add to create an item."
	msgEditItemPrompt  = "Item ID to change the price of?"
	msgBadItemID       = "Could not parse that item ID. Send a number."
	priceOnRequestText = "price on request"
)

func promptCategoryList(options []CategoryOption) string {
	var b strings.Builder
	b.WriteString("Pick a category (send its ID):\n")
	for _, opt := range options {
		fmt.Fprintf(&b, "%d. %s\n", opt.ID, opt.Label)
	}
	return strings.TrimRight(b.String(), "\n")
}

func promptColorPrice(color string) string {
	return fmt.Sprintf("Price for %s?", color)
}

func promptColorPhoto(color string) string {
	return fmt.Sprintf("Photo for %s? Send one or skip.", color)
}

func formatPrice(price float64) string {
	if price == PriceOnRequest {
		return priceOnRequestText
	}
	return strconv.FormatFloat(price, 'f', -1, 64)
}

func flowChoiceButtons() [][]ReplyButton {
	return [][]ReplyButton{{
		{Label: "Simple", Token: TokenFlowSimple},
		{Label: "With variants", Token: TokenFlowComplex},
	}}
}

func skipPhotoButtons() [][]ReplyButton {
	return [][]ReplyButton{{
		{Label: "Skip", Token: TokenSkipPhoto},
	}}
}

func variantMenuButtons() [][]ReplyButton {
	return [][]ReplyButton{{
		{Label: "Add memory tier", Token: TokenAddMemory},
		{Label: "Finish", Token: TokenFinish},
	}}
}

func categoryButtons(options []CategoryOption) [][]ReplyButton {
	var rows [][]ReplyButton
	var row []ReplyButton
	for _, opt := range options {
		row = append(row, ReplyButton{
			Label: opt.Label,
			Token: TokenCategory + "|" + strconv.FormatInt(opt.ID, 10),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}
