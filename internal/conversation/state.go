package conversation

// State identifies which question of the item-creation dialogue is pending.
type State string

const (
	// StateIdle indicates there is no active dialogue with the user.
	StateIdle State = "idle"

	// Linear prefix shared by both flows.
	StateAwaitingName        State = "awaiting_name"
	StateAwaitingDescription State = "awaiting_description"
	StateAwaitingCategory    State = "awaiting_category"
	StateAwaitingFlowChoice  State = "awaiting_flow_choice"

	// Simple flow: one price, optional photos, single submission.
	StateAwaitingPrice State = "awaiting_price"
	StateAwaitingPhoto State = "awaiting_photo"

	// Variant flow: memory tiers looping over color price+photo pairs.
	StateAwaitingVariantMemory State = "awaiting_variant_memory"
	StateAwaitingVariantColors State = "awaiting_variant_colors"
	StateAwaitingColorPrice    State = "awaiting_color_price"
	StateAwaitingColorPhoto    State = "awaiting_color_photo"
	StateAwaitingVariantMenu   State = "awaiting_variant_menu"

	// Price edit mini-flow.
	StateAwaitingEditItem  State = "awaiting_edit_item"
	StateAwaitingEditPrice State = "awaiting_edit_price"
)

func (s State) String() string { return string(s) }
