package models

// Action types understood by the dispatcher. Anything else is ignored.
const (
	ActionOpenLink = "open_link"
	ActionScroll   = "scroll"
	ActionCheckout = "checkout"
)

// ActionDescriptor is the declarative payload attached to a page button.
// Type discriminates the variant; the remaining fields are variant-specific
// and left zero for the others.
type ActionDescriptor struct {
	Type string `json:"type"`

	// open_link
	URL    string `json:"url,omitempty"`
	NewTab bool   `json:"new_tab,omitempty"`

	// scroll
	TargetID string `json:"target_id,omitempty"`

	// checkout
	ProductID   string   `json:"product_id,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	CheckoutURL string   `json:"checkout_url,omitempty"`
}

// FormField is one serialized input/select of the active form, as captured
// by the page runtime at the moment of submission.
type FormField struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Value string `json:"value"`
}

// FormSnapshot maps a field key (name, falling back to id) to its value.
type FormSnapshot map[string]string
