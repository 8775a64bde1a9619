package model

type action int

const (
	DefaultAction action = iota
	ExpectingCardSearch
	ExpectingSeriesName
	ExpectingTxQuantity
	ExpectingTxCostBasis
	ExpectingEditQuantity
	ExpectingEditCostBasis
)

type Session struct {
	Action         action
	CollectionID   string
	CollectionName string
	// Page is the collection page the user is looking at, kept for
	// back-navigation after a card view closes.
	Page int
	// PageRefs maps the rendered page's collection-card IDs to full refs, so
	// a card button press can address the holding without re-listing.
	PageRefs map[string]CardRef
	// Ref addresses the currently open card view.
	Ref CardRef
	// QuantityHeld is the pre-mutation snapshot quantity shown in the card
	// view, used for the sell pre-check and dialog validation.
	QuantityHeld int
	// Mutating blocks a second mutation while one is in flight.
	Mutating bool
	Draft    *TransactionDraft
}

// TransactionDraft accumulates dialog input across chat messages.
type TransactionDraft struct {
	Type          TransactionType
	Quantity      int
	TransactionID string
}
