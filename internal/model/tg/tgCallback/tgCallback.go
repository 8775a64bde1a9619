package tgCallback

// Callback button uniques. Prefixed ones carry their payload appended after
// the colon.
const (
	BuyCard       string = "buy_card"
	SellCard      string = "sell_card"
	ExportReport  string = "export_report"
	RemoveHolding string = "remove_holding"
	RetryLoad     string = "retry_load"
	BackToList    string = "back_to_list"

	OpenCardPrefix   string = "open_card:"
	AddCardPrefix    string = "add_card:"
	SetPrefix        string = "set:"
	EditTxPrefix     string = "edit_tx:"
	DeleteTxPrefix   string = "delete_tx:"
	CollectionPrefix string = "collection:"
	PrevPagePrefix   string = "prev_page:"
	NextPagePrefix   string = "next_page:"
)
