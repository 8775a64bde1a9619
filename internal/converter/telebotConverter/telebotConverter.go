package telebotConverter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/internal/model/tg/tgCallback"
	tele "gopkg.in/telebot.v4"
)

func CollectionListResponse(collections []model.Collection, defaultID string) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString("🗂 Your collections:\n\n")

	rows := make([]tele.Row, 0, len(collections))
	for _, collection := range collections {
		label := collection.Name
		if collection.ID == defaultID {
			label += " ⭐"
		}
		rows = append(rows, markup.Row(markup.Data(label, tgCallback.CollectionPrefix+collection.ID)))
	}

	markup.Inline(rows...)

	return sb.String(), markup
}

func CollectionPageResponse(page model.CollectionPage) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🗂 Collection: %s\n\n", page.Collection.Name))

	if len(page.Cards) == 0 {
		sb.WriteString("No cards yet. Use /search to find one.\n")
	}

	cardBtns := make([]tele.Row, 0, len(page.Cards))
	for _, card := range page.Cards {
		sb.WriteString(fmt.Sprintf("▫️ %s (%s #%s)\n", card.Card.Name, card.Card.SetCode, card.Card.Number))
		sb.WriteString(fmt.Sprintf("   %s / %s · %d pcs · $%s\n\n", card.Condition, card.Finish, card.Quantity, card.CurrentValue.StringFixed(2)))

		cardBtns = append(cardBtns, markup.Row(markup.Data(card.Card.Name, tgCallback.OpenCardPrefix+card.CollectionCardID)))
	}

	paginationBtns := make([]tele.Btn, 0, 2)
	if page.CurPage > 0 {
		paginationBtns = append(paginationBtns, markup.Data("⬅️ prev", tgCallback.PrevPagePrefix+strconv.Itoa(page.CurPage-1)))
	}

	if page.HasNextPage {
		paginationBtns = append(paginationBtns, markup.Data("next ➡️", tgCallback.NextPagePrefix+strconv.Itoa(page.CurPage+1)))
	}

	rows := append(cardBtns, markup.Row(paginationBtns...))
	rows = append(rows, markup.Row(markup.Data("📄 Export report", tgCallback.ExportReport)))
	markup.Inline(rows...)

	return sb.String(), markup
}

func CardDetailResponse(page model.CardHoldingPage) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🃏 %s (%s #%s)\n", page.Card.Name, page.Card.SetCode, page.Card.Number))
	sb.WriteString(fmt.Sprintf("%s / %s\n\n", page.Ref.Condition, page.Ref.Finish))

	sb.WriteString(fmt.Sprintf("📦 Quantity: %d\n", page.Snapshot.QuantityHeld))
	sb.WriteString(fmt.Sprintf("💵 Market price: $%s\n", page.Snapshot.MarketPrice.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("💰 Market value: $%s\n", page.Snapshot.MarketValue.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("🧾 Cost basis: $%s (avg $%s)\n", page.Snapshot.TotalCostBasis.StringFixed(2), page.Snapshot.AverageCostPerUnit.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("📈 Unrealized: $%s\n", page.Snapshot.UnrealizedGain.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("📉 Realized: $%s\n\n", page.Snapshot.RealizedGain.StringFixed(2)))

	txRows := make([]tele.Row, 0, len(page.Transactions))
	if len(page.Transactions) > 0 {
		sb.WriteString("🧾 Transactions (newest first):\n")
	}
	for _, tx := range page.Transactions {
		icon := "🟢"
		if tx.Type == model.TransactionTypeSell {
			icon = "🔴"
		}
		sb.WriteString(fmt.Sprintf("%s %s · %d pcs · $%s · %s\n", icon, tx.Type, tx.Quantity, tx.CostBasis.StringFixed(2), tx.Date.Format("2006-01-02")))

		txRows = append(txRows, markup.Row(
			markup.Data(fmt.Sprintf("✏️ %s %d pcs", tx.Date.Format("01-02"), tx.Quantity), tgCallback.EditTxPrefix+tx.ID),
			markup.Data("🗑", tgCallback.DeleteTxPrefix+tx.ID),
		))
	}

	rows := []tele.Row{
		markup.Row(
			markup.Data("➕ Buy", tgCallback.BuyCard),
			markup.Data("➖ Sell", tgCallback.SellCard),
		),
	}
	rows = append(rows, txRows...)
	rows = append(rows,
		markup.Row(markup.Data("🗑 Remove card", tgCallback.RemoveHolding)),
		markup.Row(markup.Data("⬅️ Back to collection", tgCallback.BackToList)),
	)
	markup.Inline(rows...)

	return sb.String(), markup
}

func SearchResultsResponse(cards []model.Card) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🔍 Found %d cards:\n\n", len(cards)))

	rows := make([]tele.Row, 0, len(cards))
	for _, card := range cards {
		sb.WriteString(fmt.Sprintf("▫️ %s (%s #%s, %s)\n", card.Name, card.SetCode, card.Number, card.Rarity))
		rows = append(rows, markup.Row(markup.Data(card.Name, tgCallback.AddCardPrefix+card.ID)))
	}

	markup.Inline(rows...)

	return sb.String(), markup
}

func SetsResponse(series string, sets []model.Set) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📚 Sets in series %s:\n\n", series))

	rows := make([]tele.Row, 0, len(sets))
	for _, set := range sets {
		sb.WriteString(fmt.Sprintf("▫️ %s (%s) · %d cards · %s\n", set.Name, set.Code, set.CardCount, set.ReleasedAt.Format("2006-01-02")))
		rows = append(rows, markup.Row(markup.Data(set.Name, tgCallback.SetPrefix+set.Code)))
	}

	markup.Inline(rows...)

	return sb.String(), markup
}

func ReportLinksResponse(links []model.ReportLink) string {
	var sb strings.Builder

	sb.WriteString("📄 Recent reports:\n\n")
	for _, link := range links {
		sb.WriteString(fmt.Sprintf("▫️ %s · %s\n", link.CreatedAt.Format("2006-01-02 15:04"), link.DownloadLink))
	}

	return sb.String()
}

// RetryResponse pairs an error message with a retry button so a failed load
// is recoverable in place.
func RetryResponse(message string) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("🔄 Try Again", tgCallback.RetryLoad)))
	return message, markup
}
