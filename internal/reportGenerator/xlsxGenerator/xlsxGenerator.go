package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cardkeep/cardkeep_bot/internal/model"
	"github.com/cardkeep/cardkeep_bot/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, report model.CollectionReport) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if len(report.Cards) == 0 {
		return nil, "", errors.New("empty collection")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillSheet(ctx, f, report); err != nil {
		return nil, "", err
	}

	// drop the default "Sheet1"
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), "xlsx", nil
}

func (g *XLSXGenerator) sectionStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XLSXGenerator) fillSheet(ctx context.Context, f *excelize.File, report model.CollectionReport) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.fillSheet"

	sheetName := report.Collection.Name
	_, err := f.NewSheet(sheetName)
	if err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	// holdings
	if err := f.MergeCell(sheetName, "A1", "G1"); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Holdings")

	styleID, err := g.sectionStyle(f, "#cfe2f3")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("failed applying style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "card")
	_ = f.SetCellStr(sheetName, "B2", "set")
	_ = f.SetCellStr(sheetName, "C2", "number")
	_ = f.SetCellStr(sheetName, "D2", "condition")
	_ = f.SetCellStr(sheetName, "E2", "finish")
	_ = f.SetCellStr(sheetName, "F2", "quantity")
	_ = f.SetCellStr(sheetName, "G2", "current value")

	for i, card := range report.Cards {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), card.Card.Name)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), card.Card.SetCode)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), card.Card.Number)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", row), card.Condition)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", row), card.Finish)
		_ = f.SetCellInt(sheetName, fmt.Sprintf("F%d", row), int(card.Quantity))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), card.CurrentValue.InexactFloat64())
	}

	// transaction history
	rowNum := len(report.Cards) + 6

	if err := f.MergeCell(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("F%d", rowNum)); err != nil {
		return err
	}

	f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), "Transaction History")

	styleID, err = g.sectionStyle(f, "#d9ead3")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("A%d", rowNum), styleID); err != nil {
		return fmt.Errorf("failed applying style: %w", err)
	}

	rowNum++
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), "card")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), "type")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", rowNum), "quantity")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", rowNum), "cost basis")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("E%d", rowNum), "avg per card")
	_ = f.SetCellStr(sheetName, fmt.Sprintf("F%d", rowNum), "date")

	for _, card := range report.Cards {
		for _, tx := range report.Histories[card.CollectionCardID] {
			rowNum++
			_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", rowNum), card.Card.Name)
			_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", rowNum), string(tx.Type))
			_ = f.SetCellInt(sheetName, fmt.Sprintf("C%d", rowNum), int(tx.Quantity))
			_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), tx.CostBasis.InexactFloat64())
			if tx.Quantity > 0 {
				_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), tx.CostBasis.Div(decimal.NewFromInt(int64(tx.Quantity))).InexactFloat64())
			}
			_ = f.SetCellStr(sheetName, fmt.Sprintf("F%d", rowNum), tx.Date.Format("2006-01-02"))
		}
	}

	return nil
}
