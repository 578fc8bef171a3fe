package billgen

import (
	"fmt"
	"math"

	"billsmith/backend/internal/domain"
)

// FormatBill turns an accepted attempt into a bill. It reads only the
// attempt, so formatting the same attempt twice yields identical bills.
func FormatBill(att *Attempt, number, date, purchaser, payment string, target float64) domain.Bill {
	bill := domain.Bill{
		Number:        number,
		Date:          date,
		Purchaser:     purchaser,
		PaymentMethod: payment,
		Target:        target,
		Lines:         make([]domain.BillLine, 0, len(att.Lines)),
	}
	total := 0.0
	for _, line := range att.Lines {
		bill.Lines = append(bill.Lines, domain.BillLine{
			ItemName:    line.Item.Name,
			Qty:         line.Qty,
			UnitPrice:   line.Item.UnitPrice,
			GSTPercent:  line.Item.GSTPercent,
			CESSPercent: line.Item.CESSPercent,
			MRP:         line.Item.MRP,
			LineTotal:   line.Total,
		})
		total += line.Total
	}
	bill.Total = Round2(total)
	return bill
}

// ExportRows flattens a bill into one row per line item. The GST amount
// splits evenly into CGST and SGST halves; cash bills carry a round-off
// delta to the nearest rupee.
func ExportRows(bill domain.Bill) []domain.BillExportRow {
	rounded := math.Round(bill.Total)
	roundOff := Round2(rounded - bill.Total)
	payable := rounded
	if bill.PaymentMethod != "cash" {
		roundOff = 0
		payable = bill.Total
	}

	rows := make([]domain.BillExportRow, 0, len(bill.Lines))
	for _, line := range bill.Lines {
		preTax := Round2(line.UnitPrice * line.Qty)
		gstAmount := Round2(line.UnitPrice * line.Qty * line.GSTPercent / 100)
		cessAmount := Round2(line.MRP * line.Qty * line.CESSPercent / 100)
		rows = append(rows, domain.BillExportRow{
			BillNumber:    bill.Number,
			BillDate:      DisplayDate(bill.Date),
			Purchaser:     bill.Purchaser,
			PaymentMethod: bill.PaymentMethod,
			ItemName:      line.ItemName,
			Qty:           line.Qty,
			UnitPrice:     line.UnitPrice,
			PreTaxAmount:  preTax,
			GSTPercent:    line.GSTPercent,
			CGSTPercent:   line.GSTPercent / 2,
			SGSTPercent:   line.GSTPercent / 2,
			CGSTAmount:    Round2(gstAmount / 2),
			SGSTAmount:    Round2(gstAmount / 2),
			CESSPercent:   line.CESSPercent,
			CESSAmount:    cessAmount,
			LineTotal:     line.LineTotal,
			BillTotal:     bill.Total,
			RoundOff:      roundOff,
			PayableTotal:  payable,
		})
	}
	return rows
}

// DisplayDate converts an ISO date (YYYY-MM-DD) to DD/MM/YYYY. Inputs
// that are not ISO dates pass through unchanged.
func DisplayDate(iso string) string {
	if len(iso) != 10 || iso[4] != '-' || iso[7] != '-' {
		return iso
	}
	return fmt.Sprintf("%s/%s/%s", iso[8:10], iso[5:7], iso[0:4])
}

// BillNumber renders the sequential bill id: prefix plus a zero-padded
// four digit index.
func BillNumber(prefix string, index int) string {
	return fmt.Sprintf("%s%04d", prefix, index)
}
