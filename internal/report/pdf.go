package report

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageW    = 210.0
	marginL  = 18.0
	marginR  = 18.0
	contentW = pageW - marginL - marginR
	rowH     = 9.0
)

var (
	colorBrand = [3]int{24, 62, 92}
	colorMuted = [3]int{110, 120, 130}
	colorText  = [3]int{33, 37, 41}
	colorCost  = [3]int{176, 42, 55}
	colorGood  = [3]int{25, 135, 84}
	colorLine  = [3]int{222, 226, 230}
	colorOpt   = [3]int{232, 246, 238}
)

func setFill(pdf *gofpdf.Fpdf, c [3]int) { pdf.SetFillColor(c[0], c[1], c[2]) }
func setText(pdf *gofpdf.Fpdf, c [3]int) { pdf.SetTextColor(c[0], c[1], c[2]) }
func setDraw(pdf *gofpdf.Fpdf, c [3]int) { pdf.SetDrawColor(c[0], c[1], c[2]) }

// WritePDF renders r as an A4 document.
func WritePDF(w io.Writer, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginL, 15, marginR)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 7)
		setText(pdf, colorMuted)
		pdf.CellFormat(contentW/2, 6, "Owner Value", "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW/2, 6, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	setFill(pdf, colorBrand)
	pdf.Rect(0, 0, pageW, 38, "F")
	pdf.SetXY(marginL, 12)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(contentW, 9, tr(r.Address1), "", 1, "L", false, 0, "")
	pdf.SetX(marginL)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentW, 6, tr(r.Address2), "", 1, "L", false, 0, "")
	pdf.SetX(marginL)
	pdf.SetFont("Helvetica", "", 8.5)
	pdf.CellFormat(contentW, 5, tr(r.Date), "", 1, "L", false, 0, "")

	pdf.SetY(46)
	if r.Description != "" {
		setText(pdf, colorText)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(contentW, 5, tr(r.Description), "", "L", false)
		pdf.Ln(2)
	}
	if len(r.Strengths) > 0 {
		section(pdf, tr, "Punti di forza")
		pdf.SetFont("Helvetica", "", 10)
		setText(pdf, colorText)
		for _, s := range r.Strengths {
			pdf.SetX(marginL + 2)
			pdf.MultiCell(contentW-2, 5, tr("• "+s), "", "L", false)
		}
		pdf.Ln(2)
	}

	section(pdf, tr, "Indicatori")
	kpi := []struct{ label, value string }{
		{"Occupazione", r.Occupancy},
		{"Tariffa media a notte", r.ADR},
		{"Fatturato lordo", r.Revenue},
	}
	boxW := contentW / float64(len(kpi))
	y := pdf.GetY()
	for i, k := range kpi {
		x := marginL + float64(i)*boxW
		setDraw(pdf, colorLine)
		pdf.Rect(x, y, boxW-2, 18, "D")
		pdf.SetXY(x+3, y+2)
		pdf.SetFont("Helvetica", "", 8)
		setText(pdf, colorMuted)
		pdf.CellFormat(boxW-8, 4, tr(k.label), "", 0, "L", false, 0, "")
		pdf.SetXY(x+3, y+8)
		pdf.SetFont("Helvetica", "B", 13)
		setText(pdf, colorBrand)
		pdf.CellFormat(boxW-8, 7, tr(k.value), "", 0, "L", false, 0, "")
	}
	pdf.SetY(y + 24)

	section(pdf, tr, "Costi annuali")
	for _, row := range r.Visible() {
		costRow(pdf, tr, row)
	}
	pdf.Ln(1)
	pdf.SetFont("Helvetica", "B", 11)
	setText(pdf, colorText)
	pdf.CellFormat(contentW*0.65, rowH, tr("Totale costi"), "T", 0, "L", false, 0, "")
	setText(pdf, colorCost)
	pdf.CellFormat(contentW*0.35, rowH, tr(r.TotalCostsText), "T", 1, "R", false, 0, "")
	pdf.Ln(4)

	section(pdf, tr, "Risultati")
	for _, res := range []struct{ label, value string }{
		{"Utile lordo", r.GrossProfit},
		{"Utile netto annuo", r.NetAnnual},
		{"Netto mensile", r.NetMonthly},
	} {
		pdf.SetFont("Helvetica", "", 10)
		setText(pdf, colorText)
		pdf.CellFormat(contentW*0.65, rowH, tr(res.label), "B", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 11)
		setText(pdf, colorGood)
		pdf.CellFormat(contentW*0.35, rowH, tr(res.value), "B", 1, "R", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("report: render pdf: %w", err)
	}
	return pdf.Output(w)
}

func section(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	setText(pdf, colorBrand)
	pdf.CellFormat(contentW, 8, tr(title), "", 1, "L", false, 0, "")
}

func costRow(pdf *gofpdf.Fpdf, tr func(string) string, row Row) {
	h := rowH
	if row.Sub != "" || row.Note != "" {
		h += 4
	}
	x, y := marginL, pdf.GetY()
	if y+h > 277 {
		pdf.AddPage()
		y = pdf.GetY()
	}
	if row.Optional && row.Note != "" {
		setFill(pdf, colorOpt)
		pdf.Rect(x, y, contentW, h, "F")
	}

	pdf.SetXY(x+1, y+1)
	pdf.SetFont("Helvetica", "", 10)
	setText(pdf, colorText)
	pdf.CellFormat(contentW*0.65, 5, tr(row.Label), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	setText(pdf, colorCost)
	pdf.CellFormat(contentW*0.35-2, 5, tr(row.Value), "", 0, "R", false, 0, "")

	sub := row.Sub
	if row.Note != "" {
		sub = row.Note
	}
	if sub != "" {
		pdf.SetXY(x+1, y+6)
		pdf.SetFont("Helvetica", "", 7.5)
		setText(pdf, colorMuted)
		pdf.CellFormat(contentW*0.65, 4, tr(sub), "", 0, "L", false, 0, "")
	}

	setDraw(pdf, colorLine)
	pdf.Line(x, y+h, x+contentW, y+h)
	pdf.SetXY(x, y+h)
}
