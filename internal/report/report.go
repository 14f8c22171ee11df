// Package report turns a saved projection model into the rows of the owner
// report, keeps the latest model per channel for live previews, and renders
// the report as a PDF.
package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/ownervalue/internal/calc"
)

// Row ids of the costs page.
const (
	RowCleaning     = "p6-pulizie"
	RowUtilities    = "p6-ua"
	RowOTA          = "p6-ota"
	RowKit          = "p6-kit"
	RowInsurance    = "p6-assicurazione"
	RowPM           = "p6-pm"
	RowFlatTax      = "p6-cedolare"
	RowSecurityKit  = "p6-una"
	RowRing         = "p6-ring"
	RowOptionalSum  = "p6-optional-summary-row"
	extraRowPrefix  = "p6-extra-"
	optionalPrefix  = "p6-opt-"
	OptionalNote    = "OPZIONALE"
	emptyAmountText = "—"
)

// Row is one line of the costs page.
type Row struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Sub      string  `json:"sub,omitempty"`
	Amount   float64 `json:"amount"`
	Value    string  `json:"value"`
	Visible  bool    `json:"visible"`
	Optional bool    `json:"optional,omitempty"`
	Note     string  `json:"note,omitempty"`
}

// Report is the formatted owner report.
type Report struct {
	Date        string   `json:"date"`
	Address1    string   `json:"indirizzoRiga1"`
	Address2    string   `json:"indirizzoRiga2"`
	Description string   `json:"descrizione"`
	Strengths   []string `json:"puntiDiForza"`

	Occupancy string `json:"occupazione"`
	ADR       string `json:"adr"`
	Revenue   string `json:"fatturato"`
	PMPct     string `json:"pmPct"`

	Costs          []Row   `json:"costi"`
	TotalCosts     float64 `json:"totaleCosti"`
	TotalCostsText string  `json:"totaleCostiText"`

	GrossProfit string `json:"utileLordo"`
	NetAnnual   string `json:"utileNetto"`
	NetMonthly  string `json:"mensileNetto"`
}

// Visible returns the rows that are shown.
func (r Report) Visible() []Row {
	out := make([]Row, 0, len(r.Costs))
	for _, row := range r.Costs {
		if row.Visible {
			out = append(out, row)
		}
	}
	return out
}

// Build lays out the report for m. now is used when the model carries no
// usable date.
func Build(m calc.Model, now time.Time) Report {
	strengths := m.PuntiDiForza
	if strengths == nil {
		strengths = []string{}
	}
	address1 := m.IndirizzoRiga1
	if address1 == "" {
		address1 = emptyAmountText
	}
	r := Report{
		Date:        FormatDate(m.DataISO, now),
		Address1:    address1,
		Address2:    m.IndirizzoRiga2,
		Description: m.Descrizione,
		Strengths:   strengths,
		Occupancy:   calc.FormatPctRounded(m.KPI.OccupazionePct),
		ADR:         calc.FormatEUR(m.KPI.ADR),
		Revenue:     calc.FormatEUR(m.KPI.FatturatoLordoNettoPulizie),
		PMPct:       calc.FormatPctRounded(pmPct(m)),
		GrossProfit: calc.FormatEUR(m.Risultati.UtileLordo),
		NetAnnual:   calc.FormatEUR(m.Risultati.UtileNetto),
		NetMonthly:  calc.FormatEUR(m.Risultati.MensileNetto),
	}

	s := m.Spese
	add := func(row Row) { r.Costs = append(r.Costs, row) }

	add(money(RowCleaning, "Pulizie", s.Pulizie, true))
	add(money(RowUtilities, utilitiesLabel(s), s.UtenzeAmm, s.UtenzeAmm > 0))
	ota := money(RowOTA, "Commissioni OTA", s.OTA, true)
	ota.Sub = calc.FormatPctRounded(s.OTAPct)
	add(ota)
	add(money(RowKit, "Kit di cortesia", s.Kit, true))
	ins := money(RowInsurance, "Assicurazione", s.Assicurazione, s.Assicurazione > 0)
	if ins.Visible {
		ins.Sub = insuranceSub(s.AssicurazioneDettaglio)
	}
	add(ins)
	pm := money(RowPM, "Property management", s.PM, true)
	pm.Sub = r.PMPct
	add(pm)
	ced := money(RowFlatTax, "Cedolare secca", s.Cedolare, true)
	ced.Sub = calc.FormatPctRounded(s.CedolarePct)
	add(ced)

	kit := money(RowSecurityKit, "Kit Sicurezza", max(0, s.Sicurezza.ExtraManuale), true)
	kit.Sub = "Estintore, rilevatore fumo, monossido di carbonio, gas combustibile"
	if kit.Amount <= 0 {
		kit.Value = emptyAmountText
	}
	add(kit)
	for i, d := range s.Sicurezza.ExtraDettagli {
		label := d.Label
		if label == "" {
			label = calc.DefaultDeviceLabel
		}
		add(money(extraRowPrefix+itoa(i+1), label, max(0, d.Amount), true))
	}
	add(money(RowRing, "Sistema di sicurezza", ringTotal(s), true))

	opt := m.Opzionali
	for i, it := range opt.Voci {
		if strings.TrimSpace(it.Label) == "" || it.Amount <= 0 {
			continue
		}
		row := money(optionalPrefix+itoa(i+1), it.Label, it.Amount, true)
		row.Optional = true
		if !opt.Includi {
			row.Note = OptionalNote
		}
		add(row)
	}
	optTotal := optionalTotal(opt)
	if opt.Includi && optTotal > 0 {
		add(money(RowOptionalSum, "Spese Extra Opzionali", optTotal, true))
	}

	// Optional item rows are informative; when included their sum is counted
	// once through the summary row.
	for _, row := range r.Costs {
		if row.Visible && !row.Optional {
			r.TotalCosts += row.Amount
		}
	}
	r.TotalCostsText = calc.FormatEUR(r.TotalCosts)
	return r
}

func itoa(i int) string { return strconv.Itoa(i) }

func money(id, label string, amount float64, visible bool) Row {
	return Row{ID: id, Label: label, Amount: amount, Value: calc.FormatEUR(amount), Visible: visible}
}

func utilitiesLabel(s calc.Spese) string {
	if s.IncludeAmministrazione || s.UtenzeDettaglio.AmministrazioneMensile > 0 || s.UtenzeDettaglio.AmministrazioneAnnua > 0 {
		return "Utenze e amministrazione"
	}
	return "Utenze"
}

func insuranceSub(d calc.AssicurazioneInfo) string {
	var parts []string
	if d.Label != "" {
		parts = append(parts, d.Label)
	}
	if d.PerPrenotazione > 0 {
		parts = append(parts, calc.FormatPerStay(d.PerPrenotazione)+" / prenotazione")
	}
	return strings.Join(parts, " • ")
}

func ringTotal(s calc.Spese) float64 {
	if s.RingTotale != 0 {
		return s.RingTotale
	}
	return s.Sicurezza.RingSetup + s.Sicurezza.RingSubAnn
}

func pmPct(m calc.Model) float64 {
	if m.Spese.PMPct != 0 {
		return m.Spese.PMPct
	}
	return m.PercentualePm
}

func optionalTotal(o calc.Opzionali) float64 {
	total := 0.0
	for _, it := range o.Voci {
		if strings.TrimSpace(it.Label) != "" && it.Amount > 0 {
			total += it.Amount
		}
	}
	return total
}
