package report

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/diewo77/ownervalue/internal/calc"
)

func sampleModel() calc.Model {
	return calc.Model{
		DataISO:        "2025-03-05",
		IndirizzoRiga1: "Via Roma 12",
		IndirizzoRiga2: "Milano",
		PercentualePm:  24,
		PuntiDiForza:   []string{"Vicino alla metro"},
		KPI:            calc.KPI{OccupazionePct: 68, ADR: 168, FatturatoLordoNettoPulizie: 41664},
		Spese: calc.Spese{
			Pulizie:                1000,
			UtenzeAmm:              1200,
			UtenzeDettaglio:        calc.UtenzeDettaglio{AmministrazioneMensile: 20},
			OTA:                    500,
			OTAPct:                 20,
			Kit:                    100,
			Assicurazione:          70,
			AssicurazioneDettaglio: calc.AssicurazioneInfo{PerPrenotazione: 3.5, Label: "Base"},
			PM:                     800,
			PMPct:                  24,
			Cedolare:               300,
			CedolarePct:            21,
			RingTotale:             150,
			Sicurezza: calc.Sicurezza{
				ExtraManuale:  0,
				ExtraDettagli: []calc.LineItem{{Label: "Sensore", Amount: 40}, {Amount: 10}},
			},
		},
		Opzionali: calc.Opzionali{
			Voci:   []calc.LineItem{{Label: "Tende", Amount: 200}, {Label: "", Amount: 99}},
			Totale: 200,
		},
	}
}

func find(t *testing.T, r Report, id string) Row {
	t.Helper()
	for _, row := range r.Costs {
		if row.ID == id {
			return row
		}
	}
	t.Fatalf("row %s missing", id)
	return Row{}
}

func TestBuildRows(t *testing.T) {
	r := Build(sampleModel(), time.Now())

	if r.Date != "05 marzo 2025" {
		t.Fatalf("unexpected date %q", r.Date)
	}
	if got := find(t, r, RowUtilities).Label; got != "Utenze e amministrazione" {
		t.Fatalf("expected admin utilities label got %q", got)
	}
	if got := find(t, r, RowInsurance).Sub; got != "Base • € 3,50 / prenotazione" {
		t.Fatalf("unexpected insurance sub %q", got)
	}
	if got := find(t, r, RowSecurityKit).Value; got != "—" {
		t.Fatalf("zero security kit must show a dash, got %q", got)
	}
	if got := find(t, r, "p6-extra-2").Label; got != calc.DefaultDeviceLabel {
		t.Fatalf("unnamed device must use default label, got %q", got)
	}
	if got := find(t, r, RowPM).Sub; got != "24%" {
		t.Fatalf("unexpected pm pct %q", got)
	}

	opt := find(t, r, "p6-opt-1")
	if !opt.Optional || opt.Note != OptionalNote {
		t.Fatalf("excluded optional row must carry the note: %+v", opt)
	}
	for _, row := range r.Costs {
		if row.ID == RowOptionalSum || row.ID == "p6-opt-2" {
			t.Fatalf("unexpected row %s", row.ID)
		}
	}

	var ids []string
	for _, row := range r.Costs {
		ids = append(ids, row.ID)
	}
	want := []string{RowCleaning, RowUtilities, RowOTA, RowKit, RowInsurance, RowPM, RowFlatTax, RowSecurityKit, "p6-extra-1", "p6-extra-2", RowRing, "p6-opt-1"}
	if len(ids) != len(want) {
		t.Fatalf("expected rows %v got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("row %d: expected %s got %s", i, want[i], ids[i])
		}
	}

	// 1000+1200+500+100+70+800+300+40+10+150, optional excluded
	if r.TotalCosts != 4170 {
		t.Fatalf("expected total 4170 got %v", r.TotalCosts)
	}
}

func TestBuildIncludedOptionalCountedOnce(t *testing.T) {
	m := sampleModel()
	m.Opzionali.Includi = true
	r := Build(m, time.Now())

	if opt := find(t, r, "p6-opt-1"); opt.Note != "" {
		t.Fatalf("included optional row must not carry the note")
	}
	if sum := find(t, r, RowOptionalSum); sum.Amount != 200 {
		t.Fatalf("expected optional summary 200 got %v", sum.Amount)
	}
	if r.TotalCosts != 4370 {
		t.Fatalf("expected total 4370 got %v", r.TotalCosts)
	}
}

func TestBuildHidesZeroRows(t *testing.T) {
	r := Build(calc.Model{}, time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC))
	if find(t, r, RowUtilities).Visible || find(t, r, RowInsurance).Visible {
		t.Fatalf("zero utilities and insurance must be hidden")
	}
	if find(t, r, RowUtilities).Label != "Utenze" {
		t.Fatalf("expected plain utilities label")
	}
	if r.Date != "09 gennaio 2026" {
		t.Fatalf("expected fallback date got %q", r.Date)
	}
	if r.Address1 != "—" {
		t.Fatalf("expected dash for missing address got %q", r.Address1)
	}
	if r.TotalCosts != 0 {
		t.Fatalf("expected zero total got %v", r.TotalCosts)
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2025-03-05", "2025-03-05T10:00", "2025-03-05T10:00:00Z", "2025-03-05T10:00:00.123+01:00"} {
		if got, ok := ParseDate(in); !ok || got.Day() != 5 {
			t.Fatalf("ParseDate(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseDate("ieri"); ok {
		t.Fatalf("expected parse failure")
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, Build(sampleModel(), time.Now())); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("output is not a pdf")
	}
}

func TestHubLatestAndSubscribe(t *testing.T) {
	h := NewHub()
	if _, ok := h.Latest(""); ok {
		t.Fatalf("expected no value")
	}
	h.Publish("", json.RawMessage(`{"v":1}`))

	ctx, cancel := context.WithCancel(context.Background())
	ch := h.Subscribe(ctx, DefaultChannel)
	select {
	case u := <-ch:
		if string(u.Model) != `{"v":1}` || u.Channel != DefaultChannel {
			t.Fatalf("unexpected primed update %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatalf("subscriber was not primed")
	}

	// nobody reads: only the latest survives
	h.Publish(DefaultChannel, json.RawMessage(`{"v":2}`))
	h.Publish(DefaultChannel, json.RawMessage(`{"v":3}`))
	select {
	case u := <-ch:
		if string(u.Model) != `{"v":3}` {
			t.Fatalf("expected latest value got %s", u.Model)
		}
	case <-time.After(time.Second):
		t.Fatalf("no update delivered")
	}

	h.Publish("other", json.RawMessage(`{}`))
	select {
	case u := <-ch:
		t.Fatalf("unexpected update from another channel %+v", u)
	default:
	}

	cancel()
	for range ch {
	}
	if n := h.Subscribers(DefaultChannel); n != 0 {
		t.Fatalf("expected subscriber removed, got %d", n)
	}
}

func TestModelFromPayloadKeepsSavedPlanLabel(t *testing.T) {
	raw := []byte(`{
		"modello": {"descrizione": "Bilocale luminoso", "spese": {"assicurazioneDettaglio": {"perPrenotazione": 3.5, "label": "Premium"}}},
		"formState": {"fields": {"prezzoMedioNotte": "168", "occupazioneAnnuale": "68", "assicurazionePerSoggiorno": "3.5"}}
	}`)
	m, err := ModelFromPayload(raw)
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	if got := m.Spese.AssicurazioneDettaglio.Label; got != "Premium" {
		t.Fatalf("expected saved plan label got %q", got)
	}
	if m.Descrizione != "Bilocale luminoso" {
		t.Fatalf("expected saved description got %q", m.Descrizione)
	}
	if sub := find(t, Build(m, time.Now()), RowInsurance).Sub; sub != "Premium • € 3,50 / prenotazione" {
		t.Fatalf("unexpected insurance sub %q", sub)
	}

	// a different price means a different plan
	changed := bytes.Replace(raw, []byte(`"assicurazionePerSoggiorno": "3.5"`), []byte(`"assicurazionePerSoggiorno": "5"`), 1)
	m, err = ModelFromPayload(changed)
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	if got := m.Spese.AssicurazioneDettaglio.Label; got != "" {
		t.Fatalf("expected no label for a changed plan got %q", got)
	}
}
