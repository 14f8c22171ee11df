package calc

import (
	"regexp"
	"strings"
)

// Control ids of the calculator form.
const (
	FieldDate            = "dataISO"
	FieldAddress1        = "indirizzoRiga1"
	FieldAddress2        = "indirizzoRiga2"
	FieldStrengths       = "puntiForza"
	FieldNightlyRate     = "prezzoMedioNotte"
	FieldOccupancy       = "occupazioneAnnuale"
	FieldAvgStay         = "durataMediaSoggiorno"
	FieldCleaningPerStay = "puliziePerSoggiorno"
	FieldKitPerStay      = "kitPerSoggiorno"
	FieldInsurancePlan   = "assicurazionePerSoggiorno"
	FieldInsuranceLabel  = "assicurazioneLabel"
	FieldAuto            = "autoCalcPerSoggiorno"
	FieldManualCleaning  = "totalePulizieOspite"
	FieldManualKit       = "costoWelcomeKit"
	FieldManualInsurance = "assicurazioneAnnuaManuale"
	FieldOTAPct          = "percentualeOta"
	FieldPMPct           = "percentualePm"
	FieldFlatTaxPct      = "percentualeCedolare"
	FieldUtilityMonths   = "utenzeMesi"
	FieldPowerGas        = "speseLuceGas"
	FieldWifi            = "speseWifi"
	FieldAdmin           = "speseAmministrazione"
	FieldWaterWaste      = "speseAcquaTari"
	FieldSecuritySetup   = "costoRingSetup"
	FieldSecurityMonthly = "abbonamentoMensile"
	FieldSecurityKit     = "speseUnaTantumManuali"
	FieldIRESPct         = "aliquotaIres"
	FieldIRAPPct         = "aliquotaIrap"
)

// InsurancePlan is the selected per-stay insurance option.
type InsurancePlan struct {
	Label   string  `json:"label"`
	PerStay float64 `json:"perStay"`
}

// LineItem is a labelled amount.
type LineItem struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// Inputs is the typed input set of a projection. Zero values of the rates
// mean "use the default"; nil pointers mark controls that were absent.
type Inputs struct {
	Date      string
	Address1  string
	Address2  string
	Strengths []string

	NightlyRate  float64
	OccupancyPct float64
	AvgStay      float64

	CleaningPerStay float64
	KitPerStay      float64
	Insurance       InsurancePlan

	Auto            bool
	ManualCleaning  float64
	ManualKit       float64
	ManualInsurance float64

	OTAPct     float64
	PMPct      float64
	FlatTaxPct float64
	IRESPct    *float64
	IRAPPct    *float64

	UtilityMonths *float64
	PowerGas      float64
	Wifi          float64
	Admin         float64
	WaterWaste    float64
	FixedExtras   []LineItem

	SecuritySetup   float64
	SecurityMonthly float64
	SecurityKit     float64
	Devices         []LineItem

	OptionalExtras  []LineItem
	IncludeOptional bool
}

var strengthBullet = regexp.MustCompile(`^-+\s*`)

// FromFormState maps the raw form content to typed inputs.
func FromFormState(fs FormState) Inputs {
	in := Inputs{
		Date:      strings.TrimSpace(fs.Text(FieldDate)),
		Address1:  strings.TrimSpace(fs.Text(FieldAddress1)),
		Address2:  strings.TrimSpace(fs.Text(FieldAddress2)),
		Strengths: parseStrengths(fs.Text(FieldStrengths)),

		NightlyRate:  fs.Num(FieldNightlyRate),
		OccupancyPct: fs.Num(FieldOccupancy),
		AvgStay:      fs.Num(FieldAvgStay),

		CleaningPerStay: fs.Num(FieldCleaningPerStay),
		KitPerStay:      fs.Num(FieldKitPerStay),
		Insurance: InsurancePlan{
			Label:   strings.TrimSpace(fs.Text(FieldInsuranceLabel)),
			PerStay: fs.Num(FieldInsurancePlan),
		},

		Auto:            fs.Bool(FieldAuto, true),
		ManualCleaning:  fs.Num(FieldManualCleaning),
		ManualKit:       fs.Num(FieldManualKit),
		ManualInsurance: fs.Num(FieldManualInsurance),

		OTAPct:     fs.Num(FieldOTAPct),
		PMPct:      fs.Num(FieldPMPct),
		FlatTaxPct: fs.Num(FieldFlatTaxPct),

		PowerGas:   fs.Num(FieldPowerGas),
		Wifi:       fs.Num(FieldWifi),
		Admin:      fs.Num(FieldAdmin),
		WaterWaste: fs.Num(FieldWaterWaste),

		SecuritySetup:   fs.Num(FieldSecuritySetup),
		SecurityMonthly: fs.Num(FieldSecurityMonthly),
		SecurityKit:     fs.Num(FieldSecurityKit),

		IncludeOptional: fs.IncludeOptionalExtras,
	}

	if fs.Has(FieldIRESPct) {
		v := fs.Num(FieldIRESPct)
		in.IRESPct = &v
	}
	if fs.Has(FieldIRAPPct) {
		v := fs.Num(FieldIRAPPct)
		in.IRAPPct = &v
	}
	// blank or unreadable month counts fall back to a full year
	if v, ok := parseFinite(fs.Text(FieldUtilityMonths)); ok {
		in.UtilityMonths = &v
	}

	for _, fx := range fs.FixedExtras {
		in.FixedExtras = append(in.FixedExtras, LineItem{Label: strings.TrimSpace(fx.Label), Amount: fx.Value.Float()})
	}
	for _, d := range fs.DeviceCosts {
		in.Devices = append(in.Devices, LineItem{Label: strings.TrimSpace(d.Name), Amount: d.Amount.Float()})
	}
	for _, o := range fs.OptionalExtras {
		in.OptionalExtras = append(in.OptionalExtras, LineItem{Label: strings.TrimSpace(o.Name), Amount: o.Amount.Float()})
	}
	return in
}

func parseStrengths(s string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(strengthBullet.ReplaceAllString(strings.TrimSpace(line), ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
