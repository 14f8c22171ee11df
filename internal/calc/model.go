package calc

// Model is the snapshot handed to the report, saved under datiJson.modello.
type Model struct {
	DataISO        string   `json:"dataISO"`
	IndirizzoRiga1 string   `json:"indirizzoRiga1"`
	IndirizzoRiga2 string   `json:"indirizzoRiga2"`
	Descrizione    string   `json:"descrizione"`
	PercentualePm  float64  `json:"percentualePm"`
	PuntiDiForza   []string `json:"puntiDiForza"`

	KPI       KPI       `json:"kpi"`
	Spese     Spese     `json:"spese"`
	Opzionali Opzionali `json:"opzionali"`
	Risultati Risultati `json:"risultati"`
}

type KPI struct {
	OccupazionePct             float64 `json:"occupazionePct"`
	ADR                        float64 `json:"adr"`
	FatturatoLordoNettoPulizie float64 `json:"fatturatoLordoNettoPulizie"`
	FatturatoLordoTotale       float64 `json:"fatturatoLordoTotale"`
}

type Spese struct {
	Pulizie                float64           `json:"pulizie"`
	UtenzeAmm              float64           `json:"utenzeAmm"`
	UtenzeMensili          float64           `json:"utenzeMensili"`
	UtenzeMesi             float64           `json:"utenzeMesi"`
	IncludeAmministrazione bool              `json:"includeAmministrazione"`
	UtenzeDettaglio        UtenzeDettaglio   `json:"utenzeDettaglio"`
	OTA                    float64           `json:"ota"`
	OTAPct                 float64           `json:"otaPct"`
	Kit                    float64           `json:"kit"`
	Assicurazione          float64           `json:"assicurazione"`
	AssicurazioneDettaglio AssicurazioneInfo `json:"assicurazioneDettaglio"`
	PM                     float64           `json:"pm"`
	PMPct                  float64           `json:"pmPct"`
	Cedolare               float64           `json:"cedolare"`
	CedolarePct            float64           `json:"cedolarePct"`
	UnaTantum              float64           `json:"unaTantum"`
	RingTotale             float64           `json:"ringTotale"`
	Sicurezza              Sicurezza         `json:"sicurezza"`
}

type UtenzeDettaglio struct {
	LuceGasMensile         float64 `json:"luceGasMensile"`
	WifiMensile            float64 `json:"wifiMensile"`
	AmministrazioneMensile float64 `json:"amministrazioneMensile"`
	AmministrazioneAnnua   float64 `json:"amministrazioneAnnua"`
	AcquaMensile           float64 `json:"acquaMensile"`
	ExtraMensili           float64 `json:"extraMensili"`
	TotaleMensile          float64 `json:"totaleMensile"`
}

type AssicurazioneInfo struct {
	PerPrenotazione float64 `json:"perPrenotazione"`
	Label           string  `json:"label"`
}

type Sicurezza struct {
	RingSetup     float64    `json:"ringSetup"`
	RingSubAnn    float64    `json:"ringSubAnn"`
	ExtraManuale  float64    `json:"extraManuale"`
	ExtraDettagli []LineItem `json:"extraDettagli"`
	Totale        float64    `json:"totale"`
}

type Opzionali struct {
	Includi bool       `json:"includi"`
	Voci    []LineItem `json:"voci"`
	Totale  float64    `json:"totale"`
}

type Risultati struct {
	UtileLordo   float64 `json:"utileLordo"`
	UtileNetto   float64 `json:"utileNetto"`
	MensileNetto float64 `json:"mensileNetto"`
}

// BuildModel assembles the report snapshot. It carries everything the report
// needs so the report never recomputes from raw inputs.
func BuildModel(in Inputs, out Outputs) Model {
	strengths := in.Strengths
	if strengths == nil {
		strengths = []string{}
	}
	return Model{
		DataISO:        in.Date,
		IndirizzoRiga1: in.Address1,
		IndirizzoRiga2: in.Address2,
		PercentualePm:  out.PMPct,
		PuntiDiForza:   strengths,
		KPI: KPI{
			OccupazionePct:             out.OccupancyPct,
			ADR:                        out.NightlyRate,
			FatturatoLordoNettoPulizie: out.GrossTotal,
			FatturatoLordoTotale:       out.GrossTotal,
		},
		Spese: Spese{
			Pulizie:                out.CleaningAnnual,
			UtenzeAmm:              out.Utilities.Annual,
			UtenzeMensili:          out.Utilities.Monthly,
			UtenzeMesi:             out.Utilities.Months,
			IncludeAmministrazione: out.Utilities.IncludesAdmin,
			UtenzeDettaglio: UtenzeDettaglio{
				LuceGasMensile:         out.Utilities.PowerGas,
				WifiMensile:            out.Utilities.Wifi,
				AmministrazioneMensile: out.Utilities.Admin,
				AmministrazioneAnnua:   out.Utilities.AdminAnnual,
				AcquaMensile:           out.Utilities.WaterWaste,
				ExtraMensili:           out.Utilities.ExtrasMonthly,
				TotaleMensile:          out.Utilities.Monthly,
			},
			OTA:           out.OTACost,
			OTAPct:        out.OTAPct,
			Kit:           out.KitAnnual,
			Assicurazione: out.InsuranceAnnual,
			AssicurazioneDettaglio: AssicurazioneInfo{
				PerPrenotazione: out.Insurance.PerStay,
				Label:           out.Insurance.Label,
			},
			PM:          out.PMFee,
			PMPct:       out.PMPct,
			Cedolare:    out.FlatTax,
			CedolarePct: out.FlatTaxPct,
			UnaTantum:   out.Security.Total,
			RingTotale:  out.Security.SystemTotal,
			Sicurezza: Sicurezza{
				RingSetup:     out.Security.Setup,
				RingSubAnn:    out.Security.SubscriptionAnnual,
				ExtraManuale:  out.Security.Kit,
				ExtraDettagli: out.Security.Devices,
				Totale:        out.Security.Total,
			},
		},
		Opzionali: Opzionali{
			Includi: out.Optional.Included,
			Voci:    out.Optional.Items,
			Totale:  out.Optional.Total,
		},
		Risultati: Risultati{
			UtileLordo:   out.GrossProfit,
			UtileNetto:   out.NetAnnual,
			MensileNetto: out.NetMonthly,
		},
	}
}
