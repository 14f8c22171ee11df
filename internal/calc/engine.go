// Package calc projects the yearly profitability of a short-term rental from
// a named input set. Project is pure: the same Inputs always yield the same
// Outputs, and it is safe to call from any number of goroutines.
package calc

import (
	"math"
	"strings"
)

// Defaults applied when a rate is missing or zero.
const (
	DefaultNightlyRate   = 168.0
	DefaultOccupancyPct  = 68.0
	DefaultAvgStay       = 1.0
	DefaultOTAPct        = 20.0
	DefaultPMPct         = 30.0
	DefaultFlatTaxPct    = 21.0
	DefaultIRESPct       = 24.0
	DefaultIRAPPct       = 3.9
	DefaultUtilityMonths = 12.0

	DefaultDeviceLabel = "Spesa extra"
)

// Security breaks down the security costs.
type Security struct {
	Setup              float64    `json:"setup"`
	SubscriptionAnnual float64    `json:"subscriptionAnnual"`
	SystemTotal        float64    `json:"systemTotal"`
	Kit                float64    `json:"kit"`
	Devices            []LineItem `json:"devices"`
	DevicesTotal       float64    `json:"devicesTotal"`
	Total              float64    `json:"total"`
}

// Utilities breaks down the recurring monthly costs.
type Utilities struct {
	PowerGas      float64 `json:"powerGas"`
	Wifi          float64 `json:"wifi"`
	Admin         float64 `json:"admin"`
	WaterWaste    float64 `json:"waterWaste"`
	ExtrasMonthly float64 `json:"extrasMonthly"`
	Monthly       float64 `json:"monthly"`
	Months        float64 `json:"months"`
	Annual        float64 `json:"annual"`
	AdminAnnual   float64 `json:"adminAnnual"`
	IncludesAdmin bool    `json:"includesAdmin"`
}

// Corporate is the view of the management company on its own fee.
type Corporate struct {
	IRESPct    float64 `json:"iresPct"`
	IRAPPct    float64 `json:"irapPct"`
	Gross      float64 `json:"gross"`
	Tax        float64 `json:"tax"`
	Net        float64 `json:"net"`
	NetMonthly float64 `json:"netMonthly"`
}

// Optional lists the extras that never affect the net figures.
type Optional struct {
	Included bool       `json:"included"`
	Items    []LineItem `json:"items"`
	Total    float64    `json:"total"`
}

// Outputs holds every quantity derived from an Inputs.
type Outputs struct {
	NightlyRate  float64 `json:"nightlyRate"`
	OccupancyPct float64 `json:"occupancyPct"`
	AvgStay      float64 `json:"avgStay"`
	Nights       int     `json:"nights"`
	Stays        int     `json:"stays"`
	Auto         bool    `json:"auto"`

	CleaningAnnual      float64       `json:"cleaningAnnual"`
	KitAnnual           float64       `json:"kitAnnual"`
	InsuranceAnnual     float64       `json:"insuranceAnnual"`
	Insurance           InsurancePlan `json:"insurance"`
	InsuranceManualSeed float64       `json:"insuranceManualSeed"`

	GrossRental float64 `json:"grossRental"`
	GrossTotal  float64 `json:"grossTotal"`

	OTAPct       float64 `json:"otaPct"`
	PMPct        float64 `json:"pmPct"`
	FlatTaxPct   float64 `json:"flatTaxPct"`
	OTARental    float64 `json:"otaRental"`
	OTACleaning  float64 `json:"otaCleaning"`
	OTAInsurance float64 `json:"otaInsurance"`
	OTACost      float64 `json:"otaCost"`
	PMBase       float64 `json:"pmBase"`
	PMFee        float64 `json:"pmFee"`

	Utilities Utilities `json:"utilities"`
	Security  Security  `json:"security"`

	TaxableBase float64 `json:"taxableBase"`
	FlatTax     float64 `json:"flatTax"`

	OperatingCosts float64 `json:"operatingCosts"`
	GrossProfit    float64 `json:"grossProfit"`
	NetAnnual      float64 `json:"netAnnual"`
	NetMonthly     float64 `json:"netMonthly"`

	Corporate Corporate `json:"corporate"`
	Optional  Optional  `json:"optional"`

	TotalCosts float64 `json:"totalCosts"`
}

// Project runs the projection.
func Project(in Inputs) Outputs {
	var out Outputs

	adr := orDefault(in.NightlyRate, DefaultNightlyRate)
	occ := orDefault(in.OccupancyPct, DefaultOccupancyPct)
	avgStay := math.Max(1, orDefault(in.AvgStay, DefaultAvgStay))
	out.NightlyRate, out.OccupancyPct, out.AvgStay = adr, occ, avgStay

	yearly := 365 * (occ / 100)
	out.Nights = int(roundHalfUp(yearly))
	out.Stays = int(math.Max(0, roundHalfUp(yearly/avgStay)))
	stays := float64(out.Stays)

	perStay := math.Max(0, in.Insurance.PerStay)
	out.Insurance = InsurancePlan{Label: in.Insurance.Label, PerStay: perStay}
	out.Auto = in.Auto
	if in.Auto {
		out.CleaningAnnual = stays * math.Max(0, in.CleaningPerStay)
		out.KitAnnual = stays * math.Max(0, in.KitPerStay)
		out.InsuranceAnnual = stays * perStay
	} else {
		out.CleaningAnnual = math.Max(0, in.ManualCleaning)
		out.KitAnnual = math.Max(0, in.ManualKit)
		out.InsuranceAnnual = math.Max(0, in.ManualInsurance)
		if out.InsuranceAnnual == 0 {
			out.InsuranceManualSeed = round2(stays * perStay)
		}
	}

	out.GrossRental = adr * float64(out.Nights)
	out.GrossTotal = out.GrossRental + out.CleaningAnnual + out.InsuranceAnnual

	out.OTAPct = orDefault(in.OTAPct, DefaultOTAPct)
	out.PMPct = orDefault(in.PMPct, DefaultPMPct)
	out.FlatTaxPct = orDefault(in.FlatTaxPct, DefaultFlatTaxPct)

	out.OTARental = out.GrossRental * (out.OTAPct / 100)
	out.OTACleaning = out.CleaningAnnual * (out.OTAPct / 100)
	out.OTAInsurance = out.InsuranceAnnual * (out.OTAPct / 100)
	out.OTACost = out.OTARental + out.OTACleaning + out.OTAInsurance

	out.PMBase = math.Max(out.GrossTotal-out.OTACost-out.CleaningAnnual-out.InsuranceAnnual, 0)
	out.PMFee = out.PMBase * (out.PMPct / 100)

	out.Utilities = utilities(in)
	out.Security = security(in)

	out.TaxableBase = math.Max(out.GrossTotal-out.CleaningAnnual-out.InsuranceAnnual-out.OTACost-out.PMFee, 0)
	out.FlatTax = out.TaxableBase * (out.FlatTaxPct / 100)

	out.OperatingCosts = out.OTACost + out.PMFee + out.CleaningAnnual + out.Utilities.Annual +
		out.KitAnnual + out.InsuranceAnnual + out.Security.Total
	out.GrossProfit = out.GrossTotal - out.OperatingCosts
	out.NetAnnual = out.GrossTotal - out.OperatingCosts - out.FlatTax
	out.NetMonthly = out.NetAnnual / 12

	out.Corporate = corporate(in, out.PMFee)
	out.Optional = optional(in)

	out.TotalCosts = out.OperatingCosts + out.FlatTax
	if out.Optional.Included {
		out.TotalCosts += out.Optional.Total
	}
	return out
}

func utilities(in Inputs) Utilities {
	u := Utilities{
		PowerGas:   math.Max(0, in.PowerGas),
		Wifi:       math.Max(0, in.Wifi),
		Admin:      math.Max(0, in.Admin),
		WaterWaste: math.Max(0, in.WaterWaste),
		Months:     DefaultUtilityMonths,
	}
	if in.UtilityMonths != nil {
		u.Months = math.Max(0, *in.UtilityMonths)
	}
	for _, fx := range in.FixedExtras {
		u.ExtrasMonthly += math.Max(0, fx.Amount)
	}
	u.Monthly = u.PowerGas + u.Wifi + u.Admin + u.WaterWaste + u.ExtrasMonthly
	u.Annual = u.Monthly * u.Months
	u.AdminAnnual = u.Admin * u.Months
	u.IncludesAdmin = u.Admin > 0
	return u
}

func security(in Inputs) Security {
	s := Security{
		Setup:              math.Max(0, in.SecuritySetup),
		SubscriptionAnnual: math.Max(0, in.SecurityMonthly) * 12,
		Kit:                math.Max(0, in.SecurityKit),
		Devices:            []LineItem{},
	}
	for _, d := range in.Devices {
		amount := math.Max(0, d.Amount)
		if amount <= 0 {
			continue
		}
		label := strings.TrimSpace(d.Label)
		if label == "" {
			label = DefaultDeviceLabel
		}
		s.Devices = append(s.Devices, LineItem{Label: label, Amount: amount})
		s.DevicesTotal += amount
	}
	s.SystemTotal = s.Setup + s.SubscriptionAnnual
	s.Total = s.SystemTotal + s.Kit + s.DevicesTotal
	return s
}

func corporate(in Inputs, fee float64) Corporate {
	c := Corporate{IRESPct: DefaultIRESPct, IRAPPct: DefaultIRAPPct, Gross: fee}
	if in.IRESPct != nil {
		c.IRESPct = math.Max(0, *in.IRESPct)
	}
	if in.IRAPPct != nil {
		c.IRAPPct = math.Max(0, *in.IRAPPct)
	}
	c.Tax = fee * (c.IRESPct/100 + c.IRAPPct/100)
	c.Net = fee - c.Tax
	c.NetMonthly = c.Net / 12
	return c
}

func optional(in Inputs) Optional {
	o := Optional{Included: in.IncludeOptional, Items: []LineItem{}}
	for _, it := range in.OptionalExtras {
		label := strings.TrimSpace(it.Label)
		amount := math.Max(0, it.Amount)
		if label == "" || amount <= 0 {
			continue
		}
		o.Items = append(o.Items, LineItem{Label: label, Amount: amount})
		o.Total += amount
	}
	return o
}

// Recalculate is the single entry point run whenever the form changes: it
// parses the state, projects it and builds the report model.
func Recalculate(fs FormState) (Inputs, Outputs, Model) {
	in := FromFormState(fs)
	out := Project(in)
	return in, out, BuildModel(in, out)
}

// orDefault substitutes def for a zero value and clamps the result at 0.
func orDefault(v, def float64) float64 {
	if v == 0 {
		v = def
	}
	return math.Max(0, v)
}

// roundHalfUp rounds .5 away from zero for the non-negative values used here.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
