package calculators

import (
	"fmt"
	"math"
	"strings"

	"github.com/clinical-scoring-engine/internal/domain"
)

const specialtyNephrology = "nephrology"

func nephrologyCategory() domain.Category {
	return domain.Category{
		ID:          specialtyNephrology,
		DisplayName: "Néphrologie",
		Icon:        "Droplets",
		ColorHint:   "blue",
		Calculators: []domain.Calculator{
			CKDEPI(),
			CockcroftGault(),
			FENa(),
			RFI(),
			AnionGap(),
			OsmolarGap(),
			AKIKDIGO(),
		},
	}
}

func sexField() domain.FieldSchema {
	return choice("gender", "Sexe", []domain.Option{
		opt("male", "Homme"),
		opt("female", "Femme"),
	})
}

// CKDEPI is the race-free CKD-EPI 2021 creatinine equation.
func CKDEPI() *Definition {
	return NewDefinition("ckdepi", "CKD-EPI", "DFG estimé (formule CKD-EPI 2021)", specialtyNephrology,
		[]domain.FieldSchema{
			number("creatinine", "Créatinine (mg/dL)", placeholder("1.0"), step(0.01)),
			number("age", "Âge (ans)", placeholder("50")),
			sexField(),
		}, computeCKDEPI).WithDisclaimer("Aide au calcul. Interprétation clinique à valider. Utiliser unités correctes (mg/dL).")
}

func computeCKDEPI(in domain.Inputs) domain.Result {
	const unit = "mL/min/1.73m²"

	cr := in.Number("creatinine", 0)
	age := in.Int("age", 0)
	if cr <= 0 || age <= 0 {
		return domain.InvalidResult(unit, "≥90")
	}

	female := in.Text("gender", "male") == "female"
	kappa, alpha, factor := 0.9, -0.302, 1.0
	if female {
		kappa, alpha, factor = 0.7, -0.241, 1.012
	}

	ratio := cr / kappa
	gfr := 142 * math.Pow(math.Min(ratio, 1), alpha) *
		math.Pow(math.Max(ratio, 1), -1.200) *
		math.Pow(0.9938, float64(age)) * factor
	if !finiteAt(gfr, 1) {
		return domain.InvalidResult(unit, "≥90")
	}

	var stage string
	var sev domain.Severity
	switch {
	case gfr >= 90:
		stage, sev = "G1 - Fonction rénale normale", domain.SeverityNormal
	case gfr >= 60:
		stage, sev = "G2 - IRC légère", domain.SeverityLow
	case gfr >= 45:
		stage, sev = "G3a - IRC modérée", domain.SeverityHigh
	case gfr >= 30:
		stage, sev = "G3b - IRC modérée à sévère", domain.SeverityHigh
	case gfr >= 15:
		stage, sev = "G4 - IRC sévère", domain.SeverityCritical
	default:
		stage, sev = "G5 - IRC terminale", domain.SeverityCritical
	}

	return measured(domain.Fixed(gfr, 1), unit, stage, "≥90 mL/min/1.73m²", sev)
}

// CockcroftGault estimates creatinine clearance.
func CockcroftGault() *Definition {
	return NewDefinition("cockcroft", "Cockcroft-Gault", "Clairance de la créatinine", specialtyNephrology,
		[]domain.FieldSchema{
			number("creatinine", "Créatinine (mg/dL)", placeholder("1.0"), step(0.01)),
			number("age", "Âge (ans)", placeholder("50")),
			number("weight", "Poids (kg)", placeholder("70")),
			sexField(),
		}, computeCockcroftGault).WithDisclaimer(disclaimerClinical)
}

func computeCockcroftGault(in domain.Inputs) domain.Result {
	const unit = "mL/min"

	cr := in.Number("creatinine", 0)
	age := in.Int("age", 0)
	weight := in.Number("weight", 0)
	if cr <= 0 || age <= 0 || weight <= 0 {
		return domain.InvalidResult(unit, "≥90")
	}

	clcr := (140 - float64(age)) * weight / (72 * cr)
	if in.Text("gender", "male") == "female" {
		clcr *= 0.85
	}
	if !finiteAt(clcr, 1) {
		return domain.InvalidResult(unit, "≥90")
	}

	var interp string
	var sev domain.Severity
	switch {
	case clcr >= 90:
		interp, sev = "Fonction rénale normale", domain.SeverityNormal
	case clcr >= 60:
		interp, sev = "Insuffisance rénale légère", domain.SeverityLow
	case clcr >= 30:
		interp, sev = "Insuffisance rénale modérée", domain.SeverityHigh
	case clcr >= 15:
		interp, sev = "Insuffisance rénale sévère", domain.SeverityCritical
	default:
		interp, sev = "Insuffisance rénale terminale", domain.SeverityCritical
	}

	return measured(domain.Fixed(clcr, 1), unit, interp, "≥90 mL/min", sev)
}

// FENa is the fractional excretion of sodium.
func FENa() *Definition {
	return NewDefinition("fena", "FENa (Excrétion Fractionnelle Na)", "Différencie IRA prérénale vs rénale", specialtyNephrology,
		[]domain.FieldSchema{
			number("una", "Na urinaire (mEq/L)", placeholder("40")),
			number("pna", "Na plasmatique (mEq/L)", placeholder("140")),
			number("ucr", "Créatinine urinaire (mg/dL)", placeholder("100")),
			number("pcr", "Créatinine plasmatique (mg/dL)", placeholder("2.0"), step(0.1)),
		}, computeFENa)
}

func computeFENa(in domain.Inputs) domain.Result {
	una := in.Number("una", 0)
	pna := in.Number("pna", 0)
	ucr := in.Number("ucr", 0)
	pcr := in.Number("pcr", 0)
	if pna == 0 || ucr == 0 {
		return domain.InvalidResult("%", "<1%")
	}

	// products of extreme inputs can underflow to 0/0 or overflow to ±Inf
	fena := una * pcr / (pna * ucr) * 100
	if !finiteAt(fena, 2) {
		return domain.InvalidResult("%", "<1%")
	}

	var interp string
	var sev domain.Severity
	switch {
	case fena < 1:
		interp, sev = "IRA prérénale probable (réponse rénale appropriée)", domain.SeverityLow
	case fena < 2:
		interp, sev = "Zone intermédiaire - contexte clinique important", domain.SeverityHigh
	default:
		interp, sev = "IRA rénale intrinsèque probable (NTA)", domain.SeverityCritical
	}

	return measured(domain.Fixed(fena, 2), "%", interp, "<1% (prérénale)", sev)
}

// RFI is the renal failure index.
func RFI() *Definition {
	return NewDefinition("rfi", "Renal Failure Index (RFI)", "Indice d'insuffisance rénale", specialtyNephrology,
		[]domain.FieldSchema{
			number("una", "Na urinaire (mEq/L)", placeholder("40")),
			number("ucr", "Créatinine urinaire (mg/dL)", placeholder("100")),
			number("pcr", "Créatinine plasmatique (mg/dL)", placeholder("2.0"), step(0.1)),
		}, computeRFI)
}

func computeRFI(in domain.Inputs) domain.Result {
	una := in.Number("una", 0)
	ucr := in.Number("ucr", 0)
	pcr := in.Number("pcr", 0)
	// plasma creatinine is a denominator too once the ratio is inverted
	if ucr == 0 || pcr == 0 {
		return domain.InvalidResult("", "<1")
	}

	rfi := una / (ucr / pcr)
	if !finiteAt(rfi, 2) {
		return domain.InvalidResult("", "<1")
	}
	if rfi < 1 {
		return measured(domain.Fixed(rfi, 2), "", "IRA prérénale probable", "<1 (prérénale)", domain.SeverityLow)
	}
	return measured(domain.Fixed(rfi, 2), "", "NTA ou IRA rénale intrinsèque probable", "<1 (prérénale)", domain.SeverityCritical)
}

// AnionGap computes the plasma anion gap, corrected for albumin.
func AnionGap() *Definition {
	return NewDefinition("anion_gap", "Trou anionique", "Trou anionique plasmatique corrigé par l'albumine", specialtyNephrology,
		[]domain.FieldSchema{
			number("sodium", "Sodium (mEq/L)", placeholder("140")),
			number("chloride", "Chlore (mEq/L)", placeholder("104")),
			number("bicarbonate", "Bicarbonates (mEq/L)", placeholder("24")),
			number("albumin", "Albumine (g/dL)", placeholder("4.0"), step(0.1)),
		}, computeAnionGap)
}

func computeAnionGap(in domain.Inputs) domain.Result {
	const unit, normal = "mEq/L", "8-12 mEq/L"

	na := in.Number("sodium", 0)
	cl := in.Number("chloride", 0)
	hco3 := in.Number("bicarbonate", 0)
	if na <= 0 || cl <= 0 || hco3 <= 0 {
		return domain.InvalidResult(unit, normal)
	}
	albumin := in.Number("albumin", 4.0)

	ag := na - (cl + hco3)
	corrected := ag + 2.5*(4-albumin)
	if !finiteAt(ag, 1) || !finiteAt(corrected, 1) {
		return domain.InvalidResult(unit, normal)
	}

	var label string
	var sev domain.Severity
	switch {
	case corrected < 8:
		label, sev = "Trou anionique bas", domain.SeverityLow
	case corrected <= 12:
		label, sev = "Trou anionique normal", domain.SeverityNormal
	case corrected <= 20:
		label, sev = "Trou anionique élevé - acidose métabolique à TA élevé probable", domain.SeverityHigh
	default:
		label, sev = "Trou anionique très élevé - rechercher cétose, lactates, toxiques", domain.SeverityCritical
	}

	interp := fmt.Sprintf("%s (non corrigé: %s mEq/L)", label, domain.FormatFixed(ag, 1))
	return measured(domain.Fixed(corrected, 1), unit, interp, normal, sev)
}

// OsmolarGap compares measured and calculated plasma osmolality.
func OsmolarGap() *Definition {
	return NewDefinition("osmolar_gap", "Trou osmolaire", "Écart entre osmolalité mesurée et calculée", specialtyNephrology,
		[]domain.FieldSchema{
			number("measured_osm", "Osmolalité mesurée (mOsm/kg)", placeholder("290")),
			number("sodium", "Sodium (mEq/L)", placeholder("140")),
			number("glucose", "Glycémie (mg/dL)", placeholder("100")),
			number("bun", "Urée sanguine - BUN (mg/dL)", placeholder("14")),
		}, computeOsmolarGap)
}

func computeOsmolarGap(in domain.Inputs) domain.Result {
	const unit, normal = "mOsm/kg", "≤10 mOsm/kg"

	measuredOsm := in.Number("measured_osm", 0)
	if measuredOsm <= 0 {
		return domain.InvalidResult(unit, normal)
	}

	calculated := 2*in.Number("sodium", 0) + in.Number("glucose", 0)/18 + in.Number("bun", 0)/2.8
	gap := measuredOsm - calculated
	if !finiteAt(calculated, 1) || !finiteAt(gap, 1) {
		return domain.InvalidResult(unit, normal)
	}

	var label string
	var sev domain.Severity
	switch {
	case gap <= 10:
		label, sev = "Trou osmolaire normal", domain.SeverityNormal
	case gap <= 20:
		label, sev = "Trou osmolaire modérément élevé", domain.SeverityHigh
	default:
		label, sev = "Trou osmolaire élevé - rechercher alcools toxiques (méthanol, éthylène glycol)", domain.SeverityCritical
	}

	interp := fmt.Sprintf("%s (osmolalité calculée: %s mOsm/kg)", label, domain.FormatFixed(calculated, 1))
	return measured(domain.Fixed(gap, 1), unit, interp, normal, sev)
}

// AKIKDIGO stages acute kidney injury with the KDIGO 2012 creatinine and urine
// output criteria. Criteria whose inputs are absent are skipped.
func AKIKDIGO() *Definition {
	return NewDefinition("aki_kdigo", "AKI - KDIGO 2012", "Stadification de l'insuffisance rénale aiguë", specialtyNephrology,
		[]domain.FieldSchema{
			number("baseline_creatinine", "Créatinine de base (μmol/L)", placeholder("80")),
			number("current_creatinine", "Créatinine actuelle (μmol/L)", placeholder("120")),
			number("urine_output", "Diurèse (mL/kg/h)", placeholder("0.5"), step(0.1)),
			number("time_window", "Durée de l'oligurie (heures)", placeholder("48")),
		}, computeAKIKDIGO).WithVersion("2012").WithDisclaimer(disclaimerClinical)
}

// creatinine at or above this level (μmol/L, 4.0 mg/dL) is stage 3 on its own
const akiCreatinineStage3 = 354

func computeAKIKDIGO(in domain.Inputs) domain.Result {
	baseline := in.Number("baseline_creatinine", 0)
	current := in.Number("current_creatinine", 0)
	window := in.Number("time_window", 48)

	stage := 0
	var criteria []string
	raise := func(s int, criterion string) {
		criteria = append(criteria, criterion)
		if s > stage {
			stage = s
		}
	}

	if baseline > 0 && current > 0 {
		ratio := current / baseline
		switch {
		case ratio >= 3:
			raise(3, "Créatinine ≥ 3.0 × baseline")
		case ratio >= 2:
			raise(2, "Créatinine 2.0-2.9 × baseline")
		case ratio >= 1.5:
			raise(1, "Créatinine 1.5-1.9 × baseline")
		case current-baseline >= 26.5:
			raise(1, "Augmentation de créatinine ≥ 26.5 μmol/L")
		}
	}
	if current >= akiCreatinineStage3 {
		raise(3, "Créatinine ≥ 354 μmol/L")
	}

	if uo, ok := in["urine_output"].Float(); ok {
		switch {
		case uo == 0 && window >= 12:
			raise(3, "Anurie pendant ≥ 12h")
		case uo < 0.3 && window >= 24:
			raise(3, "Diurèse < 0.3 mL/kg/h pendant ≥ 24h")
		case uo < 0.5 && window >= 12:
			raise(2, "Diurèse < 0.5 mL/kg/h pendant ≥ 12h")
		case uo < 0.5 && window >= 6:
			raise(1, "Diurèse < 0.5 mL/kg/h pendant ≥ 6h")
		}
	}

	const unit, normal = "stade", "Stade 0"
	switch stage {
	case 0:
		return scored(0, unit, "Pas d'insuffisance rénale aiguë selon KDIGO", normal, domain.SeverityNormal)
	case 1:
		return scored(1, unit, "AKI stade 1 - surveillance étroite de la fonction rénale: "+strings.Join(criteria, "; "), normal, domain.SeverityHigh)
	case 2:
		return scored(2, unit, "AKI stade 2 - avis néphrologique: "+strings.Join(criteria, "; "), normal, domain.SeverityCritical)
	default:
		return scored(3, unit, "AKI stade 3 - discuter l'épuration extrarénale: "+strings.Join(criteria, "; "), normal, domain.SeverityCritical)
	}
}
