package calculators

import (
	"math"
	"strings"

	"github.com/clinical-scoring-engine/internal/domain"
)

const specialtyGeneral = "general"

func generalCategory() domain.Category {
	return domain.Category{
		ID:          specialtyGeneral,
		DisplayName: "Général / Endocrinologie",
		Icon:        "Scale",
		ColorHint:   "green",
		Calculators: []domain.Calculator{
			BMI(),
			BSA(),
			PediatricDose(),
			HOMAIR(),
			QUICKI(),
			CorrectedCalcium(),
			Bishop(),
			PPHRisk(),
			DueDateNaegele(),
		},
	}
}

// BMI is the body mass index.
func BMI() *Definition {
	return NewDefinition("bmi", "IMC (Indice de Masse Corporelle)", "Évaluation du statut pondéral", specialtyGeneral,
		[]domain.FieldSchema{
			number("weight", "Poids (kg)", placeholder("70")),
			number("height", "Taille (cm)", placeholder("175")),
		}, computeBMI)
}

func computeBMI(in domain.Inputs) domain.Result {
	weight := in.Number("weight", 0)
	height := in.Number("height", 0) / 100
	if weight <= 0 || height <= 0 {
		return domain.InvalidResult("kg/m²", "18.5-24.9")
	}

	bmi := weight / (height * height)
	if !finiteAt(bmi, 1) {
		return domain.InvalidResult("kg/m²", "18.5-24.9")
	}

	var interp string
	var sev domain.Severity
	switch {
	case bmi < 16:
		interp, sev = "Dénutrition sévère", domain.SeverityCritical
	case bmi < 17:
		interp, sev = "Dénutrition modérée", domain.SeverityHigh
	case bmi < 18.5:
		interp, sev = "Dénutrition légère", domain.SeverityLow
	case bmi < 25:
		interp, sev = "Poids normal", domain.SeverityNormal
	case bmi < 30:
		interp, sev = "Surpoids", domain.SeverityLow
	case bmi < 35:
		interp, sev = "Obésité classe I", domain.SeverityHigh
	case bmi < 40:
		interp, sev = "Obésité classe II", domain.SeverityHigh
	default:
		interp, sev = "Obésité classe III (morbide)", domain.SeverityCritical
	}

	return measured(domain.Fixed(bmi, 1), "kg/m²", interp, "18.5-24.9 kg/m²", sev)
}

// duBois returns the body surface area in m² for weight in kg and height in cm.
func duBois(weight, height float64) float64 {
	return 0.007184 * math.Pow(weight, 0.425) * math.Pow(height, 0.725)
}

// BSA is the Du Bois body surface area.
func BSA() *Definition {
	return NewDefinition("bsa", "Surface Corporelle", "Formule de Du Bois", specialtyGeneral,
		[]domain.FieldSchema{
			number("weight", "Poids (kg)", placeholder("70")),
			number("height", "Taille (cm)", placeholder("175")),
		}, computeBSA)
}

func computeBSA(in domain.Inputs) domain.Result {
	weight := in.Number("weight", 0)
	height := in.Number("height", 0)
	if weight <= 0 || height <= 0 {
		return domain.InvalidResult("m²", "1.7-2.0")
	}

	bsa := duBois(weight, height)
	if !finiteAt(bsa, 2) {
		return domain.InvalidResult("m²", "1.7-2.0")
	}

	return measured(domain.Fixed(bsa, 2), "m²",
		"Surface corporelle pour dosage des chimiothérapies", "1.7-2.0 m² (adulte moyen)", domain.SeverityNormal)
}

// PediatricDose scales an adult dose. Only the fields used by the selected rule
// are read.
func PediatricDose() *Definition {
	return NewDefinition("pediatric_dose", "Dosage Pédiatrique", "Calcul de dose selon le poids", specialtyGeneral,
		[]domain.FieldSchema{
			number("weight", "Poids de l'enfant (kg)", placeholder("15")),
			number("adult_dose", "Dose adulte (mg)", placeholder("500")),
			choice("method", "Méthode de calcul", []domain.Option{
				opt("clark", "Règle de Clark (par poids)"),
				opt("young", "Règle de Young (par âge)"),
				opt("bsa", "Par surface corporelle"),
			}),
			number("age", "Âge (ans) - pour Young", placeholder("6")),
			number("height", "Taille (cm) - pour BSA", placeholder("100")),
		}, computePediatricDose)
}

func computePediatricDose(in domain.Inputs) domain.Result {
	const unit, normal = "mg", "Vérifier avec les recommandations du médicament"

	adultDose := in.Number("adult_dose", 0)

	var dose float64
	var formula string
	switch in.Text("method", "clark") {
	case "clark":
		dose = in.Number("weight", 0) / 70 * adultDose
		formula = "Clark: (Poids enfant / 70) × Dose adulte"
	case "young":
		age := in.Number("age", 0)
		if age+12 == 0 {
			return domain.InvalidResult(unit, normal)
		}
		dose = age / (age + 12) * adultDose
		formula = "Young: (Âge / (Âge + 12)) × Dose adulte"
	case "bsa":
		dose = duBois(in.Number("weight", 0), in.Number("height", 0)) / 1.73 * adultDose
		formula = "BSA: (SC enfant / 1.73) × Dose adulte"
	}
	if !finiteAt(dose, 1) {
		return domain.InvalidResult(unit, normal)
	}

	return measured(domain.Fixed(dose, 1), unit, "Méthode: "+formula, normal, domain.SeverityNormal)
}

// HOMAIR is the homeostatic model assessment of insulin resistance.
func HOMAIR() *Definition {
	return NewDefinition("homa_ir", "HOMA-IR", "Résistance à l'insuline", specialtyGeneral,
		[]domain.FieldSchema{
			number("glucose", "Glycémie à jeun (mmol/L)", placeholder("5.0"), step(0.1)),
			number("insulin", "Insulinémie à jeun (µU/mL)", placeholder("10"), step(0.1)),
		}, computeHOMAIR)
}

func computeHOMAIR(in domain.Inputs) domain.Result {
	glucose := in.Number("glucose", 0)
	insulin := in.Number("insulin", 0)
	if glucose <= 0 || insulin <= 0 {
		return domain.InvalidResult("", "<2.5")
	}

	homa := glucose * insulin / 22.5
	if !finiteAt(homa, 2) {
		return domain.InvalidResult("", "<2.5")
	}

	var interp string
	var sev domain.Severity
	switch {
	case homa < 1:
		interp, sev = "Sensibilité normale à l'insuline", domain.SeverityNormal
	case homa < 2.5:
		interp, sev = "Résistance à l'insuline légère", domain.SeverityLow
	case homa < 4:
		interp, sev = "Résistance à l'insuline modérée", domain.SeverityHigh
	default:
		interp, sev = "Résistance à l'insuline sévère", domain.SeverityCritical
	}

	return measured(domain.Fixed(homa, 2), "", interp, "<2.5", sev)
}

// QUICKI is the quantitative insulin sensitivity check index.
func QUICKI() *Definition {
	return NewDefinition("quicki", "QUICKI", "Quantitative Insulin Sensitivity Check Index", specialtyGeneral,
		[]domain.FieldSchema{
			number("glucose", "Glycémie à jeun (mg/dL)", placeholder("90")),
			number("insulin", "Insulinémie à jeun (µU/mL)", placeholder("10"), step(0.1)),
		}, computeQUICKI)
}

func computeQUICKI(in domain.Inputs) domain.Result {
	glucose := in.Number("glucose", 0)
	insulin := in.Number("insulin", 0)
	if glucose <= 0 || insulin <= 0 {
		return domain.InvalidResult("", ">0.357")
	}

	denom := math.Log10(glucose) + math.Log10(insulin)
	if denom == 0 {
		return domain.InvalidResult("", ">0.357")
	}
	quicki := 1 / denom
	if !finiteAt(quicki, 3) {
		return domain.InvalidResult("", ">0.357")
	}

	var interp string
	var sev domain.Severity
	switch {
	case quicki > 0.357:
		interp, sev = "Sensibilité normale à l'insuline", domain.SeverityNormal
	case quicki > 0.339:
		interp, sev = "Résistance à l'insuline légère", domain.SeverityLow
	default:
		interp, sev = "Résistance à l'insuline significative", domain.SeverityHigh
	}

	return measured(domain.Fixed(quicki, 3), "", interp, ">0.357", sev)
}

// CorrectedCalcium adjusts total calcium for hypoalbuminemia. Missing albumin
// reads as 4.0 g/dL, i.e. no correction.
func CorrectedCalcium() *Definition {
	return NewDefinition("corrected_calcium", "Calcémie corrigée", "Calcium total corrigé par l'albumine", specialtyGeneral,
		[]domain.FieldSchema{
			number("calcium", "Calcium total (mg/dL)", placeholder("9.5"), step(0.1)),
			number("albumin", "Albumine (g/dL)", placeholder("4.0"), step(0.1)),
		}, computeCorrectedCalcium)
}

func computeCorrectedCalcium(in domain.Inputs) domain.Result {
	const unit, normal = "mg/dL", "8.5-10.5 mg/dL"

	ca := in.Number("calcium", 0)
	if ca <= 0 {
		return domain.InvalidResult(unit, normal)
	}
	corrected := ca + 0.8*(4-in.Number("albumin", 4.0))
	if !finiteAt(corrected, 1) {
		return domain.InvalidResult(unit, normal)
	}

	var interp string
	var sev domain.Severity
	switch {
	case corrected < 8.5:
		interp, sev = "Hypocalcémie", domain.SeverityLow
	case corrected <= 10.5:
		interp, sev = "Calcémie normale", domain.SeverityNormal
	case corrected <= 12:
		interp, sev = "Hypercalcémie modérée", domain.SeverityHigh
	default:
		interp, sev = "Hypercalcémie sévère - urgence thérapeutique", domain.SeverityCritical
	}

	return measured(domain.Fixed(corrected, 1), unit, interp, normal, sev)
}

// Bishop scores cervical ripening before induction of labour.
func Bishop() *Definition {
	return NewDefinition("bishop", "Score de Bishop", "Maturation cervicale avant déclenchement du travail", specialtyGeneral,
		[]domain.FieldSchema{
			number("dilation", "Dilatation cervicale (cm)", placeholder("0"), bounds(0, 10)),
			number("effacement", "Effacement cervical (%)", placeholder("0"), bounds(0, 100)),
			number("station", "Hauteur de la présentation (-3 à +3)", placeholder("0"), bounds(-3, 3), step(1)),
			choice("consistency", "Consistance du col", []domain.Option{
				opt("firm", "Ferme"),
				opt("medium", "Moyenne"),
				opt("soft", "Molle"),
			}),
			choice("position", "Position du col", []domain.Option{
				opt("posterior", "Postérieure"),
				opt("mid", "Intermédiaire"),
				opt("anterior", "Antérieure"),
			}),
		}, computeBishop).WithDisclaimer(disclaimerClinical)
}

func bishopPoints(dilation, effacement, station float64, consistency, position string) float64 {
	var pts float64
	switch {
	case dilation >= 4:
		pts += 3
	case dilation >= 2:
		pts += 2
	case dilation > 0:
		pts++
	}
	switch {
	case effacement >= 80:
		pts += 3
	case effacement >= 60:
		pts += 2
	case effacement >= 40:
		pts++
	case effacement >= 20:
		pts += 0.5
	}
	switch {
	case station >= 2:
		pts += 3
	case station >= 1:
		pts += 2
	case station >= 0:
		pts++
	case station < -1:
		pts--
	}
	switch consistency {
	case "soft":
		pts += 2
	case "medium":
		pts++
	}
	switch position {
	case "anterior":
		pts += 2
	case "mid":
		pts++
	}
	return pts
}

func computeBishop(in domain.Inputs) domain.Result {
	station := in.Number("station", 0)
	pts := bishopPoints(
		in.Number("dilation", 0),
		in.Number("effacement", 0),
		station,
		in.Text("consistency", "firm"),
		in.Text("position", "posterior"),
	)
	// half points round up, including -0.5 to 0
	total := int(math.Floor(pts + 0.5))

	var interp string
	var sev domain.Severity
	switch {
	case total >= 8:
		interp, sev = "Col favorable - Forte probabilité de succès du déclenchement (~85%)", domain.SeverityLow
	case total >= 6:
		interp, sev = "Col intermédiaire - Probabilité modérée de succès (~65%)", domain.SeverityNormal
	case total >= 4:
		interp, sev = "Col défavorable - Probabilité faible de succès (~35%)", domain.SeverityHigh
	default:
		interp, sev = "Col très défavorable - Maturation cervicale recommandée avant déclenchement (~15%)", domain.SeverityCritical
	}

	notes := []string{interp}
	if station < 0 {
		notes = append(notes, "Tête haute - surveillance particulière de la descente")
	}
	return scored(total, "/13", strings.Join(notes, ". "), "≥8 (col favorable)", sev)
}
