package calculators

import (
	"fmt"

	"github.com/clinical-scoring-engine/internal/domain"
)

const specialtyCardiology = "cardiology"

func cardiologyCategory() domain.Category {
	return domain.Category{
		ID:          specialtyCardiology,
		DisplayName: "Cardiologie",
		Icon:        "Heart",
		ColorHint:   "red",
		Calculators: []domain.Calculator{
			CHA2DS2VASc(),
			HASBLED(),
			GRACE(),
			TIMI(),
			Framingham(),
			WellsDVT(),
			WellsPE(),
			Duke(),
		},
	}
}

// CHA2DS2VASc estimates thromboembolic risk in atrial fibrillation.
func CHA2DS2VASc() *Definition {
	return NewDefinition("chads2vasc", "CHA₂DS₂-VASc", "Risque thromboembolique dans la FA", specialtyCardiology,
		[]domain.FieldSchema{
			checkbox("chf", "Insuffisance cardiaque congestive"),
			checkbox("hypertension", "Hypertension"),
			checkbox("age75", "Âge ≥ 75 ans"),
			checkbox("diabetes", "Diabète"),
			checkbox("stroke", "AVC/AIT/Embolie antérieur"),
			checkbox("vascular", "Maladie vasculaire (IDM, AOMI, plaque aortique)"),
			checkbox("age65", "Âge 65-74 ans"),
			checkbox("female", "Sexe féminin"),
		}, computeCHA2DS2VASc)
}

var chadsStrokeRates = [...]string{"0%", "1.3%", "2.2%", "3.2%", "4.0%", "6.7%", "9.8%", "9.6%", "12.5%", "15.2%"}

func computeCHA2DS2VASc(in domain.Inputs) domain.Result {
	score := in.Count("chf", "hypertension", "diabetes", "vascular", "female")
	if in.Flag("age75") {
		score += 2
	} else if in.Flag("age65") {
		score++
	}
	if in.Flag("stroke") {
		score += 2
	}

	var recommendation string
	var sev domain.Severity
	switch {
	case score == 0:
		recommendation, sev = "Pas d'anticoagulation recommandée", domain.SeverityLow
	case score == 1:
		recommendation, sev = "Anticoagulation à considérer", domain.SeverityNormal
	default:
		recommendation, sev = "Anticoagulation recommandée (AOD ou AVK)", domain.SeverityHigh
		if score >= 4 {
			sev = domain.SeverityCritical
		}
	}

	rate := chadsStrokeRates[min(score, len(chadsStrokeRates)-1)]
	return scored(score, "/9", fmt.Sprintf("Risque AVC/an: %s - %s", rate, recommendation), "0 (risque faible)", sev)
}

// HASBLED estimates major bleeding risk under anticoagulation.
func HASBLED() *Definition {
	return NewDefinition("hasbled", "HAS-BLED", "Risque hémorragique sous anticoagulation", specialtyCardiology,
		[]domain.FieldSchema{
			checkbox("hypertension", "Hypertension (PAS > 160 mmHg)"),
			checkbox("renal", "Insuffisance rénale (dialyse, transplant, créat > 200)"),
			checkbox("liver", "Insuffisance hépatique (cirrhose, bilirubine × 2)"),
			checkbox("stroke", "Antécédent d'AVC"),
			checkbox("bleeding", "Antécédent ou prédisposition hémorragique"),
			checkbox("inr", "INR labile (< 60% dans la cible)"),
			checkbox("age", "Âge > 65 ans"),
			checkbox("drugs", "Médicaments (antiplaquettaires, AINS)"),
			checkbox("alcohol", "Alcool (≥ 8 verres/semaine)"),
		}, computeHASBLED)
}

var hasbledBleedingRates = [...]string{"1.13%", "1.02%", "1.88%", "3.74%", "8.70%", "12.50%"}

func computeHASBLED(in domain.Inputs) domain.Result {
	score := in.Count("hypertension", "renal", "liver", "stroke", "bleeding", "inr", "age", "drugs", "alcohol")
	rate := hasbledBleedingRates[min(score, len(hasbledBleedingRates)-1)]

	if score <= 2 {
		return scored(score, "/9", "Risque faible - Hémorragie majeure/an: "+rate, "0-2", domain.SeverityLow)
	}
	sev := domain.SeverityHigh
	if score >= 4 {
		sev = domain.SeverityCritical
	}
	return scored(score, "/9", "Risque élevé - Hémorragie majeure/an: "+rate+" - Prudence avec anticoagulation", "0-2", sev)
}

// GRACE is a simplified GRACE score for acute coronary syndrome. The point tables
// are an approximation of the published nomogram and are kept as is.
func GRACE() *Definition {
	return NewDefinition("grace", "Score GRACE", "Risque dans le syndrome coronarien aigu", specialtyCardiology,
		[]domain.FieldSchema{
			number("age", "Âge (ans)", placeholder("65")),
			number("hr", "Fréquence cardiaque (bpm)", placeholder("80")),
			number("sbp", "Pression artérielle systolique (mmHg)", placeholder("130")),
			number("creatinine", "Créatinine (mg/dL)", placeholder("1.0"), step(0.1)),
			choice("killip", "Classe Killip", []domain.Option{
				opt("1", "Classe I - Pas de signe d'IC"),
				opt("2", "Classe II - Râles, S3"),
				opt("3", "Classe III - OAP"),
				opt("4", "Classe IV - Choc cardiogénique"),
			}),
			checkbox("cardiac_arrest", "Arrêt cardiaque à l'admission"),
			checkbox("st_deviation", "Déviation du segment ST"),
			checkbox("elevated_markers", "Marqueurs cardiaques élevés"),
		}, computeGRACE)
}

// stepPoints returns the points of the first bound strictly above x, or last.
func stepPoints(x float64, limits []float64, points []int, last int) int {
	for i, b := range limits {
		if x < b {
			return points[i]
		}
	}
	return last
}

func computeGRACE(in domain.Inputs) domain.Result {
	age := float64(in.Int("age", 0))
	hr := float64(in.Int("hr", 0))
	sbp := float64(in.Int("sbp", 0))
	creat := in.Number("creatinine", 0)
	killip := in.Score("killip", 1)

	score := stepPoints(age, []float64{30, 40, 50, 60, 70, 80, 90}, []int{0, 8, 25, 41, 58, 75, 91}, 100)
	score += stepPoints(hr, []float64{50, 70, 90, 110, 150, 200}, []int{0, 3, 9, 15, 24, 38}, 46)
	score += stepPoints(sbp, []float64{80, 100, 120, 140, 160, 200}, []int{58, 53, 43, 34, 24, 10}, 0)
	score += stepPoints(creat, []float64{0.4, 0.8, 1.2, 1.6, 2.0, 4.0}, []int{1, 4, 7, 10, 13, 21}, 28)
	score += (killip - 1) * 20

	if in.Flag("cardiac_arrest") {
		score += 39
	}
	if in.Flag("st_deviation") {
		score += 28
	}
	if in.Flag("elevated_markers") {
		score += 14
	}

	switch {
	case score <= 108:
		return scored(score, "pts", "Risque faible (<1% mortalité hospitalière)", "≤108", domain.SeverityLow)
	case score <= 140:
		return scored(score, "pts", "Risque intermédiaire (1-3% mortalité)", "≤108", domain.SeverityHigh)
	default:
		return scored(score, "pts", "Risque élevé (>3% mortalité) - Stratégie invasive précoce", "≤108", domain.SeverityCritical)
	}
}

// TIMI is the TIMI risk score for NSTEMI and unstable angina.
func TIMI() *Definition {
	return NewDefinition("timi", "Score TIMI (NSTEMI)", "Risque dans le NSTEMI/Angor instable", specialtyCardiology,
		[]domain.FieldSchema{
			checkbox("age65", "Âge ≥ 65 ans"),
			checkbox("risk_factors", "≥ 3 facteurs de risque CV"),
			checkbox("known_cad", "Sténose coronaire ≥ 50% connue"),
			checkbox("aspirin", "Aspirine dans les 7 derniers jours"),
			checkbox("angina", "≥ 2 épisodes angineux en 24h"),
			checkbox("st_deviation", "Déviation ST ≥ 0.5mm"),
			checkbox("elevated_markers", "Marqueurs cardiaques élevés"),
		}, computeTIMI)
}

var timiEventRates = [...]string{"4.7%", "4.7%", "8.3%", "13.2%", "19.9%", "26.2%", "40.9%", "40.9%"}

func computeTIMI(in domain.Inputs) domain.Result {
	score := in.Count("age65", "risk_factors", "known_cad", "aspirin", "angina", "st_deviation", "elevated_markers")

	sev := domain.SeverityCritical
	switch {
	case score <= 2:
		sev = domain.SeverityLow
	case score <= 4:
		sev = domain.SeverityHigh
	}

	return scored(score, "/7", "Risque d'événement à 14j: "+timiEventRates[score], "0-2 (risque faible)", sev)
}

// Framingham is a simplified 10-year cardiovascular risk estimate. A missing sex
// reads as female, matching the reference option.
func Framingham() *Definition {
	return NewDefinition("framingham", "Score de Framingham", "Risque cardiovasculaire à 10 ans", specialtyCardiology,
		[]domain.FieldSchema{
			number("age", "Âge (ans)", placeholder("55")),
			choice("gender", "Sexe", []domain.Option{
				opt("male", "Homme"),
				opt("female", "Femme"),
			}, reference("female")),
			number("total_chol", "Cholestérol total (mg/dL)", placeholder("200")),
			number("hdl", "HDL-C (mg/dL)", placeholder("50")),
			number("sbp", "PAS (mmHg)", placeholder("130")),
			checkbox("treated", "Traitement antihypertenseur"),
			checkbox("smoker", "Fumeur actuel"),
			checkbox("diabetes", "Diabète"),
		}, computeFramingham)
}

func computeFramingham(in domain.Inputs) domain.Result {
	age := in.Int("age", 0)
	totalChol := in.Int("total_chol", 0)
	hdl := in.Int("hdl", 0)
	sbp := in.Int("sbp", 0)
	isMale := in.Text("gender", "female") == "male"

	points := 0
	if isMale {
		switch {
		case age >= 70:
			points += 13
		case age >= 65:
			points += 12
		case age >= 60:
			points += 11
		case age >= 55:
			points += 10
		case age >= 50:
			points += 8
		case age >= 45:
			points += 6
		case age >= 40:
			points += 5
		case age >= 35:
			points += 2
		}
	} else {
		switch {
		case age >= 75:
			points += 16
		case age >= 70:
			points += 14
		case age >= 65:
			points += 12
		case age >= 60:
			points += 10
		case age >= 55:
			points += 8
		case age >= 50:
			points += 6
		case age >= 45:
			points += 4
		case age >= 40:
			points += 2
		}
	}

	switch {
	case totalChol >= 280:
		points += 3
	case totalChol >= 240:
		points += 2
	case totalChol >= 200:
		points++
	}

	switch {
	case hdl < 35:
		points += 2
	case hdl < 45:
		points++
	case hdl >= 60:
		points--
	}

	if in.Flag("treated") {
		switch {
		case sbp >= 160:
			points += 3
		case sbp >= 140:
			points += 2
		case sbp >= 130:
			points++
		}
	} else {
		switch {
		case sbp >= 160:
			points += 2
		case sbp >= 140:
			points++
		}
	}

	if in.Flag("smoker") {
		points += 2
	}
	if in.Flag("diabetes") {
		if isMale {
			points += 2
		} else {
			points += 4
		}
	}

	risk := min(30, max(1, float64(points)*1.5))

	var category string
	var sev domain.Severity
	switch {
	case risk < 10:
		category, sev = "Risque faible", domain.SeverityLow
	case risk < 20:
		category, sev = "Risque intermédiaire", domain.SeverityHigh
	default:
		category, sev = "Risque élevé - Prévention intensive", domain.SeverityCritical
	}

	return measured(domain.Fixed(risk, 1), "%", category+" - Risque CV à 10 ans", "<10%", sev)
}

// WellsDVT is the Wells score for deep vein thrombosis.
func WellsDVT() *Definition {
	return NewDefinition("wells_dvt", "Score de Wells (TVP)", "Probabilité de thrombose veineuse profonde", specialtyCardiology,
		[]domain.FieldSchema{
			checkbox("active_cancer", "Cancer actif"),
			checkbox("paralysis", "Paralysie/parésie ou immobilisation plâtrée MI"),
			checkbox("bedridden", "Alitement > 3j ou chirurgie majeure < 12 sem"),
			checkbox("tenderness", "Sensibilité localisée le long des veines profondes"),
			checkbox("swelling", "Œdème de tout le membre inférieur"),
			checkbox("calf_swelling", "Gonflement du mollet > 3 cm vs côté asymptomatique"),
			checkbox("pitting_edema", "Œdème prenant le godet"),
			checkbox("collateral_veins", "Veines superficielles collatérales"),
			checkbox("previous_dvt", "Antécédent de TVP"),
			checkbox("alternative_diagnosis", "Diagnostic alternatif au moins aussi probable"),
		}, computeWellsDVT)
}

func computeWellsDVT(in domain.Inputs) domain.Result {
	score := in.Count("active_cancer", "paralysis", "bedridden", "tenderness", "swelling",
		"calf_swelling", "pitting_edema", "collateral_veins", "previous_dvt")
	if in.Flag("alternative_diagnosis") {
		score -= 2
	}

	switch {
	case score <= 0:
		return scored(score, "pts", "Probabilité faible (3%) - D-dimères recommandés", "≤0", domain.SeverityLow)
	case score <= 2:
		return scored(score, "pts", "Probabilité modérée (17%) - D-dimères puis écho si positifs", "≤0", domain.SeverityHigh)
	default:
		return scored(score, "pts", "Probabilité élevée (75%) - Écho-Doppler directe", "≤0", domain.SeverityCritical)
	}
}

// WellsPE is the three-tier Wells score for pulmonary embolism.
func WellsPE() *Definition {
	return NewDefinition("wells_pe", "Score de Wells (EP)", "Probabilité clinique d'embolie pulmonaire", specialtyCardiology,
		[]domain.FieldSchema{
			checkbox("dvt_signs", "Signes cliniques de TVP (3 pts)"),
			checkbox("pe_likely", "EP au moins aussi probable qu'un autre diagnostic (3 pts)"),
			checkbox("tachycardia", "Fréquence cardiaque > 100 bpm (1.5 pts)"),
			checkbox("immobilization", "Immobilisation ≥ 3j ou chirurgie < 4 sem (1.5 pts)"),
			checkbox("previous_vte", "Antécédent de TVP ou d'EP (1.5 pts)"),
			checkbox("hemoptysis", "Hémoptysie (1 pt)"),
			checkbox("malignancy", "Cancer actif (1 pt)"),
		}, computeWellsPE)
}

func computeWellsPE(in domain.Inputs) domain.Result {
	weights := []struct {
		id     string
		points float64
	}{
		{"dvt_signs", 3},
		{"pe_likely", 3},
		{"tachycardia", 1.5},
		{"immobilization", 1.5},
		{"previous_vte", 1.5},
		{"hemoptysis", 1},
		{"malignancy", 1},
	}

	score := 0.0
	for _, w := range weights {
		if in.Flag(w.id) {
			score += w.points
		}
	}

	value := domain.NumberValue(score)
	switch {
	case score < 2:
		return measured(value, "pts", "Probabilité faible (1.3%) - D-dimères recommandés", "<2", domain.SeverityLow)
	case score <= 6:
		return measured(value, "pts", "Probabilité modérée (16.2%) - D-dimères ou angioscanner", "<2", domain.SeverityHigh)
	default:
		return measured(value, "pts", "Probabilité élevée (40.6%) - Angioscanner thoracique", "<2", domain.SeverityCritical)
	}
}

// Duke applies the modified Duke criteria for infective endocarditis.
func Duke() *Definition {
	return NewDefinition("duke", "Critères de Duke modifiés", "Diagnostic de l'endocardite infectieuse", specialtyCardiology,
		[]domain.FieldSchema{
			checkbox("positive_bc", "Hémocultures positives typiques"),
			checkbox("echo_positive", "Échocardiogramme positif (végétation, abcès)"),
			checkbox("new_regurgitation", "Nouvelle insuffisance valvulaire"),
			checkbox("predisposition", "Facteur prédisposant (cardiopathie, drogue IV)"),
			checkbox("fever", "Fièvre > 38°C"),
			checkbox("vascular", "Phénomènes vasculaires (embolie, infarctus)"),
			checkbox("immunologic", "Phénomènes immunologiques (Osler, Roth, FR+)"),
			checkbox("micro", "Preuves microbiologiques autres"),
		}, computeDuke)
}

func computeDuke(in domain.Inputs) domain.Result {
	major := in.Count("positive_bc", "echo_positive", "new_regurgitation")
	minor := in.Count("predisposition", "fever", "vascular", "immunologic", "micro")

	var diagnosis string
	var sev domain.Severity
	switch {
	case major >= 2 || (major == 1 && minor >= 3) || minor >= 5:
		diagnosis, sev = "Endocardite DÉFINIE", domain.SeverityCritical
	case (major == 1 && minor >= 1) || minor >= 3:
		diagnosis, sev = "Endocardite POSSIBLE - Investigation supplémentaire", domain.SeverityHigh
	default:
		diagnosis, sev = "Endocardite REJETÉE", domain.SeverityLow
	}

	return measured(domain.TextValue(fmt.Sprintf("%dM/%dm", major, minor)), "", diagnosis, "Définitif: 2M ou 1M+3m ou 5m", sev)
}
