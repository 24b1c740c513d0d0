package calculators

import (
	"github.com/clinical-scoring-engine/internal/domain"
)

const specialtyPulmonology = "pulmonology"

func pulmonologyCategory() domain.Category {
	return domain.Category{
		ID:          specialtyPulmonology,
		DisplayName: "Pneumologie",
		Icon:        "Wind",
		ColorHint:   "cyan",
		Calculators: []domain.Calculator{
			CURB65(),
			Berlin(),
			BODE(),
		},
	}
}

// CURB65 grades community-acquired pneumonia severity.
func CURB65() *Definition {
	return NewDefinition("curb65", "CURB-65", "Gravité de la pneumonie communautaire", specialtyPulmonology,
		[]domain.FieldSchema{
			checkbox("confusion", "Confusion (nouvelle désorientation)"),
			checkbox("urea", "Urée > 7 mmol/L (ou BUN > 19 mg/dL)"),
			checkbox("rr", "Fréquence respiratoire ≥ 30/min"),
			checkbox("bp", "PAS < 90 mmHg ou PAD ≤ 60 mmHg"),
			checkbox("age", "Âge ≥ 65 ans"),
		}, computeCURB65)
}

func computeCURB65(in domain.Inputs) domain.Result {
	score := in.Count("confusion", "urea", "rr", "bp", "age")

	const normal = "0-1 (ambulatoire)"
	switch {
	case score <= 1:
		return scored(score, "/5", "Traitement ambulatoire possible - Mortalité <3%", normal, domain.SeverityLow)
	case score == 2:
		return scored(score, "/5", "Hospitalisation courte ou surveillance rapprochée - Mortalité 9%", normal, domain.SeverityHigh)
	case score == 3:
		return scored(score, "/5", "Hospitalisation - Mortalité 17%", normal, domain.SeverityCritical)
	default:
		return scored(score, "/5", "USI/Réanimation - Mortalité 42%", normal, domain.SeverityCritical)
	}
}

// Berlin applies the Berlin ARDS definition. The three gating criteria must all be
// met before the oxygenation grade is considered. Missing answers read as not met.
func Berlin() *Definition {
	yesNo := func(yes, no string) []domain.Option {
		return []domain.Option{opt("yes", yes), opt("no", no)}
	}
	return NewDefinition("berlin", "Critères de Berlin (SDRA)", "Classification du syndrome de détresse respiratoire aiguë", specialtyPulmonology,
		[]domain.FieldSchema{
			choice("timing", "Délai d'apparition",
				yesNo("≤ 7 jours après agression ou symptômes", "> 7 jours"), reference("no")),
			choice("imaging", "Imagerie thoracique",
				yesNo("Opacités bilatérales non expliquées par épanchement/atélectasie/nodules", "Autres anomalies"), reference("no")),
			choice("edema", "Origine de l'œdème",
				yesNo("Non expliqué par insuffisance cardiaque/surcharge hydrique", "Origine cardiaque probable"), reference("no")),
			choice("pao2_fio2", "PaO2/FiO2 (avec PEEP ≥ 5 cmH2O)", []domain.Option{
				opt("mild", "201-300 mmHg (Léger)"),
				opt("moderate", "101-200 mmHg (Modéré)"),
				opt("severe", "≤ 100 mmHg (Sévère)"),
				opt("none", "> 300 mmHg"),
			}, reference("none")),
		}, computeBerlin)
}

func computeBerlin(in domain.Inputs) domain.Result {
	met := in.Text("timing", "no") == "yes" &&
		in.Text("imaging", "no") == "yes" &&
		in.Text("edema", "no") == "yes"
	if !met {
		return measured(domain.TextValue("Non"), "", "Critères de Berlin NON remplis - Pas de SDRA", "Tous critères requis", domain.SeverityLow)
	}

	var grade, mortality string
	var sev domain.Severity
	switch in.Text("pao2_fio2", "none") {
	case "mild":
		grade, mortality, sev = "SDRA LÉGER", "Mortalité 27%", domain.SeverityHigh
	case "moderate":
		grade, mortality, sev = "SDRA MODÉRÉ", "Mortalité 32%", domain.SeverityCritical
	case "severe":
		grade, mortality, sev = "SDRA SÉVÈRE", "Mortalité 45%", domain.SeverityCritical
	default:
		return measured(domain.TextValue("Non"), "", "PaO2/FiO2 insuffisant pour diagnostic SDRA", "PaO2/FiO2 ≤ 300", domain.SeverityLow)
	}

	return measured(domain.TextValue(grade), "", mortality+" - Ventilation protectrice recommandée", "Aucun critère", sev)
}

// BODE is the COPD prognostic index.
func BODE() *Definition {
	return NewDefinition("bode", "Index BODE", "Pronostic de la BPCO", specialtyPulmonology,
		[]domain.FieldSchema{
			choice("fev1", "VEMS (% prédit)", []domain.Option{
				opt("0", "≥ 65% (0 pts)"),
				opt("1", "50-64% (1 pt)"),
				opt("2", "36-49% (2 pts)"),
				opt("3", "≤ 35% (3 pts)"),
			}),
			choice("distance", "Distance test de marche 6 min (m)", []domain.Option{
				opt("0", "≥ 350m (0 pts)"),
				opt("1", "250-349m (1 pt)"),
				opt("2", "150-249m (2 pts)"),
				opt("3", "≤ 149m (3 pts)"),
			}),
			choice("mmrc", "Échelle mMRC de dyspnée", []domain.Option{
				opt("0", "0-1 (0 pts)"),
				opt("1", "2 (1 pt)"),
				opt("2", "3 (2 pts)"),
				opt("3", "4 (3 pts)"),
			}),
			choice("bmi", "IMC (kg/m²)", []domain.Option{
				opt("0", "> 21 (0 pts)"),
				opt("1", "≤ 21 (1 pt)"),
			}),
		}, computeBODE)
}

var bodeTiers = []tier{
	{2, "Survie 4 ans: 80%", domain.SeverityLow},
	{4, "Survie 4 ans: 67%", domain.SeverityHigh},
	{6, "Survie 4 ans: 57%", domain.SeverityHigh},
}

func computeBODE(in domain.Inputs) domain.Result {
	total := sum(in, 0, "fev1", "distance", "mmrc", "bmi")
	t := classifyUpTo(float64(total), bodeTiers, tier{interpretation: "Survie 4 ans: 18%", severity: domain.SeverityCritical})
	return scored(total, "/10", t.interpretation, "0-2 (bon pronostic)", t.severity)
}
