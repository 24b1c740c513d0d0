package calculators

import (
	"github.com/clinical-scoring-engine/internal/domain"
)

const specialtyReanimation = "reanimation"

func reanimationCategory() domain.Category {
	return domain.Category{
		ID:          specialtyReanimation,
		DisplayName: "Réanimation / Urgences",
		Icon:        "AlertTriangle",
		ColorHint:   "destructive",
		Calculators: []domain.Calculator{
			Glasgow(),
			QSOFA(),
			SOFA(),
			NEWS(),
			APACHE2(),
		},
	}
}

// Glasgow is the Glasgow Coma Scale.
func Glasgow() *Definition {
	return NewDefinition("glasgow", "Score de Glasgow (GCS)", "Évaluation du niveau de conscience", specialtyReanimation,
		[]domain.FieldSchema{
			choice("eye", "Réponse oculaire (E)", []domain.Option{
				opt("4", "4 - Spontanée"),
				opt("3", "3 - À la demande verbale"),
				opt("2", "2 - À la douleur"),
				opt("1", "1 - Aucune"),
			}),
			choice("verbal", "Réponse verbale (V)", []domain.Option{
				opt("5", "5 - Orientée"),
				opt("4", "4 - Confuse"),
				opt("3", "3 - Mots inappropriés"),
				opt("2", "2 - Sons incompréhensibles"),
				opt("1", "1 - Aucune"),
			}),
			choice("motor", "Réponse motrice (M)", []domain.Option{
				opt("6", "6 - Obéit aux ordres"),
				opt("5", "5 - Localise la douleur"),
				opt("4", "4 - Évitement"),
				opt("3", "3 - Flexion anormale"),
				opt("2", "2 - Extension"),
				opt("1", "1 - Aucune"),
			}),
		}, computeGlasgow)
}

func computeGlasgow(in domain.Inputs) domain.Result {
	total := in.Score("eye", 4) + in.Score("verbal", 5) + in.Score("motor", 6)

	switch {
	case total >= 13:
		return scored(total, "/15", "Traumatisme crânien léger", "15/15", domain.SeverityNormal)
	case total >= 9:
		return scored(total, "/15", "Traumatisme crânien modéré", "15/15", domain.SeverityHigh)
	default:
		return scored(total, "/15", "Traumatisme crânien sévère", "15/15", domain.SeverityCritical)
	}
}

// QSOFA is the quick Sequential Organ Failure Assessment.
func QSOFA() *Definition {
	return NewDefinition("qsofa", "qSOFA (Quick SOFA)", "Dépistage rapide du sepsis", specialtyReanimation,
		[]domain.FieldSchema{
			checkbox("altered_mental", "Altération de l'état mental (GCS < 15)"),
			checkbox("sbp_low", "Pression artérielle systolique ≤ 100 mmHg"),
			checkbox("rr_high", "Fréquence respiratoire ≥ 22/min"),
		}, computeQSOFA)
}

func computeQSOFA(in domain.Inputs) domain.Result {
	score := in.Count("altered_mental", "sbp_low", "rr_high")

	switch {
	case score >= 2:
		return scored(score, "/3", "Risque élevé de sepsis - investigation urgente requise", "0/3", domain.SeverityCritical)
	case score == 1:
		return scored(score, "/3", "Risque modéré - surveillance rapprochée", "0/3", domain.SeverityHigh)
	default:
		return scored(score, "/3", "Risque faible de sepsis", "0/3", domain.SeverityLow)
	}
}

// SOFA is the Sequential Organ Failure Assessment.
func SOFA() *Definition {
	return NewDefinition("sofa", "Score SOFA", "Sequential Organ Failure Assessment", specialtyReanimation,
		[]domain.FieldSchema{
			choice("pao2_fio2", "PaO2/FiO2", []domain.Option{
				opt("0", "≥ 400 (0 pts)"),
				opt("1", "300-399 (1 pt)"),
				opt("2", "200-299 (2 pts)"),
				opt("3", "100-199 avec ventilation (3 pts)"),
				opt("4", "< 100 avec ventilation (4 pts)"),
			}),
			choice("platelets", "Plaquettes (×10³/µL)", []domain.Option{
				opt("0", "≥ 150 (0 pts)"),
				opt("1", "100-149 (1 pt)"),
				opt("2", "50-99 (2 pts)"),
				opt("3", "20-49 (3 pts)"),
				opt("4", "< 20 (4 pts)"),
			}),
			choice("bilirubin", "Bilirubine (mg/dL)", []domain.Option{
				opt("0", "< 1.2 (0 pts)"),
				opt("1", "1.2-1.9 (1 pt)"),
				opt("2", "2.0-5.9 (2 pts)"),
				opt("3", "6.0-11.9 (3 pts)"),
				opt("4", "≥ 12 (4 pts)"),
			}),
			choice("cardiovascular", "Cardiovasculaire", []domain.Option{
				opt("0", "PAM ≥ 70 mmHg (0 pts)"),
				opt("1", "PAM < 70 mmHg (1 pt)"),
				opt("2", "Dopamine ≤ 5 ou Dobutamine (2 pts)"),
				opt("3", "Dopamine > 5 ou Adrénaline ≤ 0.1 (3 pts)"),
				opt("4", "Dopamine > 15 ou Adrénaline > 0.1 (4 pts)"),
			}),
			choice("gcs", "Score de Glasgow", []domain.Option{
				opt("0", "15 (0 pts)"),
				opt("1", "13-14 (1 pt)"),
				opt("2", "10-12 (2 pts)"),
				opt("3", "6-9 (3 pts)"),
				opt("4", "< 6 (4 pts)"),
			}),
			choice("creatinine", "Créatinine (mg/dL) ou diurèse", []domain.Option{
				opt("0", "< 1.2 (0 pts)"),
				opt("1", "1.2-1.9 (1 pt)"),
				opt("2", "2.0-3.4 (2 pts)"),
				opt("3", "3.5-4.9 ou diurèse < 500 mL/j (3 pts)"),
				opt("4", "≥ 5.0 ou diurèse < 200 mL/j (4 pts)"),
			}),
		}, computeSOFA)
}

func computeSOFA(in domain.Inputs) domain.Result {
	total := sum(in, 0, "pao2_fio2", "platelets", "bilirubin", "cardiovascular", "gcs", "creatinine")

	var mortality string
	switch {
	case total <= 6:
		mortality = "<10%"
	case total <= 9:
		mortality = "15-20%"
	case total <= 12:
		mortality = "40-50%"
	default:
		mortality = ">80%"
	}

	t := classifyUpTo(float64(total), []tier{
		{6, "Défaillance légère - Mortalité " + mortality, domain.SeverityLow},
		{9, "Défaillance modérée - Mortalité " + mortality, domain.SeverityHigh},
		{12, "Défaillance sévère - Mortalité " + mortality, domain.SeverityCritical},
	}, tier{interpretation: "Défaillance très sévère - Mortalité " + mortality, severity: domain.SeverityCritical})

	return scored(total, "/24", t.interpretation, "0-6", t.severity)
}

// NEWS is the National Early Warning Score. Several options share a score and
// are told apart by a letter suffix ("3b", "1b", "3c").
func NEWS() *Definition {
	return NewDefinition("news", "NEWS (National Early Warning Score)", "Score d'alerte précoce", specialtyReanimation,
		[]domain.FieldSchema{
			choice("rr", "Fréquence respiratoire", []domain.Option{
				opt("3", "≤ 8 (3 pts)"),
				opt("1", "9-11 (1 pt)"),
				opt("0", "12-20 (0 pts)"),
				opt("2", "21-24 (2 pts)"),
				opt("3b", "≥ 25 (3 pts)"),
			}, reference("0")),
			choice("spo2", "SpO2", []domain.Option{
				opt("3", "≤ 91% (3 pts)"),
				opt("2", "92-93% (2 pts)"),
				opt("1", "94-95% (1 pt)"),
				opt("0", "≥ 96% (0 pts)"),
			}, reference("0")),
			choice("o2", "Oxygène supplémentaire", []domain.Option{
				opt("0", "Non (0 pts)"),
				opt("2", "Oui (2 pts)"),
			}),
			choice("temp", "Température", []domain.Option{
				opt("3", "≤ 35.0°C (3 pts)"),
				opt("1", "35.1-36.0°C (1 pt)"),
				opt("0", "36.1-38.0°C (0 pts)"),
				opt("1b", "38.1-39.0°C (1 pt)"),
				opt("2", "≥ 39.1°C (2 pts)"),
			}, reference("0")),
			choice("sbp", "Pression artérielle systolique", []domain.Option{
				opt("3", "≤ 90 mmHg (3 pts)"),
				opt("2", "91-100 mmHg (2 pts)"),
				opt("1", "101-110 mmHg (1 pt)"),
				opt("0", "111-219 mmHg (0 pts)"),
				opt("3b", "≥ 220 mmHg (3 pts)"),
			}, reference("0")),
			choice("hr", "Fréquence cardiaque", []domain.Option{
				opt("3", "≤ 40 bpm (3 pts)"),
				opt("1", "41-50 bpm (1 pt)"),
				opt("0", "51-90 bpm (0 pts)"),
				opt("1b", "91-110 bpm (1 pt)"),
				opt("2", "111-130 bpm (2 pts)"),
				opt("3c", "≥ 131 bpm (3 pts)"),
			}, reference("0")),
			choice("consciousness", "Conscience", []domain.Option{
				opt("0", "Alerte (0 pts)"),
				opt("3", "Confusion/V/P/U (3 pts)"),
			}),
		}, computeNEWS)
}

func computeNEWS(in domain.Inputs) domain.Result {
	total := sum(in, 0, "rr", "spo2", "o2", "temp", "sbp", "hr", "consciousness")

	switch {
	case total <= 4:
		return scored(total, "/20", "Risque faible - Surveillance standard", "0-4", domain.SeverityLow)
	case total <= 6:
		return scored(total, "/20", "Risque modéré - Surveillance rapprochée", "0-4", domain.SeverityHigh)
	default:
		return scored(total, "/20", "Risque élevé - Évaluation urgente requise", "0-4", domain.SeverityCritical)
	}
}

// APACHE2 is the Acute Physiology and Chronic Health Evaluation II, entered as
// pre-scored physiology items plus age.
func APACHE2() *Definition {
	return NewDefinition("apache2", "APACHE II", "Acute Physiology and Chronic Health Evaluation", specialtyReanimation,
		[]domain.FieldSchema{
			number("age", "Âge (ans)", placeholder("60")),
			choice("temp_score", "Score Température", []domain.Option{
				opt("4", "≥ 41°C ou ≤ 29.9°C (4 pts)"),
				opt("3", "39-40.9°C ou 30-31.9°C (3 pts)"),
				opt("2", "32-33.9°C (2 pts)"),
				opt("1", "38.5-38.9°C ou 34-35.9°C (1 pt)"),
				opt("0", "36-38.4°C (0 pts)"),
			}, reference("0")),
			choice("map_score", "Score PAM", []domain.Option{
				opt("4", "≥ 160 ou ≤ 49 mmHg (4 pts)"),
				opt("3", "130-159 mmHg (3 pts)"),
				opt("2", "110-129 ou 50-69 mmHg (2 pts)"),
				opt("0", "70-109 mmHg (0 pts)"),
			}, reference("0")),
			choice("hr_score", "Score Fréquence cardiaque", []domain.Option{
				opt("4", "≥ 180 ou ≤ 39 bpm (4 pts)"),
				opt("3", "140-179 ou 40-54 bpm (3 pts)"),
				opt("2", "110-139 ou 55-69 bpm (2 pts)"),
				opt("0", "70-109 bpm (0 pts)"),
			}, reference("0")),
			choice("rr_score", "Score Fréquence respiratoire", []domain.Option{
				opt("4", "≥ 50 ou ≤ 5/min (4 pts)"),
				opt("3", "35-49/min (3 pts)"),
				opt("1", "25-34 ou 6-9/min (1 pt)"),
				opt("0", "10-24/min (0 pts)"),
			}, reference("0")),
			number("gcs_score", "Score Glasgow (15-GCS)", placeholder("0"), bounds(0, 12)),
			choice("chronic", "Maladie chronique grave", []domain.Option{
				opt("0", "Aucune (0 pts)"),
				opt("2", "Post-opératoire programmé (2 pts)"),
				opt("5", "Urgence ou non opéré (5 pts)"),
			}),
		}, computeAPACHE2)
}

func computeAPACHE2(in domain.Inputs) domain.Result {
	age := in.Int("age", 0)
	ageScore := 0
	switch {
	case age >= 75:
		ageScore = 6
	case age >= 65:
		ageScore = 5
	case age >= 55:
		ageScore = 3
	case age >= 45:
		ageScore = 2
	}

	total := ageScore + sum(in, 0, "temp_score", "map_score", "hr_score", "rr_score", "chronic") + in.Int("gcs_score", 0)

	var mortality string
	var sev domain.Severity
	switch {
	case total <= 4:
		mortality, sev = "~4%", domain.SeverityLow
	case total <= 9:
		mortality, sev = "~8%", domain.SeverityLow
	case total <= 14:
		mortality, sev = "~15%", domain.SeverityHigh
	case total <= 19:
		mortality, sev = "~25%", domain.SeverityHigh
	case total <= 24:
		mortality, sev = "~40%", domain.SeverityCritical
	case total <= 29:
		mortality, sev = "~55%", domain.SeverityCritical
	default:
		mortality, sev = ">70%", domain.SeverityCritical
	}

	return scored(total, "pts", "Mortalité hospitalière estimée: "+mortality, "0-9 (risque faible)", sev)
}
