package calculators

import (
	"fmt"

	"github.com/clinical-scoring-engine/internal/domain"
)

const specialtyGeriatrics = "geriatrics"

func geriatricsCategory() domain.Category {
	return domain.Category{
		ID:          specialtyGeriatrics,
		DisplayName: "Gériatrie / Neurologie",
		Icon:        "Brain",
		ColorHint:   "purple",
		Calculators: []domain.Calculator{
			MMSE(),
			ADL(),
			IADL(),
			Tinetti(),
		},
	}
}

// subscore builds a bounded integer item of a multi-item scale.
func subscore(id, label string, max int) domain.FieldSchema {
	p := fmt.Sprint(max)
	return number(id, fmt.Sprintf("%s (0-%d)", label, max), placeholder(p), bounds(0, float64(max)))
}

// MMSE is the Mini Mental State Examination.
func MMSE() *Definition {
	return NewDefinition("mmse", "MMSE (Mini Mental State)", "Évaluation cognitive globale", specialtyGeriatrics,
		[]domain.FieldSchema{
			subscore("orientation_time", "Orientation temporelle", 5),
			subscore("orientation_place", "Orientation spatiale", 5),
			subscore("registration", "Apprentissage 3 mots", 3),
			subscore("attention", "Attention et calcul", 5),
			subscore("recall", "Rappel 3 mots", 3),
			subscore("language", "Langage", 8),
			subscore("praxis", "Praxie constructive", 1),
		}, computeMMSE)
}

func computeMMSE(in domain.Inputs) domain.Result {
	total := intSum(in, "orientation_time", "orientation_place", "registration", "attention", "recall", "language", "praxis")

	switch {
	case total >= 27:
		return scored(total, "/30", "Fonctions cognitives normales", "≥27", domain.SeverityNormal)
	case total >= 24:
		return scored(total, "/30", "Déclin cognitif léger possible", "≥27", domain.SeverityLow)
	case total >= 20:
		return scored(total, "/30", "Démence légère", "≥27", domain.SeverityHigh)
	case total >= 10:
		return scored(total, "/30", "Démence modérée", "≥27", domain.SeverityCritical)
	default:
		return scored(total, "/30", "Démence sévère", "≥27", domain.SeverityCritical)
	}
}

// ADL is the Katz index of independence in activities of daily living.
func ADL() *Definition {
	return NewDefinition("adl", "ADL (Index de Katz)", "Activités de la vie quotidienne", specialtyGeriatrics,
		[]domain.FieldSchema{
			checkbox("bathing", "Se laver (bain/douche)"),
			checkbox("dressing", "S'habiller"),
			checkbox("toileting", "Aller aux toilettes"),
			checkbox("transferring", "Se déplacer (lit/chaise)"),
			checkbox("continence", "Continence"),
			checkbox("feeding", "Se nourrir"),
		}, computeADL)
}

func computeADL(in domain.Inputs) domain.Result {
	score := in.Count("bathing", "dressing", "toileting", "transferring", "continence", "feeding")

	const normal = "6/6 (indépendance)"
	switch {
	case score == 6:
		return scored(score, "/6", "Indépendance totale", normal, domain.SeverityNormal)
	case score >= 4:
		return scored(score, "/6", "Dépendance légère", normal, domain.SeverityLow)
	case score >= 2:
		return scored(score, "/6", "Dépendance modérée", normal, domain.SeverityHigh)
	default:
		return scored(score, "/6", "Dépendance sévère", normal, domain.SeverityCritical)
	}
}

// IADL is the Lawton instrumental activities of daily living scale.
func IADL() *Definition {
	return NewDefinition("iadl", "IADL (Lawton)", "Activités instrumentales de la vie quotidienne", specialtyGeriatrics,
		[]domain.FieldSchema{
			checkbox("telephone", "Utiliser le téléphone"),
			checkbox("shopping", "Faire les courses"),
			checkbox("cooking", "Préparer les repas"),
			checkbox("housekeeping", "Entretien ménager"),
			checkbox("laundry", "Faire la lessive"),
			checkbox("transport", "Utiliser les transports"),
			checkbox("medications", "Gérer les médicaments"),
			checkbox("finances", "Gérer les finances"),
		}, computeIADL)
}

func computeIADL(in domain.Inputs) domain.Result {
	score := in.Count("telephone", "shopping", "cooking", "housekeeping", "laundry", "transport", "medications", "finances")

	const normal = "8/8 (autonomie)"
	switch {
	case score == 8:
		return scored(score, "/8", "Autonomie complète", normal, domain.SeverityNormal)
	case score >= 6:
		return scored(score, "/8", "Autonomie légèrement réduite", normal, domain.SeverityLow)
	case score >= 4:
		return scored(score, "/8", "Autonomie modérément réduite - Aide requise", normal, domain.SeverityHigh)
	default:
		return scored(score, "/8", "Autonomie très réduite - Dépendance importante", normal, domain.SeverityCritical)
	}
}

var (
	tinettiBalance = []string{
		"sitting_balance", "rising", "standing_balance", "standing_balance_prolonged",
		"nudge", "eyes_closed", "turning", "sitting_down",
	}
	tinettiGait = []string{
		"gait_initiation", "step_length", "step_symmetry", "step_continuity",
		"path", "trunk", "walking_stance",
	}
)

// Tinetti is the performance-oriented mobility assessment.
func Tinetti() *Definition {
	return NewDefinition("tinetti", "Échelle de Tinetti", "Évaluation de l'équilibre et de la marche", specialtyGeriatrics,
		[]domain.FieldSchema{
			subscore("sitting_balance", "Équilibre assis", 2),
			subscore("rising", "Se lever", 2),
			subscore("standing_balance", "Équilibre debout immédiat", 2),
			subscore("standing_balance_prolonged", "Équilibre debout prolongé", 2),
			subscore("nudge", "Test de poussée", 2),
			subscore("eyes_closed", "Yeux fermés", 1),
			subscore("turning", "Tour 360°", 2),
			subscore("sitting_down", "S'asseoir", 2),
			subscore("gait_initiation", "Initiation marche", 1),
			subscore("step_length", "Longueur du pas", 2),
			subscore("step_symmetry", "Symétrie du pas", 1),
			subscore("step_continuity", "Continuité du pas", 1),
			subscore("path", "Trajectoire", 2),
			subscore("trunk", "Stabilité du tronc", 2),
			subscore("walking_stance", "Écartement des pieds", 1),
		}, computeTinetti)
}

func computeTinetti(in domain.Inputs) domain.Result {
	balance := intSum(in, tinettiBalance...)
	gait := intSum(in, tinettiGait...)
	total := balance + gait

	var label string
	var sev domain.Severity
	switch {
	case total >= 24:
		label, sev = "Risque faible de chute", domain.SeverityNormal
	case total >= 19:
		label, sev = "Risque modéré de chute", domain.SeverityHigh
	default:
		label, sev = "Risque élevé de chute - Prévention urgente", domain.SeverityCritical
	}

	interp := fmt.Sprintf("Équilibre: %d/16, Marche: %d/12 - %s", balance, gait, label)
	return scored(total, "/28", interp, "≥24", sev)
}
