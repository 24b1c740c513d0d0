package calculators

import (
	"fmt"

	"github.com/clinical-scoring-engine/internal/domain"
)

const specialtyDermatology = "dermatology"

func dermatologyCategory() domain.Category {
	return domain.Category{
		ID:          specialtyDermatology,
		DisplayName: "Dermatologie",
		Icon:        "Scan",
		ColorHint:   "teal",
		Calculators: []domain.Calculator{
			WINRS(),
			Skindex10(),
			FiveDItch(),
		},
	}
}

// WINRS is the worst itch numeric rating scale.
func WINRS() *Definition {
	options := []domain.Option{opt("0", "0 - Pas de prurit")}
	for i := 1; i <= 9; i++ {
		v := fmt.Sprint(i)
		options = append(options, opt(v, v))
	}
	options = append(options, opt("10", "10 - Pire prurit imaginable"))

	return NewDefinition("winrs", "WI-NRS (Worst Itch NRS)", "Échelle numérique du prurit", specialtyDermatology,
		[]domain.FieldSchema{
			choice("score", "Intensité du prurit (pire des 24h)", options),
		}, computeWINRS)
}

func computeWINRS(in domain.Inputs) domain.Result {
	score := in.Score("score", 0)

	switch {
	case score == 0:
		return scored(score, "/10", "Pas de prurit", "0", domain.SeverityNormal)
	case score <= 3:
		return scored(score, "/10", "Prurit léger", "0", domain.SeverityLow)
	case score <= 6:
		return scored(score, "/10", "Prurit modéré", "0", domain.SeverityHigh)
	case score <= 8:
		return scored(score, "/10", "Prurit sévère", "0", domain.SeverityCritical)
	default:
		return scored(score, "/10", "Prurit très sévère", "0", domain.SeverityCritical)
	}
}

var skindexQuestions = []string{
	"Affecte les émotions",
	"Affecte les interactions sociales",
	"Affecte le désir d'être avec les gens",
	"Tendance à rester à la maison",
	"Peau irritée",
	"Peau brûlante ou cuisante",
	"Peau qui démange",
	"Apparence gênante",
	"Frustration avec la peau",
	"Honte de la peau",
}

// Skindex10 measures the quality of life impact of skin disease.
func Skindex10() *Definition {
	fields := make([]domain.FieldSchema, len(skindexQuestions))
	for i, q := range skindexQuestions {
		fields[i] = number(fmt.Sprintf("q%d", i+1), q+" (0-6)", placeholder("0"), bounds(0, 6))
	}
	return NewDefinition("skindex10", "SKINDEX-10", "Impact des maladies cutanées sur la qualité de vie", specialtyDermatology,
		fields, computeSkindex10)
}

var skindexTiers = []tier{
	{20, "Impact minimal sur la qualité de vie", domain.SeverityNormal},
	{40, "Impact léger sur la qualité de vie", domain.SeverityLow},
	{60, "Impact modéré sur la qualité de vie", domain.SeverityHigh},
}

func computeSkindex10(in domain.Inputs) domain.Result {
	total := 0
	for i := range skindexQuestions {
		total += in.Int(fmt.Sprintf("q%d", i+1), 0)
	}
	percent := float64(total) / 60 * 100

	t := classifyUpTo(percent, skindexTiers, tier{interpretation: "Impact sévère sur la qualité de vie", severity: domain.SeverityCritical})
	interp := fmt.Sprintf("%s (%s%%)", t.interpretation, domain.FormatFixed(percent, 0))
	return scored(total, "/60", interp, "0-12", t.severity)
}

// FiveDItch is the 5-D itch scale. Direction options share scores, so values
// carry a letter suffix ("3b") that is ignored when scoring.
func FiveDItch() *Definition {
	return NewDefinition("fiveD", "Échelle 5D-Itch", "Évaluation multidimensionnelle du prurit", specialtyDermatology,
		[]domain.FieldSchema{
			choice("duration", "Durée du prurit par jour", []domain.Option{
				opt("1", "< 6 heures"),
				opt("2", "6-12 heures"),
				opt("3", "12-18 heures"),
				opt("4", "18-23 heures"),
				opt("5", "Toute la journée"),
			}),
			choice("degree", "Intensité du prurit", []domain.Option{
				opt("1", "Pas de prurit"),
				opt("2", "Léger"),
				opt("3", "Modéré"),
				opt("4", "Sévère"),
				opt("5", "Intolérable"),
			}),
			choice("direction", "Évolution sur les 2 dernières semaines", []domain.Option{
				opt("1", "Résolu complètement"),
				opt("3", "Beaucoup amélioré"),
				opt("5", "Légèrement amélioré"),
				opt("3b", "Inchangé"),
				opt("5b", "Légèrement aggravé"),
				opt("7", "Beaucoup aggravé"),
			}, reference("3b")),
			choice("disability", "Impact sur les activités quotidiennes", []domain.Option{
				opt("1", "Aucun impact"),
				opt("2", "Rarement gêné"),
				opt("3", "Parfois gêné"),
				opt("4", "Souvent gêné"),
				opt("5", "Toujours gêné/incapable"),
			}),
			choice("distribution", "Nombre de zones atteintes", []domain.Option{
				opt("1", "0-2 zones"),
				opt("2", "3-5 zones"),
				opt("3", "6-10 zones"),
				opt("4", "11-13 zones"),
				opt("5", "14-16 zones (généralisé)"),
			}),
		}, computeFiveDItch)
}

// fiveDScore reads a 5-D item; unparsable answers score 1.
func fiveDScore(in domain.Inputs, id string, missing int) int {
	if !in.Has(id) {
		return missing
	}
	if s := in.Score(id, 1); s != 0 {
		return s
	}
	return 1
}

var fiveDTiers = []tier{
	{10, "Prurit léger", domain.SeverityLow},
	{15, "Prurit modéré", domain.SeverityHigh},
	{20, "Prurit sévère", domain.SeverityCritical},
}

func computeFiveDItch(in domain.Inputs) domain.Result {
	total := fiveDScore(in, "duration", 1) +
		fiveDScore(in, "degree", 1) +
		fiveDScore(in, "direction", 3) +
		fiveDScore(in, "disability", 1) +
		fiveDScore(in, "distribution", 1)

	t := classifyUpTo(float64(total), fiveDTiers, tier{interpretation: "Prurit très sévère", severity: domain.SeverityCritical})
	return scored(total, "/25", t.interpretation, "5-10", t.severity)
}
