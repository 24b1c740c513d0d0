package calculators

import (
	"math"

	"github.com/clinical-scoring-engine/internal/domain"
)

const specialtyHepatology = "hepatology"

func hepatologyCategory() domain.Category {
	return domain.Category{
		ID:          specialtyHepatology,
		DisplayName: "Hépatologie / Gastro",
		Icon:        "Pill",
		ColorHint:   "yellow",
		Calculators: []domain.Calculator{
			MELD(),
			ChildPugh(),
			Rockall(),
			Alvarado(),
		},
	}
}

// MELD computes MELD-Na, clamped to [6, 40].
func MELD() *Definition {
	return NewDefinition("meld", "Score MELD", "Model for End-Stage Liver Disease", specialtyHepatology,
		[]domain.FieldSchema{
			number("bilirubin", "Bilirubine totale (mg/dL)", placeholder("1.0"), step(0.1)),
			number("inr", "INR", placeholder("1.0"), step(0.1)),
			number("creatinine", "Créatinine (mg/dL)", placeholder("1.0"), step(0.1)),
			checkbox("dialysis", "Dialyse (≥2 fois/semaine)"),
			number("sodium", "Sodium (mEq/L) - pour MELD-Na", placeholder("140")),
		}, computeMELD)
}

func computeMELD(in domain.Inputs) domain.Result {
	bili := math.Max(in.Number("bilirubin", 1), 1)
	inr := math.Max(in.Number("inr", 1), 1)
	cr := math.Max(in.Number("creatinine", 1), 1)
	if in.Flag("dialysis") {
		cr = 4
	}
	cr = math.Min(cr, 4)
	sodium := in.Number("sodium", 140)

	meld := 10 * (0.957*math.Log(cr) + 0.378*math.Log(bili) + 1.120*math.Log(inr) + 0.643)

	meldNa := meld
	switch {
	case sodium >= 125 && sodium <= 137:
		meldNa = meld + 1.32*(137-sodium) - 0.033*meld*(137-sodium)
	case sodium < 125:
		meldNa = meld + 1.32*12 - 0.033*meld*12
	}

	final := int(math.Round(math.Max(6, math.Min(40, meldNa))))
	if !finite(meldNa) {
		final = 40
	}

	const normal = "≤9 (risque faible)"
	switch {
	case final <= 9:
		return scored(final, "pts", "MELD-Na: Mortalité 3 mois: 1.9%", normal, domain.SeverityLow)
	case final <= 19:
		return scored(final, "pts", "MELD-Na: Mortalité 3 mois: 6%", normal, domain.SeverityHigh)
	case final <= 29:
		return scored(final, "pts", "MELD-Na: Mortalité 3 mois: 19.6%", normal, domain.SeverityCritical)
	case final <= 39:
		return scored(final, "pts", "MELD-Na: Mortalité 3 mois: 52.6%", normal, domain.SeverityCritical)
	default:
		return scored(final, "pts", "MELD-Na: Mortalité 3 mois: 71.3%", normal, domain.SeverityCritical)
	}
}

// ChildPugh classifies cirrhosis severity.
func ChildPugh() *Definition {
	return NewDefinition("childpugh", "Score de Child-Pugh", "Classification de la cirrhose", specialtyHepatology,
		[]domain.FieldSchema{
			choice("encephalopathy", "Encéphalopathie", []domain.Option{
				opt("1", "Aucune (1 pt)"),
				opt("2", "Grade I-II (2 pts)"),
				opt("3", "Grade III-IV (3 pts)"),
			}),
			choice("ascites", "Ascite", []domain.Option{
				opt("1", "Absente (1 pt)"),
				opt("2", "Légère/Contrôlée (2 pts)"),
				opt("3", "Modérée/Réfractaire (3 pts)"),
			}),
			choice("bilirubin", "Bilirubine (mg/dL)", []domain.Option{
				opt("1", "< 2 (1 pt)"),
				opt("2", "2-3 (2 pts)"),
				opt("3", "> 3 (3 pts)"),
			}),
			choice("albumin", "Albumine (g/dL)", []domain.Option{
				opt("1", "> 3.5 (1 pt)"),
				opt("2", "2.8-3.5 (2 pts)"),
				opt("3", "< 2.8 (3 pts)"),
			}),
			choice("inr", "INR / TP", []domain.Option{
				opt("1", "< 1.7 / > 50% (1 pt)"),
				opt("2", "1.7-2.3 / 30-50% (2 pts)"),
				opt("3", "> 2.3 / < 30% (3 pts)"),
			}),
		}, computeChildPugh)
}

func computeChildPugh(in domain.Inputs) domain.Result {
	total := sum(in, 1, "encephalopathy", "ascites", "bilirubin", "albumin", "inr")

	const normal = "5-6 (Classe A)"
	switch {
	case total <= 6:
		return scored(total, "/15", "Classe A - Cirrhose compensée - Survie 1 an: 100%, 2 ans: 85%", normal, domain.SeverityLow)
	case total <= 9:
		return scored(total, "/15", "Classe B - Atteinte significative - Survie 1 an: 80%, 2 ans: 60%", normal, domain.SeverityHigh)
	default:
		return scored(total, "/15", "Classe C - Cirrhose décompensée - Survie 1 an: 45%, 2 ans: 35%", normal, domain.SeverityCritical)
	}
}

// Rockall scores upper gastrointestinal bleeding risk.
func Rockall() *Definition {
	return NewDefinition("rockall", "Score de Rockall", "Risque dans l'hémorragie digestive haute", specialtyHepatology,
		[]domain.FieldSchema{
			choice("age", "Âge", []domain.Option{
				opt("0", "< 60 ans (0 pts)"),
				opt("1", "60-79 ans (1 pt)"),
				opt("2", "≥ 80 ans (2 pts)"),
			}),
			choice("shock", "État de choc", []domain.Option{
				opt("0", "Pas de choc (PAS ≥ 100, FC < 100) (0 pts)"),
				opt("1", "Tachycardie (PAS ≥ 100, FC ≥ 100) (1 pt)"),
				opt("2", "Hypotension (PAS < 100) (2 pts)"),
			}),
			choice("comorbidity", "Comorbidités", []domain.Option{
				opt("0", "Aucune comorbidité majeure (0 pts)"),
				opt("2", "Cardiopathie, autre maladie majeure (2 pts)"),
				opt("3", "IRC, insuffisance hépatique, cancer (3 pts)"),
			}),
			choice("diagnosis", "Diagnostic endoscopique", []domain.Option{
				opt("0", "Mallory-Weiss, pas de lésion (0 pts)"),
				opt("1", "Tous les autres diagnostics (1 pt)"),
				opt("2", "Cancer digestif haut (2 pts)"),
			}),
			choice("stigmata", "Stigmates de saignement", []domain.Option{
				opt("0", "Aucun ou spot pigmenté (0 pts)"),
				opt("2", "Sang, caillot adhérent, vaisseau visible (2 pts)"),
			}),
		}, computeRockall)
}

var rockallTiers = []tier{
	{2, "Risque faible - Mortalité < 5%, récidive < 5%", domain.SeverityLow},
	{4, "Risque intermédiaire - Mortalité 5-10%", domain.SeverityHigh},
	{7, "Risque élevé - Mortalité 10-25%", domain.SeverityCritical},
}

func computeRockall(in domain.Inputs) domain.Result {
	total := sum(in, 0, "age", "shock", "comorbidity", "diagnosis", "stigmata")
	t := classifyUpTo(float64(total), rockallTiers, tier{interpretation: "Risque très élevé - Mortalité > 25%", severity: domain.SeverityCritical})
	return scored(total, "/11", t.interpretation, "≤2 (risque faible)", t.severity)
}

// Alvarado is the MANTRELS score for acute appendicitis.
func Alvarado() *Definition {
	return NewDefinition("alvarado", "Score d'Alvarado", "Probabilité d'appendicite aiguë (MANTRELS)", specialtyHepatology,
		[]domain.FieldSchema{
			checkbox("migration", "Migration de la douleur en fosse iliaque droite (+1)"),
			checkbox("anorexia", "Anorexie (+1)"),
			checkbox("nausea", "Nausées / vomissements (+1)"),
			checkbox("rlq_tenderness", "Défense en fosse iliaque droite (+2)"),
			checkbox("rebound", "Douleur à la décompression (+1)"),
			checkbox("fever", "Température ≥ 37.3°C (+1)"),
			checkbox("leukocytosis", "Leucocytose > 10 000/mm³ (+2)"),
			checkbox("left_shift", "Polynucléose neutrophile > 75% (+1)"),
		}, computeAlvarado)
}

var alvaradoWeights = []struct {
	id     string
	points int
}{
	{"migration", 1},
	{"anorexia", 1},
	{"nausea", 1},
	{"rlq_tenderness", 2},
	{"rebound", 1},
	{"fever", 1},
	{"leukocytosis", 2},
	{"left_shift", 1},
}

func computeAlvarado(in domain.Inputs) domain.Result {
	score := 0
	for _, w := range alvaradoWeights {
		if in.Flag(w.id) {
			score += w.points
		}
	}

	const normal = "≤4 (appendicite peu probable)"
	switch {
	case score <= 4:
		return scored(score, "/10", "Appendicite peu probable", normal, domain.SeverityLow)
	case score <= 6:
		return scored(score, "/10", "Appendicite possible - surveillance, imagerie", normal, domain.SeverityHigh)
	default:
		return scored(score, "/10", "Appendicite probable - avis chirurgical", normal, domain.SeverityCritical)
	}
}
