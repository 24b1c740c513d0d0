package calculators

import (
	"fmt"

	"github.com/clinical-scoring-engine/internal/domain"
)

const specialtyPsychiatry = "psychiatry"

func psychiatryCategory() domain.Category {
	return domain.Category{
		ID:          specialtyPsychiatry,
		DisplayName: "Psychiatrie",
		Icon:        "Smile",
		ColorHint:   "pink",
		Calculators: []domain.Calculator{
			PHQ9(),
			GAD7(),
			Hamilton(),
			YMRS(),
			CGI(),
		},
	}
}

// frequencyOptions is the 0-3 answer scale shared by PHQ-9 and GAD-7.
func frequencyOptions() []domain.Option {
	return []domain.Option{
		opt("0", "Pas du tout"),
		opt("1", "Plusieurs jours"),
		opt("2", "Plus de la moitié du temps"),
		opt("3", "Presque tous les jours"),
	}
}

func questionnaire(labels ...string) ([]domain.FieldSchema, []string) {
	fields := make([]domain.FieldSchema, len(labels))
	ids := make([]string, len(labels))
	for i, l := range labels {
		ids[i] = fmt.Sprintf("q%d", i+1)
		fields[i] = choice(ids[i], l, frequencyOptions())
	}
	return fields, ids
}

var phq9Fields, phq9Items = questionnaire(
	"Peu d'intérêt ou de plaisir à faire les choses",
	"Se sentir triste, déprimé(e) ou désespéré(e)",
	"Troubles du sommeil",
	"Se sentir fatigué(e) ou manquer d'énergie",
	"Perte d'appétit ou manger trop",
	"Mauvaise estime de soi",
	"Difficultés de concentration",
	"Ralentissement ou agitation psychomotrice",
	"Idées suicidaires ou d'automutilation",
)

// PHQ9 is the Patient Health Questionnaire depression scale. Any positive
// answer to item 9 forces a critical result.
func PHQ9() *Definition {
	return NewDefinition("phq9", "PHQ-9", "Dépistage et suivi de la dépression", specialtyPsychiatry,
		phq9Fields, computePHQ9)
}

var phq9Tiers = []tier{
	{4, "Dépression minimale ou absente", domain.SeverityNormal},
	{9, "Dépression légère", domain.SeverityLow},
	{14, "Dépression modérée - Traitement à considérer", domain.SeverityHigh},
	{19, "Dépression modérément sévère - Traitement recommandé", domain.SeverityCritical},
}

func computePHQ9(in domain.Inputs) domain.Result {
	total := sum(in, 0, phq9Items...)
	t := classifyUpTo(float64(total), phq9Tiers, tier{interpretation: "Dépression sévère - Traitement immédiat requis", severity: domain.SeverityCritical})

	interp, sev := t.interpretation, t.severity
	if in.Score("q9", 0) > 0 {
		interp += " ⚠️ ÉVALUATION RISQUE SUICIDAIRE REQUISE"
		sev = domain.SeverityCritical
	}
	return scored(total, "/27", interp, "0-4", sev)
}

var gad7Fields, gad7Items = questionnaire(
	"Sentiment de nervosité, d'anxiété ou de tension",
	"Incapacité à arrêter ou contrôler les inquiétudes",
	"Inquiétudes excessives pour différentes choses",
	"Difficultés à se détendre",
	"Agitation, impossibilité de tenir en place",
	"Tendance à s'énerver ou à être irritable",
	"Peur que quelque chose de terrible puisse arriver",
)

// GAD7 is the Generalized Anxiety Disorder scale.
func GAD7() *Definition {
	return NewDefinition("gad7", "GAD-7", "Dépistage et suivi de l'anxiété", specialtyPsychiatry,
		gad7Fields, computeGAD7)
}

var gad7Tiers = []tier{
	{4, "Anxiété minimale ou absente", domain.SeverityNormal},
	{9, "Anxiété légère - Surveillance recommandée", domain.SeverityLow},
	{14, "Anxiété modérée - Traitement à considérer", domain.SeverityHigh},
}

func computeGAD7(in domain.Inputs) domain.Result {
	total := sum(in, 0, gad7Items...)
	t := classifyUpTo(float64(total), gad7Tiers, tier{interpretation: "Anxiété sévère - Traitement recommandé", severity: domain.SeverityCritical})
	return scored(total, "/21", t.interpretation, "0-4", t.severity)
}

var (
	hamiltonSelects = []string{
		"depressed_mood", "guilt", "suicide", "insomnia_early", "insomnia_middle", "insomnia_late", "work",
	}
	hamiltonNumbers = []string{
		"anxiety_psychic", "anxiety_somatic", "somatic_gi", "somatic_general",
		"genital", "hypochondriasis", "weight_loss", "insight",
	}
)

// Hamilton is the 17-item Hamilton depression rating scale. A suicide item of 2
// or more forces a critical result.
func Hamilton() *Definition {
	item := func(id, label string, max int) domain.FieldSchema {
		return number(id, fmt.Sprintf("%s (0-%d)", label, max), placeholder("0"), bounds(0, float64(max)))
	}
	return NewDefinition("hamilton", "Échelle de Hamilton (dépression)", "HAM-D - Sévérité de la dépression", specialtyPsychiatry,
		[]domain.FieldSchema{
			choice("depressed_mood", "Humeur dépressive (0-4)", rangeOptions(0,
				"Absente",
				"Sentiments évoqués seulement si on l'interroge",
				"Sentiments spontanément rapportés",
				"Sentiments non verbaux (expression faciale, voix)",
				"Sentiments pratiquement les seuls rapportés",
			)),
			choice("guilt", "Sentiments de culpabilité (0-4)", rangeOptions(0,
				"Absents",
				"Auto-reproches",
				"Idées de culpabilité",
				"La maladie est une punition",
				"Hallucinations accusatrices",
			)),
			choice("suicide", "Suicide (0-4)", rangeOptions(0,
				"Absent",
				"La vie ne vaut pas la peine d'être vécue",
				"Souhaite être mort",
				"Idées ou gestes suicidaires",
				"Tentative de suicide",
			)),
			choice("insomnia_early", "Insomnie d'endormissement (0-2)", rangeOptions(0,
				"Absente", "Plaintes occasionnelles", "Plaintes chaque nuit",
			)),
			choice("insomnia_middle", "Insomnie du milieu de nuit (0-2)", rangeOptions(0,
				"Absente", "Agitation et troubles", "Se réveille pendant la nuit",
			)),
			choice("insomnia_late", "Insomnie du matin (0-2)", rangeOptions(0,
				"Absente", "Se réveille tôt mais se rendort", "Incapable de se rendormir",
			)),
			choice("work", "Travail et activités (0-4)", rangeOptions(0,
				"Pas de difficulté",
				"Pensées et sentiments d'incapacité",
				"Perte d'intérêt",
				"Diminution du temps d'activité",
				"Arrêt du travail",
			)),
			item("anxiety_psychic", "Anxiété psychique", 4),
			item("anxiety_somatic", "Anxiété somatique", 4),
			item("somatic_gi", "Symptômes somatiques gastro-intestinaux", 2),
			item("somatic_general", "Symptômes somatiques généraux", 2),
			item("genital", "Symptômes génitaux", 2),
			item("hypochondriasis", "Hypocondrie", 4),
			item("weight_loss", "Perte de poids", 2),
			item("insight", "Conscience de la maladie", 2),
		}, computeHamilton)
}

var hamiltonTiers = []tier{
	{7, "Pas de dépression", domain.SeverityNormal},
	{13, "Dépression légère", domain.SeverityLow},
	{18, "Dépression modérée", domain.SeverityHigh},
	{22, "Dépression sévère", domain.SeverityCritical},
}

func computeHamilton(in domain.Inputs) domain.Result {
	total := sum(in, 0, hamiltonSelects...) + intSum(in, hamiltonNumbers...)
	t := classifyUpTo(float64(total), hamiltonTiers, tier{interpretation: "Dépression très sévère", severity: domain.SeverityCritical})

	interp, sev := t.interpretation, t.severity
	if in.Score("suicide", 0) >= 2 {
		interp += " ⚠️ RISQUE SUICIDAIRE - ÉVALUATION URGENTE"
		sev = domain.SeverityCritical
	}
	return scored(total, "/52", interp, "0-7", sev)
}

var ymrsItems = []struct {
	id    string
	label string
	max   int
}{
	{"elevated_mood", "Humeur exaltée", 4},
	{"motor_activity", "Activité motrice/énergie", 4},
	{"sexual_interest", "Intérêt sexuel", 4},
	{"sleep", "Sommeil", 4},
	{"irritability", "Irritabilité", 8},
	{"speech", "Débit verbal", 8},
	{"thought_disorder", "Troubles de la pensée", 4},
	{"thought_content", "Contenu de la pensée", 8},
	{"aggressive_behavior", "Comportement agressif", 8},
	{"appearance", "Apparence", 4},
	{"insight", "Conscience de la maladie", 4},
}

// YMRS is the Young Mania Rating Scale.
func YMRS() *Definition {
	fields := make([]domain.FieldSchema, len(ymrsItems))
	for i, it := range ymrsItems {
		fields[i] = number(it.id, fmt.Sprintf("%s (0-%d)", it.label, it.max), placeholder("0"), bounds(0, float64(it.max)))
	}
	return NewDefinition("ymrs", "YMRS", "Young Mania Rating Scale - Épisode maniaque", specialtyPsychiatry,
		fields, computeYMRS)
}

var ymrsTiers = []tier{
	{12, "Euthymie ou symptômes minimes", domain.SeverityNormal},
	{19, "Hypomanie légère", domain.SeverityLow},
	{25, "Manie modérée", domain.SeverityHigh},
}

func computeYMRS(in domain.Inputs) domain.Result {
	total := 0
	for _, it := range ymrsItems {
		total += in.Int(it.id, 0)
	}
	t := classifyUpTo(float64(total), ymrsTiers, tier{interpretation: "Manie sévère - Hospitalisation à considérer", severity: domain.SeverityCritical})
	return scored(total, "/60", t.interpretation, "0-12", t.severity)
}

var (
	cgiSeverityLabels = []string{
		"", "Normal", "À la limite", "Légèrement malade", "Modérément malade",
		"Manifestement malade", "Gravement malade", "Extrêmement malade",
	}
	cgiImprovementLabels = []string{
		"", "Très fortement amélioré", "Fortement amélioré", "Légèrement amélioré",
		"Pas de changement", "Légèrement aggravé", "Fortement aggravé", "Très fortement aggravé",
	}
)

// CGI is the Clinical Global Impression severity and improvement pair. Missing
// improvement reads as "no change".
func CGI() *Definition {
	return NewDefinition("cgi", "CGI (Clinical Global Impression)", "Impression clinique globale", specialtyPsychiatry,
		[]domain.FieldSchema{
			choice("severity", "CGI-S - Sévérité de la maladie", rangeOptions(1,
				"Normal, pas du tout malade",
				"À la limite",
				"Légèrement malade",
				"Modérément malade",
				"Manifestement malade",
				"Gravement malade",
				"Parmi les patients les plus malades",
			)),
			choice("improvement", "CGI-I - Amélioration globale", rangeOptions(1,
				"Très fortement amélioré",
				"Fortement amélioré",
				"Légèrement amélioré",
				"Pas de changement",
				"Légèrement aggravé",
				"Fortement aggravé",
				"Très fortement aggravé",
			), reference("4")),
		}, computeCGI)
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func computeCGI(in domain.Inputs) domain.Result {
	s := clampInt(in.Score("severity", 1), 1, 7)
	i := clampInt(in.Score("improvement", 4), 1, 7)

	var sev domain.Severity
	switch {
	case s <= 2:
		sev = domain.SeverityNormal
	case s <= 4:
		sev = domain.SeverityHigh
	default:
		sev = domain.SeverityCritical
	}

	interp := fmt.Sprintf("Sévérité: %s | Évolution: %s", cgiSeverityLabels[s], cgiImprovementLabels[i])
	return measured(domain.TextValue(fmt.Sprintf("S%d/I%d", s, i)), "", interp, "S1-2 / I1-3", sev)
}
