package calculators

import (
	"fmt"
	"math"
	"strconv"

	"github.com/clinical-scoring-engine/internal/domain"
)

const specialtyOncology = "oncology"

func oncologyCategory() domain.Category {
	return domain.Category{
		ID:          specialtyOncology,
		DisplayName: "Oncologie / Anatomopathologie",
		Icon:        "Microscope",
		ColorHint:   "orange",
		Calculators: []domain.Calculator{
			Gleason(),
			Nottingham(),
			Fuhrman(),
			Bethesda(),
			TNM(),
			Allred(),
			HER2(),
			Ki67(),
		},
	}
}

func gleasonGrades() []domain.Option {
	return []domain.Option{
		opt("3", "Grade 3 - Glandes bien formées"),
		opt("4", "Grade 4 - Glandes mal formées/fusionnées"),
		opt("5", "Grade 5 - Pas de formation glandulaire"),
	}
}

// Gleason scores prostate adenocarcinoma and maps it to an ISUP grade group.
func Gleason() *Definition {
	return NewDefinition("gleason", "Score de Gleason", "Cancer de la prostate", specialtyOncology,
		[]domain.FieldSchema{
			choice("primary", "Grade primaire (le plus fréquent)", gleasonGrades()),
			choice("secondary", "Grade secondaire", gleasonGrades()),
		}, computeGleason)
}

func computeGleason(in domain.Inputs) domain.Result {
	primary := in.Score("primary", 3)
	secondary := in.Score("secondary", 3)
	total := primary + secondary

	var group, prognosis string
	var sev domain.Severity
	switch {
	case total <= 6:
		group, prognosis, sev = "Grade Group 1", "Bien différencié - Surveillance active possible", domain.SeverityLow
	case total == 7 && primary == 3:
		group, prognosis, sev = "Grade Group 2", "Modérément différencié (favorable)", domain.SeverityHigh
	case total == 7 && primary == 4:
		group, prognosis, sev = "Grade Group 3", "Modérément différencié (défavorable)", domain.SeverityHigh
	case total == 8:
		group, prognosis, sev = "Grade Group 4", "Peu différencié - Traitement agressif", domain.SeverityCritical
	default:
		group, prognosis, sev = "Grade Group 5", "Indifférencié - Haut risque", domain.SeverityCritical
	}

	return measured(domain.TextValue(fmt.Sprintf("%d+%d=%d", primary, secondary, total)), "",
		group+" - "+prognosis, "≤6 (Grade Group 1)", sev)
}

// Nottingham is the Elston-Ellis (SBR) histological grade of breast carcinoma.
func Nottingham() *Definition {
	return NewDefinition("nottingham", "Score de Nottingham (SBR)", "Grade histologique du cancer du sein", specialtyOncology,
		[]domain.FieldSchema{
			choice("tubule", "Formation tubulaire", rangeOptions(1,
				"Majoritaire (>75%)", "Modérée (10-75%)", "Minime ou absente (<10%)",
			)),
			choice("nuclear", "Pléomorphisme nucléaire", rangeOptions(1,
				"Noyaux réguliers, petits", "Noyaux modérément irréguliers", "Noyaux très irréguliers, gros",
			)),
			choice("mitosis", "Compte mitotique", rangeOptions(1,
				"Faible (0-5 mitoses/10 HPF)", "Intermédiaire (6-10 mitoses/10 HPF)", "Élevé (>10 mitoses/10 HPF)",
			)),
		}, computeNottingham)
}

func computeNottingham(in domain.Inputs) domain.Result {
	total := sum(in, 1, "tubule", "nuclear", "mitosis")

	const normal = "3-5 (Grade I)"
	switch {
	case total <= 5:
		return scored(total, "/9", "Grade I (bien différencié) - Bon pronostic", normal, domain.SeverityLow)
	case total <= 7:
		return scored(total, "/9", "Grade II (modérément différencié) - Pronostic intermédiaire", normal, domain.SeverityHigh)
	default:
		return scored(total, "/9", "Grade III (peu différencié) - Pronostic réservé - Traitement adjuvant", normal, domain.SeverityCritical)
	}
}

type gradeInfo struct {
	text     string
	severity domain.Severity
}

var fuhrmanGrades = map[int]gradeInfo{
	1: {"Excellent pronostic - Survie 5 ans: ~90%", domain.SeverityLow},
	2: {"Bon pronostic - Survie 5 ans: ~70%", domain.SeverityLow},
	3: {"Pronostic intermédiaire - Survie 5 ans: ~50%", domain.SeverityHigh},
	4: {"Mauvais pronostic - Survie 5 ans: ~30%", domain.SeverityCritical},
}

// Fuhrman grades clear cell renal carcinoma nuclei.
func Fuhrman() *Definition {
	return NewDefinition("fuhrman", "Grade de Fuhrman", "Cancer du rein à cellules claires", specialtyOncology,
		[]domain.FieldSchema{
			choice("grade", "Aspect nucléaire", []domain.Option{
				opt("1", "Grade 1 - Noyaux ronds, uniformes, ~10µm, nucléoles absents/peu visibles"),
				opt("2", "Grade 2 - Noyaux plus gros ~15µm, contours irréguliers, nucléoles visibles ×400"),
				opt("3", "Grade 3 - Noyaux encore plus gros ~20µm, très irréguliers, nucléoles visibles ×100"),
				opt("4", "Grade 4 - Noyaux bizarres, multilobés, amas chromatinemorphologie sarcomatoïde"),
			}),
		}, computeFuhrman)
}

func computeFuhrman(in domain.Inputs) domain.Result {
	grade := in.Score("grade", 1)
	info, ok := fuhrmanGrades[grade]
	if !ok {
		grade, info = 1, fuhrmanGrades[1]
	}
	return scored(grade, "/4", info.text, "Grade 1-2", info.severity)
}

var bethesdaCategories = map[int]struct {
	risk     string
	action   string
	severity domain.Severity
}{
	1: {"1-4%", "Répéter ponction échoguidée", domain.SeverityLow},
	2: {"0-3%", "Suivi clinique et échographique", domain.SeverityNormal},
	3: {"5-15%", "Répéter ponction ou lobectomie", domain.SeverityHigh},
	4: {"15-30%", "Lobectomie diagnostique", domain.SeverityHigh},
	5: {"60-75%", "Thyroïdectomie totale ou lobectomie", domain.SeverityCritical},
	6: {"97-99%", "Thyroïdectomie totale", domain.SeverityCritical},
}

// Bethesda reports thyroid fine-needle cytology.
func Bethesda() *Definition {
	return NewDefinition("bethesda", "Classification Bethesda (thyroïde)", "Cytologie des nodules thyroïdiens", specialtyOncology,
		[]domain.FieldSchema{
			choice("category", "Catégorie Bethesda", []domain.Option{
				opt("1", "I - Non diagnostique/insatisfaisant"),
				opt("2", "II - Bénin"),
				opt("3", "III - Atypie/lésion folliculaire de signification indéterminée"),
				opt("4", "IV - Néoplasme folliculaire/suspect de néoplasme folliculaire"),
				opt("5", "V - Suspect de malignité"),
				opt("6", "VI - Malin"),
			}),
		}, computeBethesda)
}

func computeBethesda(in domain.Inputs) domain.Result {
	category := in.Score("category", 1)
	info, ok := bethesdaCategories[category]
	if !ok {
		info = bethesdaCategories[1]
	}
	return measured(domain.TextValue(fmt.Sprintf("Bethesda %d", category)), "",
		fmt.Sprintf("Risque de malignité: %s - %s", info.risk, info.action), "Bethesda II (bénin)", info.severity)
}

// TNM gives a simplified anatomical stage. A missing T category reads as T1.
func TNM() *Definition {
	return NewDefinition("tnm", "Classification TNM", "Stadification des tumeurs solides", specialtyOncology,
		[]domain.FieldSchema{
			choice("t", "T - Tumeur primitive", []domain.Option{
				opt("Tis", "Tis - Carcinome in situ"),
				opt("T1", "T1 - Tumeur ≤ 2 cm"),
				opt("T2", "T2 - Tumeur 2-5 cm"),
				opt("T3", "T3 - Tumeur > 5 cm"),
				opt("T4", "T4 - Extension aux structures adjacentes"),
			}, reference("T1")),
			choice("n", "N - Ganglions régionaux", []domain.Option{
				opt("N0", "N0 - Pas d'atteinte ganglionnaire"),
				opt("N1", "N1 - Atteinte ganglionnaire limitée"),
				opt("N2", "N2 - Atteinte ganglionnaire modérée"),
				opt("N3", "N3 - Atteinte ganglionnaire extensive"),
			}),
			choice("m", "M - Métastases à distance", []domain.Option{
				opt("M0", "M0 - Pas de métastases"),
				opt("M1", "M1 - Métastases présentes"),
			}),
		}, computeTNM)
}

func computeTNM(in domain.Inputs) domain.Result {
	t := in.Text("t", "T1")
	n := in.Text("n", "N0")
	m := in.Text("m", "M0")

	var stage string
	var sev domain.Severity
	switch {
	case m == "M1":
		stage, sev = "Stade IV - Métastatique", domain.SeverityCritical
	case t == "Tis" && n == "N0":
		stage, sev = "Stade 0 - In situ", domain.SeverityLow
	case (t == "T1" || t == "T2") && n == "N0":
		stage, sev = "Stade I-II - Localisé", domain.SeverityLow
	case n != "N0" && (n == "N3" || t == "T4"):
		stage, sev = "Stade IIIC - Localement avancé", domain.SeverityCritical
	case n != "N0":
		stage, sev = "Stade III - Atteinte régionale", domain.SeverityHigh
	default:
		stage, sev = "Stade II - Localement avancé", domain.SeverityHigh
	}

	return measured(domain.TextValue(t+n+m), "", stage, "Stade 0-I", sev)
}

// allredProportion maps the percentage of stained nuclei to the 0-5 proportion score.
func allredProportion(percent float64) int {
	p := math.Max(0, math.Min(100, percent))
	switch {
	case p == 0:
		return 0
	case p < 1:
		return 1
	case p <= 10:
		return 2
	case p <= 33:
		return 3
	case p <= 66:
		return 4
	default:
		return 5
	}
}

// Allred scores ER/PR immunohistochemistry as proportion plus intensity.
func Allred() *Definition {
	return NewDefinition("allred", "Allred Score (ER/PR)", "Score des récepteurs hormonaux en immunohistochimie", specialtyOncology,
		[]domain.FieldSchema{
			number("percent_positive", "% cellules positives", bounds(0, 100), step(0.1)),
			number("intensity", "Intensité (0-3)", bounds(0, 3), step(1)),
		}, computeAllred).WithDisclaimer(disclaimerPathology)
}

func computeAllred(in domain.Inputs) domain.Result {
	ps := allredProportion(in.Number("percent_positive", 0))
	// intensity is clamped but not rounded: 1.5 is kept as entered
	is := math.Max(0, math.Min(3, in.Number("intensity", 0)))
	total := float64(ps) + is

	interp := fmt.Sprintf("Proportion: %d/5, Intensité: %s/3", ps, strconv.FormatFloat(is, 'f', -1, 64))
	value := domain.NumberValue(total)
	if total <= 2 {
		return measured(value, "/8", interp+" - Récepteurs négatifs", ">2 (positif)", domain.SeverityHigh)
	}
	return measured(value, "/8", interp+" - Récepteurs positifs - hormonothérapie envisageable", ">2 (positif)", domain.SeverityLow)
}

// HER2 records the immunohistochemistry score; 2+ requires ISH confirmation.
func HER2() *Definition {
	return NewDefinition("her2", "HER2 IHC (0/1+/2+/3+)", "Statut HER2 en immunohistochimie", specialtyOncology,
		[]domain.FieldSchema{
			choice("score", "Score HER2", []domain.Option{
				opt("0", "0"),
				opt("1+", "1+"),
				opt("2+", "2+ (équivoque)"),
				opt("3+", "3+"),
			}),
		}, computeHER2).WithDisclaimer("Formulaire de scoring uniquement. 2+ nécessite confirmation (ISH) selon guidelines locales.")
}

func computeHER2(in domain.Inputs) domain.Result {
	s := in.Text("score", "0")

	const normal = "0 / 1+ (négatif)"
	switch s {
	case "2+":
		return measured(domain.TextValue(s), "", "HER2 équivoque - ISH requise", normal, domain.SeverityHigh)
	case "3+":
		return measured(domain.TextValue(s), "", "HER2 positif - thérapie ciblée anti-HER2 à discuter", normal, domain.SeverityCritical)
	case "1+":
		return measured(domain.TextValue(s), "", "HER2 négatif", normal, domain.SeverityLow)
	default:
		return measured(domain.TextValue("0"), "", "HER2 négatif", normal, domain.SeverityLow)
	}
}

// Ki67 computes the proliferation index from cell counts.
func Ki67() *Definition {
	return NewDefinition("ki67", "Ki-67 Index (%)", "Index de prolifération tumorale", specialtyOncology,
		[]domain.FieldSchema{
			number("positive_cells", "Cellules positives", step(1)),
			number("total_cells", "Cellules totales", step(1)),
		}, computeKi67).WithDisclaimer("Aide au calcul. Les seuils d'interprétation dépendent du contexte tumoral et des guidelines.")
}

func computeKi67(in domain.Inputs) domain.Result {
	pos := math.Max(0, math.Min(1e12, in.Number("positive_cells", 0)))
	tot := math.Max(1, math.Min(1e12, in.Number("total_cells", 1)))
	pct := pos / tot * 100

	const normal = "<14% (faible prolifération)"
	switch {
	case pct < 14:
		return measured(domain.Fixed(pct, 2), "%", "Index de prolifération faible", normal, domain.SeverityLow)
	case pct <= 30:
		return measured(domain.Fixed(pct, 2), "%", "Index de prolifération intermédiaire", normal, domain.SeverityHigh)
	default:
		return measured(domain.Fixed(pct, 2), "%", "Index de prolifération élevé", normal, domain.SeverityCritical)
	}
}
