package calculators

import (
	"fmt"
	"time"

	"github.com/clinical-scoring-engine/internal/domain"
)

// PPHRisk scores the risk of postpartum haemorrhage from obstetric, maternal,
// labour and current findings.
func PPHRisk() *Definition {
	return NewDefinition("pph_risk", "Risque d'hémorragie du post-partum", "Évaluation du risque d'HPP", specialtyGeneral,
		[]domain.FieldSchema{
			number("parity", "Parité", placeholder("1"), bounds(0, 15), step(1)),
			checkbox("previous_pph", "Antécédent d'HPP (+3)"),
			checkbox("previous_cesarean", "Utérus cicatriciel (+2)"),
			checkbox("multiple_pregnancy", "Grossesse multiple (+2)"),
			checkbox("polyhydramnios", "Hydramnios (+1)"),
			checkbox("large_fetus", "Macrosomie fœtale (+1)"),
			number("age", "Âge maternel (ans)", placeholder("30")),
			number("bmi", "IMC (kg/m²)", placeholder("24"), step(0.1)),
			checkbox("anemia", "Anémie (+2)"),
			checkbox("coagulation_disorder", "Trouble de la coagulation (+3)"),
			checkbox("hypertension", "HTA / prééclampsie (+1)"),
			checkbox("prolonged_labor", "Travail prolongé (+2)"),
			checkbox("oxytocin_use", "Ocytocine pendant le travail (+1)"),
			checkbox("instrumental_delivery", "Extraction instrumentale (+2)"),
			checkbox("cesarean_delivery", "Césarienne (+3)"),
			checkbox("retained_placenta", "Rétention placentaire (+3)"),
			number("blood_loss", "Pertes sanguines (mL)", placeholder("300")),
			number("hemoglobin", "Hémoglobine (g/dL)", placeholder("12"), step(0.1)),
			number("systolic_bp", "PA systolique (mmHg)", placeholder("120")),
			number("heart_rate", "Fréquence cardiaque (bpm)", placeholder("80")),
		}, computePPHRisk).WithDisclaimer(disclaimerClinical)
}

type pphFactor struct {
	id     string
	points int
}

var (
	pphObstetric = []pphFactor{
		{"previous_pph", 3}, {"previous_cesarean", 2}, {"multiple_pregnancy", 2},
		{"polyhydramnios", 1}, {"large_fetus", 1},
	}
	pphMaternal = []pphFactor{
		{"anemia", 2}, {"coagulation_disorder", 3}, {"hypertension", 1},
	}
	pphLabor = []pphFactor{
		{"prolonged_labor", 2}, {"oxytocin_use", 1}, {"instrumental_delivery", 2},
		{"cesarean_delivery", 3}, {"retained_placenta", 3},
	}
)

func flagPoints(in domain.Inputs, factors []pphFactor) int {
	total := 0
	for _, f := range factors {
		if in.Flag(f.id) {
			total += f.points
		}
	}
	return total
}

func computePPHRisk(in domain.Inputs) domain.Result {
	obstetric := flagPoints(in, pphObstetric)
	switch parity := in.Number("parity", 0); {
	case parity >= 5:
		obstetric += 2
	case parity >= 3:
		obstetric++
	}

	maternal := flagPoints(in, pphMaternal)
	if in.Number("age", 0) > 35 {
		maternal++
	}
	if in.Number("bmi", 0) > 30 {
		maternal++
	}

	labor := flagPoints(in, pphLabor)

	// measurements read 0 when absent and then never score
	current := 0
	loss := in.Number("blood_loss", 0)
	if loss > 500 {
		current += 3
	}
	if loss > 1000 {
		current += 2
	}
	if hb := in.Number("hemoglobin", 0); hb > 0 && hb < 8 {
		current += 2
	}
	if sbp := in.Number("systolic_bp", 0); sbp > 0 && sbp < 90 {
		current += 2
	}
	if in.Number("heart_rate", 0) > 120 {
		current += 2
	}

	total := obstetric + maternal + labor + current

	var level, action string
	var probability int
	var sev domain.Severity
	switch {
	case total >= 15:
		level, probability, action, sev = "Risque très élevé", 40, "Transfert immédiat en salle de réveil/USI", domain.SeverityCritical
	case total >= 10:
		level, probability, action, sev = "Risque élevé", 25, "Préparation pour transfusion", domain.SeverityHigh
	case total >= 5:
		level, probability, action, sev = "Risque modéré", 10, "Surveillance rapprochée (toutes les 15 minutes)", domain.SeverityNormal
	default:
		level, probability, action, sev = "Risque faible", 2, "Surveillance standard du post-partum", domain.SeverityLow
	}

	interp := fmt.Sprintf("%s d'HPP (~%d%%) - %s (obstétrical %d, maternel %d, travail %d, état actuel %d)",
		level, probability, action, obstetric, maternal, labor, current)
	return scored(total, "pts", interp, "<5 (risque faible)", sev)
}

// DueDateNaegele estimates the due date from the last menstrual period with
// Naegele's rule and the gestational age at a reference date. Both dates are
// inputs so the result does not depend on the clock.
func DueDateNaegele() *Definition {
	return NewDefinition("due_date_naegele", "Date prévue d'accouchement (Naegele)", "Terme et âge gestationnel selon la règle de Naegele", specialtyGeneral,
		[]domain.FieldSchema{
			number("lmp", "Date des dernières règles (AAAA-MM-JJ)", placeholder("2026-03-01")),
			number("reference_date", "Date de référence (AAAA-MM-JJ)", placeholder("2026-06-15")),
			number("cycle_length", "Durée du cycle (jours)", placeholder("28"), bounds(20, 45), step(1)),
		}, computeDueDateNaegele).WithDisclaimer(disclaimerClinical)
}

// Standard French prenatal visits by gestational week.
var prenatalVisits = []struct {
	week  int
	label string
}{
	{8, "Première consultation"},
	{12, "Échographie du 1er trimestre"},
	{22, "Échographie du 2nd trimestre"},
	{32, "Échographie du 3ème trimestre"},
	{36, "Consultation pré-accouchement"},
	{39, "Dernière consultation"},
}

const (
	isoDate          = "2006-01-02"
	compactDate      = "20060102"
	maxGestationDays = 45 * 7
)

// parseDate reads a calendar date given as 2026-03-01 or 20260301.
func parseDate(in domain.Inputs, id string) (time.Time, bool) {
	s := in.Text(id, "")
	for _, layout := range []string{isoDate, compactDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// addMonths shifts t by months, clamping the day to the end of the target month
// so that 31 May minus three months is 28 or 29 February.
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// naegele returns LMP + 7 days - 3 months + 1 year, shifted by the cycle length
// difference from 28 days.
func naegele(lmp time.Time, cycle int) time.Time {
	due := addMonths(addMonths(lmp.AddDate(0, 0, 7), -3), 12)
	return due.AddDate(0, 0, cycle-28)
}

func computeDueDateNaegele(in domain.Inputs) domain.Result {
	const normal = "37-41 SA (à terme)"

	lmp, ok := parseDate(in, "lmp")
	if !ok {
		return domain.InvalidResult("", normal)
	}
	ref, ok := parseDate(in, "reference_date")
	if !ok {
		return domain.InvalidResult("", normal)
	}
	cycle := 28
	if in.Has("cycle_length") {
		c := in.Number("cycle_length", 28)
		if c < 20 || c > 45 {
			return domain.InvalidResult("", normal)
		}
		cycle = int(c)
	}

	days := int(ref.Sub(lmp).Hours() / 24)
	if days < 0 || days > maxGestationDays {
		return domain.InvalidResult("", normal)
	}
	due := naegele(lmp, cycle)
	weeks, rest := days/7, days%7

	trimester := "1er trimestre"
	switch {
	case weeks >= 28:
		trimester = "3ème trimestre"
	case weeks >= 14:
		trimester = "2ème trimestre"
	}

	var stage string
	var sev domain.Severity
	switch {
	case weeks >= 42:
		stage, sev = "Terme dépassé - déclenchement à discuter", domain.SeverityHigh
	case weeks >= 41:
		stage, sev = "Terme atteint - surveillance rapprochée", domain.SeverityNormal
	case weeks >= 37:
		stage, sev = "À terme", domain.SeverityNormal
	default:
		stage, sev = "Grossesse en cours", domain.SeverityNormal
	}

	interp := fmt.Sprintf("AG %d SA + %d j (%s) - %s", weeks, rest, trimester, stage)
	for _, v := range prenatalVisits {
		if v.week > weeks {
			date := due.AddDate(0, 0, -280+v.week*7)
			interp += fmt.Sprintf(". Prochain rendez-vous: %s (%d SA, %s)", v.label, v.week, date.Format(isoDate))
			break
		}
	}

	return measured(domain.TextValue(due.Format(isoDate)), "", interp, normal, sev)
}
