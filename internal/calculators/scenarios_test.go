package calculators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinical-scoring-engine/internal/domain"
)

func TestCalculatorScenarios(t *testing.T) {
	tests := []struct {
		name       string
		calc       *Definition
		inputs     map[string]any
		wantValue  string
		wantUnit   string
		wantSev    domain.Severity
		wantInterp string
	}{
		{
			name:      "bmi normal weight",
			calc:      BMI(),
			inputs:    map[string]any{"weight": 70, "height": 175},
			wantValue: "22.9", wantUnit: "kg/m²", wantSev: domain.SeverityNormal,
			wantInterp: "Poids normal",
		},
		{
			name:      "qsofa all criteria",
			calc:      QSOFA(),
			inputs:    map[string]any{"altered_mental": true, "sbp_low": true, "rr_high": true},
			wantValue: "3", wantUnit: "/3", wantSev: domain.SeverityCritical,
		},
		{
			name:      "glasgow maximal",
			calc:      Glasgow(),
			inputs:    map[string]any{"eye": "4", "verbal": "5", "motor": "6"},
			wantValue: "15", wantUnit: "/15", wantSev: domain.SeverityNormal,
		},
		{
			name:      "glasgow twelve is moderate",
			calc:      Glasgow(),
			inputs:    map[string]any{"eye": "4", "verbal": "4", "motor": "4"},
			wantValue: "12", wantUnit: "/15", wantSev: domain.SeverityHigh,
		},
		{
			name:      "glasgow eight is severe",
			calc:      Glasgow(),
			inputs:    map[string]any{"eye": "2", "verbal": "2", "motor": "4"},
			wantValue: "8", wantUnit: "/15", wantSev: domain.SeverityCritical,
		},
		{
			name:      "corrected calcium without correction",
			calc:      CorrectedCalcium(),
			inputs:    map[string]any{"calcium": 9.5, "albumin": 4.0},
			wantValue: "9.5", wantUnit: "mg/dL", wantSev: domain.SeverityNormal,
		},
		{
			name:      "corrected calcium low albumin",
			calc:      CorrectedCalcium(),
			inputs:    map[string]any{"calcium": 10, "albumin": 2.0},
			wantValue: "11.6", wantUnit: "mg/dL", wantSev: domain.SeverityHigh,
		},
		{
			name:      "chads2vasc no risk factor",
			calc:      CHA2DS2VASc(),
			inputs:    map[string]any{},
			wantValue: "0", wantUnit: "/9", wantSev: domain.SeverityLow,
			wantInterp: "Risque AVC/an: 0% - Pas d'anticoagulation recommandée",
		},
		{
			name:      "wells pe half points",
			calc:      WellsPE(),
			inputs:    map[string]any{"dvt_signs": true, "tachycardia": true},
			wantValue: "4.5", wantUnit: "pts", wantSev: domain.SeverityHigh,
		},
		{
			name:      "ckd-epi male reference",
			calc:      CKDEPI(),
			inputs:    map[string]any{"creatinine": 0.9, "age": 50},
			wantValue: "104.0", wantUnit: "mL/min/1.73m²", wantSev: domain.SeverityNormal,
			wantInterp: "G1 - Fonction rénale normale",
		},
		{
			name:      "cockcroft mild impairment",
			calc:      CockcroftGault(),
			inputs:    map[string]any{"creatinine": 1.0, "age": 60, "weight": 70, "gender": "male"},
			wantValue: "77.8", wantUnit: "mL/min", wantSev: domain.SeverityLow,
		},
		{
			name:      "anion gap normal",
			calc:      AnionGap(),
			inputs:    map[string]any{"sodium": 140, "chloride": 104, "bicarbonate": 24},
			wantValue: "12.0", wantUnit: "mEq/L", wantSev: domain.SeverityNormal,
		},
		{
			name:      "anion gap albumin corrected",
			calc:      AnionGap(),
			inputs:    map[string]any{"sodium": 140, "chloride": 104, "bicarbonate": 24, "albumin": 2.0},
			wantValue: "17.0", wantUnit: "mEq/L", wantSev: domain.SeverityHigh,
		},
		{
			name:      "osmolar gap toxic alcohol range",
			calc:      OsmolarGap(),
			inputs:    map[string]any{"measured_osm": 320, "sodium": 140, "glucose": 90, "bun": 14},
			wantValue: "30.0", wantUnit: "mOsm/kg", wantSev: domain.SeverityCritical,
		},
		{
			name:      "aki creatinine tripled",
			calc:      AKIKDIGO(),
			inputs:    map[string]any{"baseline_creatinine": 80, "current_creatinine": 250},
			wantValue: "3", wantUnit: "stade", wantSev: domain.SeverityCritical,
		},
		{
			name:      "aki stage one",
			calc:      AKIKDIGO(),
			inputs:    map[string]any{"baseline_creatinine": 80, "current_creatinine": 130},
			wantValue: "1", wantUnit: "stade", wantSev: domain.SeverityHigh,
		},
		{
			name:      "aki oliguria twelve hours",
			calc:      AKIKDIGO(),
			inputs:    map[string]any{"urine_output": 0.4, "time_window": 12},
			wantValue: "2", wantUnit: "stade", wantSev: domain.SeverityCritical,
		},
		{
			name:      "meld defaults clamp to six",
			calc:      MELD(),
			inputs:    map[string]any{},
			wantValue: "6", wantUnit: "pts", wantSev: domain.SeverityLow,
		},
		{
			name:      "meld-na with hyponatremia",
			calc:      MELD(),
			inputs:    map[string]any{"bilirubin": 2, "inr": 1.5, "creatinine": 1.2, "sodium": 130},
			wantValue: "21", wantUnit: "pts", wantSev: domain.SeverityCritical,
			wantInterp: "MELD-Na: Mortalité 3 mois: 19.6%",
		},
		{
			name:      "alvarado all signs",
			calc:      Alvarado(),
			inputs: map[string]any{
				"migration": true, "anorexia": true, "nausea": true, "rlq_tenderness": true,
				"rebound": true, "fever": true, "leukocytosis": true, "left_shift": true,
			},
			wantValue: "10", wantUnit: "/10", wantSev: domain.SeverityCritical,
		},
		{
			name:      "berlin moderate ards",
			calc:      Berlin(),
			inputs:    map[string]any{"timing": "yes", "imaging": "yes", "edema": "yes", "pao2_fio2": "moderate"},
			wantValue: "SDRA MODÉRÉ", wantSev: domain.SeverityCritical,
		},
		{
			name:      "berlin criteria not met",
			calc:      Berlin(),
			inputs:    map[string]any{"timing": "yes", "imaging": "no", "edema": "yes", "pao2_fio2": "severe"},
			wantValue: "Non", wantSev: domain.SeverityLow,
		},
		{
			name:      "gleason four plus three",
			calc:      Gleason(),
			inputs:    map[string]any{"primary": "4", "secondary": "3"},
			wantValue: "4+3=7", wantSev: domain.SeverityHigh,
			wantInterp: "Grade Group 3 - Modérément différencié (défavorable)",
		},
		{
			name:      "tnm locally advanced",
			calc:      TNM(),
			inputs:    map[string]any{"t": "T4", "n": "N1", "m": "M0"},
			wantValue: "T4N1M0", wantSev: domain.SeverityCritical,
			wantInterp: "Stade IIIC - Localement avancé",
		},
		{
			name:      "tnm metastatic wins",
			calc:      TNM(),
			inputs:    map[string]any{"t": "Tis", "n": "N0", "m": "M1"},
			wantValue: "TisN0M1", wantSev: domain.SeverityCritical,
		},
		{
			name:      "allred positive",
			calc:      Allred(),
			inputs:    map[string]any{"percent_positive": 50, "intensity": 2},
			wantValue: "6", wantUnit: "/8", wantSev: domain.SeverityLow,
		},
		{
			name:      "her2 equivocal",
			calc:      HER2(),
			inputs:    map[string]any{"score": "2+"},
			wantValue: "2+", wantSev: domain.SeverityHigh,
			wantInterp: "HER2 équivoque - ISH requise",
		},
		{
			name:      "ki67 intermediate",
			calc:      Ki67(),
			inputs:    map[string]any{"positive_cells": 25, "total_cells": 100},
			wantValue: "25.00", wantUnit: "%", wantSev: domain.SeverityHigh,
		},
		{
			name:      "cgi defaults",
			calc:      CGI(),
			inputs:    map[string]any{},
			wantValue: "S1/I4", wantSev: domain.SeverityNormal,
			wantInterp: "Sévérité: Normal | Évolution: Pas de changement",
		},
		{
			name:      "five-d suffixed option",
			calc:      FiveDItch(),
			inputs:    map[string]any{"duration": "5", "degree": "5", "direction": "5b", "disability": "5", "distribution": "5"},
			wantValue: "25", wantUnit: "/25", wantSev: domain.SeverityCritical,
		},
		{
			name:      "skindex percentage",
			calc:      Skindex10(),
			inputs:    map[string]any{"q1": 6, "q2": 6, "q3": 3},
			wantValue: "15", wantUnit: "/60", wantSev: domain.SeverityLow,
			wantInterp: "Impact léger sur la qualité de vie (25%)",
		},
		{
			name:      "pediatric dose young rule",
			calc:      PediatricDose(),
			inputs:    map[string]any{"method": "young", "age": 6, "adult_dose": 500, "weight": 999},
			wantValue: "166.7", wantUnit: "mg", wantSev: domain.SeverityNormal,
		},
		{
			name:      "pediatric dose clark rule",
			calc:      PediatricDose(),
			inputs:    map[string]any{"weight": 14, "adult_dose": 500, "age": 99},
			wantValue: "100.0", wantUnit: "mg", wantSev: domain.SeverityNormal,
		},
		{
			name:      "quicki resistance",
			calc:      QUICKI(),
			inputs:    map[string]any{"glucose": 90, "insulin": 10},
			wantValue: "0.338", wantSev: domain.SeverityHigh,
		},
		{
			name:      "bishop favorable",
			calc:      Bishop(),
			inputs:    map[string]any{"dilation": 3, "effacement": 70, "station": 1, "consistency": "soft", "position": "anterior"},
			wantValue: "10", wantUnit: "/13", wantSev: domain.SeverityLow,
		},
		{
			name:      "bishop minus half point rounds up to zero",
			calc:      Bishop(),
			inputs:    map[string]any{"effacement": 20, "station": -2},
			wantValue: "0", wantUnit: "/13", wantSev: domain.SeverityCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.calc.Compute(domain.NewInputs(tt.inputs))
			assert.Equal(t, tt.wantValue, res.Value.String())
			assert.Equal(t, tt.wantUnit, res.Unit)
			assert.Equal(t, tt.wantSev, res.Severity)
			if tt.wantInterp != "" {
				assert.Equal(t, tt.wantInterp, res.Interpretation)
			}
		})
	}
}

func TestInvalidDataSentinel(t *testing.T) {
	tests := []struct {
		name   string
		calc   *Definition
		inputs map[string]any
	}{
		{"fena zero urinary creatinine", FENa(), map[string]any{"una": 40, "pna": 140, "ucr": 0, "pcr": 2}},
		{"rfi zero plasma creatinine", RFI(), map[string]any{"una": 40, "ucr": 100, "pcr": 0}},
		{"bmi zero height", BMI(), map[string]any{"weight": 70, "height": 0}},
		{"bsa negative weight", BSA(), map[string]any{"weight": -4, "height": 170}},
		{"ckd-epi missing age", CKDEPI(), map[string]any{"creatinine": 1.0}},
		{"cockcroft missing weight", CockcroftGault(), map[string]any{"creatinine": 1.0, "age": 50}},
		{"homa missing insulin", HOMAIR(), map[string]any{"glucose": 5}},
		{"quicki unit product", QUICKI(), map[string]any{"glucose": 1, "insulin": 1}},
		{"osmolar gap missing measurement", OsmolarGap(), map[string]any{"sodium": 140}},
		{"anion gap missing chloride", AnionGap(), map[string]any{"sodium": 140, "bicarbonate": 24}},
		{"pediatric young rule at minus twelve", PediatricDose(), map[string]any{"method": "young", "age": -12, "adult_dose": 500}},
		{"bmi overflows to infinity", BMI(), map[string]any{"weight": 1e308, "height": 100}},
		{"fena underflow gives zero over zero", FENa(), map[string]any{"una": 0, "pna": 1e-200, "ucr": 1e-200, "pcr": 0}},
		{"fena underflow gives infinity", FENa(), map[string]any{"una": 40, "pna": 1e-200, "ucr": 1e-200, "pcr": 1}},
		{"homa product overflows", HOMAIR(), map[string]any{"glucose": 1e200, "insulin": 1e200}},
		{"rfi ratio underflows", RFI(), map[string]any{"una": 40, "ucr": 1e-200, "pcr": 1e200}},
		{"cockcroft overflows", CockcroftGault(), map[string]any{"creatinine": 1e-300, "age": 20, "weight": 1e300}},
		{"corrected calcium overflows", CorrectedCalcium(), map[string]any{"calcium": 1e308, "albumin": -1e308}},
		{"anion gap overflows", AnionGap(), map[string]any{"sodium": 1e308, "chloride": 1, "bicarbonate": 1, "albumin": -1e308}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.calc.Compute(domain.NewInputs(tt.inputs))
			assert.True(t, res.IsInvalid())
			assert.Equal(t, domain.SeverityNormal, res.Severity)
			assert.Equal(t, "0", res.Value.String())
			assert.NoError(t, res.Validate())
		})
	}
}

func TestSafetyOverrides(t *testing.T) {
	t.Run("phq9 item nine forces critical", func(t *testing.T) {
		res := PHQ9().Compute(domain.Inputs{"q9": domain.Text("1")})
		assert.Equal(t, "1", res.Value.String())
		assert.Equal(t, domain.SeverityCritical, res.Severity)
		assert.Equal(t, "Dépression minimale ou absente ⚠️ ÉVALUATION RISQUE SUICIDAIRE REQUISE", res.Interpretation)
	})

	t.Run("phq9 without item nine follows thresholds", func(t *testing.T) {
		res := PHQ9().Compute(domain.Inputs{"q1": domain.Text("3"), "q2": domain.Text("2")})
		assert.Equal(t, domain.SeverityLow, res.Severity)
		assert.Equal(t, "Dépression légère", res.Interpretation)
	})

	t.Run("hamilton suicide item", func(t *testing.T) {
		res := Hamilton().Compute(domain.Inputs{"suicide": domain.Text("2")})
		assert.Equal(t, "2", res.Value.String())
		assert.Equal(t, domain.SeverityCritical, res.Severity)
		assert.Contains(t, res.Interpretation, "RISQUE SUICIDAIRE")
	})

	t.Run("hamilton suicide item one does not override", func(t *testing.T) {
		res := Hamilton().Compute(domain.Inputs{"suicide": domain.Text("1")})
		assert.Equal(t, domain.SeverityNormal, res.Severity)
	})
}

func TestThresholdBoundariesAreInclusive(t *testing.T) {
	// Rockall: 2 low, 3 high, 5 critical
	res := Rockall().Compute(domain.Inputs{"comorbidity": domain.Text("2")})
	assert.Equal(t, domain.SeverityLow, res.Severity)
	res = Rockall().Compute(domain.Inputs{"comorbidity": domain.Text("3")})
	assert.Equal(t, domain.SeverityHigh, res.Severity)
	res = Rockall().Compute(domain.Inputs{"comorbidity": domain.Text("3"), "age": domain.Text("2")})
	assert.Equal(t, domain.SeverityCritical, res.Severity)

	// Wells PE: exactly 2 leaves the low tier, exactly 6 stays moderate
	res = WellsPE().Compute(domain.Inputs{"hemoptysis": domain.Flag(true), "malignancy": domain.Flag(true)})
	assert.Equal(t, domain.SeverityHigh, res.Severity)
	res = WellsPE().Compute(domain.Inputs{"dvt_signs": domain.Flag(true), "pe_likely": domain.Flag(true)})
	assert.Equal(t, domain.SeverityHigh, res.Severity)

	// CURB-65: 1 ambulatory, 2 short stay
	res = CURB65().Compute(domain.Inputs{"age": domain.Flag(true)})
	assert.Equal(t, domain.SeverityLow, res.Severity)
	res = CURB65().Compute(domain.Inputs{"age": domain.Flag(true), "urea": domain.Flag(true)})
	assert.Equal(t, domain.SeverityHigh, res.Severity)

	// Ki-67: 14% leaves the low tier, 30% stays intermediate
	res = Ki67().Compute(domain.Inputs{"positive_cells": domain.Number(14), "total_cells": domain.Number(100)})
	assert.Equal(t, domain.SeverityHigh, res.Severity)
	res = Ki67().Compute(domain.Inputs{"positive_cells": domain.Number(30), "total_cells": domain.Number(100)})
	assert.Equal(t, domain.SeverityHigh, res.Severity)
}

func TestCHA2DS2VAScTiers(t *testing.T) {
	tests := []struct {
		name       string
		inputs     map[string]any
		wantValue  string
		wantSev    domain.Severity
		wantInterp string
	}{
		{
			name:      "one point is normal",
			inputs:    map[string]any{"female": true},
			wantValue: "1", wantSev: domain.SeverityNormal,
			wantInterp: "Risque AVC/an: 1.3% - Anticoagulation à considérer",
		},
		{
			name:      "two points is high",
			inputs:    map[string]any{"stroke": true},
			wantValue: "2", wantSev: domain.SeverityHigh,
			wantInterp: "Risque AVC/an: 2.2% - Anticoagulation recommandée (AOD ou AVK)",
		},
		{
			name:      "three points stays high",
			inputs:    map[string]any{"hypertension": true, "diabetes": true, "age65": true},
			wantValue: "3", wantSev: domain.SeverityHigh,
		},
		{
			name:      "four points is critical",
			inputs:    map[string]any{"stroke": true, "age75": true},
			wantValue: "4", wantSev: domain.SeverityCritical,
			wantInterp: "Risque AVC/an: 4.0% - Anticoagulation recommandée (AOD ou AVK)",
		},
		{
			name:      "age 75 supersedes age 65",
			inputs:    map[string]any{"age75": true, "age65": true},
			wantValue: "2", wantSev: domain.SeverityHigh,
		},
		{
			name: "maximum score",
			inputs: map[string]any{
				"chf": true, "hypertension": true, "age75": true, "diabetes": true,
				"stroke": true, "vascular": true, "age65": true, "female": true,
			},
			wantValue: "9", wantSev: domain.SeverityCritical,
			wantInterp: "Risque AVC/an: 15.2% - Anticoagulation recommandée (AOD ou AVK)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CHA2DS2VASc().Compute(domain.NewInputs(tt.inputs))
			assert.Equal(t, tt.wantValue, res.Value.String())
			assert.Equal(t, "/9", res.Unit)
			assert.Equal(t, tt.wantSev, res.Severity)
			if tt.wantInterp != "" {
				assert.Equal(t, tt.wantInterp, res.Interpretation)
			}
		})
	}
}

func TestDukeCriteria(t *testing.T) {
	const (
		definite = "Endocardite DÉFINIE"
		possible = "Endocardite POSSIBLE - Investigation supplémentaire"
		rejected = "Endocardite REJETÉE"
	)

	tests := []struct {
		name       string
		inputs     map[string]any
		wantValue  string
		wantInterp string
		wantSev    domain.Severity
	}{
		{"two major", map[string]any{"positive_bc": true, "echo_positive": true}, "2M/0m", definite, domain.SeverityCritical},
		{"one major three minor", map[string]any{"positive_bc": true, "fever": true, "predisposition": true, "vascular": true}, "1M/3m", definite, domain.SeverityCritical},
		{"five minor", map[string]any{"predisposition": true, "fever": true, "vascular": true, "immunologic": true, "micro": true}, "0M/5m", definite, domain.SeverityCritical},
		{"one major one minor", map[string]any{"new_regurgitation": true, "fever": true}, "1M/1m", possible, domain.SeverityHigh},
		{"three minor", map[string]any{"fever": true, "vascular": true, "immunologic": true}, "0M/3m", possible, domain.SeverityHigh},
		{"one major alone", map[string]any{"echo_positive": true}, "1M/0m", rejected, domain.SeverityLow},
		{"two minor", map[string]any{"fever": true, "micro": true}, "0M/2m", rejected, domain.SeverityLow},
		{"nothing", map[string]any{}, "0M/0m", rejected, domain.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Duke().Compute(domain.NewInputs(tt.inputs))
			assert.Equal(t, tt.wantValue, res.Value.String())
			assert.Equal(t, tt.wantInterp, res.Interpretation)
			assert.Equal(t, tt.wantSev, res.Severity)
		})
	}
}

func TestMELDClamps(t *testing.T) {
	tests := []struct {
		name      string
		inputs    map[string]any
		same      map[string]any
		wantValue string
		wantSev   domain.Severity
	}{
		{
			name:      "dialysis forces creatinine to four",
			inputs:    map[string]any{"creatinine": 1.0, "dialysis": true},
			same:      map[string]any{"creatinine": 4.0},
			wantValue: "20", wantSev: domain.SeverityCritical,
		},
		{
			name:      "creatinine capped at four",
			inputs:    map[string]any{"creatinine": 10.0},
			same:      map[string]any{"creatinine": 4.0},
			wantValue: "20", wantSev: domain.SeverityCritical,
		},
		{
			name:      "values below one floor to one",
			inputs:    map[string]any{"bilirubin": 0.2, "inr": 0.5, "creatinine": 0.3},
			same:      map[string]any{"bilirubin": 1.0, "inr": 1.0, "creatinine": 1.0},
			wantValue: "6", wantSev: domain.SeverityLow,
		},
		{
			name:      "bilirubin floor alone",
			inputs:    map[string]any{"bilirubin": 0.1, "inr": 2.0, "creatinine": 2.0},
			same:      map[string]any{"bilirubin": 1.0, "inr": 2.0, "creatinine": 2.0},
			wantValue: "21", wantSev: domain.SeverityCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := MELD().Compute(domain.NewInputs(tt.inputs))
			assert.Equal(t, MELD().Compute(domain.NewInputs(tt.same)), res)
			assert.Equal(t, tt.wantValue, res.Value.String())
			assert.Equal(t, tt.wantSev, res.Severity)
		})
	}
}

func TestAllredKeepsFractionalIntensity(t *testing.T) {
	tests := []struct {
		name      string
		inputs    map[string]any
		wantValue string
		wantSev   domain.Severity
		wantIn    string
	}{
		{"half point intensity", map[string]any{"percent_positive": 5, "intensity": 1.5}, "3.5", domain.SeverityLow, "Intensité: 1.5/3"},
		{"intensity clamped to three", map[string]any{"percent_positive": 80, "intensity": 7}, "8", domain.SeverityLow, "Intensité: 3/3"},
		{"negative intensity clamped to zero", map[string]any{"percent_positive": 0.5, "intensity": -2}, "1", domain.SeverityHigh, "Intensité: 0/3"},
		{"fraction below the positive cutoff", map[string]any{"percent_positive": 0.5, "intensity": 0.5}, "1.5", domain.SeverityHigh, "Récepteurs négatifs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Allred().Compute(domain.NewInputs(tt.inputs))
			assert.Equal(t, tt.wantValue, res.Value.String())
			assert.Equal(t, "/8", res.Unit)
			assert.Equal(t, tt.wantSev, res.Severity)
			assert.Contains(t, res.Interpretation, tt.wantIn)
		})
	}
}
