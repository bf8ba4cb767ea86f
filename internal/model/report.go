package model

import (
	"encoding/json"
)

// Report is the scoring result exchanged between the scorer and the client.
type Report struct {
	OverallScore       int            `json:"overall_score"`
	RolePreset         string         `json:"role_preset"`
	ScoreBreakdown     ScoreBreakdown `json:"score_breakdown"`
	Summary            string         `json:"summary"`
	TopStrengths       []Strength     `json:"top_strengths"`
	TopFixes           []Fix          `json:"top_fixes"`
	SevenStepPlan      []PlanStep     `json:"seven_step_plan"`
	InfoNeededFromUser []string       `json:"info_needed_from_user"`
	// BulletReview is passed through as the scorer sent it.
	BulletReview    []json.RawMessage `json:"bullet_review"`
	JobMatchSection *JobMatchSection  `json:"job_match_section,omitempty"`
}

type ScoreBreakdown struct {
	ATS         Dimension `json:"ats"`
	Impact      Dimension `json:"impact"`
	RoleSignals Dimension `json:"role_signals"`
	JobMatch    Dimension `json:"job_match"`
}

type Dimension struct {
	Score    int    `json:"score"`
	Max      *int   `json:"max,omitempty"`
	Feedback string `json:"feedback"`
	Skipped  bool   `json:"skipped"`
}

// UnmarshalJSON accepts the older max_score spelling.
func (d *Dimension) UnmarshalJSON(data []byte) error {
	type alias Dimension
	aux := struct {
		*alias
		MaxScore *int `json:"max_score"`
	}{alias: (*alias)(d)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if d.Max == nil && aux.MaxScore != nil {
		d.Max = aux.MaxScore
	}
	return nil
}

type Strength struct {
	Point      string `json:"point"`
	Evidence   string `json:"evidence"`
	WhyItWorks string `json:"why_it_works"`
}

type Fix struct {
	Point        string `json:"point"`
	ExpectedLift int    `json:"expected_lift"`
	WhyWeak      string `json:"why_weak"`
	Recommended  string `json:"recommended"`
}

// UnmarshalJSON accepts expected_score_lift and recommended_action from
// earlier scorer versions.
func (f *Fix) UnmarshalJSON(data []byte) error {
	type alias Fix
	aux := struct {
		*alias
		ExpectedScoreLift *int   `json:"expected_score_lift"`
		RecommendedAction string `json:"recommended_action"`
	}{alias: (*alias)(f)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if f.ExpectedLift == 0 && aux.ExpectedScoreLift != nil {
		f.ExpectedLift = *aux.ExpectedScoreLift
	}
	if f.Recommended == "" && aux.RecommendedAction != "" {
		f.Recommended = aux.RecommendedAction
	}
	return nil
}

type PlanStep struct {
	Step     int    `json:"step"`
	Action   string `json:"action"`
	Priority string `json:"priority"` // high, medium, low
}

type JobMatchSection struct {
	MatchScore    *int     `json:"match_score"`
	MissingSkills []string `json:"missing_skills"`
	StrongMatches []string `json:"strong_matches"`
}

// ApplyJobDescription forces job_match.skipped to follow whether a job
// description was supplied with the submission.
func (r *Report) ApplyJobDescription(hasJD bool) {
	r.ScoreBreakdown.JobMatch.Skipped = !hasJD
	if !hasJD && r.JobMatchSection != nil {
		r.JobMatchSection.MatchScore = nil
	}
}

// BreakdownAverage averages the dimension scores, leaving out skipped ones.
// It returns 0 when every dimension is skipped.
func (r *Report) BreakdownAverage() float64 {
	dims := []Dimension{
		r.ScoreBreakdown.ATS,
		r.ScoreBreakdown.Impact,
		r.ScoreBreakdown.RoleSignals,
		r.ScoreBreakdown.JobMatch,
	}

	sum, n := 0, 0
	for _, d := range dims {
		if d.Skipped {
			continue
		}
		sum += d.Score
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
