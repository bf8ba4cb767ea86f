package scorer

import (
	"encoding/json"

	"github.com/bcalm/launchpad_server/internal/model"
)

// MockReport is the fixed report used when no scorer webhook is configured.
func MockReport(snapshot model.ContextSnapshot) *model.Report {
	rolePreset := snapshot.TargetRole
	if rolePreset == "" {
		rolePreset = "General"
	}

	infoNeeded := []string{}
	var matchScore *int
	if snapshot.TargetRole == "" {
		infoNeeded = append(infoNeeded, "What specific role are you targeting?")
	} else {
		score := 75
		matchScore = &score
	}

	report := &model.Report{
		OverallScore: 72,
		RolePreset:   rolePreset,
		ScoreBreakdown: model.ScoreBreakdown{
			ATS:         model.Dimension{Score: 75, Feedback: "Good keyword optimization"},
			Impact:      model.Dimension{Score: 70, Feedback: "Could use more quantifiable results"},
			RoleSignals: model.Dimension{Score: 68, Feedback: "Role alignment is decent"},
			JobMatch:    model.Dimension{Score: 75, Feedback: "Good match overall"},
		},
		Summary: "Your CV shows solid potential with good technical skills.",
		TopStrengths: []model.Strength{
			{Point: "Strong technical background", Evidence: "Listed relevant skills", WhyItWorks: "Demonstrates capability"},
			{Point: "Clear project descriptions", Evidence: "Projects have context", WhyItWorks: "Shows practical experience"},
			{Point: "Good educational credentials", Evidence: "Listed degree and institution", WhyItWorks: "Establishes credibility"},
		},
		TopFixes: []model.Fix{
			{Point: "Add more metrics", ExpectedLift: 5, WhyWeak: "Achievements lack numbers", Recommended: "Include percentages, numbers, or revenue impact"},
			{Point: "Optimize for ATS", ExpectedLift: 3, WhyWeak: "Some keywords missing", Recommended: "Add industry-standard terminology"},
			{Point: "Strengthen summary", ExpectedLift: 4, WhyWeak: "Summary is generic", Recommended: "Tailor to target role with specific achievements"},
		},
		SevenStepPlan: []model.PlanStep{
			{Step: 1, Action: "Add a compelling professional summary", Priority: "high"},
			{Step: 2, Action: "Quantify your achievements with metrics", Priority: "high"},
			{Step: 3, Action: "Optimize keywords for your target role", Priority: "medium"},
			{Step: 4, Action: "Improve project descriptions with outcomes", Priority: "medium"},
			{Step: 5, Action: "Add relevant certifications if any", Priority: "low"},
			{Step: 6, Action: "Review formatting for ATS compatibility", Priority: "low"},
			{Step: 7, Action: "Get feedback from industry professionals", Priority: "low"},
		},
		InfoNeededFromUser: infoNeeded,
		BulletReview:       []json.RawMessage{},
		JobMatchSection: &model.JobMatchSection{
			MatchScore:    matchScore,
			MissingSkills: []string{},
			StrongMatches: []string{},
		},
	}

	report.ApplyJobDescription(snapshot.HasJobDescription())
	return report
}
