package kpi

import "testing"

func TestComputeScenarioKPIs_RequiredPhrases(t *testing.T) {
	segments := []Segment{
		{Speaker: SpeakerTrainee, Text: "Our Money-Back Guarantee covers the first month.", StartTimeMS: 4000},
		{Speaker: SpeakerAgent, Text: "What about onboarding support?"},
		{Speaker: SpeakerTrainee, Text: "We include a dedicated onboarding specialist."},
	}
	cfg := ScenarioConfig{
		RequiredPhrases: []string{"money-back guarantee", "onboarding specialist", "free trial"},
	}

	k := ComputeScenarioKPIs(segments, cfg, 120)

	if k.RequiredPhrases.Total != 3 {
		t.Fatalf("Total = %d, want 3", k.RequiredPhrases.Total)
	}
	if k.RequiredPhrases.Mentioned != 2 {
		t.Errorf("Mentioned = %d, want 2", k.RequiredPhrases.Mentioned)
	}
	if k.RequiredPhrases.Percent != 67 {
		t.Errorf("Percent = %d, want 67", k.RequiredPhrases.Percent)
	}
	if !k.RequiredPhrases.Phrases[0].Mentioned || k.RequiredPhrases.Phrases[0].TimestampMS != 4000 {
		t.Errorf("first phrase = %+v, want mentioned at 4000ms", k.RequiredPhrases.Phrases[0])
	}
	if k.RequiredPhrases.Phrases[2].Mentioned {
		t.Errorf("unmentioned phrase reported as mentioned")
	}
}

func TestComputeScenarioKPIs_AgentPhrasesDoNotCount(t *testing.T) {
	segments := []Segment{
		{Speaker: SpeakerAgent, Text: "Do you offer a free trial?"},
	}
	cfg := ScenarioConfig{RequiredPhrases: []string{"free trial"}}

	k := ComputeScenarioKPIs(segments, cfg, 60)
	if k.RequiredPhrases.Mentioned != 0 {
		t.Errorf("Mentioned = %d, want 0", k.RequiredPhrases.Mentioned)
	}
}

func TestComputeScenarioKPIs_Objections(t *testing.T) {
	segments := []Segment{
		{Speaker: SpeakerTrainee, Text: "I hear you on the price, let me walk through the value."},
	}
	cfg := ScenarioConfig{ObjectionKeywords: []string{"price", "competitor"}}

	k := ComputeScenarioKPIs(segments, cfg, 60)
	if k.ObjectionHandling.Raised != 1 || k.ObjectionHandling.Addressed != 1 {
		t.Errorf("objections = %+v, want raised=1 addressed=1", k.ObjectionHandling)
	}
	if k.ObjectionHandling.SuccessRate != 100 {
		t.Errorf("SuccessRate = %d, want 100", k.ObjectionHandling.SuccessRate)
	}
}

func TestComputeScenarioKPIs_OpenQuestions(t *testing.T) {
	segments := []Segment{
		{Speaker: SpeakerTrainee, Text: "What challenges are you facing today?"},
		{Speaker: SpeakerAgent, Text: "Mostly reporting. Why do you ask?"},
		{Speaker: SpeakerTrainee, Text: "How does your team handle that now?"},
	}

	k := ComputeScenarioKPIs(segments, ScenarioConfig{}, 120)
	if k.OpenQuestions.Count != 2 {
		t.Errorf("Count = %d, want 2", k.OpenQuestions.Count)
	}
	if k.OpenQuestions.RatePerMin != 1 {
		t.Errorf("RatePerMin = %v, want 1", k.OpenQuestions.RatePerMin)
	}
}

func TestComputeScenarioKPIs_Goals(t *testing.T) {
	segments := []Segment{
		{Speaker: SpeakerTrainee, Text: "Let's book a demo for Thursday and I'll send pricing after."},
	}
	cfg := ScenarioConfig{
		PrimaryGoal:    "book a demo",
		SecondaryGoals: []string{"send pricing", "schedule follow-up"},
	}

	k := ComputeScenarioKPIs(segments, cfg, 60)
	if !k.GoalAchievement.PrimaryAchieved {
		t.Errorf("PrimaryAchieved = false, want true")
	}
	if k.GoalAchievement.SecondaryAchieved != 1 {
		t.Errorf("SecondaryAchieved = %d, want 1", k.GoalAchievement.SecondaryAchieved)
	}
	if k.GoalAchievement.TotalSecondaryGoals != 2 {
		t.Errorf("TotalSecondaryGoals = %d, want 2", k.GoalAchievement.TotalSecondaryGoals)
	}
}
