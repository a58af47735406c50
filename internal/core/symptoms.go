package core

import (
	"context"
	"fmt"
	"strings"

	"medichat-backend/internal/llm"
	"medichat-backend/pkg"
)

// SymptomChecker turns a structured patient profile into a ranked triage
// assessment via the LLM. It is stateless; nothing here touches sessions.
type SymptomChecker struct {
	LLM llm.Client
}

// NewSymptomChecker constructs a symptom checker with the given LLM client.
func NewSymptomChecker(client llm.Client) *SymptomChecker {
	return &SymptomChecker{LLM: client}
}

// Check renders the triage prompt and returns the model's free-text
// assessment. A report without symptoms is invalid input.
func (s *SymptomChecker) Check(ctx context.Context, report pkg.SymptomReport) (string, error) {
	if strings.TrimSpace(report.Symptoms) == "" {
		return "", ErrEmptyInput
	}
	prompt := fmt.Sprintf(symptomPromptTemplate,
		report.Age,
		report.Gender,
		report.Occupation,
		report.Nationality,
		report.Weight,
		report.Symptoms,
		orDefault(report.ChronicDiseases, "None"),
		orDefault(report.Allergies, "None"),
		orDefault(report.PreviousSurgeries, "None"),
		orDefault(report.CurrentMedications, "None"),
		orDefault(report.SmokingStatus, "Non-Smoker"),
		orDefault(report.AlcoholIntake, "None"),
		orDefault(report.DrugUse, "None"),
	)
	assessment, err := s.LLM.Summarize(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelInvocation, err)
	}
	return assessment, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
