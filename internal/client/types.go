package client

import (
	"github.com/yungbote/quizforge/internal/dedupe"
	"github.com/yungbote/quizforge/internal/question"
)

type GenerateRequest struct {
	SourceText  string   `json:"source_text"`
	File        string   `json:"file"`
	Page        *int     `json:"page,omitempty"`
	NQuestions  *int     `json:"n_questions,omitempty"`
	EnforceMCQ  *bool    `json:"enforce_mcq,omitempty"`
	FewShots    []string `json:"few_shots,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

type ValidateRequest struct {
	RawOutput  string `json:"raw_output"`
	SourceText string `json:"source_text"`
	File       string `json:"file,omitempty"`
	Page       *int   `json:"page,omitempty"`
	EnforceMCQ *bool  `json:"enforce_mcq,omitempty"`
}

type Result struct {
	Kept     []question.QuestionItem `json:"kept"`
	Rejected []string                `json:"rejected"`
}

type dedupeRequest struct {
	Keys      []string `json:"keys"`
	Threshold *float64 `json:"threshold,omitempty"`
}

type DedupeResult = dedupe.Result

type Health struct {
	OK    bool   `json:"ok"`
	Model string `json:"model"`
}
