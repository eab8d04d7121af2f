package quiz

import (
	"errors"
	"testing"
)

func bulkQuestion(text, correct string) BulkQuestionInput {
	return BulkQuestionInput{
		Text:          text,
		Options:       []string{"A", "B", "C", "D"},
		CorrectAnswer: correct,
		Explanation:   "why",
	}
}

func TestValidateBulkQuizOK(t *testing.T) {
	in := BulkQuizInput{
		Title:     "Quiz",
		Questions: []BulkQuestionInput{bulkQuestion("q1", "A"), bulkQuestion("q2", "D")},
	}
	if err := ValidateBulkQuiz(in); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidateBulkQuizTitleRequired(t *testing.T) {
	in := BulkQuizInput{Questions: []BulkQuestionInput{bulkQuestion("q", "A")}}
	err := ValidateBulkQuiz(in)
	if err == nil || err.Error() != "Title is required" {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput classification")
	}
}

func TestValidateBulkQuizNoQuestions(t *testing.T) {
	err := ValidateBulkQuiz(BulkQuizInput{Title: "Quiz"})
	if err == nil || err.Error() != "At least one question is required" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateBulkQuizReportsOffendingIndex(t *testing.T) {
	in := BulkQuizInput{
		Title: "Quiz",
		Questions: []BulkQuestionInput{
			bulkQuestion("q0", "A"),
			{Text: "q1", Options: []string{"A", "B"}, CorrectAnswer: "A", Explanation: "x"},
		},
	}
	err := ValidateBulkQuiz(in)
	want := "Invalid question data at index 1. Each question must have text, 4 options, correctAnswer, and explanation."
	if err == nil || err.Error() != want {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateBulkQuizAnswerMembership(t *testing.T) {
	in := BulkQuizInput{
		Title: "Quiz",
		Questions: []BulkQuestionInput{
			bulkQuestion("q0", "A"),
			bulkQuestion("q1", "A"),
			bulkQuestion("q2", "Z"),
		},
	}
	err := ValidateBulkQuiz(in)
	want := `Question at index 2: correctAnswer "Z" is not in the options array.`
	if err == nil || err.Error() != want {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateBulkQuizStopsAtFirstError(t *testing.T) {
	in := BulkQuizInput{
		Title: "Quiz",
		Questions: []BulkQuestionInput{
			bulkQuestion("q0", "Z"),
			{Text: "", Options: nil, CorrectAnswer: "", Explanation: ""},
		},
	}
	err := ValidateBulkQuiz(in)
	want := `Question at index 0: correctAnswer "Z" is not in the options array.`
	if err == nil || err.Error() != want {
		t.Fatalf("expected first error to win, got %v", err)
	}
}
