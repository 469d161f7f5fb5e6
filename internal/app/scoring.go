package app

import "quiz-assessment-service/internal/domain"

// GradedAnswer is the scored form of one question, ready to persist.
type GradedAnswer struct {
	QuestionID       string  `json:"questionId"`
	SelectedOptionID *string `json:"selectedOptionId,omitempty"`
	AnswerText       *string `json:"answerText,omitempty"`
	Correct          *bool   `json:"correct"`
}

// Grade is the result of scoring a set of captured answers.
type Grade struct {
	Score   int            `json:"score"`
	Total   int            `json:"total"`
	Answers []GradedAnswer `json:"answers"`
}

// GradeAttempt scores captured answers against the quiz content. It never fails:
// unanswered questions and questions without a correct option count as incorrect,
// practical questions stay ungraded.
func GradeAttempt(content domain.QuizContent, answers map[string]string) Grade {
	grade := Grade{
		Total:   len(content.Questions),
		Answers: make([]GradedAnswer, 0, len(content.Questions)),
	}

	if content.Quiz.Kind == domain.KindPractical {
		for i, q := range content.Questions {
			graded := GradedAnswer{QuestionID: q.ID}
			if text, ok := answers[q.ID]; ok {
				graded.AnswerText = &text
			} else if i == 0 {
				empty := ""
				graded.AnswerText = &empty
			}
			grade.Answers = append(grade.Answers, graded)
		}
		return grade
	}

	for _, q := range content.Questions {
		graded := GradedAnswer{QuestionID: q.ID}
		selected, answered := answers[q.ID]
		if answered {
			graded.SelectedOptionID = &selected
		}

		correct := false
		if key, ok := correctOption(content.Options[q.ID]); ok && answered && selected == key {
			correct = true
			grade.Score++
		}
		graded.Correct = &correct
		grade.Answers = append(grade.Answers, graded)
	}
	return grade
}

// correctOption returns the lowest-positioned option flagged correct.
func correctOption(options []domain.Option) (string, bool) {
	found := false
	var best domain.Option
	for _, opt := range options {
		if !opt.Correct {
			continue
		}
		if !found || opt.Position < best.Position {
			best = opt
			found = true
		}
	}
	return best.ID, found
}
