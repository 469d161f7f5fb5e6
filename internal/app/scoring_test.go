package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
)

func TestGradeMultipleChoice(t *testing.T) {
	content := sampleContents()[0]

	cases := []struct {
		name    string
		answers map[string]string
		score   int
	}{
		{name: "all correct", answers: map[string]string{"q1": "o2", "q2": "o3"}, score: 2},
		{name: "one wrong", answers: map[string]string{"q1": "o1", "q2": "o3"}, score: 1},
		{name: "unanswered", answers: map[string]string{}, score: 0},
		{name: "unknown option", answers: map[string]string{"q1": "nope"}, score: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			grade := app.GradeAttempt(content, tc.answers)
			assert.Equal(t, tc.score, grade.Score)
			assert.Equal(t, 2, grade.Total)
			require.Len(t, grade.Answers, 2)
			for _, a := range grade.Answers {
				require.NotNil(t, a.Correct)
				assert.Nil(t, a.AnswerText)
			}
		})
	}
}

func TestGradeUnansweredRowHasNoSelection(t *testing.T) {
	grade := app.GradeAttempt(sampleContents()[0], map[string]string{"q2": "o3"})
	require.Len(t, grade.Answers, 2)
	assert.Equal(t, "q1", grade.Answers[0].QuestionID)
	assert.Nil(t, grade.Answers[0].SelectedOptionID)
	assert.False(t, *grade.Answers[0].Correct)
	assert.True(t, *grade.Answers[1].Correct)
}

func TestGradeQuestionWithoutCorrectOption(t *testing.T) {
	content := domain.QuizContent{
		Quiz:      domain.Quiz{ID: "quiz-x", Kind: domain.KindMultipleChoice},
		Questions: []domain.Question{{ID: "q1", Position: 1}},
		Options: map[string][]domain.Option{
			"q1": {{ID: "a", Position: 1}, {ID: "b", Position: 2}},
		},
	}
	grade := app.GradeAttempt(content, map[string]string{"q1": "a"})
	assert.Equal(t, 0, grade.Score)
	assert.False(t, *grade.Answers[0].Correct)
}

func TestGradeUsesLowestPositionedCorrectOption(t *testing.T) {
	content := domain.QuizContent{
		Quiz:      domain.Quiz{ID: "quiz-x", Kind: domain.KindMultipleChoice},
		Questions: []domain.Question{{ID: "q1", Position: 1}},
		Options: map[string][]domain.Option{
			"q1": {
				{ID: "late", Position: 5, Correct: true},
				{ID: "early", Position: 2, Correct: true},
			},
		},
	}
	assert.Equal(t, 1, app.GradeAttempt(content, map[string]string{"q1": "early"}).Score)
	assert.Equal(t, 0, app.GradeAttempt(content, map[string]string{"q1": "late"}).Score)
}

func TestGradePracticalIsUngraded(t *testing.T) {
	content := sampleContents()[2]

	grade := app.GradeAttempt(content, map[string]string{"p1": "An essay"})
	assert.Equal(t, 0, grade.Score)
	assert.Equal(t, 1, grade.Total)
	require.Len(t, grade.Answers, 1)
	assert.Nil(t, grade.Answers[0].Correct)
	assert.Equal(t, "An essay", *grade.Answers[0].AnswerText)

	empty := app.GradeAttempt(content, nil)
	require.NotNil(t, empty.Answers[0].AnswerText)
	assert.Equal(t, "", *empty.Answers[0].AnswerText)
}
