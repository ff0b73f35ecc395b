package db

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusConstants(t *testing.T) {
	statuses := []string{
		AssignmentStatusPending,
		AssignmentStatusInProgress,
		AssignmentStatusCompleted,
	}
	for _, s := range statuses {
		assert.NotEmpty(t, s, "status constant should not be empty")
	}
	assert.Equal(t, "multiple_choice", QuestionTypeMultipleChoice)
}

func TestMigrationNames(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_init.sql", names[0])

	for _, name := range names {
		assert.True(t, strings.HasSuffix(name, ".sql"), "migration %s should be a .sql file", name)
	}
}

func TestCurrentResponses(t *testing.T) {
	assignmentID := uuid.New()
	q1, q2 := uuid.New(), uuid.New()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("latest updated_at wins", func(t *testing.T) {
		responses := []Response{
			{ID: uuid.New(), AssignmentID: assignmentID, QuestionID: q1, Data: json.RawMessage(`{"text":"old"}`), UpdatedAt: base},
			{ID: uuid.New(), AssignmentID: assignmentID, QuestionID: q2, Data: json.RawMessage(`{"selected":"b"}`), UpdatedAt: base},
			{ID: uuid.New(), AssignmentID: assignmentID, QuestionID: q1, Data: json.RawMessage(`{"text":"new"}`), UpdatedAt: base.Add(time.Minute)},
		}

		current := CurrentResponses(responses)
		require.Len(t, current, 2)
		assert.Equal(t, q1, current[0].QuestionID)
		assert.JSONEq(t, `{"text":"new"}`, string(current[0].Data))
		assert.Equal(t, q2, current[1].QuestionID)
	})

	t.Run("older duplicate does not replace newer", func(t *testing.T) {
		responses := []Response{
			{AssignmentID: assignmentID, QuestionID: q1, Data: json.RawMessage(`{"text":"new"}`), UpdatedAt: base.Add(time.Hour)},
			{AssignmentID: assignmentID, QuestionID: q1, Data: json.RawMessage(`{"text":"old"}`), UpdatedAt: base},
		}
		current := CurrentResponses(responses)
		require.Len(t, current, 1)
		assert.JSONEq(t, `{"text":"new"}`, string(current[0].Data))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, CurrentResponses(nil))
	})
}

func TestAssignmentFilter_Matches(t *testing.T) {
	interviewID := uuid.New()
	status := AssignmentStatusCompleted
	a := &Assignment{ID: uuid.New(), InterviewID: interviewID, UserID: uuid.New(), Status: AssignmentStatusPending}

	assert.True(t, AssignmentFilter{}.Matches(a))
	assert.True(t, AssignmentFilter{InterviewID: &interviewID}.Matches(a))
	assert.False(t, AssignmentFilter{Status: &status}.Matches(a))

	other := uuid.New()
	assert.False(t, AssignmentFilter{UserID: &other}.Matches(a))
}

func TestProfile_DisplayName(t *testing.T) {
	first, last := "Ada", "Lovelace"

	tests := []struct {
		name    string
		profile *Profile
		want    string
	}{
		{name: "full name", profile: &Profile{Email: "ada@example.com", FirstName: &first, LastName: &last}, want: "Ada Lovelace"},
		{name: "first only", profile: &Profile{Email: "ada@example.com", FirstName: &first}, want: "Ada"},
		{name: "email fallback", profile: &Profile{Email: "ada@example.com"}, want: "ada@example.com"},
		{name: "nil profile", profile: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.DisplayName())
		})
	}
}

func TestCheckQuestionSync(t *testing.T) {
	answered, open := uuid.New(), uuid.New()
	stored := map[uuid.UUID]QuestionState{
		answered: {Type: QuestionTypeText, Answered: true},
		open:     {Type: QuestionTypeVideo},
	}

	removed, err := CheckQuestionSync(stored, []QuestionInput{
		{QuestionText: "new", Type: QuestionTypeText},
		{ID: answered, QuestionText: "reworded", Type: QuestionTypeText},
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{open}, removed)

	_, err = CheckQuestionSync(stored, []QuestionInput{{ID: open, Type: QuestionTypeVideo}})
	assert.ErrorIs(t, err, ErrQuestionAnswered)

	_, err = CheckQuestionSync(stored, []QuestionInput{{ID: answered, Type: QuestionTypeVideo}, {ID: open, Type: QuestionTypeVideo}})
	assert.ErrorIs(t, err, ErrQuestionAnswered)

	_, err = CheckQuestionSync(stored, []QuestionInput{{ID: answered, Type: QuestionTypeText}, {ID: uuid.New(), Type: QuestionTypeText}})
	assert.ErrorIs(t, err, ErrForeignQuestion)

	_, err = CheckQuestionSync(nil, []QuestionInput{{QuestionText: "fresh", Type: QuestionTypeText}})
	assert.NoError(t, err)
}
