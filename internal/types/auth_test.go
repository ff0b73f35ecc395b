//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		request RegisterRequest
		wantErr bool
	}{
		{name: "valid", request: RegisterRequest{Email: "c@example.com", Password: "password123", FirstName: "Ada"}},
		{name: "valid without names", request: RegisterRequest{Email: "c@example.com", Password: "password123"}},
		{name: "missing email", request: RegisterRequest{Password: "password123"}, wantErr: true},
		{name: "bad email", request: RegisterRequest{Email: "nope", Password: "password123"}, wantErr: true},
		{name: "short password", request: RegisterRequest{Email: "c@example.com", Password: "short"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoginAndMagicLinkRequests(t *testing.T) {
	assert.NoError(t, (&LoginRequest{Email: "a@example.com", Password: "x"}).Validate())
	assert.Error(t, (&LoginRequest{Email: "a@example.com"}).Validate())
	assert.NoError(t, (&MagicLinkRequest{Email: "a@example.com"}).Validate())
	assert.Error(t, (&MagicLinkRequest{Email: ""}).Validate())
	assert.NoError(t, (&MagicLinkVerifyRequest{Token: "abc"}).Validate())
	assert.Error(t, (&MagicLinkVerifyRequest{}).Validate())
	assert.NoError(t, (&UpdatePasswordRequest{NewPassword: "longenough"}).Validate())
	assert.Error(t, (&UpdatePasswordRequest{CurrentPassword: "x", NewPassword: "short"}).Validate())
}

func TestUser_JSON(t *testing.T) {
	u := User{
		ID:          uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		Email:       "ada@example.com",
		Role:        "candidate",
		DisplayName: "ada@example.com",
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "first_name", "empty names are omitted")
	assert.Contains(t, string(data), `"password_set":false`)
}

func TestInterviewRequest_Validate(t *testing.T) {
	choice := func(values ...string) QuestionRequest {
		q := QuestionRequest{QuestionText: "Pick one", Type: "multiple_choice"}
		for _, v := range values {
			q.Options = append(q.Options, OptionRequest{Label: v, Value: v})
		}
		return q
	}
	text := QuestionRequest{QuestionText: "Why?", Type: "text"}

	tests := []struct {
		name      string
		request   InterviewRequest
		wantField string
		wantErr   bool
	}{
		{name: "valid", request: InterviewRequest{Name: "Backend Dev", Questions: []QuestionRequest{text, choice("a", "b")}}},
		{name: "missing name", request: InterviewRequest{Questions: []QuestionRequest{text}}, wantErr: true},
		{name: "no questions", request: InterviewRequest{Name: "x"}, wantErr: true},
		{name: "unknown type", request: InterviewRequest{Name: "x", Questions: []QuestionRequest{{QuestionText: "q", Type: "essay"}}}, wantErr: true},
		{name: "blank question text", request: InterviewRequest{Name: "x", Questions: []QuestionRequest{{QuestionText: "  ", Type: "text"}}}, wantErr: true, wantField: "questions[0].question_text"},
		{name: "one option", request: InterviewRequest{Name: "x", Questions: []QuestionRequest{text, choice("a")}}, wantErr: true, wantField: "questions[1].options"},
		{name: "duplicate values", request: InterviewRequest{Name: "x", Questions: []QuestionRequest{choice("a", "a")}}, wantErr: true, wantField: "questions[0].options"},
		{name: "options on text", request: InterviewRequest{Name: "x", Questions: []QuestionRequest{{QuestionText: "q", Type: "text", Options: []OptionRequest{{Label: "a", Value: "a"}}}}}, wantErr: true, wantField: "questions[0].options"},
		{name: "choice without options", request: InterviewRequest{Name: "x", Questions: []QuestionRequest{{QuestionText: "q", Type: "multiple_choice"}}}, wantErr: true, wantField: "questions[0].options"},
		{name: "empty option label", request: InterviewRequest{Name: "x", Questions: []QuestionRequest{{QuestionText: "q", Type: "multiple_choice", Options: []OptionRequest{{Value: "a"}, {Label: "b", Value: "b"}}}}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantField != "" {
				var fe *FieldError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, tt.wantField, fe.Field)
			}
		})
	}
}

func TestUpdateInterviewRequest_Validate(t *testing.T) {
	t.Run("questions omitted", func(t *testing.T) {
		assert.NoError(t, (&UpdateInterviewRequest{Name: "Renamed"}).Validate())
	})

	t.Run("empty questions", func(t *testing.T) {
		var fe *FieldError
		require.ErrorAs(t, (&UpdateInterviewRequest{Name: "x", Questions: []QuestionRequest{}}).Validate(), &fe)
		assert.Equal(t, "questions", fe.Field)
	})

	t.Run("question id must be a uuid", func(t *testing.T) {
		req := &UpdateInterviewRequest{Name: "x", Questions: []QuestionRequest{{ID: "q1", QuestionText: "q", Type: "text"}}}
		assert.Error(t, req.Validate())
	})

	t.Run("options checked against the schema", func(t *testing.T) {
		req := &UpdateInterviewRequest{Name: "x", Questions: []QuestionRequest{
			{ID: uuid.NewString(), QuestionText: "q", Type: "multiple_choice", Options: []OptionRequest{{Label: "only", Value: "only"}}},
		}}
		var fe *FieldError
		require.ErrorAs(t, req.Validate(), &fe)
		assert.Equal(t, "questions[0].options", fe.Field)
	})
}

func TestCreateAssignmentsRequest(t *testing.T) {
	valid := CreateAssignmentsRequest{CandidateIDs: []string{uuid.NewString()}}
	assert.NoError(t, valid.Validate())
	assert.True(t, valid.ShouldSend())

	no := false
	valid.SendInvitations = &no
	assert.False(t, valid.ShouldSend())

	assert.Error(t, (&CreateAssignmentsRequest{}).Validate())
	assert.Error(t, (&CreateAssignmentsRequest{CandidateIDs: []string{"not-a-uuid"}}).Validate())
}
