package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/db"
	"github.com/jonathan/interview-manager/internal/schemas"
)

// TextAnswer is the payload of a text question
type TextAnswer struct {
	Text string `json:"text"`
}

// ChoiceAnswer is the payload of a multiple_choice question
type ChoiceAnswer struct {
	Selected string `json:"selected"`
}

// VideoAnswer is the payload of a video question. Transcript fields are filled in
// later by the processing pipeline for the recording named by JobID.
type VideoAnswer struct {
	VideoURL              string          `json:"video_url"`
	Type                  string          `json:"type"`
	JobID                 string          `json:"job_id,omitempty"`
	Transcript            string          `json:"transcript,omitempty"`
	TimestampedTranscript json.RawMessage `json:"timestamped_transcript,omitempty"`
}

func schemaFor(questionType string) (string, error) {
	switch questionType {
	case db.QuestionTypeText:
		return schemas.TextAnswer, nil
	case db.QuestionTypeMultipleChoice:
		return schemas.MultipleChoiceAnswer, nil
	case db.QuestionTypeVideo:
		return schemas.VideoAnswer, nil
	}
	return "", fmt.Errorf("unknown question type %q", questionType)
}

// ValidateAnswer checks payload against the shape required by the question type.
// Multiple choice answers must select one of the question's option values.
func ValidateAnswer(q *db.Question, payload json.RawMessage) error {
	qid := q.ID.String()

	schema, err := schemaFor(q.Type)
	if err != nil {
		return &AnswerError{QuestionID: qid, Message: err.Error()}
	}

	if err := schemas.Validate(schema, payload); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) && len(ve.Errors) > 0 {
			return &AnswerError{QuestionID: qid, Field: ve.Errors[0].Field, Message: ve.Errors[0].Message}
		}
		return err
	}

	switch q.Type {
	case db.QuestionTypeText:
		var a TextAnswer
		if err := json.Unmarshal(payload, &a); err != nil || strings.TrimSpace(a.Text) == "" {
			return &AnswerError{QuestionID: qid, Field: "text", Message: "answer cannot be empty"}
		}
	case db.QuestionTypeMultipleChoice:
		var a ChoiceAnswer
		if err := json.Unmarshal(payload, &a); err != nil {
			return &AnswerError{QuestionID: qid, Message: "malformed answer"}
		}
		for _, opt := range q.Options {
			if opt.Value == a.Selected {
				return nil
			}
		}
		return &AnswerError{QuestionID: qid, Field: "selected", Message: fmt.Sprintf("%q is not one of the options", a.Selected)}
	case db.QuestionTypeVideo:
		var a VideoAnswer
		if err := json.Unmarshal(payload, &a); err != nil || strings.TrimSpace(a.VideoURL) == "" {
			return &AnswerError{QuestionID: qid, Field: "video_url", Message: "video url cannot be empty"}
		}
	}
	return nil
}

// ResumePoint returns the index of the first question without a response. When every
// question is answered it returns the last index; an empty interview resumes at 0.
// questions must be in order_index order.
func ResumePoint(questions []db.Question, responses []db.Response) int {
	if len(questions) == 0 {
		return 0
	}
	answered := make(map[uuid.UUID]bool, len(responses))
	for _, r := range responses {
		answered[r.QuestionID] = true
	}
	for i, q := range questions {
		if !answered[q.ID] {
			return i
		}
	}
	return len(questions) - 1
}
