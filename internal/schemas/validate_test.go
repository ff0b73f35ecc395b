package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Answers(t *testing.T) {
	tests := []struct {
		name      string
		schema    string
		document  string
		wantError bool
	}{
		{name: "text ok", schema: TextAnswer, document: `{"text":"hello"}`},
		{name: "text blank", schema: TextAnswer, document: `{"text":"   "}`, wantError: true},
		{name: "text missing", schema: TextAnswer, document: `{}`, wantError: true},
		{name: "text extra field", schema: TextAnswer, document: `{"text":"hi","x":1}`, wantError: true},
		{name: "choice ok", schema: MultipleChoiceAnswer, document: `{"selected":"b"}`},
		{name: "choice empty", schema: MultipleChoiceAnswer, document: `{"selected":""}`, wantError: true},
		{name: "video ok", schema: VideoAnswer, document: `{"video_url":"https://cdn/x.webm","type":"video"}`},
		{name: "video with transcript", schema: VideoAnswer, document: `{"video_url":"u","type":"video","transcript":"hi","timestamped_transcript":[{"start":0,"end":1.5,"text":"hi"}]}`},
		{name: "video wrong type", schema: VideoAnswer, document: `{"video_url":"u","type":"audio"}`, wantError: true},
		{name: "video no url", schema: VideoAnswer, document: `{"type":"video"}`, wantError: true},
		{name: "options ok", schema: QuestionOptions, document: `[{"label":"A","value":"a"},{"label":"B","value":"b"}]`},
		{name: "options too few", schema: QuestionOptions, document: `[{"label":"A","value":"a"}]`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.schema, []byte(tt.document))
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr), "error should be ValidationError, got %T", err)
			assert.NotEmpty(t, validationErr.Errors)
		})
	}
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := Validate(TextAnswer, []byte("{ invalid json }"))
	require.Error(t, err)
	var validationErr *ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nope.schema.json", []byte(`{}`))
	require.Error(t, err)
	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, err.Error(), "nope.schema.json")
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"name":"x"}`))

	err := ValidateJSONString(schema, `{"name":1}`)
	require.Error(t, err)
	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "name", validationErr.Errors[0].Field)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Errors: []FieldError{{Field: "text", Message: "is required"}}}
	assert.Equal(t, "validation failed: 1. text: is required", err.Error())
}
