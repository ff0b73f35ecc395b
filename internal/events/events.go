// Package events carries video processing jobs to the external transcription
// pipeline and reads its results back.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VideoJob asks the pipeline to process one uploaded answer. JobID identifies
// the recording; re-recording an answer starts a new job on the same response.
type VideoJob struct {
	JobID        uuid.UUID `json:"job_id"`
	ResponseID   uuid.UUID `json:"response_id"`
	AssignmentID uuid.UUID `json:"assignment_id"`
	QuestionID   uuid.UUID `json:"question_id"`
	UserID       uuid.UUID `json:"user_id"`
	ObjectKey    string    `json:"object_key"`
	VideoURL     string    `json:"video_url"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Segment is one timed span of a transcript, in seconds
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// VideoResult is published by the pipeline when a job finishes or fails.
// JobID echoes the job it answers.
type VideoResult struct {
	JobID                 uuid.UUID `json:"job_id"`
	ResponseID            uuid.UUID `json:"response_id"`
	Status                string    `json:"status"`
	Transcript            string    `json:"transcript,omitempty"`
	TimestampedTranscript []Segment `json:"timestamped_transcript,omitempty"`
	Error                 string    `json:"error,omitempty"`
}

// Result status values accepted from the pipeline
const (
	ResultProcessing = "processing"
	ResultCompleted  = "completed"
	ResultFailed     = "failed"
)

// Validate checks a decoded result before it is applied.
func (r *VideoResult) Validate() error {
	if r.ResponseID == uuid.Nil {
		return fmt.Errorf("missing response_id")
	}
	if r.JobID == uuid.Nil {
		return fmt.Errorf("missing job_id")
	}
	switch r.Status {
	case ResultProcessing, ResultCompleted, ResultFailed:
	default:
		return fmt.Errorf("unknown status %q", r.Status)
	}
	for i, s := range r.TimestampedTranscript {
		if s.End < s.Start {
			return fmt.Errorf("segment %d ends before it starts", i)
		}
	}
	return nil
}

// Patch returns the fields merged into the response data.
// Failed and in-flight results carry no transcript.
func (r *VideoResult) Patch() map[string]any {
	patch := map[string]any{}
	if r.Status != ResultCompleted {
		return patch
	}
	if r.Transcript != "" {
		patch["transcript"] = r.Transcript
	}
	if len(r.TimestampedTranscript) > 0 {
		patch["timestamped_transcript"] = r.TimestampedTranscript
	}
	return patch
}

// DecodeResult parses and validates a message body
func DecodeResult(body []byte) (*VideoResult, error) {
	var r VideoResult
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to decode video result: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid video result: %w", err)
	}
	return &r, nil
}

// Publisher sends processing jobs
type Publisher interface {
	PublishVideoJob(ctx context.Context, job VideoJob) error
}

// ResultHandler applies one result. Returning an error requeues the message.
type ResultHandler func(ctx context.Context, result *VideoResult) error

// Consumer reads processing results until ctx is cancelled
type Consumer interface {
	Consume(ctx context.Context, handler ResultHandler) error
}
