package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CreateAssignmentsRequest assigns an interview to candidates. Invitations are
// emailed unless SendInvitations is false.
type CreateAssignmentsRequest struct {
	CandidateIDs    []string `json:"candidate_ids" validate:"required,min=1,dive,uuid"`
	SendInvitations *bool    `json:"send_invitations,omitempty"`
}

func (r *CreateAssignmentsRequest) Validate() error { return Validator().Struct(r) }

// ShouldSend defaults to true
func (r *CreateAssignmentsRequest) ShouldSend() bool {
	return r.SendInvitations == nil || *r.SendInvitations
}

// Assignment is an assignment with names resolved for display
type Assignment struct {
	ID             uuid.UUID  `json:"id"`
	InterviewID    uuid.UUID  `json:"interview_id"`
	InterviewName  string     `json:"interview_name,omitempty"`
	UserID         uuid.UUID  `json:"user_id"`
	CandidateName  string     `json:"candidate_name,omitempty"`
	CandidateEmail string     `json:"candidate_email,omitempty"`
	Status         string     `json:"status"`
	AssignedAt     time.Time  `json:"assigned_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	InvitationURL  string     `json:"invitation_url,omitempty"`
}

// InvitationResult is the delivery outcome for one candidate
type InvitationResult struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	Email        string    `json:"email"`
	Link         string    `json:"link"`
	Sent         bool      `json:"sent"`
	Error        string    `json:"error,omitempty"`
}

// CreateAssignmentsResponse lists the created rows and the invitation report.
// Failed invitations keep their links so they can be shared by hand.
type CreateAssignmentsResponse struct {
	Assignments []Assignment       `json:"assignments"`
	Sent        int                `json:"sent"`
	Failed      int                `json:"failed"`
	Invitations []InvitationResult `json:"invitations,omitempty"`
}

// Answer is a current response
type Answer struct {
	ID               uuid.UUID       `json:"id"`
	QuestionID       uuid.UUID       `json:"question_id"`
	Data             json.RawMessage `json:"data"`
	ProcessingStatus *string         `json:"processing_status,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Results is the admin view of one assignment
type Results struct {
	Assignment Assignment `json:"assignment"`
	Interview  Interview  `json:"interview"`
	Candidate  *User      `json:"candidate,omitempty"`
	Answers    []Answer   `json:"answers"`
}

// CandidateInterview is what an invitation link opens. When ReadOnly is set the
// candidate sees the completion summary instead of the form.
type CandidateInterview struct {
	Assignment    Assignment `json:"assignment"`
	Interview     Interview  `json:"interview"`
	CandidateName string     `json:"candidate_name"`
	Answers       []Answer   `json:"answers"`
	ResumeIndex   int        `json:"resume_index"`
	ReadOnly      bool       `json:"read_only"`
	Answered      int        `json:"answered"`
	Total         int        `json:"total"`
}

// Notification announces a completed assignment to admins
type Notification struct {
	ID            string    `json:"id"`
	AssignmentID  uuid.UUID `json:"assignment_id"`
	Message       string    `json:"message"`
	CandidateName string    `json:"candidate_name"`
	InterviewName string    `json:"interview_name"`
	CreatedAt     time.Time `json:"created_at"`
	Read          bool      `json:"read"`
}

// NotificationList is the notification feed
type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	Unread        int            `json:"unread"`
}
