// Package notify delivers interview invitations by email.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/access"
	"golang.org/x/sync/errgroup"
)

// Invitation is one email to one candidate
type Invitation struct {
	AssignmentID   uuid.UUID
	CandidateEmail string
	CandidateName  string
	InterviewTitle string
	Token          access.Token
}

// Message is a rendered invitation
type Message struct {
	To      string
	Subject string
	Body    string
	Link    string
}

// Sender delivers invitations and sign-in links
type Sender interface {
	// Send delivers one invitation and returns the link it carried
	Send(ctx context.Context, inv Invitation) (link string, err error)
	// SendSignIn emails a one-time sign-in link
	SendSignIn(ctx context.Context, email, link string) error
}

var bodyTemplate = template.Must(template.New("invitation").Parse(
	`Hello {{.Name}},

You have been invited to complete the interview "{{.Title}}".

Open the link below to start. Your answers are saved as you go, so you can leave
and come back to the same link at any time.

{{.Link}}
`))

var signInTemplate = template.Must(template.New("signin").Parse(
	`Hello,

Use the link below to sign in. It can be used once and expires shortly.

{{.Link}}

If you did not ask for this email you can ignore it.
`))

// RenderSignIn builds the sign-in email
func RenderSignIn(email, link string) (Message, error) {
	var body bytes.Buffer
	if err := signInTemplate.Execute(&body, struct{ Link string }{link}); err != nil {
		return Message{}, fmt.Errorf("failed to render sign-in email: %w", err)
	}
	return Message{To: email, Subject: "Your sign-in link", Body: body.String(), Link: link}, nil
}

// Render builds the email for inv with links under baseURL
func Render(baseURL string, inv Invitation) (Message, error) {
	link := access.InvitationURL(baseURL, inv.Token)
	name := strings.TrimSpace(inv.CandidateName)
	if name == "" {
		name = inv.CandidateEmail
	}

	var body bytes.Buffer
	err := bodyTemplate.Execute(&body, struct{ Name, Title, Link string }{name, inv.InterviewTitle, link})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render invitation: %w", err)
	}
	return Message{
		To:      inv.CandidateEmail,
		Subject: fmt.Sprintf("Interview invitation: %s", inv.InterviewTitle),
		Body:    body.String(),
		Link:    link,
	}, nil
}

// Result is the outcome of one send. Link is set even on failure so the admin can
// share it by hand.
type Result struct {
	AssignmentID uuid.UUID `json:"assignment_id"`
	Email        string    `json:"email"`
	Link         string    `json:"link"`
	Sent         bool      `json:"sent"`
	Error        string    `json:"error,omitempty"`
}

// Report tallies a batch of sends
type Report struct {
	Sent    int      `json:"sent"`
	Failed  int      `json:"failed"`
	Results []Result `json:"results"`
}

// Dispatch sends every invitation independently with at most concurrency in flight.
// A failed send never stops the others; Results follow the order of invs.
func Dispatch(ctx context.Context, sender Sender, baseURL string, invs []Invitation, concurrency int) Report {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]Result, len(invs))

	var g errgroup.Group
	g.SetLimit(concurrency)
	var mu sync.Mutex
	report := Report{}

	for i, inv := range invs {
		g.Go(func() error {
			res := Result{
				AssignmentID: inv.AssignmentID,
				Email:        inv.CandidateEmail,
				Link:         access.InvitationURL(baseURL, inv.Token),
			}
			link, err := sender.Send(ctx, inv)
			if link != "" {
				res.Link = link
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Error = err.Error()
				report.Failed++
			} else {
				res.Sent = true
				report.Sent++
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	report.Results = results
	return report
}
