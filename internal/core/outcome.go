package core

// OutcomeStatus is the terminal state of a playback session.
type OutcomeStatus string

const (
	OutcomePlayed    OutcomeStatus = "played"
	OutcomeExhausted OutcomeStatus = "exhausted"
	OutcomeAborted   OutcomeStatus = "aborted"
)

// AttemptFailure describes one candidate that failed to start.
type AttemptFailure struct {
	Episode string `json:"episode"`
	Reason  string `json:"reason"`
}

// Outcome is what a playback session reports to its caller.
type Outcome struct {
	Status   OutcomeStatus    `json:"status"`
	ShowID   string           `json:"show_id"`
	Episode  string           `json:"episode,omitempty"`
	Attempts int              `json:"attempts"`
	Failures []AttemptFailure `json:"failures,omitempty"`
	// Recorded is true when the started episode made it into history.
	Recorded bool `json:"recorded"`
}

// Played returns true if an episode started.
func (o *Outcome) Played() bool {
	return o != nil && o.Status == OutcomePlayed
}
