package client

import (
	"context"
	"net/http"
	"sync"
)

// ResetFlowState tracks the password reset flow. Invalid is terminal; the
// only recovery is requesting a new link out-of-band.
type ResetFlowState string

const (
	StateValidating ResetFlowState = "validating"
	StateValid      ResetFlowState = "valid"
	StateSubmitting ResetFlowState = "submitting"
	StateDone       ResetFlowState = "done"
	StateInvalid    ResetFlowState = "invalid"
)

// minPasswordLength mirrors the server-side rule so a short password never
// reaches the network.
const minPasswordLength = 6

// ResetFlow drives one single-use password reset token through
// validate-then-submit. The token comes from an emailed link and is
// consumed by the first successful submission.
type ResetFlow struct {
	client *Client
	token  string

	mu    sync.Mutex
	state ResetFlowState
	name  string
	email string
}

// NewResetFlow starts a flow in the validating state.
func NewResetFlow(c *Client, token string) *ResetFlow {
	return &ResetFlow{client: c, token: token, state: StateValidating}
}

// State reports the current flow state.
func (f *ResetFlow) State() ResetFlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Owner returns the validated account's name and email for display.
func (f *ResetFlow) Owner() (name, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.name, f.email
}

// Validate checks the token once. Success moves the flow to valid and
// captures the owner for confirmation display; any failure is terminal.
func (f *ResetFlow) Validate(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateValidating {
		f.mu.Unlock()
		return &Error{Kind: KindPrecondition, Message: "token already validated"}
	}
	f.mu.Unlock()

	env, err := f.client.do(ctx, http.MethodGet, "/api/password/validate-token/"+f.token, nil, nil)
	if err != nil {
		f.mu.Lock()
		f.state = StateInvalid
		f.mu.Unlock()
		return err
	}

	var owner struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := decodeData(env, &owner); err != nil {
		f.mu.Lock()
		f.state = StateInvalid
		f.mu.Unlock()
		return err
	}

	f.mu.Lock()
	f.state = StateValid
	f.name = owner.Name
	f.email = owner.Email
	f.mu.Unlock()
	return nil
}

// Submit sets the new password. Local preconditions run first and surface
// field-level errors without touching the network; a duplicate submission
// while one is in flight is rejected. Remote success consumes the token and
// finishes the flow; remote failure keeps the flow valid and surfaces the
// server message verbatim.
func (f *ResetFlow) Submit(ctx context.Context, password, confirm string) error {
	if fields := checkPassword(password, confirm); len(fields) > 0 {
		return &Error{Kind: KindPrecondition, Fields: fields, Message: "password validation failed"}
	}

	f.mu.Lock()
	switch f.state {
	case StateSubmitting:
		f.mu.Unlock()
		return &Error{Kind: KindPrecondition, Message: "submission already in progress"}
	case StateValid:
		f.state = StateSubmitting
		f.mu.Unlock()
	default:
		state := f.state
		f.mu.Unlock()
		return &Error{Kind: KindPrecondition, Message: "cannot submit in state " + string(state)}
	}

	_, err := f.client.do(ctx, http.MethodPost, "/api/password/reset/"+f.token, nil,
		map[string]string{"password": password})

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateValid
		return err
	}
	f.state = StateDone
	return nil
}

// checkPassword applies the caller-side rules: minimum length and matching
// confirmation.
func checkPassword(password, confirm string) map[string]string {
	fields := map[string]string{}
	if len(password) < minPasswordLength {
		fields["password"] = "must be at least 6 characters"
	}
	if password != confirm {
		fields["confirmPassword"] = "passwords do not match"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
