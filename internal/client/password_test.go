package client

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
)

func validatingHandler(submits *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/validate-token/"):
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data":    map[string]string{"name": "Dev One", "email": "dev1@example.com"},
			})
		case strings.Contains(r.URL.Path, "/reset/"):
			if submits != nil {
				submits.Add(1)
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "password updated"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "not found"})
		}
	}
}

func validFlow(t *testing.T, submits *atomic.Int64) *ResetFlow {
	t.Helper()
	c, _, _, _ := newScriptedClient(t, validatingHandler(submits))
	flow := NewResetFlow(c, "rt-1")
	if err := flow.Validate(context.Background()); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return flow
}

func TestResetFlowValidateCapturesOwner(t *testing.T) {
	flow := validFlow(t, nil)
	if flow.State() != StateValid {
		t.Fatalf("expected valid state, got %q", flow.State())
	}
	name, email := flow.Owner()
	if name != "Dev One" || email != "dev1@example.com" {
		t.Fatalf("owner not captured: %q %q", name, email)
	}
}

func TestResetFlowInvalidTokenIsTerminal(t *testing.T) {
	c, _, requests, _ := newScriptedClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid or expired token"})
	})
	flow := NewResetFlow(c, "rt-bad")

	if err := flow.Validate(context.Background()); err == nil {
		t.Fatal("expected validation failure")
	}
	if flow.State() != StateInvalid {
		t.Fatalf("expected invalid state, got %q", flow.State())
	}

	before := requests.Load()
	err := flow.Submit(context.Background(), "longenough", "longenough")
	ce := asClientError(t, err)
	if ce.Kind != KindPrecondition {
		t.Fatalf("expected precondition error from terminal state, got %q", ce.Kind)
	}
	if requests.Load() != before {
		t.Fatal("submit from invalid state must not reach the network")
	}
}

func TestResetFlowShortPasswordRejectedLocally(t *testing.T) {
	var submits atomic.Int64
	flow := validFlow(t, &submits)

	err := flow.Submit(context.Background(), "five5", "five5")
	ce := asClientError(t, err)
	if ce.Kind != KindPrecondition {
		t.Fatalf("expected KindPrecondition, got %q", ce.Kind)
	}
	if ce.Fields["password"] == "" {
		t.Fatalf("expected field-level password error, got %+v", ce.Fields)
	}
	if submits.Load() != 0 {
		t.Fatal("short password must not issue a network call")
	}
	if flow.State() != StateValid {
		t.Fatalf("flow left valid state: %q", flow.State())
	}
}

func TestResetFlowMismatchRejectedLocally(t *testing.T) {
	var submits atomic.Int64
	flow := validFlow(t, &submits)

	err := flow.Submit(context.Background(), "longenough", "different")
	ce := asClientError(t, err)
	if ce.Kind != KindPrecondition {
		t.Fatalf("expected KindPrecondition, got %q", ce.Kind)
	}
	if ce.Fields["confirmPassword"] == "" {
		t.Fatalf("expected confirm-password field error, got %+v", ce.Fields)
	}
	if submits.Load() != 0 {
		t.Fatal("mismatched confirmation must not issue a network call")
	}
}

func TestResetFlowSubmitIssuesExactlyOneCall(t *testing.T) {
	var submits atomic.Int64
	flow := validFlow(t, &submits)

	if err := flow.Submit(context.Background(), "longenough", "longenough"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submits.Load() != 1 {
		t.Fatalf("expected exactly one reset call, got %d", submits.Load())
	}
	if flow.State() != StateDone {
		t.Fatalf("expected done state, got %q", flow.State())
	}
}

func TestResetFlowDuplicateSubmitRejected(t *testing.T) {
	var submits atomic.Int64
	flow := validFlow(t, &submits)

	if err := flow.Submit(context.Background(), "longenough", "longenough"); err != nil {
		t.Fatal(err)
	}
	// The flow is done; a second submission must not fire another call.
	err := flow.Submit(context.Background(), "longenough", "longenough")
	ce := asClientError(t, err)
	if ce.Kind != KindPrecondition {
		t.Fatalf("expected precondition rejection, got %q", ce.Kind)
	}
	if submits.Load() != 1 {
		t.Fatalf("token set-password call issued twice: %d", submits.Load())
	}
}

func TestResetFlowRemoteFailureStaysValid(t *testing.T) {
	c, _, _, _ := newScriptedClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/validate-token/") {
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data":    map[string]string{"name": "Dev One", "email": "dev1@example.com"},
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "token already used"})
	})
	flow := NewResetFlow(c, "rt-1")
	if err := flow.Validate(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := flow.Submit(context.Background(), "longenough", "longenough")
	ce := asClientError(t, err)
	if ce.Message != "token already used" {
		t.Fatalf("server message not surfaced verbatim: %q", ce.Message)
	}
	if flow.State() != StateValid {
		t.Fatalf("expected flow back in valid state, got %q", flow.State())
	}
}
