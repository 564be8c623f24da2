package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"taskhub/internal/models"
)

// newScriptedClient builds a client pointed at a handler, with an in-memory
// token store and a counter of requests that actually reached the server.
func newScriptedClient(t *testing.T, handler http.HandlerFunc) (*Client, *MemoryTokenStore, *atomic.Int64, *atomic.Int64) {
	t.Helper()
	var requests atomic.Int64
	var unauthorized atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	store := NewMemoryTokenStore()
	c := New(srv.URL,
		WithTokenStore(store),
		WithUnauthorizedHook(func() { unauthorized.Add(1) }),
	)
	return c, store, &requests, &unauthorized
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func asClientError(t *testing.T, err error) *Error {
	t.Helper()
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected *client.Error, got %T: %v", err, err)
	}
	return ce
}

// ============================================================
// Session transport
// ============================================================

func TestTransportAttachesBearerToken(t *testing.T) {
	var gotAuth string
	c, store, _, _ := newScriptedClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{}})
	})
	store.SetToken("tok-123")

	if _, err := c.GetTask(context.Background(), "t1"); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
}

func TestTransportUnauthenticatedWithoutToken(t *testing.T) {
	var gotAuth string
	c, _, _, _ := newScriptedClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{}})
	})

	if _, err := c.GetTask(context.Background(), "t1"); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "" {
		t.Fatalf("expected no Authorization header, got %q", gotAuth)
	}
}

// TestUnauthorizedPurgesTokenEverywhere drives a 401 through several distinct
// endpoints and expects identical behavior each time: token purged, hook
// fired, session-expired error returned.
func TestUnauthorizedPurgesTokenEverywhere(t *testing.T) {
	c, store, _, unauthorized := newScriptedClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "session expired"})
	})

	calls := []func() error{
		func() error { _, err := c.GetTask(context.Background(), "t1"); return err },
		func() error { _, err := c.ListByAssignee(context.Background(), "dev-1"); return err },
		func() error { _, err := c.Developers(context.Background()); return err },
		func() error { return c.DeleteTask(context.Background(), "t1") },
	}

	for i, call := range calls {
		store.SetToken("stale-token")
		err := call()
		ce := asClientError(t, err)
		if ce.Kind != KindSessionExpired {
			t.Fatalf("call %d: expected KindSessionExpired, got %q", i, ce.Kind)
		}
		if store.Token() != "" {
			t.Fatalf("call %d: token not purged", i)
		}
	}
	if got := unauthorized.Load(); got != int64(len(calls)) {
		t.Fatalf("expected hook fired %d times, got %d", len(calls), got)
	}
}

func TestLoginStoresToken(t *testing.T) {
	c, store, _, _ := newScriptedClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"token": "fresh-token",
				"user":  map[string]any{"_id": "u1", "role": models.RoleDeveloper},
			},
		})
	})

	user, err := c.Login(context.Background(), "dev1@example.com", "hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != "u1" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if store.Token() != "fresh-token" {
		t.Fatalf("token not stored: %q", store.Token())
	}
}

// ============================================================
// Error shapes
// ============================================================

func TestCreateTaskFieldErrorMap(t *testing.T) {
	c, _, _, _ := newScriptedClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"errors":  []map[string]string{{"field": "title", "message": "required"}},
		})
	})

	_, err := c.CreateTask(context.Background(), "p1", TaskPayload{})
	ce := asClientError(t, err)
	if ce.Kind != KindFieldErrors {
		t.Fatalf("expected KindFieldErrors, got %q", ce.Kind)
	}
	if ce.Fields["title"] != "required" {
		t.Fatalf("expected field map {title: required}, got %+v", ce.Fields)
	}
}

func TestCreateTaskSingleMessageDistinctFromFieldErrors(t *testing.T) {
	c, _, _, _ := newScriptedClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "project is archived",
		})
	})

	_, err := c.CreateTask(context.Background(), "p1", TaskPayload{Title: "x"})
	ce := asClientError(t, err)
	if ce.Kind != KindMessage {
		t.Fatalf("expected KindMessage, got %q", ce.Kind)
	}
	if ce.Message != "project is archived" {
		t.Fatalf("server message not surfaced verbatim: %q", ce.Message)
	}
}

func TestMissingSuccessFlagIsDomainError(t *testing.T) {
	c, _, _, _ := newScriptedClient(t, func(w http.ResponseWriter, r *http.Request) {
		// A 200 with no success flag decodes to success=false.
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	})

	_, err := c.ListByProject(context.Background(), "p1", models.TaskFilter{})
	ce := asClientError(t, err)
	if ce.Kind != KindMessage {
		t.Fatalf("expected KindMessage, got %q", ce.Kind)
	}
	if ce.Message != "request failed" {
		t.Fatalf("expected generic fallback message, got %q", ce.Message)
	}
}

func TestDeleteTaskTwiceSurfacesNotFound(t *testing.T) {
	var deletes atomic.Int64
	c, _, _, _ := newScriptedClient(t, func(w http.ResponseWriter, r *http.Request) {
		if deletes.Add(1) == 1 {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "task deleted"})
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "task not found"})
	})

	if err := c.DeleteTask(context.Background(), "t1"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	err := c.DeleteTask(context.Background(), "t1")
	ce := asClientError(t, err)
	if ce.Kind != KindNotFound {
		t.Fatalf("expected KindNotFound on second delete, got %q", ce.Kind)
	}
}

func TestTransportFailureCollapsesToDomainError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // refuse connections

	c := New(srv.URL)
	_, err := c.GetTask(context.Background(), "t1")
	ce := asClientError(t, err)
	if ce.Kind != KindMessage {
		t.Fatalf("expected KindMessage for transport failure, got %q", ce.Kind)
	}
}

// ============================================================
// Filter engine
// ============================================================

func TestEncodeFilterDimensions(t *testing.T) {
	values := EncodeFilter(models.TaskFilter{
		Search:     "login",
		Statuses:   []string{models.StatusPending, models.StatusOnHold},
		Priorities: []string{models.PriorityUrgent},
	})

	if got := values["status"]; len(got) != 2 || got[0] != "pending" || got[1] != "on-hold" {
		t.Fatalf("status dimension wrong: %v", got)
	}
	if got := values["priority"]; len(got) != 1 || got[0] != "urgent" {
		t.Fatalf("priority dimension wrong: %v", got)
	}
	if values.Get("search") != "login" {
		t.Fatalf("search dimension wrong: %q", values.Get("search"))
	}
}

func TestEncodeFilterEmptyImposesNoConstraint(t *testing.T) {
	if values := EncodeFilter(models.TaskFilter{}); len(values) != 0 {
		t.Fatalf("empty filter should encode to no parameters, got %v", values)
	}
}

func TestListByProjectSendsFilterQuery(t *testing.T) {
	var gotQuery string
	c, _, _, _ := newScriptedClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []any{}})
	})

	_, err := c.ListByProject(context.Background(), "p1", models.TaskFilter{
		Statuses: []string{models.StatusPending, models.StatusCompleted},
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotQuery != "status=pending&status=completed" {
		t.Fatalf("unexpected query: %q", gotQuery)
	}
}
