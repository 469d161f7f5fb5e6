package memory

import (
	"testing"

	"quiz-assessment-service/internal/app"
	"quiz-assessment-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session := app.NewSession("s-1", "quiz-1", domain.Identity{UserID: "u-1"}, app.SessionDeps{})
	store.Put(session)
	got, ok := store.Get("s-1")
	if !ok || got != session {
		t.Fatalf("expected session present")
	}
	if store.Len() != 1 {
		t.Fatalf("expected one session, got %d", store.Len())
	}

	if !store.Delete("s-1") {
		t.Fatalf("expected first delete to report removal")
	}
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed")
	}
	if store.Delete("s-1") {
		t.Fatalf("expected second delete to be a no-op")
	}
}
