package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"trivia-service/internal/app"
	"trivia-service/internal/bank"
	"trivia-service/internal/domain"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)

	store.Put(app.NewSession("game-1", bank.Default(), "Alice", domain.DefaultRules()))
	if !mr.Exists("trivia:session:game-1") {
		t.Fatalf("expected redis key to be set")
	}
	if got, _ := mr.Get("trivia:session:game-1"); got != bank.DefaultID {
		t.Fatalf("expected bank id marker, got %q", got)
	}

	mr.FastForward(30 * time.Second)
	if _, ok := store.Get("game-1"); !ok {
		t.Fatalf("expected session present")
	}
	if ttl := mr.TTL("trivia:session:game-1"); ttl != time.Minute {
		t.Fatalf("expected ttl refreshed to 1m, got %v", ttl)
	}

	store.Delete("game-1")
	if mr.Exists("trivia:session:game-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("game-1"); ok {
		t.Fatalf("expected session removed")
	}
}
