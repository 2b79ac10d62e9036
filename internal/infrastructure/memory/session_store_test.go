package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wms-platform/scanwatch-service/internal/application"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	if _, ok := store.Get("missing"); ok {
		t.Fatal("Get returned an entry for an unknown token")
	}

	entry := application.SessionEntry{
		Identity:      "EWR",
		UpstreamToken: "upstream-token",
		Username:      "EWR",
		Password:      "pass",
		IssuedAt:      time.Now(),
	}
	store.Set("tok", entry)

	got, ok := store.Get("tok")
	if !ok {
		t.Fatal("Get failed after Set")
	}
	if got.Identity != "EWR" || got.UpstreamToken != "upstream-token" {
		t.Errorf("Get returned wrong entry: %+v", got)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}

	entry.UpstreamToken = "fresh-token"
	store.Set("tok", entry)
	got, _ = store.Get("tok")
	if got.UpstreamToken != "fresh-token" {
		t.Error("Set did not replace the existing entry")
	}

	store.Clear("tok")
	if _, ok := store.Get("tok"); ok {
		t.Error("Get returned an entry after Clear")
	}

	// Clearing again must be a no-op.
	store.Clear("tok")
	if store.Len() != 0 {
		t.Errorf("Len() = %d after clearing, want 0", store.Len())
	}
}

func TestSessionStoreHoldsMultipleTokens(t *testing.T) {
	store := NewSessionStore()
	store.Set("tok-a", application.SessionEntry{Identity: "EWR"})
	store.Set("tok-b", application.SessionEntry{Identity: "uni_staff"})

	store.Clear("tok-a")

	if _, ok := store.Get("tok-b"); !ok {
		t.Error("clearing one token removed another session")
	}
}

func TestSessionStoreConcurrentAccess(t *testing.T) {
	store := NewSessionStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("tok-%d", i)
			store.Set(token, application.SessionEntry{Identity: "EWR"})
			store.Get(token)
			if i%2 == 0 {
				store.Clear(token)
			}
		}(i)
	}
	wg.Wait()

	if store.Len() != 25 {
		t.Errorf("Len() = %d after concurrent access, want 25", store.Len())
	}
}
