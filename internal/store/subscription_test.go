package store

import "testing"

func TestSubscriptionUpsertByEndpoint(t *testing.T) {
	ss := NewSubscriptionStore(setupTestDB(t))

	sub, err := ss.Create("user-1", "https://push.example/ep1", "p256dh-a", "auth-a", "phone")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub == nil || sub.UserID != "user-1" {
		t.Fatalf("sub = %+v", sub)
	}

	// Re-subscribing the same endpoint refreshes keys, no duplicate row.
	again, err := ss.Create("user-1", "https://push.example/ep1", "p256dh-b", "auth-b", "phone")
	if err != nil {
		t.Fatalf("re-create: %v", err)
	}
	if again.ID != sub.ID {
		t.Errorf("upsert created a new row: %d != %d", again.ID, sub.ID)
	}
	if again.P256dhKey != "p256dh-b" {
		t.Errorf("p256dh = %q, want refreshed key", again.P256dhKey)
	}

	subs, err := ss.ListByUser("user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("list returned %d subs, want 1", len(subs))
	}
}

func TestSubscriptionDeleteByEndpoint(t *testing.T) {
	ss := NewSubscriptionStore(setupTestDB(t))

	if _, err := ss.Create("user-1", "https://push.example/ep1", "k", "a", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ss.DeleteByEndpoint("https://push.example/ep1"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}

	sub, err := ss.GetByEndpoint("https://push.example/ep1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sub != nil {
		t.Errorf("sub = %+v, want nil after delete", sub)
	}
}
