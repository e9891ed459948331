package domain

import (
	"testing"
	"time"
)

func TestStoredCredential_NeedsRefresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}

	tests := []struct {
		name    string
		expiry  *time.Time
		refresh []byte
		want    bool
	}{
		{"no expiry", nil, []byte("r"), false},
		{"far from expiry", at(time.Hour), []byte("r"), false},
		{"exactly at skew", at(RefreshSkew), []byte("r"), false},
		{"inside skew", at(29 * time.Second), []byte("r"), true},
		{"already expired", at(-time.Minute), []byte("r"), true},
		{"inside skew without refresh token", at(10 * time.Second), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &StoredCredential{TokenExpiresAt: tt.expiry, EncryptedRefreshToken: tt.refresh}
			if got := c.NeedsRefresh(now); got != tt.want {
				t.Errorf("NeedsRefresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStoredCredential_Permalink(t *testing.T) {
	withHandle := &StoredCredential{ProviderHandle: "alice"}
	if got := withHandle.Permalink("t1"); got != "https://x.com/alice/status/t1" {
		t.Errorf("unexpected permalink %q", got)
	}

	without := &StoredCredential{}
	if got := without.Permalink("t1"); got != "https://x.com/i/web/status/t1" {
		t.Errorf("unexpected fallback permalink %q", got)
	}
}

func TestStoredCredential_ToStatus(t *testing.T) {
	var missing *StoredCredential
	status := missing.ToStatus(ProviderX)
	if status.Connected {
		t.Error("nil credential should be disconnected")
	}
	if status.Provider != ProviderX {
		t.Errorf("expected provider x, got %s", status.Provider)
	}

	created := time.Now()
	c := &StoredCredential{
		OwnerID:        "user-1",
		Provider:       ProviderX,
		GrantedScope:   "tweet.read tweet.write  offline.access",
		ProviderHandle: "alice",
		CreatedAt:      created,
	}
	status = c.ToStatus(ProviderX)
	if !status.Connected {
		t.Error("expected connected")
	}
	if len(status.Scopes) != 3 {
		t.Errorf("expected 3 scopes, got %v", status.Scopes)
	}
	if status.ConnectedAt == nil || !status.ConnectedAt.Equal(created) {
		t.Error("expected connected_at to match created_at")
	}
}
