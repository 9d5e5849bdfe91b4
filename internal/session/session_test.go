package session

import (
	"testing"

	"github.com/hathynn/warehouse-mobile-sub001/internal/channel"
)

func TestSnapshotStartsLoggedOut(t *testing.T) {
	s := NewStore()
	if s.Snapshot().Active() {
		t.Error("fresh store should not be active")
	}
}

func TestWatchersRunSynchronously(t *testing.T) {
	s := NewStore()

	var seen []Session
	cancel := s.Watch(func(next Session) {
		seen = append(seen, next)
	})
	defer cancel()

	s.Login("42", channel.RoleStaff)
	if len(seen) != 1 {
		t.Fatalf("watcher not called synchronously: %d calls", len(seen))
	}
	if !seen[0].Active() || seen[0].AccountID != "42" {
		t.Errorf("unexpected session %+v", seen[0])
	}

	s.BeginLogout()
	if len(seen) != 2 || seen[1].Active() {
		t.Fatalf("logout-start must deactivate the session before Set returns: %+v", seen)
	}

	s.Logout()
	if len(seen) != 3 || seen[2].IsLoggedIn {
		t.Fatalf("logout must clear the identity: %+v", seen)
	}
}

func TestWatchCancel(t *testing.T) {
	s := NewStore()

	calls := 0
	cancel := s.Watch(func(Session) { calls++ })

	s.Login("1", channel.RoleAdmin)
	cancel()
	cancel() // idempotent
	s.Logout()

	if calls != 1 {
		t.Errorf("cancelled watcher still invoked: %d calls", calls)
	}
}

func TestActiveFlags(t *testing.T) {
	cases := []struct {
		name string
		s    Session
		want bool
	}{
		{"logged in", Session{IsLoggedIn: true}, true},
		{"logging out", Session{IsLoggedIn: true, IsLoggingOut: true}, false},
		{"logged out", Session{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.s.Active(); got != tc.want {
				t.Errorf("Active() = %v, want %v", got, tc.want)
			}
		})
	}
}
