package domain

import "testing"

func TestNormalizeEmail(t *testing.T) {
	tests := map[string]string{
		"":                       "",
		"   ":                    "",
		"Alice@Example.COM":      "alice@example.com",
		"  bob@example.com \t\n": "bob@example.com",
	}
	for in, want := range tests {
		if got := NormalizeEmail(in); got != want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUser_Apply(t *testing.T) {
	u := &User{Username: "alice", Email: "old@example.com"}

	u.Apply(UserUpdate{Email: " New@Example.com "})
	if u.Email != "new@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}

	u.Apply(UserUpdate{})
	if u.Email != "" {
		t.Fatalf("expected email cleared, got %q", u.Email)
	}
}

func TestUser_View(t *testing.T) {
	u := &User{ID: 3, Username: "alice", PasswordHash: "secret", CommentKarma: 2, PostKarma: -1, IsAdmin: true}
	v := u.View()
	if v.ID != 3 || v.Username != "alice" || v.CommentKarma != 2 || v.PostKarma != -1 || !v.IsAdmin {
		t.Fatalf("unexpected view %+v", v)
	}
}
