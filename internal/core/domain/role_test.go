package domain

import (
	"errors"
	"testing"
	"time"
)

func TestValidRoleKey(t *testing.T) {
	for _, k := range []string{"ADMIN", "viewer_2", "a"} {
		if !ValidRoleKey(k) {
			t.Fatalf("%q should be valid", k)
		}
	}
	for _, k := range []string{"", "role-x", "has space", "menu:user"} {
		if ValidRoleKey(k) {
			t.Fatalf("%q should be invalid", k)
		}
	}
}

func TestRole_Grants(t *testing.T) {
	if !(&Role{IsActive: true}).Grants() {
		t.Fatalf("active role should grant")
	}
	if (&Role{IsActive: true, IsDeleted: true}).Grants() {
		t.Fatalf("deleted role must not grant")
	}
	if (&Role{}).Grants() {
		t.Fatalf("inactive role must not grant")
	}
}

func TestUserRole_Live(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if !(UserRole{}).Live(now) {
		t.Fatalf("assignment without expiry is live")
	}
	if (UserRole{ExpiresAt: &past}).Live(now) {
		t.Fatalf("expired assignment is not live")
	}
	if !(UserRole{ExpiresAt: &future}).Live(now) {
		t.Fatalf("future expiry is live")
	}
}

func TestUser_CanAct(t *testing.T) {
	u := &User{IsActive: true, Status: UserActive}
	if !u.CanAct() {
		t.Fatalf("active user should act")
	}
	for _, blocked := range []*User{
		{IsActive: false, Status: UserActive},
		{IsActive: true, Status: UserSuspended},
		{IsActive: true, Status: UserActive, IsDeleted: true},
		nil,
	} {
		if blocked.CanAct() {
			t.Fatalf("user %+v must not act", blocked)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{ErrRoleInUse, ErrConflict},
		{ErrMenuCycle, ErrConflict},
		{ErrRoleNotFound, ErrNotFound},
		{ErrInvalidRoleKey, ErrValidation},
		{ErrInvalidCredentials, ErrUnauthorized},
		{ErrUserInactive, ErrForbidden},
		{Invalid("bad"), ErrValidation},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.kind) {
			t.Fatalf("%v should be %v", tc.err, tc.kind)
		}
	}
}
