package core

import (
	"errors"
	"testing"
)

func TestAdmit(t *testing.T) {
	tests := []struct {
		name      string
		candidate Role
		empty     bool
		history   History
		want      Action
		wantErr   error
	}{
		{"system into empty", RoleSystem, false, History{}, ActionInsertContext, nil},
		{"system before user", RoleSystem, false, History{HasLast: true, LastRole: RoleUser}, ActionInsertContext, nil},
		{"system replaces context", RoleSystem, false, History{HasLast: true, LastRole: RoleSystem, HasContext: true}, ActionReplaceContext, nil},
		{"empty system removes context", RoleSystem, true, History{HasLast: true, LastRole: RoleSystem, HasContext: true}, ActionRemoveContext, nil},
		{"empty system without context", RoleSystem, true, History{}, ActionNone, nil},
		{"user into empty", RoleUser, false, History{}, ActionAppend, nil},
		{"user after system", RoleUser, false, History{HasLast: true, LastRole: RoleSystem, HasContext: true}, ActionAppend, nil},
		{"user after assistant", RoleUser, false, History{HasLast: true, LastRole: RoleAssistant}, ActionAppend, nil},
		{"user after user", RoleUser, false, History{HasLast: true, LastRole: RoleUser}, ActionNone, ErrAdjacentRole},
		{"assistant after user", RoleAssistant, false, History{HasLast: true, LastRole: RoleUser}, ActionAppend, nil},
		{"assistant after assistant", RoleAssistant, true, History{HasLast: true, LastRole: RoleAssistant}, ActionNone, ErrAdjacentRole},
		{"assistant into empty", RoleAssistant, false, History{}, ActionAppend, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Admit(tt.candidate, tt.empty, tt.history)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				var are *AdjacentRoleError
				if !errors.As(err, &are) || are.Role != tt.candidate {
					t.Fatalf("expected *AdjacentRoleError for %s, got %#v", tt.candidate, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestAdmit_UnknownRole(t *testing.T) {
	if _, err := Admit(Role("tool"), false, History{}); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"system", "user", "assistant"} {
		r, err := ParseRole(s)
		if err != nil || r.String() != s {
			t.Fatalf("ParseRole(%q) = %v, %v", s, r, err)
		}
	}
	if _, err := ParseRole("robot"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
