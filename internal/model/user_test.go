package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleTeacher, true},
		{RoleAdmin, RoleStudent, true},
		{RoleTeacher, RoleAdmin, false},
		{RoleTeacher, RoleTeacher, true},
		{RoleTeacher, RoleStudent, true},
		{RoleStudent, RoleAdmin, false},
		{RoleStudent, RoleTeacher, false},
		{RoleStudent, RoleStudent, true},
		// Unknown roles fail-closed.
		{"unknown", RoleStudent, false},
		{RoleAdmin, "unknown", false},
		{"", "", false},
		{"", RoleStudent, false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}

func TestCanManageStash(t *testing.T) {
	if !CanManageStash(RoleTeacher) || !CanManageStash(RoleAdmin) {
		t.Error("teachers and admins should manage stashes")
	}
	if CanManageStash(RoleStudent) {
		t.Error("students should not manage stashes")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestItemAvailable(t *testing.T) {
	limit := 5
	scarce := &Item{AmountLimit: &limit, CurrentAmount: 3}
	if !scarce.Scarce() || scarce.Available() != 2 {
		t.Errorf("expected 2 available, got %d", scarce.Available())
	}

	scarce.CurrentAmount = 7
	if scarce.Available() != 0 {
		t.Errorf("expected 0 available, got %d", scarce.Available())
	}

	plain := &Item{}
	if plain.Scarce() || plain.Available() != -1 {
		t.Errorf("expected unlimited item, got %d", plain.Available())
	}
}

func TestSwapOpen(t *testing.T) {
	for status, want := range map[string]bool{
		SwapStatusNew:       true,
		SwapStatusViewed:    true,
		SwapStatusCompleted: false,
		SwapStatusDeclined:  false,
	} {
		s := &Swap{Status: status}
		if s.Open() != want {
			t.Errorf("Swap{Status: %q}.Open() = %v, want %v", status, s.Open(), want)
		}
	}
}
