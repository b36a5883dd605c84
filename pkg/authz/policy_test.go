package authz

import "testing"

func TestScopeFor(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		callerID string
		wantAll  bool
		wantUser string
	}{
		{"admin is unrestricted", RoleAdmin, "u1", true, ""},
		{"user is restricted to own rows", RoleUser, "u1", false, "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope := ScopeFor(tt.role, tt.callerID)
			if scope.All != tt.wantAll {
				t.Errorf("All = %v, want %v", scope.All, tt.wantAll)
			}
			if scope.UserID != tt.wantUser {
				t.Errorf("UserID = %q, want %q", scope.UserID, tt.wantUser)
			}
		})
	}
}

func TestScope_Discriminator(t *testing.T) {
	if got := (Scope{All: true}).Discriminator(); got != "ALL" {
		t.Errorf("admin discriminator = %q, want ALL", got)
	}
	if got := (Scope{UserID: "u42"}).Discriminator(); got != "u42" {
		t.Errorf("user discriminator = %q, want u42", got)
	}
}

func TestCanView(t *testing.T) {
	tests := []struct {
		name         string
		role         Role
		callerID     string
		createdByID  string
		assignedToID string
		want         bool
	}{
		{"admin sees everything", RoleAdmin, "u9", "u1", "u2", true},
		{"creator sees own task", RoleUser, "u1", "u1", "u2", true},
		{"assignee sees assigned task", RoleUser, "u2", "u1", "u2", true},
		{"unrelated user is denied", RoleUser, "u3", "u1", "u2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanView(tt.role, tt.callerID, tt.createdByID, tt.assignedToID)
			if got != tt.want {
				t.Errorf("CanView = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanModify_MatchesCanView(t *testing.T) {
	// Update permission follows the view rule, including for assignees.
	if !CanModify(RoleUser, "u2", "u1", "u2") {
		t.Error("assignee should be allowed to modify")
	}
	if CanModify(RoleUser, "u3", "u1", "u2") {
		t.Error("unrelated user should not be allowed to modify")
	}
}

func TestCanDelete(t *testing.T) {
	tests := []struct {
		name        string
		role        Role
		callerID    string
		createdByID string
		want        bool
	}{
		{"admin may delete", RoleAdmin, "u9", "u1", true},
		{"creator may delete", RoleUser, "u1", "u1", true},
		{"assignee without creator rights may not", RoleUser, "u2", "u1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanDelete(tt.role, tt.callerID, tt.createdByID); got != tt.want {
				t.Errorf("CanDelete = %v, want %v", got, tt.want)
			}
		})
	}
}
