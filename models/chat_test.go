package models

import "testing"

func TestModeCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from Mode
		to   Mode
		want bool
	}{
		{"bot to agent", ModeBot, ModeAgent, true},
		{"bot to closed", ModeBot, ModeClosed, true},
		{"agent to closed", ModeAgent, ModeClosed, true},
		{"agent to bot", ModeAgent, ModeBot, false},
		{"closed to bot", ModeClosed, ModeBot, false},
		{"closed to agent", ModeClosed, ModeAgent, false},
		{"same mode", ModeAgent, ModeAgent, true},
		{"closed to closed", ModeClosed, ModeClosed, true},
		{"unknown target", ModeBot, Mode("reopened"), false},
		{"unknown source", Mode(""), ModeBot, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%q → %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestModeValid(t *testing.T) {
	for _, m := range []Mode{ModeBot, ModeAgent, ModeClosed} {
		if !m.Valid() {
			t.Errorf("Mode %q должен быть валидным", m)
		}
	}
	for _, m := range []Mode{"", "active", "BOT"} {
		if m.Valid() {
			t.Errorf("Mode %q не должен быть валидным", m)
		}
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"customer", RoleCustomer},
		{"agent", RoleAgent},
		{"admin", RoleAdmin},
		{"", RoleUnknown},
		{"superuser", RoleUnknown},
		{"Admin", RoleUnknown},
	}

	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSenderValid(t *testing.T) {
	for _, s := range []Sender{SenderCustomer, SenderAgent, SenderBot} {
		if !s.Valid() {
			t.Errorf("Sender %q должен быть валидным", s)
		}
	}
	if Sender("user").Valid() {
		t.Error("Sender \"user\" не должен быть валидным")
	}
}
