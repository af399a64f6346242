package models

import "testing"

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name   string
		from   string
		to     string
		wantOK bool
	}{
		{"pending to approved", BookingStatusPending, BookingStatusApproved, true},
		{"pending to rejected", BookingStatusPending, BookingStatusRejected, true},
		{"pending to cancelled", BookingStatusPending, BookingStatusCancelled, true},
		{"approved to cancelled", BookingStatusApproved, BookingStatusCancelled, true},
		{"approved to rejected", BookingStatusApproved, BookingStatusRejected, false},
		{"approved to pending", BookingStatusApproved, BookingStatusPending, false},
		{"rejected is terminal", BookingStatusRejected, BookingStatusApproved, false},
		{"cancelled is terminal", BookingStatusCancelled, BookingStatusPending, false},
		{"unknown status", "limbo", BookingStatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Booking{Status: tt.from}
			if got := b.CanTransitionTo(tt.to); got != tt.wantOK {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.wantOK)
			}
		})
	}
}

func TestHoldsSeat(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{BookingStatusPending, true},
		{BookingStatusApproved, true},
		{BookingStatusRejected, false},
		{BookingStatusCancelled, false},
	}

	for _, tt := range tests {
		b := &Booking{Status: tt.status}
		if got := b.HoldsSeat(); got != tt.want {
			t.Errorf("HoldsSeat() for %s = %v, want %v", tt.status, got, tt.want)
		}
	}
}
