package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{"accept pending", BookingStatusPending, BookingStatusAccepted, true},
		{"reject pending", BookingStatusPending, BookingStatusRejected, true},
		{"pay accepted", BookingStatusAccepted, BookingStatusPaid, true},
		{"complete paid", BookingStatusPaid, BookingStatusCompleted, true},
		{"cancel pending", BookingStatusPending, BookingStatusCancelled, true},
		{"cancel accepted", BookingStatusAccepted, BookingStatusCancelled, true},
		{"accept accepted", BookingStatusAccepted, BookingStatusAccepted, false},
		{"reject accepted", BookingStatusAccepted, BookingStatusRejected, false},
		{"pay pending", BookingStatusPending, BookingStatusPaid, false},
		{"complete accepted", BookingStatusAccepted, BookingStatusCompleted, false},
		{"cancel paid", BookingStatusPaid, BookingStatusCancelled, false},
		{"back to pending", BookingStatusCompleted, BookingStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransitionActor(t *testing.T) {
	actor, ok := TransitionActor(BookingStatusAccepted, BookingStatusPaid)
	require.True(t, ok)
	assert.Equal(t, RoleCustomer, actor)

	actor, ok = TransitionActor(BookingStatusPaid, BookingStatusCompleted)
	require.True(t, ok)
	assert.Equal(t, RoleProfessional, actor)

	_, ok = TransitionActor(BookingStatusRejected, BookingStatusPaid)
	assert.False(t, ok)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, BookingStatusRejected.IsTerminal())
	assert.True(t, BookingStatusCompleted.IsTerminal())
	assert.True(t, BookingStatusCancelled.IsTerminal())
	assert.False(t, BookingStatusPending.IsTerminal())
	assert.False(t, BookingStatusAccepted.IsTerminal())
	assert.False(t, BookingStatusPaid.IsTerminal())
}

func TestSourcesFor(t *testing.T) {
	assert.ElementsMatch(t, []BookingStatus{BookingStatusPending, BookingStatusAccepted}, SourcesFor(BookingStatusCancelled))
	assert.Equal(t, []BookingStatus{BookingStatusPaid}, SourcesFor(BookingStatusCompleted))
}

func TestParseBookingStatus(t *testing.T) {
	st, err := ParseBookingStatus(" paid ")
	require.NoError(t, err)
	assert.Equal(t, BookingStatusPaid, st)

	_, err = ParseBookingStatus("SHIPPED")
	assert.Error(t, err)
}

func TestComputeAverage(t *testing.T) {
	avg, count := ComputeAverage(nil)
	assert.Zero(t, avg)
	assert.Zero(t, count)

	avg, count = ComputeAverage([]int{5})
	assert.Equal(t, 5.0, avg)
	assert.Equal(t, 1, count)

	avg, count = ComputeAverage([]int{5, 4, 2})
	assert.InDelta(t, 11.0/3.0, avg, 1e-9)
	assert.Equal(t, 3, count)
}

func TestSplitAndJoinList(t *testing.T) {
	assert.Equal(t, []string{"Wiring", "Lighting", "Inverters"}, SplitList(" Wiring, Lighting,,Inverters "))
	assert.Equal(t, []string{}, SplitList(""))
	assert.Equal(t, "Electrical,Plumbing", JoinList([]string{" Electrical ", "", "Plumbing"}))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("professional")
	require.NoError(t, err)
	assert.Equal(t, RoleProfessional, r)

	_, err = ParseRole("superuser")
	assert.Error(t, err)
}

func TestBooking_PaymentKey(t *testing.T) {
	b := &Booking{ID: "b-1"}
	assert.Equal(t, "booking-b-1", b.PaymentKey())

	b.PaymentAttempts = 2
	assert.Equal(t, "booking-b-1-2", b.PaymentKey())
}
