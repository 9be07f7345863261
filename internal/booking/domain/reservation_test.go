package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReservationInput_Validate(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		in      NewReservationInput
		wantErr error
	}{
		{
			name: "valid",
			in: NewReservationInput{
				UserID: "u1", RoomID: "r1",
				StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 3),
			},
			wantErr: nil,
		},
		{
			name:    "missing user",
			in:      NewReservationInput{RoomID: "r1", StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 2)},
			wantErr: ErrInvalidUserID,
		},
		{
			name:    "missing room",
			in:      NewReservationInput{UserID: "u1", StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 2)},
			wantErr: ErrInvalidRoomID,
		},
		{
			name: "inverted interval",
			in: NewReservationInput{
				UserID: "u1", RoomID: "r1",
				StartDate: now.AddDate(0, 0, 3), EndDate: now.AddDate(0, 0, 1),
			},
			wantErr: ErrInvalidInterval,
		},
		{
			name: "start in past",
			in: NewReservationInput{
				UserID: "u1", RoomID: "r1",
				StartDate: now.AddDate(0, 0, -1), EndDate: now.AddDate(0, 0, 1),
			},
			wantErr: ErrStartInPast,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate(now)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestReservation_ConfirmCancel(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	in := NewReservationInput{UserID: "u1", RoomID: "r1", StartDate: now.AddDate(0, 0, 1), EndDate: now.AddDate(0, 0, 2), RequestID: "req-1"}
	r := NewPending("res-1", in, "corr-1", now)

	confirmed, err := r.Confirm()
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.True(t, confirmed.IsTerminal())

	_, err = confirmed.Confirm()
	assert.ErrorIs(t, err, ErrAlreadyTerminal)

	cancelled, err := r.Cancel()
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = cancelled.Cancel()
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}
