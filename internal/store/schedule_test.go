package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scheduleStart = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func TestFlatScheduleSumsExactly(t *testing.T) {
	// 100,000.00 at 12% for 12 months: flat interest = 12,000.00.
	installments, err := GenerateSchedule(10_000_000, 1200, 12, MethodFlat, scheduleStart)
	require.NoError(t, err)
	require.Len(t, installments, 12)

	var principal, interest int64
	for _, in := range installments {
		principal += in.PrincipalDue
		interest += in.InterestDue
		assert.Equal(t, in.PrincipalDue+in.InterestDue, in.TotalDue)
	}
	assert.Equal(t, int64(10_000_000), principal)
	assert.Equal(t, int64(1_200_000), interest)
	assert.Equal(t, int64(11_200_000), ScheduleTotal(installments))
}

func TestFlatScheduleFoldsRemainderIntoFinalInstallment(t *testing.T) {
	// 1,000.01 over 7 months does not divide evenly.
	installments, err := GenerateSchedule(100_001, 1000, 7, MethodFlat, scheduleStart)
	require.NoError(t, err)

	var principal int64
	for _, in := range installments {
		principal += in.PrincipalDue
	}
	assert.Equal(t, int64(100_001), principal)

	// Every installment except the last carries the even share.
	per := int64(100_001) / 7
	for _, in := range installments[:6] {
		assert.Equal(t, per, in.PrincipalDue)
	}
	assert.Greater(t, installments[6].PrincipalDue, per)
}

func TestDecliningBalanceInterestShrinks(t *testing.T) {
	installments, err := GenerateSchedule(12_000_000, 2400, 12, MethodDecliningBalance, scheduleStart)
	require.NoError(t, err)
	require.Len(t, installments, 12)

	// 2% per month on the outstanding balance: first month on the full
	// principal, decreasing after each principal portion.
	assert.Equal(t, int64(240_000), installments[0].InterestDue)
	for i := 1; i < len(installments); i++ {
		assert.Less(t, installments[i].InterestDue, installments[i-1].InterestDue,
			"interest must decrease month over month")
	}

	var principal int64
	for _, in := range installments {
		principal += in.PrincipalDue
	}
	assert.Equal(t, int64(12_000_000), principal)
}

func TestScheduleDueDatesAreMonthly(t *testing.T) {
	installments, err := GenerateSchedule(600_000, 1500, 6, MethodFlat, scheduleStart)
	require.NoError(t, err)

	for i, in := range installments {
		assert.Equal(t, i+1, in.Sequence)
		assert.Equal(t, scheduleStart.AddDate(0, i+1, 0), in.DueDate)
	}
}

func TestZeroInterestLoan(t *testing.T) {
	installments, err := GenerateSchedule(300_000, 0, 3, MethodDecliningBalance, scheduleStart)
	require.NoError(t, err)

	for _, in := range installments {
		assert.Zero(t, in.InterestDue)
	}
	assert.Equal(t, int64(300_000), ScheduleTotal(installments))
}

func TestGenerateScheduleValidation(t *testing.T) {
	cases := []struct {
		name      string
		principal int64
		rate      int
		term      int
		method    string
	}{
		{"zero principal", 0, 1200, 12, MethodFlat},
		{"negative rate", 100_000, -1, 12, MethodFlat},
		{"zero term", 100_000, 1200, 0, MethodFlat},
		{"unknown method", 100_000, 1200, 12, "compound"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GenerateSchedule(tc.principal, tc.rate, tc.term, tc.method, scheduleStart)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
