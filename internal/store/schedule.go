package store

import (
	"fmt"
	"time"
)

// Interest methods supported by the loan book.
const (
	MethodFlat             = "flat"
	MethodDecliningBalance = "declining_balance"
)

// Installment is one generated schedule line. All amounts are in minor
// currency units (paisa).
type Installment struct {
	Sequence     int       `json:"sequence"`
	DueDate      time.Time `json:"due_date"`
	PrincipalDue int64     `json:"principal_due"`
	InterestDue  int64     `json:"interest_due"`
	TotalDue     int64     `json:"total_due"`
}

// GenerateSchedule produces the monthly repayment schedule for a loan.
//
// Flat: total interest = principal * rate * term/12, split evenly across
// installments. Declining balance: each month's interest is charged on the
// principal still outstanding, with equal principal portions. Division
// remainders are folded into the final installment so the schedule always
// sums exactly to principal plus computed interest.
func GenerateSchedule(principal int64, annualRateBPS int, termMonths int, method string, startDate time.Time) ([]Installment, error) {
	if principal <= 0 {
		return nil, fmt.Errorf("%w: principal must be positive", ErrValidation)
	}
	if annualRateBPS < 0 {
		return nil, fmt.Errorf("%w: interest rate cannot be negative", ErrValidation)
	}
	if termMonths <= 0 {
		return nil, fmt.Errorf("%w: term must be at least one month", ErrValidation)
	}

	switch method {
	case MethodFlat:
		return flatSchedule(principal, annualRateBPS, termMonths, startDate), nil
	case MethodDecliningBalance:
		return decliningSchedule(principal, annualRateBPS, termMonths, startDate), nil
	default:
		return nil, fmt.Errorf("%w: unknown interest method %q", ErrValidation, method)
	}
}

func flatSchedule(principal int64, annualRateBPS, termMonths int, startDate time.Time) []Installment {
	totalInterest := principal * int64(annualRateBPS) * int64(termMonths) / (10000 * 12)

	principalPer := principal / int64(termMonths)
	interestPer := totalInterest / int64(termMonths)

	installments := make([]Installment, termMonths)
	var paidPrincipal, paidInterest int64
	for i := 0; i < termMonths; i++ {
		p, in := principalPer, interestPer
		if i == termMonths-1 {
			p = principal - paidPrincipal
			in = totalInterest - paidInterest
		}
		paidPrincipal += p
		paidInterest += in
		installments[i] = Installment{
			Sequence:     i + 1,
			DueDate:      startDate.AddDate(0, i+1, 0),
			PrincipalDue: p,
			InterestDue:  in,
			TotalDue:     p + in,
		}
	}
	return installments
}

func decliningSchedule(principal int64, annualRateBPS, termMonths int, startDate time.Time) []Installment {
	principalPer := principal / int64(termMonths)

	installments := make([]Installment, termMonths)
	outstanding := principal
	var paidPrincipal int64
	for i := 0; i < termMonths; i++ {
		p := principalPer
		if i == termMonths-1 {
			p = principal - paidPrincipal
		}
		interest := outstanding * int64(annualRateBPS) / (10000 * 12)

		installments[i] = Installment{
			Sequence:     i + 1,
			DueDate:      startDate.AddDate(0, i+1, 0),
			PrincipalDue: p,
			InterestDue:  interest,
			TotalDue:     p + interest,
		}
		paidPrincipal += p
		outstanding -= p
	}
	return installments
}

// ScheduleTotal sums the total due across installments.
func ScheduleTotal(installments []Installment) int64 {
	var total int64
	for _, in := range installments {
		total += in.TotalDue
	}
	return total
}
