package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("resource already exists")
	ErrValidation        = errors.New("invalid input")
	QueryTimeoutDuration = time.Second * 5
)

type Storage struct {
	Users interface {
		GetByID(context.Context, int64) (*User, error)
		GetByEmail(context.Context, string) (*User, error)
		CreateAndInvite(ctx context.Context, user *User, invitationToken string, exp time.Duration) error
		Activate(ctx context.Context, token string) error
		UpdateRefreshToken(ctx context.Context, userID int64, hashedToken string) error
		ClearRefreshToken(ctx context.Context, userID int64) error
		ListByOrganization(ctx context.Context, orgID int64) ([]StaffMember, error)
		Delete(ctx context.Context, userID int64) error
	}
	Organizations interface {
		Create(context.Context, *Organization) error
		GetByID(context.Context, int64) (*Organization, error)
		ListIDs(context.Context) ([]int64, error)
	}
	Customers interface {
		Create(context.Context, *Customer) error
		GetByID(ctx context.Context, orgID, customerID int64) (*Customer, error)
		List(ctx context.Context, orgID int64, filter CustomerFilter) ([]Customer, error)
		Update(ctx context.Context, c *Customer) error
		Delete(ctx context.Context, orgID, customerID int64) error
	}
	Loans interface {
		Create(context.Context, *Loan) error
		GetByID(ctx context.Context, orgID, loanID int64) (*Loan, error)
		List(ctx context.Context, orgID int64, filter LoanFilter) ([]Loan, error)
		Approve(ctx context.Context, orgID, loanID, approvedBy int64) error
		Disburse(ctx context.Context, orgID, loanID int64, disbursedAt time.Time, installments []Installment) error
		UpdateStatus(ctx context.Context, orgID, loanID int64, from, to string) error
		Delete(ctx context.Context, orgID, loanID int64) error
		GetSchedule(ctx context.Context, orgID, loanID int64) ([]ScheduleEntry, error)
		DueInstallments(ctx context.Context, orgID int64, by time.Time) ([]DueInstallment, error)
	}
	Repayments interface {
		Record(context.Context, *Repayment) error
		ListByLoan(ctx context.Context, orgID, loanID int64) ([]Repayment, error)
	}
	Transactions interface {
		Create(context.Context, *Transaction) error
		List(ctx context.Context, orgID int64, filter TransactionFilter) ([]Transaction, error)
		Delete(ctx context.Context, orgID, txID int64) error
		Summary(ctx context.Context, orgID int64, from, to time.Time) (*TransactionSummary, error)
	}
	BankAccounts interface {
		Create(context.Context, *BankAccount) error
		GetByID(ctx context.Context, orgID, accountID int64) (*BankAccount, error)
		List(ctx context.Context, orgID int64) ([]BankAccount, error)
		Update(ctx context.Context, a *BankAccount) error
		Delete(ctx context.Context, orgID, accountID int64) error
	}
	PushTokens interface {
		Upsert(ctx context.Context, userID int64, token, platform string) error
		Delete(ctx context.Context, userID int64, token string) error
		ListByOrganization(ctx context.Context, orgID int64) ([]string, error)
	}
	Dashboard interface {
		Overview(ctx context.Context, orgID int64) (*DashboardOverview, error)
	}
}

func NewStorage(db *pgxpool.Pool) Storage {
	return Storage{
		Users:         &UsersStore{db},
		Organizations: &OrganizationsStore{db},
		Customers:     &CustomersStore{db},
		Loans:         &LoansStore{db},
		Repayments:    &RepaymentsStore{db},
		Transactions:  &TransactionsStore{db},
		BankAccounts:  &BankAccountsStore{db},
		PushTokens:    &PushTokensStore{db},
		Dashboard:     &DashboardStore{db},
	}
}
