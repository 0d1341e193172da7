package store

import (
	"fmt"

	"github.com/speps/go-hashids/v2"
)

// LoanReferenceGenerator produces short, non-sequential-looking loan
// references like "LN-8K3JQ2M". The encoding is deterministic per
// (organization, sequence) pair; callers feed a fresh sequence (a millisecond
// timestamp) per create attempt, and the unique constraint on
// loans.reference rejects the rare collision.
type LoanReferenceGenerator struct {
	h *hashids.HashID
}

func NewLoanReferenceGenerator(salt string) (*LoanReferenceGenerator, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = 7
	data.Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789" // no 0/O, 1/I/L

	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, err
	}
	return &LoanReferenceGenerator{h: h}, nil
}

func (g *LoanReferenceGenerator) Generate(orgID, sequence int64) (string, error) {
	code, err := g.h.EncodeInt64([]int64{orgID, sequence})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("LN-%s", code), nil
}
