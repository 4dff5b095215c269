package core

import (
	"errors"
	"strings"
)

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

// DefaultPct is the VAT percentage applied when the form leaves it blank.
const DefaultPct = 20

type (
	Status string

	Bill struct {
		ID         string  `json:"id,omitempty"`
		Email      string  `json:"email"`
		Type       string  `json:"type"`
		Name       string  `json:"name"`
		Amount     float64 `json:"amount"`
		Date       string  `json:"date"` // ISO "YYYY-MM-DD" as stored; display form after formatting
		VAT        string  `json:"vat"`
		Pct        int     `json:"pct"`
		Commentary string  `json:"commentary"`
		FileURL    string  `json:"fileUrl"`
		FileName   string  `json:"fileName"`
		Status     Status  `json:"status"`
	}

	// User is the session record of the connected person.
	User struct {
		Type  string `json:"type"`
		Email string `json:"email"`
	}

	// ProofFile is an uploaded image evidencing an expense.
	ProofFile struct {
		Name        string
		ContentType string
		Data        []byte
	}
)

var (
	ErrBillNotFound     = errors.New("bill not found")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrEmptyEmail       = errors.New("empty email")
	ErrEmptyProof       = errors.New("empty proof file")
	ErrInvalidProofType = errors.New("invalid proof file type")
)

// ExpenseTypes lists the categories offered by the new bill form.
var ExpenseTypes = []string{
	"Transports",
	"Restaurants et bars",
	"Hôtel et logement",
	"Services en ligne",
	"IT et électronique",
	"Equipement et matériel",
	"Fournitures de bureau",
}

func (s Status) Validate() error {
	switch s {
	case StatusPending, StatusAccepted, StatusRefused:
		return nil
	}
	return ErrInvalidStatus
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Email) == "" {
		return ErrEmptyEmail
	}
	if err := b.Status.Validate(); err != nil {
		return err
	}
	return nil
}

func (p ProofFile) Validate() error {
	if len(p.Data) == 0 {
		return ErrEmptyProof
	}
	return ValidateProofName(p.Name)
}

// IsEmployee reports whether the session belongs to an employee account.
func (u User) IsEmployee() bool {
	return strings.EqualFold(u.Type, "Employee")
}
