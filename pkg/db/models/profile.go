package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/safelink-ng/safelink-backend/pkg/enums"
)

// Profile mirrors the marketplace-relevant slice of an identity-provider
// user: its role plus the bank details settlements and refunds pay out to.
// The ID is the provider's subject.
type Profile struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Role          enums.ProfileRole `gorm:"column:role;not null" json:"role"`
	Email         string            `gorm:"column:email;not null" json:"email"`
	AccountName   *string           `gorm:"column:account_name" json:"account_name,omitempty"`
	AccountNumber *string           `gorm:"column:account_number" json:"account_number,omitempty"`
	BankName      *string           `gorm:"column:bank_name" json:"bank_name,omitempty"`
	BankCode      *string           `gorm:"column:bank_code" json:"bank_code,omitempty"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// HasPayoutDetails reports whether the profile carries everything a bank
// transfer needs.
func (p *Profile) HasPayoutDetails() bool {
	if p == nil {
		return false
	}
	return notBlank(p.AccountName) && notBlank(p.AccountNumber) && notBlank(p.BankCode)
}

func notBlank(s *string) bool {
	return s != nil && *s != ""
}
