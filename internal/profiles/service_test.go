package profiles

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/safelink-ng/safelink-backend/pkg/enums"
	apperrors "github.com/safelink-ng/safelink-backend/pkg/errors"
	"github.com/safelink-ng/safelink-backend/pkg/logger"
	"github.com/safelink-ng/safelink-backend/pkg/paystack"
)

func setupProfilesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  role TEXT NOT NULL,
  email TEXT NOT NULL,
  account_name TEXT,
  account_number TEXT,
  bank_name TEXT,
  bank_code TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newProfilesService(t *testing.T) (Service, Repository) {
	t.Helper()

	repo := NewRepository(setupProfilesTestDB(t))
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Gateway: paystack.NewSandbox(),
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
	})
	require.NoError(t, err)
	return svc, repo
}

func TestUpsertBankDetailsStoresResolvedName(t *testing.T) {
	svc, repo := newProfilesService(t)
	ctx := context.Background()

	id := uuid.New()
	profile, err := svc.UpsertBankDetails(ctx, id, enums.ProfileRoleVendor, "vendor@example.com", BankDetailsInput{
		AccountNumber: "0123456789",
		BankCode:      "058",
		BankName:      "GTBank",
	})
	require.NoError(t, err)

	// The stored name is the bank's, not whatever the caller typed.
	require.NotNil(t, profile.AccountName)
	assert.Equal(t, "SANDBOX ACCOUNT", *profile.AccountName)
	assert.True(t, profile.HasPayoutDetails())

	stored, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, enums.ProfileRoleVendor, stored.Role)
	require.NotNil(t, stored.AccountNumber)
	assert.Equal(t, "0123456789", *stored.AccountNumber)
}

func TestUpsertBankDetailsReplacesExisting(t *testing.T) {
	svc, repo := newProfilesService(t)
	ctx := context.Background()

	id := uuid.New()
	_, err := svc.UpsertBankDetails(ctx, id, enums.ProfileRoleVendor, "vendor@example.com", BankDetailsInput{
		AccountNumber: "0123456789",
		BankCode:      "058",
		BankName:      "GTBank",
	})
	require.NoError(t, err)

	_, err = svc.UpsertBankDetails(ctx, id, enums.ProfileRoleVendor, "vendor@example.com", BankDetailsInput{
		AccountNumber: "9876543210",
		BankCode:      "044",
		BankName:      "Access Bank",
	})
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored.AccountNumber)
	assert.Equal(t, "9876543210", *stored.AccountNumber)
	require.NotNil(t, stored.BankCode)
	assert.Equal(t, "044", *stored.BankCode)
}

func TestUpsertBankDetailsValidation(t *testing.T) {
	svc, _ := newProfilesService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		role  enums.ProfileRole
		input BankDetailsInput
	}{
		{"short account number", enums.ProfileRoleVendor, BankDetailsInput{AccountNumber: "12345", BankCode: "058", BankName: "GTBank"}},
		{"non numeric account", enums.ProfileRoleVendor, BankDetailsInput{AccountNumber: "01234abcde", BankCode: "058", BankName: "GTBank"}},
		{"missing bank code", enums.ProfileRoleVendor, BankDetailsInput{AccountNumber: "0123456789", BankName: "GTBank"}},
		{"missing bank name", enums.ProfileRoleVendor, BankDetailsInput{AccountNumber: "0123456789", BankCode: "058"}},
		{"unknown role", enums.ProfileRole("admin"), BankDetailsInput{AccountNumber: "0123456789", BankCode: "058", BankName: "GTBank"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpsertBankDetails(ctx, uuid.New(), tc.role, "user@example.com", tc.input)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "got %v", err)
		})
	}
}

func TestGetUnknownProfile(t *testing.T) {
	svc, _ := newProfilesService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound), "got %v", err)
}

func TestResolveAccountPassthrough(t *testing.T) {
	svc, _ := newProfilesService(t)
	ctx := context.Background()

	res, err := svc.ResolveAccount(ctx, "0123456789", "058")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", res.AccountNumber)

	_, err = svc.ResolveAccount(ctx, "", "058")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "got %v", err)
}
