package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/shopledger/internal/errs"
)

func TestTypeForCode(t *testing.T) {
	tests := []struct {
		code    string
		want    AccountType
		wantErr bool
	}{
		{code: "1000", want: AccountTypeAsset},
		{code: "2100", want: AccountTypeLiability},
		{code: "3000", want: AccountTypeEquity},
		{code: "4000", want: AccountTypeRevenue},
		{code: "5130", want: AccountTypeExpense},
		{code: "6000", wantErr: true},
		{code: "0100", wantErr: true},
		{code: "12a0", wantErr: true},
		{code: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := TypeForCode(tt.code)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errs.ErrInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateCodeMismatch(t *testing.T) {
	a := Account{Code: "4000", Type: AccountTypeExpense}
	err := a.ValidateCode()
	require.Error(t, err)
	var ve *errs.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "code", ve.Field)

	a.Type = AccountTypeRevenue
	assert.NoError(t, a.ValidateCode())
}

func TestNormalBalanceTable(t *testing.T) {
	assert.Equal(t, SideDebit, AccountTypeAsset.NormalBalance())
	assert.Equal(t, SideCredit, AccountTypeLiability.NormalBalance())
	assert.Equal(t, SideCredit, AccountTypeEquity.NormalBalance())
	assert.Equal(t, SideCredit, AccountTypeRevenue.NormalBalance())
	assert.Equal(t, SideDebit, AccountTypeExpense.NormalBalance())
	assert.Equal(t, SideDebit, AccountType("OTHER").NormalBalance())
}

func TestSigned(t *testing.T) {
	d := decimal.NewFromInt(150)
	c := decimal.NewFromInt(50)
	assert.True(t, AccountTypeAsset.Signed(d, c).Equal(decimal.NewFromInt(100)))
	assert.True(t, AccountTypeRevenue.Signed(d, c).Equal(decimal.NewFromInt(-100)))
}

func TestParseSideAndType(t *testing.T) {
	s, err := ParseSide(" Debit ")
	require.NoError(t, err)
	assert.Equal(t, SideDebit, s)
	assert.Equal(t, SideCredit, s.Opposite())

	_, err = ParseSide("both")
	assert.ErrorIs(t, err, errs.ErrInvalid)

	typ, err := ParseAccountType("revenue")
	require.NoError(t, err)
	assert.Equal(t, AccountTypeRevenue, typ)
}

func TestFormatTransactionNo(t *testing.T) {
	assert.Equal(t, "INV-2024-000123", FormatTransactionNo("INV", 2024, 123))
	assert.Equal(t, "SUPP-PAY-2025-000001", FormatTransactionNo("SUPP-PAY", 2025, 1))
}

func TestDecimalConversion(t *testing.T) {
	a := MustAmount("USD", 12345)
	assert.Equal(t, int64(12345), MinorUnits(a))
	assert.True(t, Decimal(a).Equal(decimal.RequireFromString("123.45")))
}

func TestSettlementStatus(t *testing.T) {
	assert.Equal(t, DocumentCredit, SettlementStatus(10000, 0))
	assert.Equal(t, DocumentPartial, SettlementStatus(10000, 4000))
	assert.Equal(t, DocumentPaid, SettlementStatus(10000, 10000))

	d := Document{Total: MustAmount("USD", 10000), Paid: MustAmount("USD", 4000), Status: DocumentPartial}
	assert.Equal(t, int64(6000), d.BalanceMinor())
	assert.True(t, d.Open())
	d.Status = DocumentVoid
	assert.False(t, d.Open())
}
