package domain_test

import (
	"testing"

	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	goodRow = "INSTR-1,GB82WEST12345698765432,100.00"
	badRow  = "INSTR-2,GB82WEST12345698765423,50.50"
)

func TestParseBulkFile(t *testing.T) {
	t.Run("valid rows are accepted", func(t *testing.T) {
		items, err := domain.ParseBulkFile([]byte("instruction_id,payee_iban,amount\r\n"+goodRow+"\n\n"), domain.IntegrityPartialRejection)

		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, domain.BulkItemAccepted, items[0].Status)
		assert.Equal(t, 1, items[0].LineNumber)
	})

	t.Run("invalid iban rejects only its row", func(t *testing.T) {
		items, err := domain.ParseBulkFile([]byte("instruction_id,payee_iban,amount\n"+goodRow+"\n"+badRow), domain.IntegrityPartialRejection)

		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, domain.BulkItemAccepted, items[0].Status)
		assert.Equal(t, domain.BulkItemRejected, items[1].Status)
		assert.Equal(t, "invalid iban", items[1].Reason)
	})

	t.Run("full rejection mode rejects everything", func(t *testing.T) {
		items, err := domain.ParseBulkFile([]byte("instruction_id,payee_iban,amount\n"+goodRow+"\n"+badRow), domain.IntegrityFullRejection)

		require.NoError(t, err)
		for _, item := range items {
			assert.Equal(t, domain.BulkItemRejected, item.Status)
		}
	})

	schemaFailures := map[string]string{
		"wrong header":    "id,iban,amount\n" + goodRow,
		"missing column":  "instruction_id,payee_iban,amount\nINSTR-1,GB82WEST12345698765432",
		"blank column":    "instruction_id,payee_iban,amount\nINSTR-1, ,1.00",
		"negative amount": "instruction_id,payee_iban,amount\nINSTR-1,GB82WEST12345698765432,-1",
		"text amount":     "instruction_id,payee_iban,amount\nINSTR-1,GB82WEST12345698765432,ten",
	}
	for name, content := range schemaFailures {
		t.Run(name, func(t *testing.T) {
			_, err := domain.ParseBulkFile([]byte(content), domain.IntegrityPartialRejection)
			assert.ErrorIs(t, err, domain.ErrBusinessRule)
			assert.Contains(t, err.Error(), "schema validation failed")
		})
	}

	t.Run("header only is empty", func(t *testing.T) {
		_, err := domain.ParseBulkFile([]byte("instruction_id,payee_iban,amount\n\n"), domain.IntegrityPartialRejection)
		assert.ErrorIs(t, err, domain.ErrBusinessRule)
		assert.Contains(t, err.Error(), "empty payload")
	})
}

func TestBulkFile_Poll(t *testing.T) {
	items, err := domain.ParseBulkFile([]byte("instruction_id,payee_iban,amount\n"+goodRow+"\n"+badRow), domain.IntegrityPartialRejection)
	require.NoError(t, err)

	file, err := domain.NewBulkFile("BULK-1", "TPP-1", "CONS-1", "payroll.csv", "hash", domain.IntegrityPartialRejection, items, t0)
	require.NoError(t, err)

	assert.Equal(t, domain.BulkProcessing, file.Status)
	assert.Equal(t, domain.BulkPartiallyAccepted, file.TargetStatus)
	assert.Equal(t, 1, file.AcceptedCount)
	assert.Equal(t, 1, file.RejectedCount)
	assert.True(t, decimal.RequireFromString("150.50").Equal(file.TotalAmount))

	first, changed := file.Poll(2, t0)
	assert.True(t, changed)
	assert.Equal(t, domain.BulkProcessing, first.Status)

	second, changed := first.Poll(2, t0)
	assert.True(t, changed)
	assert.Equal(t, domain.BulkPartiallyAccepted, second.Status)

	third, changed := second.Poll(2, t0)
	assert.False(t, changed)
	assert.Equal(t, second, third)

	assert.Equal(t, domain.BulkProcessing, first.Report().Status)

	report := second.Report()
	assert.Equal(t, 2, report.TotalCount)
	assert.Equal(t, domain.BulkPartiallyAccepted, report.Status)
}

func TestBulkContentHash(t *testing.T) {
	hash := domain.BulkContentHash([]byte("abc"))

	assert.Equal(t, "ungWv48Bz-pBQUDeXa4iI7ADYaOWF3qctBD_YfIAFa0", hash)
}
