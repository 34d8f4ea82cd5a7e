package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGstSplit(t *testing.T) {
	t.Run("explicit breakdown passes through", func(t *testing.T) {
		cgst, sgst, igst := gstSplit(money("1800.00"), money("900.00"), money("900.00"), decimal.Zero)
		assert.True(t, cgst.Equal(money("900.00")))
		assert.True(t, sgst.Equal(money("900.00")))
		assert.True(t, igst.IsZero())
	})

	t.Run("igst only passes through", func(t *testing.T) {
		cgst, sgst, igst := gstSplit(money("1800.00"), decimal.Zero, decimal.Zero, money("1800.00"))
		assert.True(t, cgst.IsZero())
		assert.True(t, sgst.IsZero())
		assert.True(t, igst.Equal(money("1800.00")))
	})

	t.Run("fallback splits total evenly", func(t *testing.T) {
		cgst, sgst, igst := gstSplit(money("1800.00"), decimal.Zero, decimal.Zero, decimal.Zero)
		assert.True(t, cgst.Equal(money("900.00")))
		assert.True(t, sgst.Equal(money("900.00")))
		assert.True(t, igst.IsZero())
	})

	t.Run("odd cent lands on cgst", func(t *testing.T) {
		cgst, sgst, igst := gstSplit(money("100.01"), decimal.Zero, decimal.Zero, decimal.Zero)
		assert.True(t, cgst.Equal(money("50.01")), "cgst %s", cgst)
		assert.True(t, sgst.Equal(money("50.00")), "sgst %s", sgst)
		assert.True(t, igst.IsZero())
		assert.True(t, cgst.Add(sgst).Equal(money("100.01")))
	})

	t.Run("zero tax stays zero", func(t *testing.T) {
		cgst, sgst, igst := gstSplit(decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero)
		assert.True(t, cgst.IsZero())
		assert.True(t, sgst.IsZero())
		assert.True(t, igst.IsZero())
	})
}

func TestSettlementAccountCode(t *testing.T) {
	assert.Equal(t, codeCash, settlementAccountCode("cash"))
	assert.Equal(t, codeCash, settlementAccountCode("Cash"))
	assert.Equal(t, codeCash, settlementAccountCode(" CASH "))
	assert.Equal(t, codeBank, settlementAccountCode("bank_transfer"))
	assert.Equal(t, codeBank, settlementAccountCode("upi"))
	assert.Equal(t, codeBank, settlementAccountCode(""))
}

func TestSumPayroll(t *testing.T) {
	employees := []PayrollEmployee{
		{
			EmployeeID:  "EMP-1",
			Gross:       money("30000.00"),
			EmployeePF:  money("3600.00"),
			EmployerPF:  money("3600.00"),
			EmployeeESI: money("225.00"),
			EmployerESI: money("225.00"),
		},
	}

	totals := sumPayroll(employees)

	assert.True(t, totals.Gross.Equal(money("30000.00")))
	assert.True(t, totals.EmployeePF.Equal(money("3600.00")))
	assert.True(t, totals.EmployerPF.Equal(money("3600.00")))
	assert.True(t, totals.ESI.Equal(money("450.00")), "esi %s", totals.ESI)
	assert.True(t, totals.EmployerESI.Equal(money("225.00")))
	assert.True(t, totals.TDS.IsZero())
	// net = 30000 - 3600 - 225
	assert.True(t, totals.NetPay.Equal(money("26175.00")), "net %s", totals.NetPay)

	// The entry these totals produce must balance:
	// DR gross + employer PF + employer ESI = 33825
	// CR net + employee PF + ESI (both sides) + employer PF = 33825
	debits := totals.Gross.Add(totals.EmployerPF).Add(totals.EmployerESI)
	credits := totals.NetPay.Add(totals.TDS).Add(totals.EmployeePF).
		Add(totals.EmployerPF).Add(totals.ESI).Add(totals.ProfTax)
	assert.True(t, debits.Equal(credits), "debits %s credits %s", debits, credits)
}

func TestSumPayroll_MultipleEmployees(t *testing.T) {
	employees := []PayrollEmployee{
		{Gross: money("30000.00"), EmployeePF: money("3600.00"), EmployerPF: money("3600.00"), EmployeeESI: money("225.00"), EmployerESI: money("225.00")},
		{Gross: money("50000.00"), TDS: money("2500.00"), EmployeePF: money("6000.00"), EmployerPF: money("6000.00"), ProfessionalTax: money("200.00")},
	}

	totals := sumPayroll(employees)

	assert.True(t, totals.Gross.Equal(money("80000.00")))
	assert.True(t, totals.TDS.Equal(money("2500.00")))
	assert.True(t, totals.ProfTax.Equal(money("200.00")))
	// second employee net = 50000 - 6000 - 2500 - 200 = 41300
	assert.True(t, totals.NetPay.Equal(money("67475.00")), "net %s", totals.NetPay)

	debits := totals.Gross.Add(totals.EmployerPF).Add(totals.EmployerESI)
	credits := totals.NetPay.Add(totals.TDS).Add(totals.EmployeePF).
		Add(totals.EmployerPF).Add(totals.ESI).Add(totals.ProfTax)
	assert.True(t, debits.Equal(credits), "debits %s credits %s", debits, credits)
}

func TestPayrollTotalsAllZero(t *testing.T) {
	assert.True(t, payrollTotals{}.allZero())
	assert.True(t, sumPayroll(nil).allZero())
	assert.True(t, sumPayroll([]PayrollEmployee{{Name: "ghost"}}).allZero())
	assert.False(t, sumPayroll([]PayrollEmployee{{Gross: money("1.00")}}).allZero())
	assert.False(t, sumPayroll([]PayrollEmployee{{ProfessionalTax: money("200.00")}}).allZero())
}
