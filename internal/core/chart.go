package core

// Well-known codes for the seeded system accounts. Posting rules resolve by
// code, never by display name, so a tenant renaming "Bank" to "HDFC Current"
// does not break auto-posting.
const (
	codeCash               = "1000"
	codeAccountsReceivable = "1100"
	codeBank               = "1200"
	codeInventory          = "1300"
	codeGSTInputCGST       = "1401"
	codeGSTInputSGST       = "1402"
	codeGSTInputIGST       = "1403"

	codeAccountsPayable         = "2000"
	codeGSTPayableCGST          = "2101"
	codeGSTPayableSGST          = "2102"
	codeGSTPayableIGST          = "2103"
	codeSalaryPayable           = "2200"
	codeTDSPayable              = "2210"
	codeEmployeePFPayable       = "2220"
	codeEmployerPFPayable       = "2230"
	codeESIPayable              = "2240"
	codeProfessionalTaxPayable  = "2250"

	codeOwnersEquity         = "3000"
	codeRetainedEarnings     = "3100"
	codeOpeningBalanceEquity = "3200"

	codeSalesRevenue   = "4000"
	codeServiceRevenue = "4100"
	codeOtherRevenue   = "4200"

	codePurchases          = "6000"
	codeCOGS               = "6100"
	codeSalaryExpense      = "6200"
	codeEmployerPFExpense  = "6210"
	codeEmployerESIExpense = "6220"
	codeRentExpense        = "6300"
	codeUtilitiesExpense   = "6310"
	codeOfficeSupplies     = "6320"
	codeRepairsExpense     = "6330"
	codeBankCharges        = "6340"
	codeMiscExpense        = "6900"
)

type systemAccountDef struct {
	Code string
	Name string
	Type AccountType
}

// systemChart is the fixed catalog of accounts every tenant gets. Codes live
// in per-type blocks: assets 1xxx, liabilities 2xxx, equity 3xxx, income 4xxx,
// expenses 6xxx.
func systemChart() []systemAccountDef {
	return []systemAccountDef{
		{codeCash, "Cash", AccountTypeAsset},
		{codeAccountsReceivable, "Accounts Receivable", AccountTypeAsset},
		{codeBank, "Bank", AccountTypeAsset},
		{codeInventory, "Inventory", AccountTypeAsset},
		{codeGSTInputCGST, "GST Input CGST", AccountTypeAsset},
		{codeGSTInputSGST, "GST Input SGST", AccountTypeAsset},
		{codeGSTInputIGST, "GST Input IGST", AccountTypeAsset},

		{codeAccountsPayable, "Accounts Payable", AccountTypeLiability},
		{codeGSTPayableCGST, "GST Payable CGST", AccountTypeLiability},
		{codeGSTPayableSGST, "GST Payable SGST", AccountTypeLiability},
		{codeGSTPayableIGST, "GST Payable IGST", AccountTypeLiability},
		{codeSalaryPayable, "Salary Payable", AccountTypeLiability},
		{codeTDSPayable, "TDS Payable", AccountTypeLiability},
		{codeEmployeePFPayable, "Employee PF Payable", AccountTypeLiability},
		{codeEmployerPFPayable, "Employer PF Payable", AccountTypeLiability},
		{codeESIPayable, "ESI Payable", AccountTypeLiability},
		{codeProfessionalTaxPayable, "Professional Tax Payable", AccountTypeLiability},

		{codeOwnersEquity, "Owner's Equity", AccountTypeEquity},
		{codeRetainedEarnings, "Retained Earnings", AccountTypeEquity},
		{codeOpeningBalanceEquity, "Opening Balance Equity", AccountTypeEquity},

		{codeSalesRevenue, "Sales Revenue", AccountTypeIncome},
		{codeServiceRevenue, "Service Revenue", AccountTypeIncome},
		{codeOtherRevenue, "Other Revenue", AccountTypeIncome},

		{codePurchases, "Purchases", AccountTypeExpense},
		{codeCOGS, "Cost of Goods Sold", AccountTypeExpense},
		{codeSalaryExpense, "Salary Expense", AccountTypeExpense},
		{codeEmployerPFExpense, "Employer PF Expense", AccountTypeExpense},
		{codeEmployerESIExpense, "Employer ESI Expense", AccountTypeExpense},
		{codeRentExpense, "Rent Expense", AccountTypeExpense},
		{codeUtilitiesExpense, "Utilities Expense", AccountTypeExpense},
		{codeOfficeSupplies, "Office Supplies Expense", AccountTypeExpense},
		{codeRepairsExpense, "Repairs & Maintenance Expense", AccountTypeExpense},
		{codeBankCharges, "Bank Charges", AccountTypeExpense},
		{codeMiscExpense, "Miscellaneous Expense", AccountTypeExpense},
	}
}

// codeBlockBase maps an account type to the floor of its numeric code block.
func codeBlockBase(t AccountType) int {
	switch t {
	case AccountTypeAsset:
		return 1000
	case AccountTypeLiability:
		return 2000
	case AccountTypeEquity:
		return 3000
	case AccountTypeIncome:
		return 4000
	default:
		return 6000
	}
}
