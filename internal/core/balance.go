package core

// MethodBreakdown holds per-channel amounts.
type MethodBreakdown struct {
	KPlus     Money
	Cash      Money
	TrueMoney Money
	Total     Money
}

// BalanceSummary is the organization-wide financial picture shown on the
// dashboard.
//
// StudentIncome's per-method buckets are a combined view: they include
// both schedule payments and ad hoc income, while StudentIncome.Total
// counts schedule payments only. Schedule income therefore appears both
// in the combined per-method buckets and in the schedule-only total.
// That overlap is a product decision (the dashboard shows "all money by
// method" and "money collected from students" side by side), not a bug.
type BalanceSummary struct {
	Balance       Money // IncomeTxn + StudentIncome.Total - ExpenseTxn
	IncomeTxn     Money // ad hoc income
	ExpenseTxn    Money // ad hoc expenses
	StudentIncome MethodBreakdown
}

// CalculateBalance computes the summary in a single pass over the
// transaction list. All accumulation is integer satang, so the result is
// exact regardless of input order or size.
func CalculateBalance(txns []Transaction) BalanceSummary {
	var incomeTxn, expenseTxn Money
	var kplus, cash, truemoney Money                            // combined per-method buckets
	var scheduleKPlus, scheduleCash, scheduleTrueMoney Money    // schedule payments only

	for _, t := range txns {
		switch t.Source {
		case SourceTransaction:
			if t.Kind == KindIncome {
				incomeTxn = incomeTxn.Add(t.Amount)
				switch t.Method {
				case MethodKPlus:
					kplus = kplus.Add(t.Amount)
				case MethodCash:
					cash = cash.Add(t.Amount)
				case MethodTrueMoney:
					truemoney = truemoney.Add(t.Amount)
				}
			} else {
				// Expenses are not broken down by method.
				expenseTxn = expenseTxn.Add(t.Amount)
			}
		case SourceSchedule:
			if t.Kind != KindIncome {
				continue
			}
			switch t.Method {
			case MethodKPlus:
				scheduleKPlus = scheduleKPlus.Add(t.Amount)
				kplus = kplus.Add(t.Amount)
			case MethodCash:
				scheduleCash = scheduleCash.Add(t.Amount)
				cash = cash.Add(t.Amount)
			case MethodTrueMoney:
				scheduleTrueMoney = scheduleTrueMoney.Add(t.Amount)
				truemoney = truemoney.Add(t.Amount)
			}
		}
	}

	studentTotal := scheduleKPlus.Add(scheduleCash).Add(scheduleTrueMoney)
	return BalanceSummary{
		Balance:    incomeTxn.Add(studentTotal).Sub(expenseTxn),
		IncomeTxn:  incomeTxn,
		ExpenseTxn: expenseTxn,
		StudentIncome: MethodBreakdown{
			KPlus:     kplus,
			Cash:      cash,
			TrueMoney: truemoney,
			Total:     studentTotal,
		},
	}
}
