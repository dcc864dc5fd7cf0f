package core

import "strings"

// Bucket labels match what the dashboard renders; the app is Thai.
const (
	ScheduleBucketLabel  = "การเก็บเงินจากกำหนดการ" // all schedule payments merge here
	GenericIncomeLabel   = "รายรับทั่วไป"
	GenericExpenseLabel  = "รายจ่ายทั่วไป"
)

// CategoryAmount is one chart bucket.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// SummarizeByCategory buckets transaction amounts by category for one
// calendar month ("YYYY-MM", matched against the UTC timestamp prefix).
// Schedule payments merge into a single synthetic bucket regardless of
// schedule; ad hoc transactions bucket by category, falling back to a
// generic income/expense label. Buckets appear in order of first
// occurrence; consumers wanting value order must sort themselves.
func SummarizeByCategory(txns []Transaction, month string) []CategoryAmount {
	totals := make(map[string]int)
	var buckets []CategoryAmount

	add := func(name string, amount Money) {
		if i, ok := totals[name]; ok {
			buckets[i].Amount = buckets[i].Amount.Add(amount)
			return
		}
		totals[name] = len(buckets)
		buckets = append(buckets, CategoryAmount{Name: name, Amount: amount})
	}

	for _, t := range txns {
		if !strings.HasPrefix(t.CreatedAt.UTC().Format("2006-01-02"), month) {
			continue
		}
		switch t.Source {
		case SourceSchedule:
			add(ScheduleBucketLabel, t.Amount)
		case SourceTransaction:
			name := t.Category
			if name == "" {
				if t.Kind == KindIncome {
					name = GenericIncomeLabel
				} else {
					name = GenericExpenseLabel
				}
			}
			add(name, t.Amount)
		}
	}
	return buckets
}

// FilterOptions are conjunctive criteria for list views. Zero-valued
// fields are ignored.
type FilterOptions struct {
	Source TxnSource
	Kind   TxnKind
	Method PaymentMethod
	Search string // case-insensitive substring match on Name only
}

// FilterTransactions returns the transactions matching every provided
// criterion, preserving input order. No pagination, no sorting.
func FilterTransactions(txns []Transaction, opts FilterOptions) []Transaction {
	search := strings.ToLower(opts.Search)
	out := make([]Transaction, 0, len(txns))
	for _, t := range txns {
		if opts.Source != "" && t.Source != opts.Source {
			continue
		}
		if opts.Kind != "" && t.Kind != opts.Kind {
			continue
		}
		if opts.Method != "" && t.Method != opts.Method {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Name), search) {
			continue
		}
		out = append(out, t)
	}
	return out
}
