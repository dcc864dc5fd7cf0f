package store

import "classfund/internal/core"

// NormalizeMethod maps raw method values from stored rows onto the
// domain enum. Historical rows carry the retired "bank" channel, which
// is read back as kplus; unknown values pass through untouched so bad
// data stays visible rather than silently vanishing.
func NormalizeMethod(raw string) core.PaymentMethod {
	if raw == "bank" {
		return core.MethodKPlus
	}
	return core.PaymentMethod(raw)
}
