package domain

// User represents an account that owns photos and a storage quota.
//
// QuotaConsumed counts the bytes of original content the user owns. It is
// mutated only inside store transactions driven by the quota ledger, never
// directly. At any quiescent point (no in-flight reservation) it must not
// exceed QuotaLimit.
type User struct {
	Entity
	Username      string `json:"username"`
	Email         string `json:"email"`
	QuotaLimit    int64  `json:"quota_limit"`
	QuotaConsumed int64  `json:"quota_consumed"`
}

// QuotaRemaining returns the number of bytes the user may still store,
// ignoring in-flight reservations.
func (u *User) QuotaRemaining() int64 {
	remaining := u.QuotaLimit - u.QuotaConsumed
	if remaining < 0 {
		return 0
	}
	return remaining
}
