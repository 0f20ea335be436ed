package usecase

import "account_backend/internal/feature/account/domain/entity"

// Requester identifies the authenticated caller of an operation, as taken
// from the verified token. Role is the claim frozen at token issuance.
type Requester struct {
	AccountID string
	Role      entity.Role
}

// CanDelete reports whether the requester may soft-delete the target account.
func CanDelete(r Requester, targetID string) bool {
	return r.Role == entity.RoleAdmin || r.AccountID == targetID
}

// CanInspect reports whether the requester may read the administrative view
// of the target account.
func CanInspect(r Requester, targetID string) bool {
	return CanDelete(r, targetID)
}
