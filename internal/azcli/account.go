package azcli

import "github.com/carved4/kvwalk/internal/cloud"

// Account is a subset of az account values.
type Account struct {
	// Name of the subscription.
	Name string `json:"name"`
	// ID of the subscription.
	ID string `json:"id"`
	// IsDefault is true for the default account.
	IsDefault bool   `json:"isDefault"`
	TenantID  string `json:"tenantId"`
	// User that is logged in.
	User struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"user"`
}

func (a Account) session() cloud.Session {
	kind := cloud.KindUser
	if a.User.Type == string(cloud.KindServicePrincipal) {
		kind = cloud.KindServicePrincipal
	}
	return cloud.Session{
		Name:         a.User.Name,
		Kind:         kind,
		Tenant:       a.TenantID,
		Subscription: a.ID,
	}
}

func sessions(accounts []Account) []cloud.Session {
	r := make([]cloud.Session, 0, len(accounts))
	for _, a := range accounts {
		if a.User.Name == "" {
			continue
		}
		r = append(r, a.session())
	}
	return r
}
