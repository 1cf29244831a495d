// Package models holds the persisted records of the gophid server.
package models

import "time"

// Subscription is the account's plan.
type Subscription string

const (
	SubscriptionFree     Subscription = "free"
	SubscriptionPro      Subscription = "pro"
	SubscriptionBusiness Subscription = "business"
)

// Subscriptions lists every accepted plan.
var Subscriptions = []Subscription{SubscriptionFree, SubscriptionPro, SubscriptionBusiness}

// Valid reports whether s is one of Subscriptions.
func (s Subscription) Valid() bool {
	for _, v := range Subscriptions {
		if s == v {
			return true
		}
	}
	return false
}

// Account is the sole identity record.
//
// VerificationToken is set until the account is verified and nil afterwards.
// SessionToken holds the single active session; a new login replaces it and
// logout clears it.
type Account struct {
	ID                string
	Email             string
	PasswordHash      string
	DisplayName       *string
	Subscription      Subscription
	AvatarURL         string
	Verified          bool
	VerificationToken *string
	SessionToken      *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ProfilePatch is a sparse update: nil fields are left unchanged.
type ProfilePatch struct {
	DisplayName  *string
	Email        *string
	Subscription *Subscription
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.DisplayName == nil && p.Email == nil && p.Subscription == nil
}
