package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/server/models"
	"github.com/dmitrijs2005/gophid/internal/server/services"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
)

type validatable interface {
	Validate() error
}

// bind decodes the JSON body into dst, rejecting unknown fields and
// trailing data, then validates it.
func bind(c *fiber.Ctx, dst validatable) error {
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return common.NewError(common.ErrorBadRequest, "missing request body")
		}
		return common.NewError(common.ErrorBadRequest, "invalid request body: "+err.Error())
	}
	if dec.More() {
		return common.NewError(common.ErrorBadRequest, "invalid request body: trailing data")
	}

	if err := dst.Validate(); err != nil {
		return common.NewError(common.ErrorBadRequest, err.Error())
	}
	return nil
}

var subscriptionRule = validation.In(
	string(models.SubscriptionFree),
	string(models.SubscriptionPro),
	string(models.SubscriptionBusiness),
)

func subscriptionPtr(s *string) *models.Subscription {
	if s == nil {
		return nil
	}
	v := models.Subscription(*s)
	return &v
}

type signupRequest struct {
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	DisplayName  *string `json:"displayName,omitempty"`
	Subscription *string `json:"subscription,omitempty"`
}

// Validate caps the password at 72 bytes, the most bcrypt uses.
func (r signupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
		validation.Field(&r.DisplayName, validation.Length(1, 100)),
		validation.Field(&r.Subscription, subscriptionRule),
	)
}

// emailRequest is the resend body; a blank email is reported by
// IdentityService.ResendVerification.
type emailRequest struct {
	Email string `json:"email"`
}

func (r emailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
	)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate only checks the shape; missing fields are reported by
// IdentityService.Login.
func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
	)
}

type updateRequest struct {
	DisplayName  *string `json:"displayName,omitempty"`
	Email        *string `json:"email,omitempty"`
	Subscription *string `json:"subscription,omitempty"`
}

func (r updateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DisplayName, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&r.Subscription, validation.NilOrNotEmpty, subscriptionRule),
	)
}

func (r updateRequest) patch() models.ProfilePatch {
	return models.ProfilePatch{
		DisplayName:  r.DisplayName,
		Email:        r.Email,
		Subscription: subscriptionPtr(r.Subscription),
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type profileResponse struct {
	Email        string              `json:"email"`
	Subscription models.Subscription `json:"subscription"`
	AvatarURL    string              `json:"avatarURL,omitempty"`
}

type userResponse struct {
	Email        string              `json:"email"`
	Subscription models.Subscription `json:"subscription"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type avatarResponse struct {
	AvatarURL string `json:"avatarURL"`
}

// accountResponse is the account as returned to its owner; credentials and
// tokens are never included.
type accountResponse struct {
	ID           string              `json:"id"`
	Email        string              `json:"email"`
	DisplayName  *string             `json:"displayName,omitempty"`
	Subscription models.Subscription `json:"subscription"`
	AvatarURL    string              `json:"avatarURL"`
	Verified     bool                `json:"verified"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func newProfileResponse(p *services.Profile) profileResponse {
	return profileResponse{Email: p.Email, Subscription: p.Subscription, AvatarURL: p.AvatarURL}
}

func newAccountResponse(a *models.Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Email:        a.Email,
		DisplayName:  a.DisplayName,
		Subscription: a.Subscription,
		AvatarURL:    a.AvatarURL,
		Verified:     a.Verified,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
