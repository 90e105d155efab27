package dto

import (
	"encoding/json"

	"freight-tracker/internal/tracker/core/domain/model"
	"freight-tracker/internal/tracker/core/myerrors"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the full registration payload: profile, address, role
// and the consent flags the backend requires.
type RegisterRequest struct {
	Company         string        `json:"company"`
	FirstName       string        `json:"firstName"`
	LastName        string        `json:"lastName"`
	Email           string        `json:"email"`
	Password        string        `json:"password"`
	Role            model.Role    `json:"role"`
	Phone           string        `json:"phone,omitempty"`
	Username        string        `json:"username,omitempty"`
	Address         model.Address `json:"address"`
	UsagePurpose    string        `json:"usagePurpose,omitempty"`
	Industry        string        `json:"industry,omitempty"`
	AgreedToTerms   bool          `json:"agreedToTerms"`
	AgreedToPrivacy bool          `json:"agreedToPrivacy"`
}

// loginEnvelope covers every response shape the backend has served so far:
// token as "accessToken" or "token", either at top level or nested under
// "data", and the user record at top level or under "data".
type loginEnvelope struct {
	AccessToken string          `json:"accessToken"`
	Token       string          `json:"token"`
	User        *model.User     `json:"user"`
	Data        *loginInnerData `json:"data"`
}

type loginInnerData struct {
	AccessToken string      `json:"accessToken"`
	Token       string      `json:"token"`
	User        *model.User `json:"user"`
}

// DecodeLoginResponse normalizes a login response body into the canonical
// session shape. A body in which no token or no user can be located is a
// decode error, never a half-filled session.
func DecodeLoginResponse(body []byte) (model.Session, error) {
	var env loginEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return model.Session{}, myerrors.ErrUnrecognizedLoginShape
	}

	token := env.AccessToken
	if token == "" {
		token = env.Token
	}
	user := env.User
	if env.Data != nil {
		if token == "" {
			token = env.Data.AccessToken
		}
		if token == "" {
			token = env.Data.Token
		}
		if user == nil {
			user = env.Data.User
		}
	}

	if token == "" || user == nil || user.ID() == "" {
		return model.Session{}, myerrors.ErrUnrecognizedLoginShape
	}

	return model.Session{
		User:   *user,
		Tokens: model.AuthTokens{AccessToken: token},
	}, nil
}
