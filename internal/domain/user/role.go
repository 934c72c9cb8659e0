package user

import (
	"encoding/json"
	"fmt"
)

// Role is the closed set of access levels. The store and the wire still
// speak the legacy string codes ("1" for admins, "3" for regular users),
// so the codes only appear inside Code and ParseRole.
type Role int

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleUser
)

const (
	codeAdmin = "1"
	codeUser  = "3"
)

var ErrInvalidRole = fmt.Errorf("role must be one of %q, %q", codeAdmin, codeUser)

func ParseRole(code string) (Role, error) {
	switch code {
	case codeAdmin:
		return RoleAdmin, nil
	case codeUser:
		return RoleUser, nil
	default:
		return RoleUnknown, ErrInvalidRole
	}
}

// Code returns the legacy wire/store code for the role.
func (r Role) Code() string {
	switch r {
	case RoleAdmin:
		return codeAdmin
	case RoleUser:
		return codeUser
	default:
		return ""
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	default:
		return "unknown"
	}
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Code())
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var code string
	if err := json.Unmarshal(b, &code); err != nil {
		return err
	}

	parsed, err := ParseRole(code)
	if err != nil {
		return err
	}

	*r = parsed
	return nil
}
