package session

import (
	"math"

	"quizportal/internal/identity"
	"quizportal/internal/profile"
)

// DefaultRoleNum is the lowest privilege, used when the profile has no role.
const DefaultRoleNum = 1

// AdminRoleThreshold is the highest role number that is not an admin.
const AdminRoleThreshold = 5

// Profile is the published session record: identity claims merged with the
// user's profile document.
type Profile struct {
	UID         string         `json:"uid"`
	DisplayName string         `json:"displayName,omitempty"`
	Email       string         `json:"email,omitempty"`
	PhotoURL    string         `json:"photoURL,omitempty"`
	RoleNum     int            `json:"role_num"`
	BatchID     *string        `json:"batch_id"`
	Extra       map[string]any `json:"extra,omitempty"`
}

func (p Profile) IsAdmin() bool {
	return p.RoleNum > AdminRoleThreshold
}

// Name is what pages greet the user with.
func (p Profile) Name() string {
	switch {
	case p.DisplayName != "":
		return p.DisplayName
	case p.Email != "":
		return p.Email
	default:
		return p.UID
	}
}

func defaultProfile(id identity.Identity) Profile {
	return Profile{
		UID:         id.UID,
		DisplayName: id.DisplayName,
		Email:       id.Email,
		PhotoURL:    id.PhotoURL,
		RoleNum:     DefaultRoleNum,
		BatchID:     nil,
	}
}

// mergeDocument lays the document's fields over base. Fields that are not part
// of Profile, or carry a value of the wrong type, end up in Extra untouched.
func mergeDocument(base Profile, doc profile.Document) Profile {
	p := base
	if !doc.Exists {
		return p
	}
	for key, value := range doc.Data {
		if !applyField(&p, key, value) {
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[key] = value
		}
	}
	return p
}

func applyField(p *Profile, key string, value any) bool {
	switch key {
	case "uid":
		s, ok := value.(string)
		if ok {
			p.UID = s
		}
		return ok
	case "displayName":
		return setString(&p.DisplayName, value)
	case "email":
		return setString(&p.Email, value)
	case "photoURL":
		return setString(&p.PhotoURL, value)
	case "role_num":
		n, ok := toInt(value)
		if ok {
			p.RoleNum = n
		}
		return ok
	case "batch_id":
		switch v := value.(type) {
		case nil:
			p.BatchID = nil
			return true
		case string:
			p.BatchID = &v
			return true
		}
		return false
	}
	return false
}

func setString(dst *string, value any) bool {
	switch v := value.(type) {
	case nil:
		*dst = ""
		return true
	case string:
		*dst = v
		return true
	}
	return false
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}
