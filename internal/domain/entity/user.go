package entity

import "maps"

// Email is a user's email address together with its verification sub-state.
// Address is the primary key of the user aggregate and is case-sensitive.
type Email struct {
	Address           string `json:"address"`
	Verified          bool   `json:"verified"`
	VerificationToken string `json:"verificationToken,omitempty"`
}

// VerifiedCopy returns a copy of the email with the verified flag set.
func (e Email) VerifiedCopy() Email {
	return Email{Address: e.Address, Verified: true, VerificationToken: e.VerificationToken}
}

// User is the aggregate root for the user domain. Password is opaque to the
// storage layer; it may be a hash or plaintext depending on server-side
// hashing configuration. Properties holds arbitrary caller-defined attributes.
//
// CreationTime and UpdateTime (epoch milliseconds) are owned by the storage
// layer: they are zero on input and populated on every User returned from a
// storage operation.
type User struct {
	Email        Email          `json:"email"`
	Password     string         `json:"password"`
	Properties   map[string]any `json:"properties,omitempty"`
	CreationTime int64          `json:"creationTime,omitempty"`
	UpdateTime   int64          `json:"lastUpdateTime,omitempty"`
}

// WithTime returns a copy of the user annotated with the given timestamps.
func (u User) WithTime(creation, update int64) User {
	copied := u
	copied.Properties = maps.Clone(u.Properties)
	copied.CreationTime = creation
	copied.UpdateTime = update
	return copied
}

// WithoutTime returns a copy of the user with both timestamps cleared.
// The persisted document form of a user never carries timestamps; they live
// in sibling attributes of the stored record.
func (u User) WithoutTime() User {
	return u.WithTime(0, 0)
}

// Equal reports whether two users match in all caller-visible fields,
// ignoring the storage-owned timestamps.
func (u User) Equal(other User) bool {
	if u.Email != other.Email || u.Password != other.Password {
		return false
	}
	if len(u.Properties) != len(other.Properties) {
		return false
	}
	for k, v := range u.Properties {
		ov, ok := other.Properties[k]
		if !ok || !propertyEqual(v, ov) {
			return false
		}
	}
	return true
}

// propertyEqual compares two JSON-compatible property values. Numbers are
// compared as float64 because that is what a JSON round trip produces.
func propertyEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !propertyEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			o, ok := bv[k]
			if !ok || !propertyEqual(v, o) {
				return false
			}
		}
		return true
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
