package goAccount

import (
	"fmt"
	"strings"
	"time"
)

// sealUser encrypts the PII fields of u into a record. Secrets and the
// password hash are filled in by the caller.
func (e *Engine) sealUser(u User) (UserRecord, error) {
	rec := UserRecord{
		ID:            u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}

	var err error
	if rec.Name, err = e.cipher.Encrypt(u.Name); err != nil {
		return UserRecord{}, err
	}
	if rec.Phone, err = e.cipher.Encrypt(u.Phone); err != nil {
		return UserRecord{}, err
	}
	if rec.DOB, err = e.cipher.Encrypt(u.DOB); err != nil {
		return UserRecord{}, err
	}
	return rec, nil
}

// openRecord decrypts rec. A field that fails to decrypt yields
// ErrDataCorruption naming the field, never a partially filled user.
func (e *Engine) openRecord(rec UserRecord) (*User, error) {
	u := &User{
		ID:            rec.ID,
		Email:         rec.Email,
		EmailVerified: rec.EmailVerified,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}

	fields := []struct {
		name string
		src  string
		dst  *string
	}{
		{"name", rec.Name, &u.Name},
		{"phone", rec.Phone, &u.Phone},
		{"dob", rec.DOB, &u.DOB},
	}
	for _, f := range fields {
		plain, err := e.cipher.Decrypt(f.src)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s of user %s: %v", ErrDataCorruption, f.name, rec.ID, err)
		}
		*f.dst = plain
	}
	return u, nil
}

// sealPatch encrypts the fields of upd that are not blank after trimming.
func (e *Engine) sealPatch(upd ProfileUpdate) (ProfilePatch, bool, error) {
	var (
		patch   ProfilePatch
		changed bool
	)
	seal := func(v string, dst **string) error {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		ct, err := e.cipher.Encrypt(v)
		if err != nil {
			return err
		}
		*dst = &ct
		changed = true
		return nil
	}
	if err := seal(upd.Name, &patch.Name); err != nil {
		return ProfilePatch{}, false, err
	}
	if err := seal(upd.Phone, &patch.Phone); err != nil {
		return ProfilePatch{}, false, err
	}
	if err := seal(upd.DOB, &patch.DOB); err != nil {
		return ProfilePatch{}, false, err
	}
	return patch, changed, nil
}

func profileOf(u *User) *Profile {
	return &Profile{
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		DOB:           u.DOB,
		EmailVerified: u.EmailVerified,
	}
}

// otpOutstanding reports whether rec holds a passcode. Expiry is checked
// separately.
func otpOutstanding(rec UserRecord) bool {
	return rec.OTPHash != "" && !rec.OTPExpiresAt.IsZero()
}

func otpLive(rec UserRecord, now time.Time) bool {
	return now.Before(rec.OTPExpiresAt)
}
