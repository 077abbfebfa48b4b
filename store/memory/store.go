package memory

import (
	"context"
	"sync"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
)

// Store keeps records in maps guarded by one mutex, so every method is
// atomic with respect to the others.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]goAccount.UserRecord
	byEmail map[string]string
	byToken map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:    make(map[string]goAccount.UserRecord),
		byEmail: make(map[string]string),
		byToken: make(map[string]string),
	}
}

func (s *Store) Create(_ context.Context, rec goAccount.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[rec.Email]; ok {
		return goAccount.ErrDuplicateIdentity
	}
	if _, ok := s.byID[rec.ID]; ok {
		return goAccount.ErrDuplicateIdentity
	}
	s.byID[rec.ID] = rec
	s.byEmail[rec.Email] = rec.ID
	if rec.VerificationTokenHash != "" {
		s.byToken[rec.VerificationTokenHash] = rec.ID
	}
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byID, id)
	delete(s.byEmail, rec.Email)
	if rec.VerificationTokenHash != "" {
		delete(s.byToken, rec.VerificationTokenHash)
	}
	return nil
}

func (s *Store) FindByID(_ context.Context, id string) (goAccount.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return goAccount.UserRecord{}, goAccount.ErrRecordNotFound
	}
	return rec, nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (goAccount.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return goAccount.UserRecord{}, goAccount.ErrRecordNotFound
	}
	return s.byID[id], nil
}

func (s *Store) ConsumeVerificationToken(_ context.Context, tokenHash string, now time.Time) (goAccount.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byToken[tokenHash]
	if !ok || tokenHash == "" {
		return goAccount.UserRecord{}, goAccount.ErrRecordNotFound
	}
	rec := s.byID[id]
	rec.EmailVerified = true
	rec.VerificationTokenHash = ""
	rec.UpdatedAt = now
	s.byID[id] = rec
	delete(s.byToken, tokenHash)
	return rec, nil
}

func (s *Store) SetOTP(_ context.Context, id, otpHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return goAccount.ErrRecordNotFound
	}
	rec.OTPHash = otpHash
	rec.OTPExpiresAt = expiresAt
	s.byID[id] = rec
	return nil
}

func (s *Store) ClearOTP(_ context.Context, id, otpHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok || rec.OTPHash == "" || rec.OTPHash != otpHash {
		return false, nil
	}
	rec.OTPHash = ""
	rec.OTPExpiresAt = time.Time{}
	s.byID[id] = rec
	return true, nil
}

func (s *Store) UpdateProfile(_ context.Context, id string, patch goAccount.ProfilePatch, now time.Time) (goAccount.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return goAccount.UserRecord{}, goAccount.ErrRecordNotFound
	}
	if patch.Name != nil {
		rec.Name = *patch.Name
	}
	if patch.Phone != nil {
		rec.Phone = *patch.Phone
	}
	if patch.DOB != nil {
		rec.DOB = *patch.DOB
	}
	rec.UpdatedAt = now
	s.byID[id] = rec
	return rec, nil
}

func (s *Store) SetPasswordHash(_ context.Context, id, hash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return goAccount.ErrRecordNotFound
	}
	rec.PasswordHash = hash
	rec.UpdatedAt = now
	s.byID[id] = rec
	return nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

var _ goAccount.UserStore = (*Store)(nil)
