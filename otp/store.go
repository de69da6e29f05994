// Package otp implements the one-time passcode store used to verify
// email ownership before a subscription is persisted.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"weathertogether.app/errors"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// entry holds a pending code with its explicit expiry. An expired entry
// keeps its key but has the code blanked out.
type entry struct {
	code      string
	expiresAt time.Time
}

// Store keeps pending passcodes keyed by email. Expiry is a one-shot
// deferred action scheduled per issuance, independent of the polling loop.
type Store struct {
	mu     sync.Mutex
	codes  map[string]*entry
	ttl    time.Duration
	length int
	clock  clockwork.Clock
}

// NewStore creates a passcode store. The clock is injectable so tests can
// drive expiry deterministically.
func NewStore(ttl time.Duration, length int, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		codes:  make(map[string]*entry),
		ttl:    ttl,
		length: length,
		clock:  clock,
	}
}

// Issue generates a fresh code for the email and schedules its expiry.
// Reissuing replaces any pending code.
func (s *Store) Issue(email string) (string, error) {
	code, err := s.generateCode()
	if err != nil {
		return "", errors.Wrap(errors.ValidationError, "failed to generate passcode", err)
	}

	s.mu.Lock()
	issued := &entry{
		code:      code,
		expiresAt: s.clock.Now().Add(s.ttl),
	}
	s.codes[email] = issued
	s.mu.Unlock()

	s.clock.AfterFunc(s.ttl, func() {
		s.expire(email, issued)
	})

	return code, nil
}

// Verify checks the supplied code against the pending entry. A correct,
// unexpired code consumes the entry; anything else is an auth failure.
func (s *Store) Verify(email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.codes[email]
	if !ok || pending.code == "" {
		return errors.NewAuthError("unauthorized or timed out")
	}
	if !s.clock.Now().Before(pending.expiresAt) {
		return errors.NewAuthError("unauthorized or timed out")
	}
	if subtle.ConstantTimeCompare([]byte(pending.code), []byte(code)) != 1 {
		return errors.NewAuthError("unauthorized or timed out")
	}

	delete(s.codes, email)
	return nil
}

// expire blanks the code rather than removing the key, so a late
// verification attempt distinguishes "timed out" from "never issued"
// in the logs.
func (s *Store) expire(email string, issued *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.codes[email]
	if !ok || current != issued {
		// Already consumed or superseded by a reissue.
		return
	}

	log.Printf("[DEBUG] OTP for %s expired\n", email)
	current.code = ""
}

func (s *Store) generateCode() (string, error) {
	code := make([]byte, s.length)
	max := big.NewInt(int64(len(codeCharset)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[n.Int64()]
	}
	return string(code), nil
}
