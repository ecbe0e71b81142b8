package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/halcyon-auth/halcyon/domain"
	serrors "github.com/halcyon-auth/halcyon/errors"
)

// codeGenerationAttempts bounds the regeneration loop on value collision.
const codeGenerationAttempts = 5

// SMSSender delivers a confirmation code out of band. Implementations are
// external collaborators (Twilio and friends).
type SMSSender interface {
	Send(ctx context.Context, phoneNumber, message string) error
}

// ConfirmationCodeService issues and verifies single-use confirmation codes
// for phone-number verification.
type ConfirmationCodeService struct {
	codes  domain.ConfirmationCodeStore
	sender SMSSender

	codeLength int
	ttl        time.Duration
	now        func() time.Time
}

// NewConfirmationCodeService creates the service. codeLength is the number
// of decimal digits in generated codes.
func NewConfirmationCodeService(codes domain.ConfirmationCodeStore, sender SMSSender, codeLength int, ttl time.Duration) *ConfirmationCodeService {
	return &ConfirmationCodeService{
		codes:      codes,
		sender:     sender,
		codeLength: codeLength,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Generate creates a fresh code for the subject, stores it, and sends it to
// the given phone number. A value collision triggers local regeneration, not
// a lock. A delivery failure is wrapped as an unhandled exception with the
// cause preserved, and the stored code is removed so the operation leaves no
// partial state.
func (s *ConfirmationCodeService) Generate(ctx context.Context, subject, phoneNumber string) (*domain.ConfirmationCode, *serrors.OAuth2Error) {
	code := &domain.ConfirmationCode{
		Subject:   subject,
		IssueAt:   s.now(),
		ExpiresIn: int(s.ttl.Seconds()),
	}

	var insertErr error
	for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
		value, err := generateNumericCode(s.codeLength)
		if err != nil {
			return nil, serrors.NewInternalError(err)
		}
		code.Value = value

		insertErr = s.codes.Add(ctx, code)
		if insertErr == nil {
			break
		}
		if !errors.Is(insertErr, serrors.ErrDuplicateKey) {
			return nil, serrors.NewInternalError(insertErr)
		}
		log.Debug().Msg("confirmation code collision, regenerating")
	}
	if insertErr != nil {
		return nil, serrors.NewInternalError(insertErr)
	}

	if err := s.sender.Send(ctx, phoneNumber, fmt.Sprintf("Your confirmation code is %s", code.Value)); err != nil {
		if removeErr := s.codes.Remove(ctx, code.Value); removeErr != nil {
			log.Warn().Err(removeErr).Msg("failed to remove code after delivery failure")
		}
		return nil, serrors.NewUnhandledException(fmt.Errorf("sms delivery failed: %w", err))
	}

	return code, nil
}

// Confirm verifies a code for a subject and consumes it. Codes are single
// use: a successful confirmation removes the code.
func (s *ConfirmationCodeService) Confirm(ctx context.Context, value, subject string) *serrors.OAuth2Error {
	code, err := s.codes.Get(ctx, value)
	if err != nil {
		if isNotFound(err) {
			return serrors.NewInvalidRequest("the confirmation code is not valid")
		}
		return serrors.NewInternalError(err)
	}

	if code.Subject != subject || code.Expired(s.now()) {
		return serrors.NewInvalidRequest("the confirmation code is not valid")
	}

	if err := s.codes.Remove(ctx, value); err != nil {
		return serrors.NewInternalError(err)
	}
	return nil
}

// generateNumericCode produces a decimal code with the given number of
// digits.
func generateNumericCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
