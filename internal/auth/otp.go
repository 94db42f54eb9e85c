package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/givehub/backend/pkg/queue"
	"github.com/givehub/backend/pkg/utils"
)

// OTP purposes. Each purpose has its own code/verified namespace so a
// registration code cannot be replayed against password reset.
const (
	PurposeRegister = "register"
	PurposeReset    = "reset"
)

const (
	codeLength  = 6
	codeTTL     = 10 * time.Minute
	verifiedTTL = 30 * time.Minute
	maxAttempts = 5
)

var (
	// ErrCodeInvalid is returned for a wrong, expired or missing code.
	ErrCodeInvalid = errors.New("invalid or expired code")
	// ErrTooManyAttempts is returned when the attempt counter is exhausted.
	ErrTooManyAttempts = errors.New("too many attempts")
)

// CodeStore persists OTP state with expiry. Implemented over Redis; faked in tests.
type CodeStore interface {
	Set(ctx context.Context, key, val string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error) // "" when missing
	Del(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisCodeStore implements CodeStore on Redis.
type RedisCodeStore struct {
	client *redis.Client
}

// NewRedisCodeStore creates a Redis-backed code store.
func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

func (s *RedisCodeStore) Set(ctx context.Context, key, val string, ttl time.Duration) error {
	return s.client.Set(ctx, key, val, ttl).Err()
}

func (s *RedisCodeStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (s *RedisCodeStore) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisCodeStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		_ = s.client.Expire(ctx, key, ttl).Err()
	}
	return n, nil
}

// Enqueuer submits outbound email jobs. Implemented by pkg/queue.Queue.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// OTPService issues and verifies one-time email codes. The code itself is
// never stored, only its bcrypt hash.
type OTPService struct {
	codes  CodeStore
	mail   Enqueuer
	logger *zap.Logger
}

// NewOTPService creates the OTP service.
func NewOTPService(codes CodeStore, mail Enqueuer, logger *zap.Logger) *OTPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTPService{codes: codes, mail: mail, logger: logger}
}

func codeKey(purpose, email string) string     { return "otp:code:" + purpose + ":" + email }
func attemptsKey(purpose, email string) string { return "otp:attempts:" + purpose + ":" + email }
func verifiedKey(purpose, email string) string { return "otp:verified:" + purpose + ":" + email }

// Issue generates a fresh code for email, stores its hash with TTL and
// enqueues the delivery email. Any previous code for the same purpose is
// superseded.
func (s *OTPService) Issue(ctx context.Context, purpose, email string) error {
	code, err := utils.GenerateNumericCode(codeLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := utils.HashPassword(code)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	if err := s.codes.Set(ctx, codeKey(purpose, email), hash, codeTTL); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	_ = s.codes.Del(ctx, attemptsKey(purpose, email), verifiedKey(purpose, email))

	kind := queue.EmailKindOTP
	subject := "Your verification code"
	if purpose == PurposeReset {
		kind = queue.EmailKindPasswordReset
		subject = "Your password reset code"
	}
	body := fmt.Sprintf("<p>Your code is <strong>%s</strong>. It expires in %d minutes.</p>",
		code, int(codeTTL.Minutes()))
	if err := s.mail.EnqueueEmail(ctx, queue.EmailPayload{
		Kind:      kind,
		Recipient: email,
		Subject:   subject,
		BodyHTML:  body,
	}); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	s.logger.Info("otp issued", zap.String("purpose", purpose), zap.String("email", email))
	return nil
}

// Verify checks a submitted code. On success the code is consumed and the
// email is marked verified for verifiedTTL.
func (s *OTPService) Verify(ctx context.Context, purpose, email, code string) error {
	attempts, err := s.codes.Incr(ctx, attemptsKey(purpose, email), codeTTL)
	if err != nil {
		return fmt.Errorf("count attempt: %w", err)
	}
	if attempts > maxAttempts {
		return ErrTooManyAttempts
	}
	hash, err := s.codes.Get(ctx, codeKey(purpose, email))
	if err != nil {
		return fmt.Errorf("load code: %w", err)
	}
	if hash == "" || !utils.CheckPassword(code, hash) {
		return ErrCodeInvalid
	}
	_ = s.codes.Del(ctx, codeKey(purpose, email), attemptsKey(purpose, email))
	if err := s.codes.Set(ctx, verifiedKey(purpose, email), "1", verifiedTTL); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// Consume returns whether the email was verified for the purpose, clearing
// the flag so it cannot be reused.
func (s *OTPService) Consume(ctx context.Context, purpose, email string) (bool, error) {
	val, err := s.codes.Get(ctx, verifiedKey(purpose, email))
	if err != nil {
		return false, err
	}
	if val == "" {
		return false, nil
	}
	_ = s.codes.Del(ctx, verifiedKey(purpose, email))
	return true, nil
}
