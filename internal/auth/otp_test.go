package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/givehub/backend/pkg/queue"
	"github.com/givehub/backend/pkg/utils"
)

type memCodeStore struct {
	values map[string]string
}

func newMemCodeStore() *memCodeStore {
	return &memCodeStore{values: map[string]string{}}
}

func (m *memCodeStore) Set(_ context.Context, key, val string, _ time.Duration) error {
	m.values[key] = val
	return nil
}

func (m *memCodeStore) Get(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memCodeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memCodeStore) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	n := int64(1)
	if cur, ok := m.values[key]; ok && cur != "" {
		n = int64(cur[0]-'0') + 1
	}
	m.values[key] = string(rune('0' + n))
	return n, nil
}

type captureEnqueuer struct {
	jobs []queue.EmailPayload
}

func (c *captureEnqueuer) EnqueueEmail(_ context.Context, p queue.EmailPayload) error {
	c.jobs = append(c.jobs, p)
	return nil
}

var codeRe = regexp.MustCompile(`<strong>(\d{6})</strong>`)

func issuedCode(t *testing.T, mail *captureEnqueuer) string {
	t.Helper()
	require.NotEmpty(t, mail.jobs)
	m := codeRe.FindStringSubmatch(mail.jobs[len(mail.jobs)-1].BodyHTML)
	require.Len(t, m, 2, "email body should carry a 6-digit code")
	return m[1]
}

func TestIssueStoresHashAndEnqueuesEmail(t *testing.T) {
	store := newMemCodeStore()
	mail := &captureEnqueuer{}
	svc := NewOTPService(store, mail, nil)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, PurposeRegister, "ada@example.org"))

	require.Len(t, mail.jobs, 1)
	assert.Equal(t, queue.EmailKindOTP, mail.jobs[0].Kind)
	assert.Equal(t, "ada@example.org", mail.jobs[0].Recipient)

	code := issuedCode(t, mail)
	hash := store.values[codeKey(PurposeRegister, "ada@example.org")]
	require.NotEmpty(t, hash)
	assert.NotEqual(t, code, hash, "only the hash is stored")
	assert.True(t, utils.CheckPassword(code, hash))
}

func TestIssueResetUsesResetKind(t *testing.T) {
	mail := &captureEnqueuer{}
	svc := NewOTPService(newMemCodeStore(), mail, nil)

	require.NoError(t, svc.Issue(context.Background(), PurposeReset, "ada@example.org"))
	require.Len(t, mail.jobs, 1)
	assert.Equal(t, queue.EmailKindPasswordReset, mail.jobs[0].Kind)
}

func TestVerifyCorrectCode(t *testing.T) {
	store := newMemCodeStore()
	mail := &captureEnqueuer{}
	svc := NewOTPService(store, mail, nil)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, PurposeRegister, "ada@example.org"))
	code := issuedCode(t, mail)

	require.NoError(t, svc.Verify(ctx, PurposeRegister, "ada@example.org", code))
	assert.Empty(t, store.values[codeKey(PurposeRegister, "ada@example.org")], "code is consumed")

	ok, err := svc.Consume(ctx, PurposeRegister, "ada@example.org")
	require.NoError(t, err)
	assert.True(t, ok)

	// The verified flag is single-use.
	ok, err = svc.Consume(ctx, PurposeRegister, "ada@example.org")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyWrongCode(t *testing.T) {
	mail := &captureEnqueuer{}
	svc := NewOTPService(newMemCodeStore(), mail, nil)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, PurposeRegister, "ada@example.org"))

	err := svc.Verify(ctx, PurposeRegister, "ada@example.org", "000000")
	assert.ErrorIs(t, err, ErrCodeInvalid)

	ok, err := svc.Consume(ctx, PurposeRegister, "ada@example.org")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyWithoutIssuedCode(t *testing.T) {
	svc := NewOTPService(newMemCodeStore(), &captureEnqueuer{}, nil)
	err := svc.Verify(context.Background(), PurposeRegister, "ada@example.org", "123456")
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestVerifyAttemptLimit(t *testing.T) {
	store := newMemCodeStore()
	mail := &captureEnqueuer{}
	svc := NewOTPService(store, mail, nil)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, PurposeRegister, "ada@example.org"))
	code := issuedCode(t, mail)

	for i := 0; i < maxAttempts; i++ {
		err := svc.Verify(ctx, PurposeRegister, "ada@example.org", "999999")
		assert.ErrorIs(t, err, ErrCodeInvalid)
	}
	// Even the correct code is rejected once the counter is exhausted.
	err := svc.Verify(ctx, PurposeRegister, "ada@example.org", code)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestPurposesAreIsolated(t *testing.T) {
	store := newMemCodeStore()
	mail := &captureEnqueuer{}
	svc := NewOTPService(store, mail, nil)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, PurposeRegister, "ada@example.org"))
	code := issuedCode(t, mail)

	// A registration code must not verify for password reset.
	err := svc.Verify(ctx, PurposeReset, "ada@example.org", code)
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestReissueSupersedesPreviousCode(t *testing.T) {
	store := newMemCodeStore()
	mail := &captureEnqueuer{}
	svc := NewOTPService(store, mail, nil)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, PurposeRegister, "ada@example.org"))
	first := issuedCode(t, mail)
	require.NoError(t, svc.Issue(ctx, PurposeRegister, "ada@example.org"))
	second := issuedCode(t, mail)

	if first == second {
		t.Skip("generated codes collided")
	}
	err := svc.Verify(ctx, PurposeRegister, "ada@example.org", first)
	assert.ErrorIs(t, err, ErrCodeInvalid)
	assert.NoError(t, svc.Verify(ctx, PurposeRegister, "ada@example.org", second))
}
