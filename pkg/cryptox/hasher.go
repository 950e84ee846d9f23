package cryptox

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Hasher runs Argon2id computations with a cap on how many run at once.
// Every computation holds ~19 MiB, so an unbounded burst of logins would
// translate directly into memory pressure.
type Hasher struct {
	sem *semaphore.Weighted

	dummyOnce sync.Once
	dummyHash string
	dummyErr  error
}

// NewHasher returns a Hasher allowing maxConcurrent simultaneous computations.
// Values <= 0 default to GOMAXPROCS.
func NewHasher(maxConcurrent int) *Hasher {
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}
	return &Hasher{sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

// Hash produces a PHC-encoded Argon2id hash of password.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	return HashPassword(password)
}

// Verify checks password against encoded. See VerifyPassword for the error contract.
func (h *Hasher) Verify(ctx context.Context, password, encoded string) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)

	return VerifyPassword(password, encoded)
}

// VerifyDummy spends the same work as Verify against a throwaway hash. It is
// used when no stored hash exists so the caller's timing does not reveal that.
func (h *Hasher) VerifyDummy(ctx context.Context, password string) error {
	h.dummyOnce.Do(func() {
		h.dummyHash, h.dummyErr = HashPassword(MustGenerateToken(TokenSize256))
	})
	if h.dummyErr != nil {
		return h.dummyErr
	}

	err := h.Verify(ctx, password, h.dummyHash)
	if err == nil {
		// Unreachable in practice; never let the dummy stand in for a real match.
		return ErrPasswordMismatch
	}
	return err
}
