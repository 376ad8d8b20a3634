package progress

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/webverselabs/webverse/internal/webverse/cache"
	"github.com/webverselabs/webverse/internal/webverse/lab"
)

// Solver verifies a submitted flag and updates progress accordingly.
// Both deployment modes implement it.
type Solver interface {
	// SubmitFlag returns ok=false with a human-readable reason for a
	// rejected flag; err is reserved for infrastructure failures.
	SubmitFlag(ctx context.Context, l *lab.Lab, flag string) (ok bool, reason string, err error)
}

// SubmitFlag checks the flag against the manifest hash locally
func (l *Local) SubmitFlag(ctx context.Context, target *lab.Lab, flag string) (bool, string, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return false, "Empty flag.", nil
	}
	if target.FlagSHA256 == "" {
		return false, "", fmt.Errorf("lab %q has no flag hash in its manifest", target.ID)
	}

	sum := sha256.Sum256([]byte(flag))
	if hex.EncodeToString(sum[:]) != target.FlagSHA256 {
		if err := l.MarkAttempt(ctx, target.ID); err != nil {
			return false, "", err
		}
		return false, "Incorrect flag.", nil
	}

	if err := l.MarkSolved(ctx, target.ID); err != nil {
		return false, "", err
	}
	return true, "", nil
}

// SubmitFlag forwards the flag to the authority. After an accepted
// submission the authority applies the solve asynchronously, so the
// cache re-polls with forced reads until the solve is visible (or the
// attempt budget runs out, which is deliberately not an error).
func (r *Remote) SubmitFlag(ctx context.Context, target *lab.Lab, flag string) (bool, string, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return false, "Empty flag.", nil
	}

	res, err := r.api.SubmitFlag(ctx, r.deviceID, target.ID, flag)
	if err != nil {
		return false, "", err
	}
	if !res.OK {
		if merr := r.MarkAttempt(ctx, target.ID); merr != nil {
			return false, "", merr
		}
		reason := res.Error
		if reason == "" {
			reason = res.Detail
		}
		if reason == "" {
			reason = "Invalid flag."
		}
		return false, reason, nil
	}

	r.invalidate(target.ID)
	cache.AwaitConvergence(ctx, cache.DefaultConvergeOptions(), func(ctx context.Context) bool {
		m, err := r.MapForce(ctx)
		if err != nil {
			return false
		}
		rec, ok := m[target.ID]
		return ok && rec.Solved()
	})
	return true, "", nil
}
