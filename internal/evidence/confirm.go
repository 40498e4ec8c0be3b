package evidence

import (
	"context"
	"time"
)

// Confirmer is the upstream confirmation step a processing record waits on.
type Confirmer interface {
	Confirm(ctx context.Context, file SourceFile) (Proof, error)
}

type ConfirmFunc func(ctx context.Context, file SourceFile) (Proof, error)

func (f ConfirmFunc) Confirm(ctx context.Context, file SourceFile) (Proof, error) {
	return f(ctx, file)
}

// DelayConfirmer succeeds unconditionally after Delay. It supplies no
// references, so both are synthesized.
type DelayConfirmer struct {
	Delay time.Duration
}

func (d DelayConfirmer) Confirm(ctx context.Context, _ SourceFile) (Proof, error) {
	if err := sleep(ctx, d.Delay); err != nil {
		return Proof{}, err
	}
	return Proof{}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
