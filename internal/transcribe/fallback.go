package transcribe

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type fallback struct {
	primary   Transcriber
	secondary Transcriber
}

// WithFallback tries primary and, if it fails, secondary exactly once.
func WithFallback(primary, secondary Transcriber) Transcriber {
	return &fallback{primary: primary, secondary: secondary}
}

func (f *fallback) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *fallback) Transcribe(ctx context.Context, path string) (*Result, error) {
	res, err := f.primary.Transcribe(ctx, path)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	logutil.GetLogger(ctx).Warn("primary transcription failed, falling back",
		zap.String("primary", f.primary.Name()),
		zap.String("secondary", f.secondary.Name()),
		zap.Error(err),
	)
	res, ferr := f.secondary.Transcribe(ctx, path)
	if ferr != nil {
		return nil, fmt.Errorf("%s: %w (after %s: %v)", f.secondary.Name(), ferr, f.primary.Name(), err)
	}
	return res, nil
}
