package commands

import (
	"context"
	"fmt"

	"github.com/de-tools/posture-guard/pkg/runtime/app"
)

// Opener builds the application for one command invocation.
type Opener func(ctx context.Context) (*app.App, error)

func withApp(ctx context.Context, open Opener, fn func(a *app.App) error) error {
	a, err := open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open inventory: %w", err)
	}
	defer a.Close(ctx)

	return fn(a)
}
