package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/de-tools/posture-guard/pkg/services/risk"
	"github.com/rs/zerolog"
)

type Controller interface {
	Start(ctx context.Context) error
	Cancel(ctx context.Context) error
}

type DefaultController struct {
	engine risk.Engine
	config RunnerConfig

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	runner     *Runner
}

func NewController(engine risk.Engine, config RunnerConfig) *DefaultController {
	return &DefaultController{
		engine: engine,
		config: config,
	}
}

// Start launches the background runner. A zero interval leaves scheduling
// disabled.
func (ctrl *DefaultController) Start(ctx context.Context) error {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if ctrl.runner != nil {
		return fmt.Errorf("scoring scheduler already running")
	}
	if ctrl.config.Interval <= 0 {
		zerolog.Ctx(ctx).Info().Msg("scheduled scoring disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	runner := NewRunner(ctrl.engine, ctrl.config)
	ctrl.cancelFunc = cancel
	ctrl.runner = runner

	go runner.Run(ctx)
	return nil
}

// Cancel stops the runner and waits for an in-flight pass to return.
func (ctrl *DefaultController) Cancel(_ context.Context) error {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if ctrl.runner == nil {
		return fmt.Errorf("scoring scheduler not running")
	}
	ctrl.cancelFunc()
	<-ctrl.runner.Done()

	ctrl.runner = nil
	ctrl.cancelFunc = nil
	return nil
}

// Progress returns the progress feed of the current runner, nil when stopped.
func (ctrl *DefaultController) Progress() <-chan RunnerProgress {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if ctrl.runner == nil {
		return nil
	}
	return ctrl.runner.Progress()
}
