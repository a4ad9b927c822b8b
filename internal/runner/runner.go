// Package runner drives an acquisition.Engine to completion on a
// single goroutine, grounded on the teacher's TCPServer poll loop and
// its signal-driven handleShutdown — here adapted to tick a
// cooperative state machine instead of accepting connections.
package runner

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liultimate/siglent-acq/internal/acquisition"
)

// Runner repeatedly ticks an Engine until it reports Done or Failed,
// or until an OS signal or external Stop() request cancels the run.
type Runner struct {
	engine *acquisition.Engine
	log    *logrus.Logger

	shutdown chan struct{}
}

func New(engine *acquisition.Engine, log *logrus.Logger) *Runner {
	return &Runner{engine: engine, log: log, shutdown: make(chan struct{})}
}

// Run starts the acquisition and polls it to completion, honoring
// SIGINT/SIGTERM as a request to stop after the current tick.
func (r *Runner) Run(limitFrames uint64, tickInterval time.Duration) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := r.engine.Start(limitFrames); err != nil {
		return fmt.Errorf("启动采集失败: %w", err)
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigChan:
			r.log.Infof("收到信号: %v, 停止采集...", sig)
			r.engine.Stop()
			return nil
		case <-r.shutdown:
			r.log.Info("收到停止请求, 停止采集...")
			r.engine.Stop()
			return nil
		case <-ticker.C:
			status, err := r.engine.Tick()
			switch status {
			case acquisition.NeedIO:
				continue
			case acquisition.Done:
				r.log.Info("采集完成")
				return nil
			case acquisition.Failed:
				r.log.Errorf("采集失败: %v", err)
				return err
			}
		}
	}
}

// Stop requests the run loop to cancel the in-progress acquisition and
// return. Safe to call once from another goroutine.
func (r *Runner) Stop() {
	close(r.shutdown)
}
