// Command acqtool drives a Siglent scope acquisition end to end: reads
// AppConfig, builds the transport/emitter/archive stack, and runs the
// acquisition engine until it completes or is interrupted.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/liultimate/siglent-acq/internal/acquisition"
	"github.com/liultimate/siglent-acq/internal/archive"
	"github.com/liultimate/siglent-acq/internal/config"
	"github.com/liultimate/siglent-acq/internal/emitter"
	"github.com/liultimate/siglent-acq/internal/models"
	"github.com/liultimate/siglent-acq/internal/monitor"
	"github.com/liultimate/siglent-acq/internal/runner"
	"github.com/liultimate/siglent-acq/internal/transport"
	"github.com/liultimate/siglent-acq/pkg/waveform"
)

var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "acqtool",
		Short: "Siglent 示波器采集工具",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "configs/config.yaml", "配置文件路径")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("acqtool v%s (Build: %s)\n", Version, BuildTime)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "执行一次采集",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAcquisition(configFile)
		},
	})

	return root
}

func runAcquisition(configFile string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v, 使用默认配置\n", err)
		cfg = config.GetDefaultConfig()
	}

	log := setupLogger(cfg.Log)
	log.Infof("acqtool v%s 启动中...", Version)

	model, err := models.Lookup(cfg.Device.Model)
	if err != nil {
		return fmt.Errorf("查找型号失败: %w", err)
	}
	source, err := parseDataSource(cfg.Device.DataSource)
	if err != nil {
		return err
	}

	// 真实USBTMC传输不在范围内，这里使用仿真传输作为演示载体。
	sim := transport.NewSim()

	var sink emitter.Emitter
	redisEmitter, err := emitter.NewRedisEmitter(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.Channel, cfg.Redis.DB, cfg.Redis.PoolSize, log)
	if err != nil {
		log.Warnf("连接Redis失败，改用内存收集器: %v", err)
		sink = emitter.NewCollecting()
	} else {
		sink = redisEmitter
		defer redisEmitter.Close()
	}

	mon := monitor.NewMonitor(log)
	metrics := monitor.NewMetrics()
	metrics.Register()
	if cfg.Monitor.Enabled {
		mon.StartMetricsServer(cfg.Monitor.MetricsPort)
		mon.StartRuntimeMonitor()
	}

	var store *archive.Store
	if cfg.Archive.Enabled {
		store, err = archive.Open(cfg.Archive.Path)
		if err != nil {
			log.Warnf("打开归档失败: %v", err)
		} else {
			defer store.Close()
		}
	}

	engine := acquisition.NewEngine(sim, sink, log, model, source)
	engine.SetMetrics(metrics)
	startedAt := time.Now()
	engine.OnStop(func(runErr error) {
		if store == nil {
			return
		}
		record := waveform.RunRecord{
			Model:      model.Name,
			Family:     model.Family,
			Frames:     engine.Frames(),
			StartedAt:  startedAt,
			FinishedAt: time.Now(),
			Err:        errString(runErr),
		}
		if err := store.Put(record); err != nil {
			log.Warnf("保存运行记录失败: %v", err)
		}
	})

	r := runner.New(engine, log)
	return r.Run(cfg.Device.LimitFrames, cfg.Device.PollInterval)
}

func parseDataSource(s string) (waveform.DataSource, error) {
	switch s {
	case "", "screen":
		return waveform.SourceScreen, nil
	case "history":
		return waveform.SourceHistory, nil
	case "read_only":
		return waveform.SourceReadOnly, nil
	default:
		return 0, fmt.Errorf("未知的数据来源: %s", s)
	}
}

func setupLogger(cfg config.LogSection) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}

	if cfg.Output == "file" && cfg.FilePath != "" {
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err == nil {
			log.SetOutput(file)
		} else {
			log.Warnf("打开日志文件失败: %v, 使用标准输出", err)
		}
	}

	return log
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
