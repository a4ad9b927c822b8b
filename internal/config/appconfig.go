// Package config holds the host-level AppConfig (scope model, data
// source, log/monitor/sink/archive settings) and the DeviceConfigReader
// that refreshes waveform.DeviceConfig over SCPI (spec.md §4.3). The
// two are distinct: AppConfig is how this process is wired up;
// DeviceConfig is scope-side state read off the instrument.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Device  DeviceSection  `yaml:"device"`
	Redis   RedisSection   `yaml:"redis"`
	Archive ArchiveSection `yaml:"archive"`
	Log     LogSection     `yaml:"log"`
	Monitor MonitorSection `yaml:"monitor"`
}

type DeviceSection struct {
	Model        string        `yaml:"model"`
	DataSource   string        `yaml:"data_source"` // screen|history|read_only
	LimitFrames  uint64        `yaml:"limit_frames"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type RedisSection struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Channel  string `yaml:"channel"`
}

type ArchiveSection struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LogSection struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitorSection struct {
	Enabled     bool `yaml:"enabled"`
	MetricsPort int  `yaml:"metrics_port"`
}

// LoadConfig 加载配置文件
func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &cfg, nil
}

// GetDefaultConfig 返回默认配置
func GetDefaultConfig() *AppConfig {
	return &AppConfig{
		Device: DeviceSection{
			Model:        "SDS1104X-E",
			DataSource:   "screen",
			LimitFrames:  1,
			PollInterval: 10 * time.Millisecond,
		},
		Redis: RedisSection{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			Channel:  "siglent_acq",
		},
		Archive: ArchiveSection{
			Enabled: true,
			Path:    "acq-runs.db",
		},
		Log: LogSection{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Monitor: MonitorSection{
			Enabled:     true,
			MetricsPort: 9090,
		},
	}
}
