package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Service struct {
	URL string `yaml:"url" mapstructure:"url"`
}
type Services struct {
	Emotion   Service       `yaml:"emotion" mapstructure:"emotion"`
	Sentiment Service       `yaml:"sentiment" mapstructure:"sentiment"`
	Audio     Service       `yaml:"audio" mapstructure:"audio"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}
type Audio struct {
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate"`
}
type Video struct {
	// Timeout bounds one whole analysis call; 0 disables it.
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxFrames int           `yaml:"max_frames" mapstructure:"max_frames"`
	FFmpeg    string        `yaml:"ffmpeg" mapstructure:"ffmpeg"`
}
type Server struct {
	Addr        string `yaml:"addr" mapstructure:"addr"`
	MaxUploadMB int64  `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}
type Upload struct {
	ImageExtensions []string `yaml:"image_extensions" mapstructure:"image_extensions"`
	MediaExtensions []string `yaml:"media_extensions" mapstructure:"media_extensions"`
}
type Root struct {
	Pipeline struct {
		Name    string `yaml:"name" mapstructure:"name"`
		Version string `yaml:"version" mapstructure:"version"`
		LogLvl  string `yaml:"log_level" mapstructure:"log_level"`
	} `yaml:"pipeline" mapstructure:"pipeline"`
	Audio    Audio    `yaml:"audio" mapstructure:"audio"`
	Video    Video    `yaml:"video" mapstructure:"video"`
	Services Services `yaml:"services" mapstructure:"services"`
	Server   Server   `yaml:"server" mapstructure:"server"`
	Upload   Upload   `yaml:"upload" mapstructure:"upload"`
	Paths    struct {
		Uploads string `yaml:"uploads" mapstructure:"uploads"`
		Outputs string `yaml:"outputs" mapstructure:"outputs"`
	} `yaml:"paths" mapstructure:"paths"`
}

// EnvPrefix namespaces environment overrides, e.g. EDMO_SERVICES_EMOTION_URL.
const EnvPrefix = "EDMO"

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "edmo-affect")
	v.SetDefault("pipeline.version", "dev")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("video.timeout", 10*time.Minute)
	v.SetDefault("video.max_frames", 0)
	v.SetDefault("video.ffmpeg", "ffmpeg")
	v.SetDefault("services.emotion.url", "http://localhost:8001")
	v.SetDefault("services.sentiment.url", "http://localhost:8002")
	v.SetDefault("services.audio.url", "http://localhost:8003")
	v.SetDefault("services.timeout", 60*time.Second)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload_mb", 512)
	v.SetDefault("upload.image_extensions", []string{"png", "jpg", "jpeg", "gif"})
	v.SetDefault("upload.media_extensions", []string{"mp4", "wav", "mp3", "mov", "avi"})
	v.SetDefault("paths.uploads", "uploads")
	v.SetDefault("paths.outputs", "outputs")
}

// Load reads the configuration. An explicit path must exist; otherwise the
// usual per-environment locations are tried and defaults apply when none is found.
func Load(path string) (*Root, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = guess()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func guess() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	candidates := []string{
		filepath.Join("config", env, "config.yaml"),
		filepath.Join("src", "shared", "config.yaml"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Root) validate() error {
	var errs []error
	if c.Video.MaxFrames < 0 {
		errs = append(errs, fmt.Errorf("video.max_frames must be >= 0, got %d", c.Video.MaxFrames))
	}
	if c.Video.Timeout < 0 {
		errs = append(errs, fmt.Errorf("video.timeout must be >= 0, got %s", c.Video.Timeout))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be > 0, got %d", c.Server.MaxUploadMB))
	}
	return errors.Join(errs...)
}
