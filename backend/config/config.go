package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Running struct {
		Port      int    `mapstructure:"port"`
		SessionID string `mapstructure:"sessionId"`
		// 排队等浏览器的最长时间
		AcquireTimeout time.Duration `mapstructure:"acquireTimeout"`
		RingCap        int           `mapstructure:"ringCap"`
	} `mapstructure:"running"`
	Browser struct {
		Name                string        `mapstructure:"name"`
		URL                 string        `mapstructure:"url"`
		Headless            bool          `mapstructure:"headless"`
		FrameSelector       string        `mapstructure:"frameSelector"`
		EditorSelector      string        `mapstructure:"editorSelector"`
		ToolbarSelector     string        `mapstructure:"toolbarSelector"`
		ActiveFormatsScript string        `mapstructure:"activeFormatsScript"`
		ActionTimeout       time.Duration `mapstructure:"actionTimeout"`
	} `mapstructure:"browser"`
	Platform struct {
		// 为空时使用 runtime.GOOS
		OS string `mapstructure:"os"`
	} `mapstructure:"platform"`
	Format struct {
		ShortcutWeight int   `mapstructure:"shortcutWeight"`
		ToolbarWeight  int   `mapstructure:"toolbarWeight"`
		Seed           int64 `mapstructure:"seed"`
		// nil 使用默认值，空列表表示不恢复
		Baselines []struct {
			Control string `mapstructure:"control"`
			Value   string `mapstructure:"value"`
		} `mapstructure:"baselines"`
	} `mapstructure:"format"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		StateTTL time.Duration `mapstructure:"stateTTL"`
	} `mapstructure:"redis"`
	Mysql struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"mysql"`
	Kafka struct {
		Brokers     []string `mapstructure:"brokers"`
		Topic       string   `mapstructure:"topic"`
		ReplayTopic string   `mapstructure:"replayTopic"`
		ReplayGroup string   `mapstructure:"replayGroup"`
		ReplayDocID string   `mapstructure:"replayDocId"`
	} `mapstructure:"kafka"`
	Auth struct {
		JWTSecret string `mapstructure:"jwtSecret"`
	} `mapstructure:"auth"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("running.port", 3003)
	v.SetDefault("running.sessionId", "default")
	v.SetDefault("running.acquireTimeout", 30*time.Second)
	v.SetDefault("running.ringCap", 1024)
	v.SetDefault("browser.name", "chrome")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.frameSelector", "iframe")
	v.SetDefault("browser.editorSelector", "body")
	v.SetDefault("browser.actionTimeout", 10*time.Second)
	v.SetDefault("redis.stateTTL", 24*time.Hour)
	v.SetDefault("kafka.replayGroup", "fuzz-adapter")
}

// Load 读取 fuzzConfig.yaml，兼容从项目根目录或 backend 目录启动。
// 环境变量 FUZZ_<SECTION>_<KEY> 可以覆盖配置项。
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("fuzzConfig")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./backend/config", "./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("fuzz")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
