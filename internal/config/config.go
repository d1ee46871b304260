// Package config loads and hot-reloads engine configuration: cluster
// context, namespace, project name, retry caps, and LLM provider settings.
// Hot-reload is implemented with github.com/fsnotify/fsnotify, the same
// dependency the teacher (jordigilh/kubernaut) carries for exactly this
// purpose.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Config is the engine's full runtime configuration.
type Config struct {
	// Context is the kubeconfig context to operate against.
	Context string `yaml:"context"`
	// Namespace is the namespace the cycle deploys into.
	Namespace string `yaml:"namespace"`
	// ProjectName labels every resource this cycle owns.
	ProjectName string `yaml:"project_name"`

	MaxRetries          int `yaml:"max_retries"`
	MaxNumSteadyStates  int `yaml:"max_num_steady_states"`
	DeadlineMarginSec   int `yaml:"deadline_margin_seconds"`
	CheckIntervalSec    int `yaml:"check_interval_seconds"`
	InspectionTimeoutSec int `yaml:"inspection_timeout_seconds"`

	CleanBefore     bool `yaml:"clean_before"`
	CleanAfter      bool `yaml:"clean_after"`
	IsNewDeployment bool `yaml:"is_new_deployment"`

	// ProbeImage is the interpreter image the Inspection Runner runs
	// every probe script and load test under.
	ProbeImage string `yaml:"probe_image"`

	// DeployCommand/DeployArgs name the external deploy tool the Improver
	// shells out to, e.g. "kubectl" ["apply", "-k"].
	DeployCommand string   `yaml:"deploy_command"`
	DeployArgs    []string `yaml:"deploy_args"`

	// SlackWebhookURL, when set, receives a best-effort cycle-completion
	// notification. Empty disables notification entirely.
	SlackWebhookURL string `yaml:"slack_webhook_url"`

	// Redis configures the advisory lease guarding one
	// (context, namespace, project) triple per concurrent cycle. Addr==""
	// disables leasing: the CLI then trusts the operator not to launch two
	// overlapping cycles against the same triple.
	Redis RedisConfig `yaml:"redis"`

	LLM LLMConfig `yaml:"llm"`
}

// RedisConfig configures internal/lease's advisory lock.
type RedisConfig struct {
	Addr string        `yaml:"addr"`
	DB   int           `yaml:"db"`
	TTL  time.Duration `yaml:"ttl"`
}

// LLMConfig configures the opaque structured-oracle backend.
type LLMConfig struct {
	Provider       string        `yaml:"provider"` // currently only "anthropic"
	Model          string        `yaml:"model"`
	APIKeyEnv      string        `yaml:"api_key_env"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	HistoryWindow  int           `yaml:"history_window"`
}

// Default returns the engine's baseline configuration.
func Default() Config {
	return Config{
		Namespace:            "default",
		ProjectName:          "chaoshunter",
		MaxRetries:           3,
		MaxNumSteadyStates:   5,
		DeadlineMarginSec:    300,
		CheckIntervalSec:     5,
		InspectionTimeoutSec: 120,
		ProbeImage:           "busybox:1.36",
		DeployCommand:        "kubectl",
		DeployArgs:           []string{"apply", "-k"},
		Redis: RedisConfig{
			Addr: "",
			DB:   0,
			TTL:  10 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:      "anthropic",
			Model:         "claude-sonnet-4-5",
			APIKeyEnv:     "ANTHROPIC_API_KEY",
			Timeout:       60 * time.Second,
			MaxRetries:    5,
			MaxBackoff:    30 * time.Second,
			HistoryWindow: 5,
		},
	}
}

// Load reads a YAML config file, falling back to Default() for unset
// fields found missing at the top level (zero-value fields in the decoded
// struct are left as Default()'s values by decoding onto a pre-populated
// copy).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Watcher reloads Config from disk whenever the backing file changes and
// hands the new value to OnReload. Reload errors are swallowed and logged
// by the caller via the returned error channel — a bad edit must not crash
// a running cycle.
type Watcher struct {
	path     string
	mu       sync.RWMutex
	current  Config
	OnReload func(Config)
	Errors   chan error

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher starts watching path for changes, seeding Current() with an
// initial Load.
func NewWatcher(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	if path != "" {
		if err := fw.Add(path); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watching config %s: %w", path, err)
		}
	}

	w := &Watcher{
		path:    path,
		current: cfg,
		Errors:  make(chan error, 8),
		watcher: fw,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer w.watcher.Close()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				select {
				case w.Errors <- err:
				default:
				}
				continue
			}
			w.mu.Lock()
			w.current = cfg
			w.mu.Unlock()
			if w.OnReload != nil {
				w.OnReload(cfg)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		}
	}
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops the watcher goroutine.
func (w *Watcher) Close() error {
	close(w.done)
	return nil
}
