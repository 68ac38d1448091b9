package filecenter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gobeaver/beaver-kit/config"
)

// Global instance
var (
	defaultFC   *FileCenter
	defaultOnce sync.Once
	defaultErr  error
)

// Builder provides a way to create FileCenter instances with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified environment prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Init initializes the global FileCenter instance using the builder's prefix
func (b *Builder) Init(opts ...CenterOption) error {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return err
	}
	return Init(cfg, opts...)
}

// New creates a new FileCenter instance using the builder's prefix
func (b *Builder) New(opts ...CenterOption) (*FileCenter, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Init initializes the global file center. A nil config is loaded from the
// environment.
func Init(cfg *Config, opts ...CenterOption) error {
	defaultOnce.Do(func() {
		if cfg == nil {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultFC, defaultErr = New(cfg, opts...)
	})

	return defaultErr
}

// New creates a new file center with given config. Options are applied
// after the config, so they take precedence. A positive SweepInterval starts
// the expiry sweeper, which runs until Close.
func New(cfg *Config, opts ...CenterOption) (*FileCenter, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Already validated, errors are impossible here
	lifetime, _ := parseDuration(cfg.TemporaryLifetime)
	cacheTTL, _ := parseDuration(cfg.CacheTTL)

	store, err := CreateDriver(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	if key, _ := cfg.encryptionKey(); key != nil {
		encrypted, err := NewEncryptedStore(store, key)
		if err != nil {
			closeStore(store)
			return nil, err
		}
		store = encrypted
	}

	index, err := CreateIndex(cfg)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	if cacheTTL > 0 {
		index = NewCachingIndex(index, NewMemoryCache(), cacheTTL)
	}

	base := []CenterOption{
		WithBufferThreshold(cfg.BufferThreshold),
		WithMaxFileSize(cfg.MaxFileSize),
		WithTemporaryLifetime(lifetime),
	}

	fc, err := NewFileCenter(store, index, []byte(cfg.IDTokenSecret), append(base, opts...)...)
	if err != nil {
		_ = index.Close()
		closeStore(store)
		return nil, err
	}

	fc.StartSweeper(context.Background(), cfg.SweepIntervalDuration())

	return fc, nil
}

func closeStore(store BlobStore) {
	if c, ok := store.(Closer); ok {
		_ = c.Close()
	}
}

// SweepIntervalDuration returns the configured sweeper interval, zero if
// disabled.
func (c *Config) SweepIntervalDuration() time.Duration {
	d, _ := parseDuration(c.SweepInterval)
	return d
}

// Default returns the global instance, initializing it from the environment
// if needed
func Default() (*FileCenter, error) {
	if err := Init(nil); err != nil {
		return nil, err
	}
	return defaultFC, nil
}

// NewFromEnv creates an instance from environment variables
func NewFromEnv(opts ...CenterOption) (*FileCenter, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Reset clears the global instance (for testing)
func Reset() {
	if defaultFC != nil {
		_ = defaultFC.Close()
	}
	defaultFC = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}
