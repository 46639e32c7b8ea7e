package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"go.uber.org/zap"
)

const (
	brandingKey     = "branding"
	brandingChannel = "branding"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// PlatformConfig is the observable platform branding. Updates are stored in
// the preferences store and published, so every instance and every
// subscriber sees the latest value.
type PlatformConfig struct {
	prefs  port.Prefs
	now    func() time.Time
	logger *zap.Logger

	// writeMu serializes Update from stamping to commit, so stamps are
	// strictly increasing and the stored value matches current.
	writeMu sync.Mutex

	mu      sync.Mutex
	current domain.Branding
	subs    map[chan domain.Branding]struct{}
}

// NewPlatformConfig creates the branding holder with the default branding.
func NewPlatformConfig(prefs port.Prefs, logger *zap.Logger) *PlatformConfig {
	return &PlatformConfig{
		prefs:   prefs,
		now:     time.Now,
		logger:  logger,
		current: domain.DefaultBranding(),
		subs:    make(map[chan domain.Branding]struct{}),
	}
}

// Start loads the stored branding and relays updates published by other
// instances until ctx ends.
func (p *PlatformConfig) Start(ctx context.Context) error {
	raw, ok, err := p.prefs.Get(ctx, brandingKey)
	if err != nil {
		return fmt.Errorf("load branding: %w", err)
	}
	if ok {
		var b domain.Branding
		if err := json.Unmarshal(raw, &b); err != nil {
			p.logger.Warn("stored branding is not valid JSON, using default", zap.Error(err))
		} else {
			p.apply(b)
		}
	}

	updates, err := p.prefs.Subscribe(ctx, brandingChannel)
	if err != nil {
		return fmt.Errorf("subscribe branding: %w", err)
	}
	go func() {
		for raw := range updates {
			var b domain.Branding
			if err := json.Unmarshal(raw, &b); err != nil {
				p.logger.Warn("ignoring malformed branding update", zap.Error(err))
				continue
			}
			p.apply(b)
		}
	}()
	return nil
}

// Get returns the current branding.
func (p *PlatformConfig) Get() domain.Branding {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Update validates and stores b, then notifies every subscriber.
func (p *PlatformConfig) Update(ctx context.Context, b domain.Branding) (domain.Branding, error) {
	b.PlatformName = strings.TrimSpace(b.PlatformName)
	if b.PlatformName == "" {
		return domain.Branding{}, &domain.ErrValidation{Field: "platformName", Message: "Nome da plataforma é obrigatório"}
	}
	for field, color := range map[string]string{"primaryColor": b.PrimaryColor, "secondaryColor": b.SecondaryColor} {
		if color != "" && !hexColor.MatchString(color) {
			return domain.Branding{}, &domain.ErrValidation{Field: field, Message: "Cor deve estar no formato #RRGGBB"}
		}
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	b.UpdatedAt = p.now().UTC()
	if !b.UpdatedAt.After(p.current.UpdatedAt) {
		b.UpdatedAt = p.current.UpdatedAt.Add(time.Microsecond)
	}
	p.mu.Unlock()

	raw, err := json.Marshal(b)
	if err != nil {
		return domain.Branding{}, err
	}
	if err := p.prefs.Set(ctx, brandingKey, raw); err != nil {
		return domain.Branding{}, &domain.ErrExternalService{Service: "prefs", Err: err}
	}
	p.apply(b)
	if err := p.prefs.Publish(ctx, brandingChannel, raw); err != nil {
		p.logger.Warn("branding publish failed", zap.Error(err))
	}
	p.logger.Info("branding updated", zap.String("platform_name", b.PlatformName))
	return b, nil
}

// Subscribe returns a channel that receives the current branding and then
// every change. A slow reader only sees the latest value. The channel is
// closed when ctx ends.
func (p *PlatformConfig) Subscribe(ctx context.Context) <-chan domain.Branding {
	ch := make(chan domain.Branding, 1)

	p.mu.Lock()
	ch <- p.current
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.subs, ch)
		close(ch)
		p.mu.Unlock()
	}()
	return ch
}

// apply installs b if it is newer than the current branding.
func (p *PlatformConfig) apply(b domain.Branding) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !b.UpdatedAt.After(p.current.UpdatedAt) {
		return
	}
	p.current = b
	for ch := range p.subs {
		select {
		case ch <- b:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- b
		}
	}
}
