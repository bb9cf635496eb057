package templates

import (
	"context"
	"strings"
	"time"

	"github.com/prernathite123/SchoolManagement/config"
)

// Option mutates EmailData before rendering.
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithVerifyURL(url string) Option { return func(d *EmailData) { d.VerifyURL = url } }

func WithExpiresIn(dur time.Duration) Option {
	return func(d *EmailData) {
		utc := time.Now().Add(dur).UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04")
	}
}

func WithLocation(loc string) Option {
	return func(d *EmailData) {
		if s := strings.TrimSpace(loc); s != "" {
			d.Location = s
		}
	}
}

func WithGeoFromIP(ctx context.Context, r GeoResolver, ip string) Option {
	return func(d *EmailData) {
		if r == nil || strings.TrimSpace(ip) == "" {
			return
		}
		if g, err := r.Lookup(ctx, ip); err == nil {
			if s := FormatGeo(g); s != "" {
				d.Location = s
			}
		}
	}
}

// NewBaseEmailData fills school branding from config, then applies options.
func NewBaseEmailData(cfg *config.Config, typ, name, email, recipient string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: recipient,
		Type:           typ,

		SchoolName:    cfg.SchoolName,
		SchoolAddress: cfg.SchoolAddress,
		AppName:       cfg.AppName,
		LogoURL:       cfg.LogoURL,
		SupportURL:    cfg.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewVerifyEmailData(cfg *config.Config, name, email, verifyURL string, opts ...Option) EmailData {
	opts = append([]Option{WithVerifyURL(verifyURL)}, opts...)
	return NewBaseEmailData(cfg, VerifyEmail, name, email, email, opts...)
}

func NewWelcomeData(cfg *config.Config, name, email string, opts ...Option) map[string]any {
	d := NewBaseEmailData(cfg, Welcome, name, email, email, opts...)
	return ToMap(d)
}

func NewLoginNotificationData(cfg *config.Config, name, email string, opts ...Option) map[string]any {
	d := NewBaseEmailData(cfg, LoginNotification, name, email, email, opts...)
	return ToMap(d)
}
