package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback site name.
	DefaultSiteName = "memberd"
	// MailDomainKey is the DB config key for the member mail-out domain.
	MailDomainKey = "MAIL_DOMAIN"
	// DefaultMailDomain is the fallback mail-out domain.
	DefaultMailDomain = "example.org"
	// LoginRateLimitKey controls login attempts allowed per window.
	LoginRateLimitKey = "LOGIN_RATE_LIMIT"
	// DefaultLoginRateLimit is the fallback login attempt limit (0 disables).
	DefaultLoginRateLimit = 5
)
