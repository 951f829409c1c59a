package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout = 30 * time.Second
	TestTimeout        = 100 * time.Millisecond

	// Notification polling
	NotificationPollInterval = 30 * time.Second

	// State file locking
	StateLockTimeout   = 5 * time.Second
	StateLockRetryStep = 100 * time.Millisecond

	// Poller shutdown
	PollerShutdownTimeout = 5 * time.Second
)

// Connection defaults
const (
	DefaultBaseURL = "http://localhost:5130/api"
)

// Identity defaults matching the original deployment
const (
	DefaultEmailDomain     = "@adventz.com"
	DefaultSuperadminEmail = "superadmin@adventz.com"
	DefaultCEOEmail        = "ceo@adventz.com"
)

// Client state file names under StorageConfig.Dir
const (
	SessionFileName    = "session.json"
	RememberFileName   = "remember.json"
	FormConfigFileName = "form_config.json"
)

// Listing limits
const (
	TopIdeasLimit = 10

	// Upstream error bodies are cut to this many bytes in messages
	ErrorBodyPreviewLimit = 100
)
