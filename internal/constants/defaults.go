package constants

// Default polling and retry configuration values
const (
	DefaultPollIntervalSec = 3
	DefaultPollTimeoutSec  = 10
	DefaultRetryBackoffMs  = 500
	DefaultMaxBackoffMs    = 5000
	DefaultMaxAttempts     = 3
)

// Default server values
const (
	DefaultServerPort           = 8084
	DefaultServerReadTimeoutSec = 15
	DefaultServerWriteTimeout   = 15
	DefaultServerIdleTimeoutSec = 60
	DefaultGracefulShutdownSec  = 30
)

// Default cache values
const (
	DefaultUnreadCacheTTLSec = 5
)

// Chat behaviour
const (
	// DefaultAgentName is the display name for system-synthesized messages.
	DefaultAgentName = "Travel Assistant"

	// WelcomeMessage is the fixed greeting synthesized after a customer's first
	// message. It must mention "name" so the next customer reply is treated as
	// a potential name answer.
	WelcomeMessage = "Hello! Welcome to our travel support chat. May I have your name, please?"

	// GuestNamePrefix is used for auto-generated placeholder customer names.
	GuestNamePrefix = "Guest"
)

// Input limits
const (
	MaxMessageContentLength = 4000
	MaxSenderNameLength     = 100
	MaxCustomerNameLength   = 30
	MinCustomerNameLength   = 2
	MaxCustomerNameWords    = 4
	MinPhoneNumberLength    = 7
	MaxPhoneNumberLength    = 20
)

// Encryption salts for PII-at-rest key derivation
const (
	EncryptionSalt = "tripchat-pii-salt-v1"
)
