package domain

// AuthMode identifies how an account authenticates against the provider.
// The mode is decided once at construction and never re-derived.
type AuthMode string

const (
	// ModeTenant is application-level access using a client secret.
	// Tokens are not bound to a signed-in user.
	ModeTenant AuthMode = "tenant"
	// ModePersonal is user-delegated access for a signed-in account.
	ModePersonal AuthMode = "personal"
	// ModeStatic adopts an externally supplied access token verbatim.
	// Static tokens are never refreshed or cleared automatically.
	ModeStatic AuthMode = "static"
)

// AuthConfig is a tagged credential variant. Exactly one concrete
// variant is active for the lifetime of a client.
type AuthConfig interface {
	Mode() AuthMode
}

// TenantAuth holds client-credential grant configuration.
type TenantAuth struct {
	ClientID     string
	TenantID     string
	ClientSecret string
	// Scopes defaults to the Graph application default scope when empty.
	Scopes []string
}

// Mode returns ModeTenant.
func (TenantAuth) Mode() AuthMode { return ModeTenant }

// PersonalAuth holds user-delegated grant configuration. Password is
// optional; without it the device-code flow is the only non-cached path.
type PersonalAuth struct {
	ClientID string
	Username string
	Password string
	// Scopes defaults to mail read/write when empty.
	Scopes []string
}

// Mode returns ModePersonal.
func (PersonalAuth) Mode() AuthMode { return ModePersonal }

// StaticAuth wraps a pre-supplied bearer token.
type StaticAuth struct {
	AccessToken string
}

// Mode returns ModeStatic.
func (StaticAuth) Mode() AuthMode { return ModeStatic }
