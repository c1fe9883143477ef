// Package msal acquires Microsoft identity platform tokens for Graph access.
//
// Three modes are supported, fixed at construction: tenant
// (client-credential grant, application tokens), personal (user-delegated
// tokens through a cache / username-password / device-code fallback
// chain) and static (a pre-supplied token adopted verbatim).
package msal

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
	"golang.org/x/oauth2"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
	"github.com/tidemark-labs/mailpoll/internal/core/ports/driven"
	"github.com/tidemark-labs/mailpoll/internal/logger"
)

const (
	authorityBase = "https://login.microsoftonline.com/"
	// consumersAuthority serves personal Microsoft accounts.
	consumersAuthority = authorityBase + "consumers"
)

// Default scopes per mode. Tenant tokens carry the application's
// consented Graph permissions; personal tokens request mail read/write.
var (
	defaultTenantScopes   = []string{"https://graph.microsoft.com/.default"}
	defaultPersonalScopes = []string{"Mail.ReadWrite"}
)

// DeviceCodeNotify surfaces the device-code instruction message
// (verification URL plus user code) to whoever can act on it.
type DeviceCodeNotify func(message string)

// Ensure Authenticator implements the port.
var _ driven.TokenProvider = (*Authenticator)(nil)

// Authenticator produces bearer tokens for one account.
//
// The MSAL application object is built lazily on first use and reused
// across Connect calls; it owns the provider's in-process token cache,
// so a Disconnect followed by a Connect may be served without network I/O.
// Intended for single-owner use; the mutex only guards against
// accidental sharing.
type Authenticator struct {
	cfg    domain.AuthConfig
	notify DeviceCodeNotify

	mu     sync.Mutex
	token  string
	static oauth2.TokenSource
	conf   *confidential.Client
	pub    *public.Client
}

// New creates an Authenticator for the given credential variant.
// notify may be nil, in which case device-code instructions are logged.
func New(cfg domain.AuthConfig, notify DeviceCodeNotify) *Authenticator {
	a := &Authenticator{cfg: cfg, notify: notify}
	if st, ok := cfg.(domain.StaticAuth); ok {
		a.static = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: st.AccessToken})
	}
	return a
}

// Mode reports the authentication mode fixed at construction.
func (a *Authenticator) Mode() domain.AuthMode {
	return a.cfg.Mode()
}

// GetToken returns the held token, connecting first if none is held.
func (a *Authenticator) GetToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	token := a.token
	a.mu.Unlock()

	if token != "" {
		return token, nil
	}
	return a.Connect(ctx)
}

// Connect produces or refreshes the held token. Failure to obtain a
// token is fatal to the requested operation; no retry is attempted and
// no stale token survives the failure.
func (a *Authenticator) Connect(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.token = ""

	var (
		token string
		err   error
	)
	switch cfg := a.cfg.(type) {
	case domain.StaticAuth:
		token, err = a.connectStatic()
	case domain.TenantAuth:
		token, err = a.connectTenant(ctx, cfg)
	case domain.PersonalAuth:
		token, err = a.connectPersonal(ctx, cfg)
	default:
		return "", fmt.Errorf("msal: unsupported auth config %T", a.cfg)
	}
	if err != nil {
		return "", err
	}

	a.token = token
	return token, nil
}

// connectStatic adopts the externally supplied token verbatim.
// No network call is made, on every Connect for the object's lifetime.
func (a *Authenticator) connectStatic() (string, error) {
	tok, err := a.static.Token()
	if err != nil {
		return "", fmt.Errorf("static token: %w", err)
	}
	return tok.AccessToken, nil
}

// connectTenant acquires an application token via the client-credential
// grant, consulting the in-process silent cache first.
func (a *Authenticator) connectTenant(ctx context.Context, cfg domain.TenantAuth) (string, error) {
	app, err := a.confidentialApp(cfg)
	if err != nil {
		return "", fmt.Errorf("create confidential client: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultTenantScopes
	}

	result, err := app.AcquireTokenSilent(ctx, scopes)
	if err != nil {
		logger.Debug("msal: silent app token miss, requesting new token: %v", err)
		result, err = app.AcquireTokenByCredential(ctx, scopes)
		if err != nil {
			return "", fmt.Errorf("%w: client credential grant: %v", domain.ErrAuthFailed, err)
		}
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("%w: no access token in response", domain.ErrAuthFailed)
	}
	return result.AccessToken, nil
}

// connectPersonal runs the delegated fallback chain:
// cached account, then username/password, then device code.
func (a *Authenticator) connectPersonal(ctx context.Context, cfg domain.PersonalAuth) (string, error) {
	app, err := a.publicApp(cfg)
	if err != nil {
		return "", fmt.Errorf("create public client: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultPersonalScopes
	}

	return runSteps(ctx, a.personalSteps(app, cfg, scopes))
}

// personalSteps builds the ordered fallback chain. Only the final
// device-code step is fatal on failure; earlier steps fall through.
func (a *Authenticator) personalSteps(app *public.Client, cfg domain.PersonalAuth, scopes []string) []authStep {
	steps := []authStep{
		{
			name: "cached account",
			run: func(ctx context.Context) (string, error) {
				return a.acquireSilent(ctx, app, cfg.Username, scopes)
			},
		},
	}

	if cfg.Password != "" {
		steps = append(steps, authStep{
			name: "username/password",
			run: func(ctx context.Context) (string, error) {
				return a.acquireByPassword(ctx, app, cfg, scopes)
			},
		})
	}

	steps = append(steps, authStep{
		name:  "device code",
		fatal: true,
		run: func(ctx context.Context) (string, error) {
			return a.acquireByDeviceCode(ctx, app, scopes)
		},
	})

	return steps
}

func (a *Authenticator) acquireSilent(ctx context.Context, app *public.Client, username string, scopes []string) (string, error) {
	accounts, err := app.Accounts(ctx)
	if err != nil {
		return "", fmt.Errorf("list cached accounts: %w", err)
	}

	for _, acct := range accounts {
		if !strings.EqualFold(acct.PreferredUsername, username) {
			continue
		}
		result, err := app.AcquireTokenSilent(ctx, scopes, public.WithSilentAccount(acct))
		if err != nil {
			return "", fmt.Errorf("silent acquisition: %w", err)
		}
		return result.AccessToken, nil
	}

	return "", fmt.Errorf("no cached account for %s", username)
}

func (a *Authenticator) acquireByPassword(ctx context.Context, app *public.Client, cfg domain.PersonalAuth, scopes []string) (string, error) {
	result, err := app.AcquireTokenByUsernamePassword(ctx, scopes, cfg.Username, cfg.Password)
	if err != nil {
		if isUnsupportedGrant(err) {
			logger.Warn("msal: account type for %s does not support username/password sign-in", cfg.Username)
		}
		return "", fmt.Errorf("username/password grant: %w", err)
	}
	return result.AccessToken, nil
}

func (a *Authenticator) acquireByDeviceCode(ctx context.Context, app *public.Client, scopes []string) (string, error) {
	code, err := app.AcquireTokenByDeviceCode(ctx, scopes)
	if err != nil {
		return "", fmt.Errorf("initiate device code flow: %w", err)
	}

	if a.notify != nil {
		a.notify(code.Result.Message)
	} else {
		logger.Info("msal: %s", code.Result.Message)
	}

	// Blocks until the user completes sign-in on another device.
	result, err := code.AuthenticationResult(ctx)
	if err != nil {
		return "", fmt.Errorf("device code exchange: %w", err)
	}
	return result.AccessToken, nil
}

// isUnsupportedGrant detects the provider error raised when the account
// type cannot use the resource-owner password grant. MSAL surfaces a
// WS-Trust endpoint failure for consumer accounts.
func isUnsupportedGrant(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "wstrust")
}

func (a *Authenticator) confidentialApp(cfg domain.TenantAuth) (*confidential.Client, error) {
	if a.conf != nil {
		return a.conf, nil
	}

	cred, err := confidential.NewCredFromSecret(cfg.ClientSecret)
	if err != nil {
		return nil, err
	}
	app, err := confidential.New(authorityBase+cfg.TenantID, cfg.ClientID, cred)
	if err != nil {
		return nil, err
	}
	a.conf = &app
	return a.conf, nil
}

func (a *Authenticator) publicApp(cfg domain.PersonalAuth) (*public.Client, error) {
	if a.pub != nil {
		return a.pub, nil
	}

	app, err := public.New(cfg.ClientID, public.WithAuthority(consumersAuthority))
	if err != nil {
		return nil, err
	}
	a.pub = &app
	return a.pub, nil
}

// Invalidate drops the held token so the next call re-authenticates.
// Externally supplied tokens are never cleared.
func (a *Authenticator) Invalidate() {
	if a.cfg.Mode() == domain.ModeStatic {
		return
	}
	a.mu.Lock()
	a.token = ""
	a.mu.Unlock()
}

// Disconnect clears the held token from memory only. The token is not
// invalidated with the provider, and the cached application object
// survives so a later Connect may be served silently.
func (a *Authenticator) Disconnect() {
	a.mu.Lock()
	a.token = ""
	a.mu.Unlock()
}
