// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package features

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/pbkdf2"

	"github.com/morganforge/kestrel-tui/internal/config"
	"github.com/morganforge/kestrel-tui/internal/plugin"
)

// PluginAuth is the auth plugin's registry name.
const PluginAuth = "auth"

// Key derivation parameters for the local passphrase hash.
const (
	authSaltSize   = 16
	authKeySize    = 32
	authIterations = 600000
)

var (
	// ErrBadCredentials covers every verification failure uniformly so the
	// caller cannot distinguish a wrong passphrase from a wrong TOTP code.
	ErrBadCredentials = errors.New("authentication failed")

	// ErrAuthNotConfigured indicates no local credential is enrolled yet.
	ErrAuthNotConfigured = errors.New("no credential enrolled")
)

// =============================================================================
// AUTH GUARD
// =============================================================================

// AuthGuard verifies the local user against an enrolled passphrase and,
// when the platform requires it, a TOTP code. It backs the idle lock: the
// session manager locks, the guard unlocks.
type AuthGuard struct {
	mu sync.Mutex

	mode string // "none", "password", "totp"

	// Enrolled passphrase, stored as salt + derived key.
	salt []byte
	hash []byte

	totpSecret string
	userID     string
}

// NewAuthGuard creates a guard in the mode the platform requested.
func NewAuthGuard(cfg config.AuthConfig) *AuthGuard {
	mode := cfg.Mode
	if !cfg.Enabled || mode == "" {
		mode = "none"
	}
	return &AuthGuard{mode: mode}
}

// Mode returns the active authentication mode.
func (g *AuthGuard) Mode() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Enroll stores the passphrase credential for userID, replacing any
// previous enrollment.
func (g *AuthGuard) Enroll(userID, passphrase string) error {
	if strings.TrimSpace(passphrase) == "" {
		return fmt.Errorf("enroll: empty passphrase")
	}

	salt := make([]byte, authSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("enroll: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.userID = userID
	g.salt = salt
	g.hash = deriveKey(passphrase, salt)
	return nil
}

// EnrollTOTP generates and stores a TOTP secret for the enrolled user,
// returning the otpauth:// provisioning URL for the authenticator app.
func (g *AuthGuard) EnrollTOTP(issuer string) (string, error) {
	g.mu.Lock()
	userID := g.userID
	g.mu.Unlock()
	if userID == "" {
		return "", ErrAuthNotConfigured
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: userID,
	})
	if err != nil {
		return "", fmt.Errorf("enroll totp: %w", err)
	}

	g.mu.Lock()
	g.totpSecret = key.Secret()
	g.mu.Unlock()
	return key.URL(), nil
}

// Verify checks the supplied credentials against the enrollment. In totp
// mode both the passphrase and the code must match.
func (g *AuthGuard) Verify(passphrase, code string) error {
	g.mu.Lock()
	mode := g.mode
	salt, hash := g.salt, g.hash
	secret := g.totpSecret
	g.mu.Unlock()

	if mode == "none" {
		return nil
	}
	if len(salt) == 0 {
		return ErrAuthNotConfigured
	}

	if !hmac.Equal(deriveKey(passphrase, salt), hash) {
		return ErrBadCredentials
	}
	if mode == "totp" {
		if secret == "" {
			return ErrAuthNotConfigured
		}
		if !totp.Validate(code, secret) {
			return ErrBadCredentials
		}
	}
	return nil
}

// UserID returns the enrolled user, or "".
func (g *AuthGuard) UserID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.userID
}

// deriveKey stretches a passphrase with PBKDF2-SHA-256.
func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, authIterations, authKeySize, sha256.New)
}

// EncodeCredential serializes the enrollment for persistence.
func (g *AuthGuard) EncodeCredential() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.salt) == 0 {
		return ""
	}
	return g.userID + ":" +
		base64.StdEncoding.EncodeToString(g.salt) + ":" +
		base64.StdEncoding.EncodeToString(g.hash)
}

// RestoreCredential loads a serialized enrollment.
func (g *AuthGuard) RestoreCredential(encoded string) error {
	parts := strings.Split(encoded, ":")
	if len(parts) != 3 {
		return fmt.Errorf("restore credential: malformed record")
	}
	salt, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return fmt.Errorf("restore credential: %w", err)
	}
	hash, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("restore credential: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.userID = parts[0]
	g.salt = salt
	g.hash = hash
	return nil
}

// =============================================================================
// AUTH PLUGIN
// =============================================================================

// buildAuthPlugin contributes the signed-in identity to the header.
func buildAuthPlugin(guard *AuthGuard) *plugin.Plugin {
	return &plugin.Plugin{
		Name: PluginAuth,
		Fillers: []plugin.Filler{
			{
				Slot:     plugin.SlotHeader,
				Name:     "auth-identity",
				Priority: 10,
				Condition: func(props plugin.Props) bool {
					return guard.UserID() != ""
				},
				Render: func(plugin.Props) (string, error) {
					return guard.UserID(), nil
				},
			},
		},
	}
}
