// Package settings stores lingo user credentials.
//
// Credentials live in the XDG data directory:
//
//	$XDG_DATA_HOME/lingo/  (default: ~/.local/share/lingo/)
//
// auth.json is a JSON object keyed by profile name ("default" unless the
// user says otherwise), each value holding an API key and an optional
// endpoint override. File permissions are 0600 (owner read/write only).
//
// Lookup order for API keys:
//  1. --api-key flag (highest priority)
//  2. LINGO_API_KEY environment variable
//  3. This credential store
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	dataDirName = "lingo"
	fileName    = "auth.json"

	// DefaultProfile is the profile used when none is named.
	DefaultProfile = "default"

	// EnvAPIKey is the environment variable consulted before the store.
	EnvAPIKey = "LINGO_API_KEY"
)

// Credential is one stored profile.
type Credential struct {
	// Key is the engine API key.
	Key string `json:"key"`
	// BaseURL overrides the engine endpoint for this profile (optional).
	BaseURL string `json:"baseUrl,omitempty"`
}

// Store holds all profiles, keyed by profile name.
type Store map[string]*Credential

// dataDir returns the XDG data directory for lingo.
// Respects $XDG_DATA_HOME, falling back to ~/.local/share.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load reads the credential store. A missing file yields an empty store.
func Load() (Store, error) {
	path, err := filePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if store == nil {
		store = Store{}
	}
	return store, nil
}

// Save writes the credential store with 0600 permissions, creating the data
// directory as needed.
func (s Store) Save() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Set stores a credential under the given profile and persists the store.
func Set(profile string, cred *Credential) error {
	store, err := Load()
	if err != nil {
		return err
	}
	store[normalizeProfile(profile)] = cred
	return store.Save()
}

// Delete removes a profile. Deleting a missing profile is not an error.
func Delete(profile string) error {
	store, err := Load()
	if err != nil {
		return err
	}
	delete(store, normalizeProfile(profile))
	return store.Save()
}

// Get returns the credential for a profile, or nil when absent.
func Get(profile string) (*Credential, error) {
	store, err := Load()
	if err != nil {
		return nil, err
	}
	return store[normalizeProfile(profile)], nil
}

// ResolveAPIKey applies the documented lookup order: explicit flag value,
// then LINGO_API_KEY, then the stored default profile.
func ResolveAPIKey(flagValue string) (string, error) {
	if key := strings.TrimSpace(flagValue); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		return key, nil
	}

	cred, err := Get(DefaultProfile)
	if err != nil {
		return "", err
	}
	if cred != nil && strings.TrimSpace(cred.Key) != "" {
		return cred.Key, nil
	}
	return "", fmt.Errorf("no API key found: pass --api-key, set %s, or run 'lingo auth login'", EnvAPIKey)
}

func normalizeProfile(profile string) string {
	profile = strings.TrimSpace(strings.ToLower(profile))
	if profile == "" {
		return DefaultProfile
	}
	return profile
}
