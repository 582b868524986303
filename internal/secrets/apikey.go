// Package secrets reads credentials from the OS keychain, with an environment
// fallback for headless hosts.
package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups this app's secrets in the OS keychain.
	KeyringService = "ai-job-agent"

	// EnvDiscoveryKey overrides the keychain when set.
	EnvDiscoveryKey = "JOB_AGENT_DISCOVERY_KEY"
)

// GetDiscoveryKey resolves the discovery API key: keychain first, env second.
// An empty result with a nil error means discovery runs unauthenticated.
func GetDiscoveryKey(keyringAccount string) (string, error) {
	if strings.TrimSpace(keyringAccount) != "" {
		key, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(key) != "" {
			return key, nil
		}
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return "", err
		}
	}
	return strings.TrimSpace(os.Getenv(EnvDiscoveryKey)), nil
}

func SetDiscoveryKey(keyringAccount, key string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("key is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, key)
}

func DeleteDiscoveryKey(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}
