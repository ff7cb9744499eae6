package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"gopkg.in/ini.v1"
)

const (
	DefaultProfile = "default"

	AuthDefault = "default"
	AuthCLI     = "cli"
	AuthSecret  = "secret"

	CloudPublic = "com"
	CloudUSGov  = "us"
	CloudChina  = "cn"
)

// CloudConfiguration maps a national cloud suffix to the authority the
// credentials sign in against. Unknown or empty suffixes use the public cloud.
func CloudConfiguration(name string) cloud.Configuration {
	switch name {
	case CloudUSGov:
		return cloud.AzureGovernment
	case CloudChina:
		return cloud.AzureChina
	default:
		return cloud.AzurePublic
	}
}

// Profile identifies the tenant and the way credentials are acquired for it.
type Profile struct {
	Name         string
	TenantID     string
	ClientID     string
	ClientSecret string
	Auth         string
	// Cloud is the national cloud suffix (com, us, cn). Empty defers to the
	// settings.
	Cloud string
}

// DefaultProfilePath returns $HOME/.guestctl/profiles.
func DefaultProfilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".guestctl", "profiles"), nil
}

func LoadProfile(path, name string) (*Profile, error) {
	if name == "" {
		name = DefaultProfile
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load profile file: %w", err)
	}

	section, err := cfg.GetSection(name)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found: %w", name, err)
	}

	profile := &Profile{
		Name:         name,
		TenantID:     section.Key("tenant").String(),
		ClientID:     section.Key("client_id").String(),
		ClientSecret: section.Key("client_secret").String(),
		Auth:         section.Key("auth").In(AuthDefault, []string{AuthDefault, AuthCLI, AuthSecret}),
		Cloud:        section.Key("cloud").String(),
	}

	if profile.TenantID == "" {
		return nil, fmt.Errorf("tenant not found in profile %s", name)
	}
	if profile.Auth == AuthSecret && (profile.ClientID == "" || profile.ClientSecret == "") {
		return nil, fmt.Errorf("profile %s uses secret auth but client_id or client_secret is missing", name)
	}
	if profile.Cloud != "" && profile.Cloud != CloudPublic && profile.Cloud != CloudUSGov && profile.Cloud != CloudChina {
		return nil, fmt.Errorf("profile %s has unsupported cloud %q", name, profile.Cloud)
	}
	return profile, nil
}

// Credential builds the token credential described by the profile, signing
// in against the authority of cloudName. The CLI credential follows the
// cloud the az CLI itself is logged in to.
func (p *Profile) Credential(cloudName string) (azcore.TokenCredential, error) {
	clientOptions := azcore.ClientOptions{Cloud: CloudConfiguration(cloudName)}

	switch p.Auth {
	case AuthCLI:
		cred, err := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{
			TenantID: p.TenantID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure CLI credential: %w", err)
		}
		return cred, nil
	case AuthSecret:
		cred, err := azidentity.NewClientSecretCredential(p.TenantID, p.ClientID, p.ClientSecret, &azidentity.ClientSecretCredentialOptions{
			ClientOptions: clientOptions,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create client secret credential: %w", err)
		}
		return cred, nil
	default:
		cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
			ClientOptions: clientOptions,
			TenantID:      p.TenantID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create default Azure credential: %w", err)
		}
		return cred, nil
	}
}
