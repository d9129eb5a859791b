// internal/config/config.go
//
// This package handles configuration and the medimint config directory.
// The first run writes a commented default config.yaml; secrets (pinning
// bearer token, wallet key) are never stored in the file and come from
// the environment, with a best-effort .env autoload.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppDirName is the directory created under the user config root.
	AppDirName = "medimint"

	configFileName = "config.yaml"

	// EnvConfigDir overrides the config directory location.
	EnvConfigDir = "MEDIMINT_CONFIG_DIR"
	// EnvPinningJWT holds the bearer token for the pinning gateway.
	EnvPinningJWT = "MEDIMINT_PINNING_JWT"
	// EnvPrivateKey holds the hex-encoded wallet private key.
	EnvPrivateKey = "MEDIMINT_PRIVATE_KEY"
)

const defaultConfigYAML = `# medimint configuration
version: 1

# Clinic dashboard backend (slots, appointments, SMS alerts).
backend:
  base_url: http://localhost:3000

# Target chain for the mint dashboard. These parameters are also what gets
# registered when the RPC endpoint reports an unexpected network.
chain:
  id: 11155111
  name: Sepolia
  rpc_url: https://rpc.sepolia.org
  explorer_url: https://sepolia.etherscan.io
  currency: ETH

# Deployed contract addresses.
contracts:
  nft: ""
  reward_token: ""

# Content pinning gateway. The bearer token comes from MEDIMINT_PINNING_JWT.
pinning:
  api_url: https://api.pinata.cloud
  gateway_url: https://gateway.pinata.cloud
`

// BackendConfig points the clinic dashboard at its REST backend.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
}

// ChainConfig carries the target network parameters, including everything
// needed to register the network with a provider that does not know it.
type ChainConfig struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	RPCURL      string `yaml:"rpc_url"`
	ExplorerURL string `yaml:"explorer_url"`
	Currency    string `yaml:"currency"`
}

// ContractsConfig holds deployed contract addresses.
type ContractsConfig struct {
	NFT         string `yaml:"nft"`
	RewardToken string `yaml:"reward_token"`
}

// PinningConfig points at the content pinning gateway.
type PinningConfig struct {
	APIURL     string `yaml:"api_url"`
	GatewayURL string `yaml:"gateway_url"`
}

// FileConfig models config.yaml.
type FileConfig struct {
	Version   int             `yaml:"version"`
	Backend   BackendConfig   `yaml:"backend"`
	Chain     ChainConfig     `yaml:"chain"`
	Contracts ContractsConfig `yaml:"contracts"`
	Pinning   PinningConfig   `yaml:"pinning"`
}

// Config is the runtime configuration: parsed file plus environment secrets.
type Config struct {
	// Dir is the medimint config directory (config.yaml, logs/).
	Dir string

	File FileConfig

	// PinningJWT authenticates pin requests. Empty is allowed until the
	// mint dashboard actually needs to upload.
	PinningJWT string

	// PrivateKeyHex is the wallet signing key. Empty means no wallet
	// session can be established.
	PrivateKeyHex string
}

// Load resolves the config directory, writes the default file on first
// run, and parses it together with environment secrets.
func Load() (*Config, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(dir)
}

// LoadFrom loads configuration rooted at an explicit directory.
func LoadFrom(dir string) (*Config, error) {
	// Missing .env is the common case and not an error.
	_ = godotenv.Load()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("config: ensure config dir: %w", err)
	}
	path := filepath.Join(dir, configFileName)
	if err := ensureDefaultFile(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var parsed FileConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return &Config{
		Dir:           dir,
		File:          parsed,
		PinningJWT:    strings.TrimSpace(os.Getenv(EnvPinningJWT)),
		PrivateKeyHex: strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(os.Getenv(EnvPrivateKey)), "0x")),
	}, nil
}

// LogsDir returns the directory that holds per-dashboard logbooks.
func (c *Config) LogsDir() string {
	return filepath.Join(c.Dir, "logs")
}

// ConfigPath returns the on-disk location of config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, configFileName)
}

func resolveDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvConfigDir)); dir != "" {
		return filepath.Clean(dir), nil
	}
	root, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: locate user config dir: %w", err)
	}
	return filepath.Join(root, AppDirName), nil
}

func ensureDefaultFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func (fc *FileConfig) applyDefaults() {
	if fc.Version == 0 {
		fc.Version = 1
	}
	if fc.Backend.BaseURL == "" {
		fc.Backend.BaseURL = "http://localhost:3000"
	}
	if fc.Pinning.APIURL == "" {
		fc.Pinning.APIURL = "https://api.pinata.cloud"
	}
	if fc.Pinning.GatewayURL == "" {
		fc.Pinning.GatewayURL = "https://gateway.pinata.cloud"
	}
}

func (fc *FileConfig) normalize() {
	fc.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(fc.Backend.BaseURL), "/")
	fc.Chain.Name = strings.TrimSpace(fc.Chain.Name)
	fc.Chain.RPCURL = strings.TrimSpace(fc.Chain.RPCURL)
	fc.Chain.ExplorerURL = strings.TrimSpace(fc.Chain.ExplorerURL)
	fc.Chain.Currency = strings.TrimSpace(fc.Chain.Currency)
	fc.Contracts.NFT = strings.TrimSpace(fc.Contracts.NFT)
	fc.Contracts.RewardToken = strings.TrimSpace(fc.Contracts.RewardToken)
	fc.Pinning.APIURL = strings.TrimRight(strings.TrimSpace(fc.Pinning.APIURL), "/")
	fc.Pinning.GatewayURL = strings.TrimRight(strings.TrimSpace(fc.Pinning.GatewayURL), "/")
}

func (fc FileConfig) validate() error {
	if fc.Version < 1 {
		return fmt.Errorf("version must be >= 1")
	}
	if fc.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if fc.Chain.ID < 0 {
		return fmt.Errorf("chain.id must not be negative")
	}
	if fc.Pinning.APIURL == "" || fc.Pinning.GatewayURL == "" {
		return fmt.Errorf("pinning.api_url and pinning.gateway_url are required")
	}
	return nil
}
