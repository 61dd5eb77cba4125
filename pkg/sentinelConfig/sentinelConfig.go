package sentinelConfig

import (
	"encoding/json"
	"time"

	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"sigs.k8s.io/yaml"

	"github.com/sentinel-bridge/sentinel/pkg/config"
)

const (
	EnvPrefix = "SENTINEL_"

	Debug       = "debug"
	ConfigFile  = "config"
	KeystoreDir = "keystore-dir"
)

// EthereumConfig lists the candidate RPC endpoints for the external chains.
// The endpoints are walked in order; the chain each one serves is discovered
// at runtime, so one flat list covers every configured bridge instance.
type EthereumConfig struct {
	Endpoints []string `json:"endpoints" yaml:"endpoints"`

	// HealthProbeInterval is how often cached clients are probed for
	// liveness. Zero disables probing.
	HealthProbeInterval time.Duration `json:"healthProbeInterval,omitempty" yaml:"healthProbeInterval,omitempty"`
}

func (ec *EthereumConfig) Validate() error {
	var allErrors field.ErrorList

	if len(ec.Endpoints) == 0 {
		allErrors = append(allErrors, field.Required(field.NewPath("endpoints"), "at least one ethereum endpoint is required"))
	}
	for i, endpoint := range ec.Endpoints {
		if endpoint == "" {
			allErrors = append(allErrors, field.Invalid(field.NewPath("endpoints").Index(i), endpoint, "endpoint must not be empty"))
		}
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// StorageConfig contains configuration for the submission journal
type StorageConfig struct {
	Type         string        `json:"type" yaml:"type"` // "memory" or "badger"
	BadgerConfig *BadgerConfig `json:"badger,omitempty" yaml:"badger,omitempty"`
}

// BadgerConfig contains configuration for BadgerDB storage
type BadgerConfig struct {
	// Directory where BadgerDB will store its data
	Dir string `json:"dir" yaml:"dir"`
	// InMemory runs BadgerDB in memory-only mode (for testing)
	InMemory bool `json:"inMemory,omitempty" yaml:"inMemory,omitempty"`
	// ValueLogFileSize sets the maximum size of a single value log file
	ValueLogFileSize int64 `json:"valueLogFileSize,omitempty" yaml:"valueLogFileSize,omitempty"`
}

// Validate validates the StorageConfig
func (sc *StorageConfig) Validate() error {
	var allErrors field.ErrorList

	if sc.Type == "" {
		sc.Type = "memory" // Default to memory if not specified
	}

	if sc.Type != "memory" && sc.Type != "badger" {
		allErrors = append(allErrors, field.Invalid(field.NewPath("type"), sc.Type, "type must be 'memory' or 'badger'"))
	}

	if sc.Type == "badger" {
		if sc.BadgerConfig == nil {
			allErrors = append(allErrors, field.Required(field.NewPath("badger"), "badger configuration is required when type is 'badger'"))
		} else if !sc.BadgerConfig.InMemory && sc.BadgerConfig.Dir == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("badger.dir"), "badger directory is required"))
		}
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// SentinelConfig is the top-level node configuration.
type SentinelConfig struct {
	Debug       bool            `json:"debug" yaml:"debug"`
	KeystoreDir string          `json:"keystoreDir" yaml:"keystoreDir"`
	Ethereum    *EthereumConfig `json:"ethereum" yaml:"ethereum"`
	Storage     *StorageConfig  `json:"storage,omitempty" yaml:"storage,omitempty"`

	// SimulateHostChain runs the node against an in-process host chain
	// populated with the instances below, for local development.
	SimulateHostChain  bool                 `json:"simulateHostChain,omitempty" yaml:"simulateHostChain,omitempty"`
	SimulatedInstances []*SimulatedInstance `json:"simulatedInstances,omitempty" yaml:"simulatedInstances,omitempty"`
}

// SimulatedInstance seeds one bridge instance into the simulated host chain.
type SimulatedInstance struct {
	Id             uint32         `json:"id" yaml:"id"`
	ChainId        config.ChainId `json:"chainId" yaml:"chainId"`
	BridgeContract string         `json:"bridgeContract" yaml:"bridgeContract"`
	Description    string         `json:"description,omitempty" yaml:"description,omitempty"`
}

func (sc *SentinelConfig) Validate() error {
	var allErrors field.ErrorList

	if sc.KeystoreDir == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("keystoreDir"), "keystoreDir is required"))
	}

	if sc.Ethereum == nil {
		allErrors = append(allErrors, field.Required(field.NewPath("ethereum"), "ethereum is required"))
	} else {
		if err := sc.Ethereum.Validate(); err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("ethereum"), sc.Ethereum, err.Error()))
		}
	}

	if sc.Storage != nil {
		if err := sc.Storage.Validate(); err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("storage"), sc.Storage, err.Error()))
		}
	}

	if sc.SimulateHostChain && len(sc.SimulatedInstances) == 0 {
		allErrors = append(allErrors, field.Required(field.NewPath("simulatedInstances"), "at least one simulated instance is required when simulateHostChain is set"))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func NewSentinelConfig() *SentinelConfig {
	return &SentinelConfig{
		Debug:       viper.GetBool(config.NormalizeFlagName(Debug)),
		KeystoreDir: viper.GetString(config.NormalizeFlagName(KeystoreDir)),
	}
}

func NewSentinelConfigFromYamlBytes(data []byte) (*SentinelConfig, error) {
	var sc *SentinelConfig
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func NewSentinelConfigFromJsonBytes(data []byte) (*SentinelConfig, error) {
	var sc *SentinelConfig
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return sc, nil
}
