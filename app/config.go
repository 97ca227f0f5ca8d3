package app

import (
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	mcommon "github.com/pixlmixr/minting-service/common"
	"github.com/pixlmixr/minting-service/models"
)

var (
	Config models.Config
)

func readConfigFromConfigFile(configFile string) bool {
	if configFile == "" {
		log.Debug("[CONFIG] No config file provided")
		return false
	}

	log.Debug("[CONFIG] Reading config file: ", configFile)
	var yamlFile, err = os.ReadFile(configFile)
	if err != nil {
		log.Fatalf("[CONFIG] Error reading config file %q: %s\n", configFile, err.Error())
	}
	err = yaml.Unmarshal(yamlFile, &Config)
	if err != nil {
		log.Fatalf("[CONFIG] Error unmarshalling config file %q: %s\n", configFile, err.Error())
	}

	log.Debug("[CONFIG] Successfully read config file")
	return true
}

func InitConfig(configFile string, envFile string) {
	log.Debug("[CONFIG] Initializing config")
	Config = models.Config{}
	readConfigFromConfigFile(configFile)
	readConfigFromENV(envFile)
	readKeysFromGSM()
	setDefaults()
	validateConfig()
	log.Info("[CONFIG] Config initialized")
}

func setDefaults() {
	if Config.Server.Port == "" {
		Config.Server.Port = "8080"
	}
	if Config.MongoDB.TimeoutMillis == 0 {
		Config.MongoDB.TimeoutMillis = 5000
	}
	if Config.Ethereum.ChainName == "" {
		Config.Ethereum.ChainName = "base"
	}
	if Config.Ethereum.RPCTimeoutMillis == 0 {
		Config.Ethereum.RPCTimeoutMillis = 10000
	}
	if Config.Ethereum.Confirmations == 0 {
		Config.Ethereum.Confirmations = 2
	}
	if Config.Ethereum.ConfirmationTimeoutMillis == 0 {
		Config.Ethereum.ConfirmationTimeoutMillis = 180000
	}
	if Config.Ethereum.ConfirmationPollMillis == 0 {
		Config.Ethereum.ConfirmationPollMillis = 2000
	}
	if Config.Ethereum.ExplorerURL == "" {
		Config.Ethereum.ExplorerURL = "https://basescan.org"
	}
	if Config.Payment.TokenSymbol == "" {
		Config.Payment.TokenSymbol = "DEGEN"
	}
	if Config.Minter.Strategy == "" {
		Config.Minter.Strategy = models.MinterStrategyDirect
	}
	if Config.Minter.Engine.Chain == "" {
		Config.Minter.Engine.Chain = Config.Ethereum.ChainName
	}
	if Config.Minter.Engine.TimeoutMillis == 0 {
		Config.Minter.Engine.TimeoutMillis = 15000
	}
	if Config.Minter.Engine.PollMillis == 0 {
		Config.Minter.Engine.PollMillis = 2000
	}
	if Config.Storage.Provider == "" {
		Config.Storage.Provider = models.StorageProviderGCS
	}
	if Config.Storage.PathPrefix == "" {
		Config.Storage.PathPrefix = "creations"
	}
	if Config.Storage.TimeoutMillis == 0 {
		Config.Storage.TimeoutMillis = 10000
	}
	if Config.Storage.FetchTimeoutMillis == 0 {
		Config.Storage.FetchTimeoutMillis = 15000
	}
	if Config.Storage.MaxAssetBytes == 0 {
		Config.Storage.MaxAssetBytes = 50 << 20
	}
	if Config.Pinata.APIURL == "" {
		Config.Pinata.APIURL = "https://api.pinata.cloud"
	}
	if Config.Pinata.GatewayURL == "" {
		Config.Pinata.GatewayURL = "https://gateway.pinata.cloud/ipfs"
	}
	if Config.Pinata.CIDVersion == nil {
		version := 1
		Config.Pinata.CIDVersion = &version
	}
	if Config.Pinata.TimeoutMillis == 0 {
		Config.Pinata.TimeoutMillis = 30000
	}
	if Config.Reporter.TimeoutMillis == 0 {
		Config.Reporter.TimeoutMillis = 5000
	}
	if Config.Metadata.NamePrefix == "" {
		Config.Metadata.NamePrefix = "PIXLMIXR Masterpiece"
	}
	if Config.Metadata.DefaultDescription == "" {
		Config.Metadata.DefaultDescription = "AI-generated art masterpiece created with PIXLMIXR"
	}
	if Config.Metadata.CreatedWith == "" {
		Config.Metadata.CreatedWith = "PIXLMIXR"
	}
	if Config.Health.IntervalSecs == 0 {
		Config.Health.IntervalSecs = 60
	}
	if Config.Logger.Level == "" {
		Config.Logger.Level = "info"
	}
}

func isAddress(s string) bool {
	return common.IsHexAddress(s) && !strings.EqualFold(s, mcommon.ZeroAddress)
}

func validateConfig() {
	log.Debug("[CONFIG] Validating config")

	// mongodb
	if Config.MongoDB.URI == "" {
		log.Fatal("[CONFIG] MongoDB.URI is required")
	}
	if Config.MongoDB.Database == "" {
		log.Fatal("[CONFIG] MongoDB.Database is required")
	}

	// ethereum
	if Config.Ethereum.RPCURL == "" {
		log.Fatal("[CONFIG] Ethereum.RPCURL is required")
	}
	if _, ok := new(big.Int).SetString(Config.Ethereum.ChainID, 10); !ok {
		log.Fatal("[CONFIG] Ethereum.ChainID is required and must be a decimal integer")
	}
	if Config.Ethereum.Confirmations < 1 {
		log.Fatal("[CONFIG] Ethereum.Confirmations must be at least 1")
	}
	if !isAddress(Config.Ethereum.NFTContractAddress) {
		log.Fatal("[CONFIG] Ethereum.NFTContractAddress is invalid")
	}

	// payment, checked for both minter strategies
	if !Config.Payment.AllowFreeMints || Config.Payment.TreasuryAddress != "" {
		if !isAddress(Config.Ethereum.PaymentTokenAddress) {
			log.Fatal("[CONFIG] Ethereum.PaymentTokenAddress is invalid")
		}
		if !isAddress(Config.Payment.TreasuryAddress) {
			log.Fatal("[CONFIG] Payment.TreasuryAddress is invalid")
		}
		amount, ok := new(big.Int).SetString(Config.Payment.RequiredAmount, 10)
		if !ok || amount.Sign() <= 0 {
			log.Fatal("[CONFIG] Payment.RequiredAmount must be a positive integer")
		}
	}

	// minter
	switch Config.Minter.Strategy {
	case models.MinterStrategyDirect:
		sources := 0
		for _, s := range []string{Config.Ethereum.PrivateKey, Config.Ethereum.Mnemonic, Config.Ethereum.GcpKmsKeyName} {
			if s != "" {
				sources++
			}
		}
		if sources != 1 {
			log.Fatal("[CONFIG] Exactly one of Ethereum.PrivateKey, Ethereum.Mnemonic or Ethereum.GcpKmsKeyName is required")
		}
	case models.MinterStrategyEngine:
		if Config.Minter.Engine.URL == "" {
			log.Fatal("[CONFIG] Minter.Engine.URL is required")
		}
		if Config.Minter.Engine.SecretKey == "" {
			log.Fatal("[CONFIG] Minter.Engine.SecretKey is required")
		}
		if !isAddress(Config.Minter.Engine.BackendWalletAddress) {
			log.Fatal("[CONFIG] Minter.Engine.BackendWalletAddress is invalid")
		}
	default:
		log.Fatalf("[CONFIG] Minter.Strategy %q is not supported", Config.Minter.Strategy)
	}

	// storage
	switch Config.Storage.Provider {
	case models.StorageProviderGCS, models.StorageProviderS3:
	default:
		log.Fatalf("[CONFIG] Storage.Provider %q is not supported", Config.Storage.Provider)
	}
	if Config.Storage.Bucket == "" {
		log.Fatal("[CONFIG] Storage.Bucket is required")
	}
	if Config.Storage.Provider == models.StorageProviderS3 && Config.Storage.S3.Region == "" {
		log.Fatal("[CONFIG] Storage.S3.Region is required")
	}

	// pinata
	if Config.Pinata.JWT == "" {
		log.Fatal("[CONFIG] Pinata.JWT is required")
	}
	if v := Config.Pinata.CIDVersion; v == nil || (*v != 0 && *v != 1) {
		log.Fatal("[CONFIG] Pinata.CIDVersion must be 0 or 1")
	}

	// reporter
	if Config.Reporter.URL != "" && !strings.HasPrefix(Config.Reporter.URL, "http") {
		log.Fatal("[CONFIG] Reporter.URL must be an http(s) url")
	}

	log.Debug("[CONFIG] Config validated")
}
