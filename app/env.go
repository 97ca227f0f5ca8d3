package app

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func envInt64(name string, target *int64) {
	value := os.Getenv(name)
	if value == "" {
		return
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Warnf("[ENV] Error parsing %s: %s", name, err.Error())
		return
	}
	*target = parsed
}

func envBool(name string, target *bool) {
	value := os.Getenv(name)
	if value == "" {
		return
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Warnf("[ENV] Error parsing %s: %s", name, err.Error())
		return
	}
	*target = parsed
}

func envString(name string, target *string) {
	if value := os.Getenv(name); value != "" {
		*target = value
	}
}

func readConfigFromENV(envFile string) {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil {
			log.Warn("[ENV] Error loading .env file: ", err.Error())
		}
	}

	// logger
	envString("LOG_LEVEL", &Config.Logger.Level)
	envString("LOG_FORMAT", &Config.Logger.Format)

	// server
	envString("PORT", &Config.Server.Port)
	envString("SERVER_RATE_LIMIT", &Config.Server.RateLimit)
	if origins := os.Getenv("SERVER_CORS_ORIGINS"); origins != "" {
		Config.Server.CORSOrigins = strings.Split(origins, ",")
	}

	// mongodb
	envString("MONGODB_URI", &Config.MongoDB.URI)
	envString("MONGODB_DATABASE", &Config.MongoDB.Database)
	envInt64("MONGODB_TIMEOUT_MS", &Config.MongoDB.TimeoutMillis)

	// ethereum
	envString("ETH_CHAIN_NAME", &Config.Ethereum.ChainName)
	envString("ETH_CHAIN_ID", &Config.Ethereum.ChainID)
	envString("ETH_RPC_URL", &Config.Ethereum.RPCURL)
	envInt64("ETH_RPC_TIMEOUT_MS", &Config.Ethereum.RPCTimeoutMillis)
	envInt64("ETH_CONFIRMATIONS", &Config.Ethereum.Confirmations)
	envInt64("ETH_CONFIRMATION_TIMEOUT_MS", &Config.Ethereum.ConfirmationTimeoutMillis)
	envInt64("ETH_CONFIRMATION_POLL_MS", &Config.Ethereum.ConfirmationPollMillis)
	envString("ETH_PRIVATE_KEY", &Config.Ethereum.PrivateKey)
	envString("ETH_MNEMONIC", &Config.Ethereum.Mnemonic)
	envString("ETH_GCP_KMS_KEY_NAME", &Config.Ethereum.GcpKmsKeyName)
	envString("ETH_NFT_CONTRACT_ADDRESS", &Config.Ethereum.NFTContractAddress)
	envString("ETH_PAYMENT_TOKEN_ADDRESS", &Config.Ethereum.PaymentTokenAddress)
	envString("ETH_EXPLORER_URL", &Config.Ethereum.ExplorerURL)

	// payment
	envString("PAYMENT_REQUIRED_AMOUNT", &Config.Payment.RequiredAmount)
	envString("PAYMENT_TREASURY_ADDRESS", &Config.Payment.TreasuryAddress)
	envBool("PAYMENT_ALLOW_FREE_MINTS", &Config.Payment.AllowFreeMints)
	envString("PAYMENT_TOKEN_SYMBOL", &Config.Payment.TokenSymbol)

	// minter
	envString("MINTER_STRATEGY", &Config.Minter.Strategy)
	envString("ENGINE_URL", &Config.Minter.Engine.URL)
	envString("ENGINE_SECRET_KEY", &Config.Minter.Engine.SecretKey)
	envString("ENGINE_BACKEND_WALLET_ADDRESS", &Config.Minter.Engine.BackendWalletAddress)
	envString("ENGINE_CHAIN", &Config.Minter.Engine.Chain)
	envInt64("ENGINE_TIMEOUT_MS", &Config.Minter.Engine.TimeoutMillis)
	envInt64("ENGINE_POLL_MS", &Config.Minter.Engine.PollMillis)

	// storage
	envString("STORAGE_PROVIDER", &Config.Storage.Provider)
	envString("STORAGE_BUCKET", &Config.Storage.Bucket)
	envString("STORAGE_PATH_PREFIX", &Config.Storage.PathPrefix)
	envString("GOOGLE_APPLICATION_CREDENTIALS", &Config.Storage.CredentialsFile)
	envInt64("STORAGE_TIMEOUT_MS", &Config.Storage.TimeoutMillis)
	envInt64("STORAGE_FETCH_TIMEOUT_MS", &Config.Storage.FetchTimeoutMillis)
	envInt64("STORAGE_MAX_ASSET_BYTES", &Config.Storage.MaxAssetBytes)
	envString("S3_REGION", &Config.Storage.S3.Region)
	envString("S3_ENDPOINT", &Config.Storage.S3.Endpoint)
	envString("S3_ACCESS_KEY", &Config.Storage.S3.AccessKey)
	envString("S3_SECRET_KEY", &Config.Storage.S3.SecretKey)

	// pinata
	envString("PINATA_API_URL", &Config.Pinata.APIURL)
	envString("PINATA_JWT", &Config.Pinata.JWT)
	envString("PINATA_GATEWAY_URL", &Config.Pinata.GatewayURL)
	envInt64("PINATA_TIMEOUT_MS", &Config.Pinata.TimeoutMillis)
	if value := os.Getenv("PINATA_CID_VERSION"); value != "" {
		version, err := strconv.Atoi(value)
		if err != nil {
			log.Warn("[ENV] Error parsing PINATA_CID_VERSION: ", err.Error())
		} else {
			Config.Pinata.CIDVersion = &version
		}
	}

	// reporter
	envString("REPORTER_URL", &Config.Reporter.URL)
	envString("REPORTER_API_TOKEN", &Config.Reporter.APIToken)
	envInt64("REPORTER_TIMEOUT_MS", &Config.Reporter.TimeoutMillis)

	envInt64("HEALTH_INTERVAL_SECS", &Config.Health.IntervalSecs)

	// google secret manager
	envBool("GOOGLE_SECRET_MANAGER_ENABLED", &Config.GoogleSecretManager.Enabled)
	envString("GOOGLE_PROJECT_ID", &Config.GoogleSecretManager.ProjectId)
	envString("GOOGLE_ETH_SECRET_NAME", &Config.GoogleSecretManager.EthSecretName)
	envString("GOOGLE_PINATA_SECRET_NAME", &Config.GoogleSecretManager.PinataSecretName)
	envString("GOOGLE_ENGINE_SECRET_NAME", &Config.GoogleSecretManager.EngineSecretName)
	envString("GOOGLE_MONGO_SECRET_NAME", &Config.GoogleSecretManager.MongoSecretName)
}
