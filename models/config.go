package models

type Config struct {
	GoogleSecretManager GoogleSecretManagerConfig `yaml:"google_secret_manager" json:"google_secret_manager"`
	Logger              LoggerConfig              `yaml:"logger" json:"logger"`
	Server              ServerConfig              `yaml:"server" json:"server"`
	MongoDB             MongoConfig               `yaml:"mongodb" json:"mongo_db"`
	Ethereum            EthereumConfig            `yaml:"ethereum" json:"ethereum"`
	Payment             PaymentConfig             `yaml:"payment" json:"payment"`
	Minter              MinterConfig              `yaml:"minter" json:"minter"`
	Storage             StorageConfig             `yaml:"storage" json:"storage"`
	Pinata              PinataConfig              `yaml:"pinata" json:"pinata"`
	Reporter            ReporterConfig            `yaml:"reporter" json:"reporter"`
	Metadata            MetadataConfig            `yaml:"metadata" json:"metadata"`
	Health              HealthConfig              `yaml:"health" json:"health"`
}

type GoogleSecretManagerConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	ProjectId        string `yaml:"project_id" json:"project_id"`
	EthSecretName    string `yaml:"eth_secret_name" json:"eth_secret_name"`
	PinataSecretName string `yaml:"pinata_secret_name" json:"pinata_secret_name"`
	EngineSecretName string `yaml:"engine_secret_name" json:"engine_secret_name"`
	MongoSecretName  string `yaml:"mongo_secret_name" json:"mongo_secret_name"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type ServerConfig struct {
	Port        string   `yaml:"port" json:"port"`
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`
	// RateLimit uses the limiter format "<limit>-<period>", e.g. "30-M". Empty disables it.
	RateLimit   string   `yaml:"rate_limit" json:"rate_limit"`
}

type MongoConfig struct {
	URI           string `yaml:"uri" json:"uri"`
	Database      string `yaml:"database" json:"database"`
	TimeoutMillis int64  `yaml:"timeout_ms" json:"timeout_ms"`
}

type EthereumConfig struct {
	ChainName                 string `yaml:"chain_name" json:"chain_name"`
	ChainID                   string `yaml:"chain_id" json:"chain_id"`
	RPCURL                    string `yaml:"rpc_url" json:"rpcurl"`
	RPCTimeoutMillis          int64  `yaml:"rpc_timeout_ms" json:"rpc_timeout_ms"`
	Confirmations             int64  `yaml:"confirmations" json:"confirmations"`
	ConfirmationTimeoutMillis int64  `yaml:"confirmation_timeout_ms" json:"confirmation_timeout_ms"`
	ConfirmationPollMillis    int64  `yaml:"confirmation_poll_ms" json:"confirmation_poll_ms"`
	PrivateKey                string `yaml:"private_key" json:"private_key"`
	Mnemonic                  string `yaml:"mnemonic" json:"mnemonic"`
	GcpKmsKeyName             string `yaml:"gcp_kms_key_name" json:"gcp_kms_key_name"`
	NFTContractAddress        string `yaml:"nft_contract_address" json:"nft_contract_address"`
	PaymentTokenAddress       string `yaml:"payment_token_address" json:"payment_token_address"`
	ExplorerURL               string `yaml:"explorer_url" json:"explorer_url"`
}

type PaymentConfig struct {
	// RequiredAmount is a decimal integer in the payment token's smallest unit.
	RequiredAmount  string `yaml:"required_amount" json:"required_amount"`
	TreasuryAddress string `yaml:"treasury_address" json:"treasury_address"`
	AllowFreeMints  bool   `yaml:"allow_free_mints" json:"allow_free_mints"`
	TokenSymbol     string `yaml:"token_symbol" json:"token_symbol"`
}

const (
	MinterStrategyDirect = "direct"
	MinterStrategyEngine = "engine"
)

type MinterConfig struct {
	Strategy string       `yaml:"strategy" json:"strategy"`
	Engine   EngineConfig `yaml:"engine" json:"engine"`
}

// EngineConfig configures the managed transaction-signing service.
type EngineConfig struct {
	URL                  string `yaml:"url" json:"url"`
	SecretKey            string `yaml:"secret_key" json:"secret_key"`
	BackendWalletAddress string `yaml:"backend_wallet_address" json:"backend_wallet_address"`
	Chain                string `yaml:"chain" json:"chain"`
	TimeoutMillis        int64  `yaml:"timeout_ms" json:"timeout_ms"`
	PollMillis           int64  `yaml:"poll_ms" json:"poll_ms"`
}

const (
	StorageProviderGCS = "gcs"
	StorageProviderS3  = "s3"
)

type StorageConfig struct {
	Provider           string   `yaml:"provider" json:"provider"`
	Bucket             string   `yaml:"bucket" json:"bucket"`
	PathPrefix         string   `yaml:"path_prefix" json:"path_prefix"`
	CredentialsFile    string   `yaml:"credentials_file" json:"credentials_file"`
	TimeoutMillis      int64    `yaml:"timeout_ms" json:"timeout_ms"`
	FetchTimeoutMillis int64    `yaml:"fetch_timeout_ms" json:"fetch_timeout_ms"`
	MaxAssetBytes      int64    `yaml:"max_asset_bytes" json:"max_asset_bytes"`
	S3                 S3Config `yaml:"s3" json:"s3"`
}

type S3Config struct {
	Region    string `yaml:"region" json:"region"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
}

type PinataConfig struct {
	APIURL        string `yaml:"api_url" json:"api_url"`
	JWT           string `yaml:"jwt" json:"jwt"`
	GatewayURL    string `yaml:"gateway_url" json:"gateway_url"`
	// CIDVersion is 0 or 1, nil means 1.
	CIDVersion    *int   `yaml:"cid_version" json:"cid_version"`
	TimeoutMillis int64  `yaml:"timeout_ms" json:"timeout_ms"`
}

type ReporterConfig struct {
	URL           string `yaml:"url" json:"url"`
	APIToken      string `yaml:"api_token" json:"api_token"`
	TimeoutMillis int64  `yaml:"timeout_ms" json:"timeout_ms"`
}

type MetadataConfig struct {
	NamePrefix         string `yaml:"name_prefix" json:"name_prefix"`
	DefaultDescription string `yaml:"default_description" json:"default_description"`
	CreatedWith        string `yaml:"created_with" json:"created_with"`
}

type HealthConfig struct {
	IntervalSecs int64 `yaml:"interval_secs" json:"interval_secs"`
}
