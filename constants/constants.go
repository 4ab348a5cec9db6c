package constants

// Counter contract layout. The package id comes from configuration, the rest is fixed.
const (
	CounterModule     = "counter"
	CounterStruct     = "Counter"
	CounterTypeSuffix = "::" + CounterModule + "::" + CounterStruct
	CounterValueField = "value"
)

// Remote entry points of the counter module.
const (
	EntryCreate    = "create"
	EntryIncrement = "increment"
	EntryReset     = "reset"
)

// Status event emitted by the contract. Matching is done on the lowercased struct name.
const (
	TxStatusEventName = "txstatus"
	FieldAction       = "action"
	FieldStatus       = "status"
	FieldSender       = "sender"
)

// Environment variables read at startup.
const (
	EnvNetwork           = "SUI_NETWORK"
	EnvRpcUrl            = "SUI_RPC_URL"
	EnvMnemonic          = "SUI_MNEMONIC"
	EnvMnemonicAlias     = "MNEMONIC"
	EnvSecretKey         = "SUI_SECRET_KEY"
	EnvSecretKeyAlias    = "PRIVATE_KEY"
	EnvDerivationPath    = "SUI_DERIVATION_PATH"
	EnvPackageId         = "PACKAGE_ID"
	EnvCounterId         = "COUNTER_ID"
	EnvGasBudget         = "GAS_BUDGET"
	EnvGasPrice          = "GAS_PRICE"
	EnvInterface         = "INTERFACE"
	EnvPort              = "PORT"
	EnvLogLevel          = "LOG_LEVEL"
	EnvLogFile           = "LOG_FILE"
	EnvRpcTimeoutMs      = "RPC_TIMEOUT_MS"
	EnvFinalityTimeoutMs = "FINALITY_TIMEOUT_MS"
	EnvRateLimitRps      = "RATE_LIMIT_RPS"
	EnvRateLimitBurst    = "RATE_LIMIT_BURST"
)

// Sui key material.
const (
	DefaultDerivationPath = "m/44'/784'/0'/0'/0'"
	Ed25519SchemeFlag     = 0x00
	SuiPrivateKeyPrefix   = "suiprivkey"
)

// Gas bounds enforced before a transaction is built (MIST).
const (
	MaxGasBudget        uint64 = 50_000_000_000
	MaxGasPrice         uint64 = 100_000
	EstimationGasBudget uint64 = 50_000_000
	GasSafeOverhead     uint64 = 1000
)

// Request fields accepted on mutating endpoints, body or query.
const (
	ParamCounterId      = "counterId"
	ParamGasBudget      = "gasBudget"
	ParamGasBudgetSnake = "gas_budget"
	ParamGasPrice       = "gasPrice"
	ParamGasPriceSnake  = "gas_price"
)

// Well-known fullnode endpoints.
var NetworkRpcUrls = map[string]string{
	"mainnet":  "https://fullnode.mainnet.sui.io:443",
	"testnet":  "https://fullnode.testnet.sui.io:443",
	"devnet":   "https://fullnode.devnet.sui.io:443",
	"localnet": "http://127.0.0.1:9000",
}
