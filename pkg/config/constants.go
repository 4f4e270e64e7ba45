package config

const (
	EnvPrefix = "SAFELINK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	PaystackModeSandbox = "sandbox"
	PaystackModeLive    = "live"
)
