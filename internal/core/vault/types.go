package vault

// Type represents the type of vault.
type Type string

const (
	// TypeDotEnv reads secrets from the process environment (.env in development).
	TypeDotEnv Type = "dotenv"
)
