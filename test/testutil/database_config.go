package testutil

import (
	"net"
	"net/url"
	"os"
)

// DatabaseConfig points the integration tests at an existing server. A zero
// value means a PostgreSQL container is started instead.
type DatabaseConfig struct {
	URL string
}

// GetDatabaseConfig reads DATABASE_URL, or assembles a URL from
// DATABASE_HOST, DATABASE_PORT, DATABASE_USER, DATABASE_PASSWORD,
// DATABASE_NAME and DATABASE_SSLMODE when only the host is set.
func GetDatabaseConfig() DatabaseConfig {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return DatabaseConfig{URL: dsn}
	}
	host := os.Getenv("DATABASE_HOST")
	if host == "" {
		return DatabaseConfig{}
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(host, envOr("DATABASE_PORT", "5432")),
		Path:     "/" + envOr("DATABASE_NAME", "postgres"),
		RawQuery: url.Values{"sslmode": {envOr("DATABASE_SSLMODE", "disable")}}.Encode(),
	}
	user := envOr("DATABASE_USER", "postgres")
	if password := os.Getenv("DATABASE_PASSWORD"); password != "" {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	return DatabaseConfig{URL: u.String()}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
