package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"net"     // net parses trusted proxy ranges
	"strings" // strings normalizes the API prefix
	"time"    // time holds parsed durations

	"github.com/joho/godotenv" // godotenv loads a local .env file when present

	"github.com/iliyamo/nexura/internal/utils" // utils parses the compact token expiry grammar
)

// MinBcryptCost is the lowest bcrypt work factor accepted for password hashes.
const MinBcryptCost = 12

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Token lifetimes are kept both in their raw
// compact form (e.g. "15m", "7d") and as parsed durations.
type Config struct {
	Env       string // application environment (dev, test, production)
	Port      string // HTTP port to listen on
	APIPrefix string // path prefix for every API route, without slashes

	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	DBAutoMigrate bool   // apply embedded migrations on startup

	JWTSecret        string        // secret used to sign access tokens
	JWTExpiresIn     string        // access token lifetime, compact grammar
	AccessTTL        time.Duration // parsed JWTExpiresIn
	RefreshSecret    string        // secret used to sign refresh tokens
	RefreshExpiresIn string        // refresh token lifetime, compact grammar
	RefreshTTL       time.Duration // parsed RefreshExpiresIn

	BcryptCost     int           // bcrypt cost for password hashing
	CORSOrigins    []string      // allowed CORS origins
	TrustedProxies []*net.IPNet  // proxies whose X-Forwarded-For is believed; empty means none
	RequestTimeout time.Duration // per-request deadline
	LogLevel       string        // zap level name
	LogPretty      bool          // human readable console logs
	Version        string        // build version reported in logs
}

// IsProduction reports whether cookies must be marked Secure.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// Load reads a .env file if one exists, then builds the Config from the
// process environment. Any missing or malformed required value is fatal.
func Load() Config {
	_ = godotenv.Load() // a missing .env file is not an error
	cfg, err := Parse()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Parse builds a Config from the current environment and reports every
// problem it finds instead of stopping at the first one.
func Parse() (Config, error) {
	var p problems
	cfg := Config{
		Env:       envStr("APP_ENV", "dev"),
		Port:      envStr("APP_PORT", envStr("PORT", "3000")),
		APIPrefix: strings.Trim(envStr("API_PREFIX", "api"), "/"),

		DBUser:        requireStr(&p, "DB_USER"),
		DBPass:        envStr("DB_PASS", ""),
		DBHost:        requireStr(&p, "DB_HOST"),
		DBPort:        envStr("DB_PORT", "3306"),
		DBName:        requireStr(&p, "DB_NAME"),
		DBAutoMigrate: envBool("DB_AUTO_MIGRATE", false),

		JWTSecret:        requireStr(&p, "JWT_SECRET"),
		JWTExpiresIn:     envStr("JWT_EXPIRES_IN", "15m"),
		RefreshSecret:    requireStr(&p, "REFRESH_TOKEN_SECRET"),
		RefreshExpiresIn: envStr("REFRESH_TOKEN_EXPIRES_IN", "7d"),

		BcryptCost:     envInt("BCRYPT_COST", MinBcryptCost),
		CORSOrigins:    envCSV("CORS_ORIGIN", "http://localhost:3001"),
		RequestTimeout: envDur("REQUEST_TIMEOUT", 15*time.Second),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		LogPretty:      envBool("LOG_PRETTY", false),
		Version:        envStr("APP_VERSION", "dev"),
	}

	var err error
	if cfg.AccessTTL, err = utils.ParseExpiry(cfg.JWTExpiresIn); err != nil {
		p.add("JWT_EXPIRES_IN: %v", err)
	}
	if cfg.RefreshTTL, err = utils.ParseExpiry(cfg.RefreshExpiresIn); err != nil {
		p.add("REFRESH_TOKEN_EXPIRES_IN: %v", err)
	}
	if cfg.JWTSecret != "" && cfg.JWTSecret == cfg.RefreshSecret {
		p.add("JWT_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	cfg.TrustedProxies = parseProxies(&p, envCSV("TRUSTED_PROXIES", ""))
	if cfg.BcryptCost < MinBcryptCost {
		cfg.BcryptCost = MinBcryptCost
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	return cfg, p.err()
}

// parseProxies accepts CIDR ranges and bare addresses. A bare address is
// treated as a single-host range.
func parseProxies(p *problems, items []string) []*net.IPNet {
	var out []*net.IPNet
	for _, it := range items {
		if ip := net.ParseIP(it); ip != nil {
			bits := 8 * net.IPv6len
			if ip4 := ip.To4(); ip4 != nil {
				ip, bits = ip4, 8*net.IPv4len
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(it)
		if err != nil {
			p.add("TRUSTED_PROXIES: invalid range %q", it)
			continue
		}
		out = append(out, n)
	}
	return out
}
