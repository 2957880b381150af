package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// ListenAddr is where the envelope server accepts connections.
	ListenAddr string
	// ServerAddr is the envelope server the client dials.
	ServerAddr string
	// HTTPAddr enables the HTTP/WebSocket API when non-empty.
	HTTPAddr string
	// APIURL, if set on the client, is used to fetch the server public key.
	APIURL string

	KeyDir   string
	SaltFile string

	RateLimit       int
	RateWindow      time.Duration
	GateSweep       time.Duration
	GateMaxEntries  int
	IOTimeout       time.Duration
	MaxConns        int64
	RedisAddr       string
	MongoURI        string
	MongoDB         string
	LogLevel        string
	LogDevelopment  bool
	ClientRecipient string
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:      getenv("QD_LISTEN_ADDR", "127.0.0.1:8080"),
		ServerAddr:      getenv("QD_SERVER_ADDR", "127.0.0.1:8080"),
		HTTPAddr:        strings.TrimSpace(os.Getenv("QD_HTTP_ADDR")),
		APIURL:          strings.TrimSpace(os.Getenv("QD_API_URL")),
		KeyDir:          getenv("QD_KEY_DIR", "."),
		SaltFile:        getenv("QD_SALT_FILE", "salt.txt"),
		RedisAddr:       strings.TrimSpace(os.Getenv("QD_REDIS_ADDR")),
		MongoURI:        strings.TrimSpace(os.Getenv("QD_MONGO_URI")),
		MongoDB:         getenv("QD_MONGO_DB", "quietdrop"),
		LogLevel:        getenv("QD_LOG_LEVEL", "info"),
		ClientRecipient: getenv("QD_RECIPIENT", "Bob"),
	}

	var err error
	if cfg.RateLimit, err = positiveInt("QD_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.GateMaxEntries, err = positiveInt("QD_GATE_MAX_ENTRIES", 100000); err != nil {
		return nil, err
	}
	maxConns, err := positiveInt("QD_MAX_CONNS", 1024)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = int64(maxConns)

	if cfg.RateWindow, err = duration("QD_RATE_WINDOW", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.GateSweep, err = duration("QD_GATE_SWEEP", time.Minute); err != nil {
		return nil, err
	}
	if cfg.IOTimeout, err = duration("QD_IO_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	dev := strings.TrimSpace(getenv("QD_LOG_DEV", "false"))
	if cfg.LogDevelopment, err = strconv.ParseBool(dev); err != nil {
		return nil, fmt.Errorf("QD_LOG_DEV must be a boolean, got %q", dev)
	}

	return cfg, nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func positiveInt(k string, def int) (int, error) {
	raw := getenv(k, strconv.Itoa(def))
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", k, raw)
	}
	return n, nil
}

// duration accepts Go duration strings ("90s") or plain seconds ("90").
func duration(k string, def time.Duration) (time.Duration, error) {
	raw := getenv(k, def.String())
	if n, err := strconv.Atoi(raw); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("%s must be positive, got %q", k, raw)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", k, raw)
	}
	return d, nil
}
