package global

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig carries everything the gateway process needs. Values come from
// the environment with workable local defaults.
type AppConfig struct {
	GatewayID  string
	ListenAddr string

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NatsServers []string
	PushSubject string

	JWTSecret   string
	CORSOrigins []string // origin allow-list; empty = allow any

	PingInterval  time.Duration // ws ping cadence
	PongTimeout   time.Duration // missed-pong disconnect deadline
	SweepInterval time.Duration // stale-session reconcile pass
	AutoReadDelay time.Duration // delay before auto read-receipt for active viewers
}

func LoadConfig() *AppConfig {
	c := &AppConfig{
		GatewayID:     getenv("GATEWAY_ID", "chat_gw-1"),
		ListenAddr:    getenv("LISTEN_ADDR", ":8080"),
		MongoURI:      getenv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase: getenv("MONGO_DATABASE", "tchat"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),
		PushSubject:   getenv("PUSH_SUBJECT", "tchat.push"),
		JWTSecret:     getenv("JWT_SECRET", "dev-secret"),
		PingInterval:  25 * time.Second,
		PongTimeout:   75 * time.Second,
		SweepInterval: 5 * time.Minute,
		AutoReadDelay: time.Second,
	}
	if v := os.Getenv("NATS_SERVERS"); v != "" {
		c.NatsServers = splitCSV(v)
	} else {
		c.NatsServers = []string{"nats://127.0.0.1:4222"}
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		c.CORSOrigins = splitCSV(v)
	}
	return c
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
