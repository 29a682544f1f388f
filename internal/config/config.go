package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// DefaultSchools is used when SCHOOLS is not set.
var DefaultSchools = []string{
	"School of Engineering",
	"School of Science",
	"School of Business",
	"School of Arts and Humanities",
	"School of Medicine",
}

type Config struct {
	Mode     Mode
	HTTPAddr string

	StoreDriver string // file|sqlite|postgres
	DBDSN       string
	DataDir     string
	BackupDir   string

	AdminUser      string
	AdminPassword  string // used only when AdminPassHash is empty
	AdminPassHash  string // bcrypt
	ViewerUser     string // optional read-only account
	ViewerPassword string
	ViewerPassHash string
	AuthSecret     string

	Schools   []string
	PoolsFile string // JSON pool table; empty uses the built-in one

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	RequestLog bool
}

// Load reads a .env file when present and then the environment.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			log.Printf("config: %s: %v", f, err)
		}
	}
	return FromEnv()
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	dataDir := envOr("DATA_DIR", "./data")
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		StoreDriver:        envOr("STORE_DRIVER", "file"),
		DBDSN:              envOr("DB_DSN", ""),
		DataDir:            dataDir,
		BackupDir:          envOr("BACKUP_DIR", filepath.Join(dataDir, "backups")),
		AdminUser:          envOr("ADMIN_USER", "admin"),
		AdminPassword:      envOr("ADMIN_PASSWORD", "admin123"),
		AdminPassHash:      os.Getenv("ADMIN_PASS_HASH"),
		ViewerUser:         os.Getenv("VIEWER_USER"),
		ViewerPassword:     os.Getenv("VIEWER_PASSWORD"),
		ViewerPassHash:     os.Getenv("VIEWER_PASS_HASH"),
		AuthSecret:         envOr("AUTH_HMAC_SECRET", "joyat-dev-secret"),
		Schools:            csvOr("SCHOOLS", strings.Join(DefaultSchools, ",")),
		PoolsFile:          os.Getenv("POOLS_FILE"),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://exams.joyat.edu"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:8080"),
		RequestLog:         envBool("REQUEST_LOG", true),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
