package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config agrupa toda la configuración del servicio, leída desde env vars.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// Si viene vacío, el router usa repos in-memory (modo dev).
	DBDSN string `env:"DB_DSN"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	AppName   string `env:"APP_NAME" envDefault:"pawpal"`

	// Dominio institucional requerido al registrarse (sin "@").
	EmailDomain string `env:"PAWPAL_EMAIL_DOMAIN" envDefault:"up.edu.ph"`

	// Usuarios que siempre son admin (bootstrap de moderación).
	AdminUserIDs []string `env:"PAWPAL_ADMIN_IDS" envSeparator:","`

	Supabase   SupabaseConfig
	Cloudinary CloudinaryConfig
	Firebase   FirebaseConfig
	Cache      CacheConfig

	// Cada cuánto corre el job de recordatorios dentro del proceso. 0 = deshabilitado.
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" envDefault:"15m"`

	// Clave de servicio para /functions/* (webhook de push y disparo manual de recordatorios).
	FunctionsSecret string `env:"PAWPAL_FUNCTIONS_SECRET"`

	// Reemplaza el trigger de base de datos: al insertar una notificación se despacha el push.
	PushOnInsert bool `env:"PUSH_ON_INSERT" envDefault:"true"`

	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
}

type SupabaseConfig struct {
	URL       string `env:"SUPABASE_URL"`
	AnonKey   string `env:"SUPABASE_ANON_KEY"`
	JWTSecret string `env:"SUPABASE_JWT_SECRET"`
}

// Enabled indica si hay suficiente config para verificar tokens.
func (c SupabaseConfig) Enabled() bool {
	return strings.TrimSpace(c.JWTSecret) != "" ||
		(strings.TrimSpace(c.URL) != "" && strings.TrimSpace(c.AnonKey) != "")
}

type CloudinaryConfig struct {
	CloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	APIKey    string `env:"CLOUDINARY_API_KEY"`
	APISecret string `env:"CLOUDINARY_API_SECRET"`
	Folder    string `env:"CLOUDINARY_FOLDER" envDefault:"pawpal"`
}

type FirebaseConfig struct {
	// JSON completo de la service account (tal cual lo descarga la consola).
	ServiceAccountJSON string `env:"FIREBASE_SERVICE_ACCOUNT"`
}

type CacheConfig struct {
	StaleTime  time.Duration `env:"CACHE_STALE_TIME" envDefault:"30s"`
	GCTime     time.Duration `env:"CACHE_GC_TIME" envDefault:"5m"`
	Retry      int           `env:"CACHE_RETRY" envDefault:"3"`
	RetryDelay time.Duration `env:"CACHE_RETRY_DELAY" envDefault:"200ms"`
}

// Load lee la config desde el entorno.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.EmailDomain = strings.TrimPrefix(strings.TrimSpace(cfg.EmailDomain), "@")
	if cfg.Cache.Retry < 0 {
		return Config{}, fmt.Errorf("CACHE_RETRY must be >= 0")
	}
	return cfg, nil
}

// Addr devuelve la dirección de escucha a partir de PORT.
func (c Config) Addr() string {
	p := strings.TrimSpace(c.Port)
	if p == "" {
		p = "8080"
	}
	if strings.HasPrefix(p, ":") {
		return p
	}
	return ":" + p
}
