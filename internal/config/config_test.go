package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// setEnv applies env for the duration of t.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func mustLoad(t *testing.T) Config {
	t.Helper()
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg := mustLoad(t)

	checks := []struct {
		name      string
		got, want any
	}{
		{"port", cfg.Port, "8080"},
		{"gin mode", cfg.GinMode, "release"},
		{"base path", cfg.APIBasePath, "/api"},
		{"page size", cfg.PageSize, 6},
		{"public base", cfg.PublicBaseURL, ""},
		{"driver", cfg.Database.Driver, DriverSQLite},
		{"db path", cfg.Database.Path, "foodgram.db"},
		{"token ttl", cfg.Auth.TokenTTL, 7 * 24 * time.Hour},
		{"media backend", cfg.Media.Backend, MediaLocal},
		{"media url", cfg.Media.URLPrefix, "/media"},
		{"image cap", cfg.Media.MaxImageBytes, int64(10 << 20)},
		{"body cap", cfg.MaxBodyBytes, int64(16 << 20)},
		{"cache", cfg.Cache.Enabled, false},
		{"events", cfg.Events.Enabled, false},
		{"amqp queue", cfg.Events.Queue, "recipes.events"},
		{"otel", cfg.OTEL.Enabled, false},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Fatalf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if cfg.CORS.AllowedOrigins != nil {
		t.Fatalf("origins = %#v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_ProductionLikeEnv(t *testing.T) {
	setEnv(t, map[string]string{
		"PORT":                        "9000",
		"READ_TIMEOUT":                "2s",
		"GIN_MODE":                    "DEBUG",
		"LOG_LEVEL":                   "Warning",
		"LOG_PRETTY":                  "yes",
		"SWAGGER_ENABLED":             "on",
		"API_BASE_PATH":               "api/v2/",
		"PUBLIC_BASE_URL":             " https://foodgram.example/ ",
		"PAGE_SIZE":                   "500",
		"DB_DRIVER":                   "PostgreSQL",
		"DATABASE_URL":                "postgres://food:pw@db:5432/foodgram",
		"JWT_SECRET":                  "s3cret",
		"TOKEN_TTL":                   "1h",
		"BCRYPT_COST":                 "4",
		"MEDIA_BACKEND":               "MINIO",
		"MINIO_ENDPOINT":              "minio:9000",
		"MINIO_BUCKET":                "dishes",
		"MINIO_PUBLIC_URL":            "https://cdn.foodgram.example/dishes/",
		"REDIS_ENABLED":               "1",
		"REDIS_ADDR":                  "cache:6379",
		"CACHE_TTL":                   "30s",
		"AMQP_ENABLED":                "true",
		"AMQP_QUEUE":                  "foodgram",
		"RATE_RPS":                    "not-a-number",
		"RATE_BURST":                  "20",
		"CORS_ALLOWED_ORIGINS":        " https://foodgram.example , , http://localhost:3000 ",
		"ENABLE_HSTS":                 "TRUE",
		"HSTS_MAX_AGE":                "24h",
		"OTEL_ENABLED":                "1",
		"OTEL_EXPORTER_OTLP_INSECURE": "off",
		"OTEL_TRACES_SAMPLER_ARG":     "0.25",
	})
	cfg := mustLoad(t)

	if cfg.Port != "9000" || cfg.ReadTimeout != 2*time.Second || cfg.GinMode != "debug" {
		t.Fatalf("server = %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v2" {
		t.Fatalf("logging/docs = %q %v %v %q", cfg.LogLevel, cfg.LogPretty, cfg.SwaggerEnabled, cfg.APIBasePath)
	}
	if cfg.PublicBaseURL != "https://foodgram.example" || cfg.PageSize != MaxPageSize {
		t.Fatalf("app = %q %d", cfg.PublicBaseURL, cfg.PageSize)
	}
	if cfg.Database.Driver != DriverPostgres || !strings.HasSuffix(cfg.Database.DSN, "/foodgram") {
		t.Fatalf("database = %+v", cfg.Database)
	}
	if cfg.Auth.TokenTTL != time.Hour || cfg.Auth.BcryptCost != 4 {
		t.Fatalf("auth = %+v", cfg.Auth)
	}
	if cfg.Media.Backend != MediaMinio || cfg.Media.Minio.Bucket != "dishes" ||
		cfg.Media.Minio.PublicURL != "https://cdn.foodgram.example/dishes" {
		t.Fatalf("media = %+v", cfg.Media)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 30*time.Second || !cfg.Events.Enabled || cfg.Events.Queue != "foodgram" {
		t.Fatalf("cache/events = %+v %+v", cfg.Cache, cfg.Events)
	}
	if cfg.RateRPS != 5 || cfg.RateBurst != 20 {
		t.Fatalf("rate = %v/%d", cfg.RateRPS, cfg.RateBurst)
	}
	if want := []string{"https://foodgram.example", "http://localhost:3000"}; !reflect.DeepEqual(cfg.CORS.AllowedOrigins, want) {
		t.Fatalf("origins = %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security = %+v", cfg.Security)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Insecure || cfg.OTEL.SampleRatio != 0.25 {
		t.Fatalf("otel = %+v", cfg.OTEL)
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := []struct {
		env  map[string]string
		want string
	}{
		{map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{map[string]string{"PORT": "   "}, "PORT"},
		{map[string]string{"WRITE_TIMEOUT": "0s"}, "timeouts"},
		{map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{map[string]string{"MAX_BODY_BYTES": "-1"}, "MAX_BODY_BYTES"},
		{map[string]string{"PAGE_SIZE": "0"}, "PAGE_SIZE"},
		{map[string]string{"DB_PATH": "  "}, "DB_PATH"},
		{map[string]string{"DB_DRIVER": "pg"}, "DATABASE_URL"},
		{map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{map[string]string{"MEDIA_BACKEND": "s3"}, "MEDIA_BACKEND"},
		{map[string]string{"MEDIA_BACKEND": "minio"}, "MINIO_ENDPOINT"},
		{map[string]string{"MEDIA_ROOT": " "}, "MEDIA_ROOT"},
		{map[string]string{"MAX_IMAGE_BYTES": "0"}, "MAX_IMAGE_BYTES"},
		{map[string]string{"REDIS_ENABLED": "1", "CACHE_TTL": "-1s"}, "CACHE_TTL"},
		{map[string]string{"AMQP_ENABLED": "1", "AMQP_QUEUE": " "}, "AMQP_QUEUE"},
		{map[string]string{"JWT_SECRET": "  "}, "JWT_SECRET"},
		{map[string]string{"TOKEN_TTL": "0s"}, "TOKEN_TTL"},
		{map[string]string{"BCRYPT_COST": "3"}, "BCRYPT_COST"},
		{map[string]string{"BCRYPT_COST": "32"}, "BCRYPT_COST"},
		{map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			setEnv(t, tc.env)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("env %v: err = %v, want mention of %s", tc.env, err, tc.want)
			}
		})
	}
}

func TestMustLoad(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		if cfg := MustLoad(); cfg.APIBasePath == "" {
			t.Fatalf("empty config")
		}
	})
	t.Run("invalid panics", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "oracle")
		defer func() {
			if recover() == nil {
				t.Fatalf("no panic")
			}
		}()
		MustLoad()
	})
}

func TestEnvParsers(t *testing.T) {
	setEnv(t, map[string]string{
		"T_STR": "x", "T_EMPTY": "",
		"T_INT": " 42 ", "T_INT_BAD": "4x",
		"T_FLOAT": "0.5", "T_FLOAT_BAD": "half",
		"T_DUR": "150ms", "T_DUR_BAD": "soon",
		"T_YES": " On ", "T_NO": "N", "T_JUNK": "maybe",
	})

	if getenv("T_STR", "d") != "x" || getenv("T_EMPTY", "d") != "d" || getenv("T_UNSET_X", "d") != "d" {
		t.Fatalf("getenv")
	}
	if getint("T_INT", 0) != 42 || getint("T_INT_BAD", 7) != 7 {
		t.Fatalf("getint")
	}
	if getfloat("T_FLOAT", 0) != 0.5 || getfloat("T_FLOAT_BAD", 1.5) != 1.5 {
		t.Fatalf("getfloat")
	}
	if getdur("T_DUR", 0) != 150*time.Millisecond || getdur("T_DUR_BAD", time.Second) != time.Second {
		t.Fatalf("getdur")
	}
	if !getbool("T_YES", false) || getbool("T_NO", true) || !getbool("T_JUNK", true) || getbool("T_EMPTY", false) {
		t.Fatalf("getbool")
	}
}

func TestPathHelpers(t *testing.T) {
	for in, want := range map[string]string{
		"":         "/",
		" / ":      "/",
		"api":      "/api",
		"/media/":  "/media",
		"api/v2//": "/api/v2",
	} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
	if got := splitCSV(" a, ,b ,"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("splitCSV = %#v", got)
	}
	if splitCSV("") != nil {
		t.Fatalf("splitCSV(\"\") should be nil")
	}
	if got := trimURL(" https://x.test// "); got != "https://x.test" {
		t.Fatalf("trimURL = %q", got)
	}
}
