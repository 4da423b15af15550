package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vitalpath/assessflow/internal/api"
	"github.com/vitalpath/assessflow/internal/genai"
	"github.com/vitalpath/assessflow/internal/results"
	"github.com/vitalpath/assessflow/internal/store"
	"github.com/vitalpath/assessflow/internal/util"
)

// Default configuration constants.
const (
	// DefaultStateDir is the default directory for AssessFlow state data.
	DefaultStateDir = "/var/lib/assessflow"
	// DefaultDBFileName is the default SQLite database filename.
	DefaultDBFileName = "assessflow.db"
)

// Config holds environment configuration.
type Config struct {
	DatabaseURL     string
	StateDir        string
	OpenAIKey       string
	APIAddr         string
	LogLevel        string
	RecoverSessions bool
}

func main() {
	initializeLogger()
	config := loadEnvironmentConfig()

	stateDir := flag.String("state-dir", config.StateDir, "directory for AssessFlow state data")
	dbDSN := flag.String("db-dsn", config.DatabaseURL, "database DSN (postgres:// URL or SQLite file path)")
	apiAddr := flag.String("api-addr", config.APIAddr, "API listen address")
	openaiKey := flag.String("openai-key", config.OpenAIKey, "OpenAI API key for report narratives")
	recoverSessions := flag.Bool("recover-sessions", config.RecoverSessions, "restore in-flight sessions from snapshots at startup")
	flag.Parse()

	st, err := buildStore(*stateDir, *dbDSN)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	narrator := buildNarrator(*openaiKey)

	apiOpts := []api.Option{api.WithRecovery(*recoverSessions)}
	if *apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*apiAddr))
	}

	slog.Info("Bootstrapping AssessFlow", "state_dir", *stateDir, "dsn_set", *dbDSN != "", "narrator_enabled", narrator != nil)
	if err := api.Run(st, narrator, apiOpts...); err != nil {
		slog.Error("AssessFlow failed to run", "error", err)
		os.Exit(1)
	}
}

// initializeLogger sets up structured logging with the configured level.
func initializeLogger() {
	level := util.ParseLogLevel(os.Getenv("LOG_LEVEL"))
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from the environment and an
// optional .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StateDir:        os.Getenv("ASSESSFLOW_STATE_DIR"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		APIAddr:         os.Getenv("API_ADDR"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		RecoverSessions: util.ParseBoolEnv("ASSESSFLOW_RECOVER_SESSIONS", true),
	}
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No ASSESSFLOW_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	return config
}

// buildStore selects a backend from the DSN: a postgres:// URL opens
// PostgreSQL, anything else is treated as a SQLite file path, defaulting to
// a database under the state directory.
func buildStore(stateDir, dsn string) (store.Store, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		slog.Debug("Using PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(dsn))
	case dsn != "":
		slog.Debug("Using SQLite store", "path", dsn)
		return store.NewSQLiteStore(store.WithDSN(dsn))
	default:
		path := filepath.Join(stateDir, DefaultDBFileName)
		slog.Debug("No DSN set, using SQLite store in state dir", "path", path)
		return store.NewSQLiteStore(store.WithDSN(path))
	}
}

// buildNarrator creates the optional GenAI narrator. A missing key simply
// disables narratives.
func buildNarrator(key string) results.Narrator {
	opts := []genai.Option{}
	if key != "" {
		opts = append(opts, genai.WithAPIKey(key))
	}
	client, err := genai.NewClient(opts...)
	if err != nil {
		slog.Info("GenAI narrator disabled", "reason", err)
		return nil
	}
	return client
}
