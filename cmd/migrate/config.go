package main

import (
	"os"

	"bookcrew/internal/config"
)

type settings struct {
	dir string
	dsn string
}

func loadSettings() settings {
	config.LoadEnvFiles()
	s := settings{dir: "db/migrations", dsn: config.DefaultDatabaseDSN}
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		s.dir = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		s.dsn = v
	}
	return s
}
