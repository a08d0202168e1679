package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"bookcrew/internal/config"
)

type migrateFunc func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error

var commands = map[string]struct {
	run  migrateFunc
	done string
}{
	"up":      {goose.UpContext, "Migrations applied successfully"},
	"down":    {goose.DownContext, "Migrations rolled back successfully"},
	"redo":    {goose.RedoContext, "Latest migration re-applied"},
	"status":  {goose.StatusContext, ""},
	"version": {goose.VersionContext, ""},
}

var errUnknownCommand = errors.New("unknown command")

func commandNames() string {
	names := []string{"create"}
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func main() {
	var (
		command = flag.String("command", "up", "Migration command: "+commandNames())
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	if err := run(context.Background(), *command, *name, loadSettings()); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, command, name string, s settings) error {
	if command == "create" {
		if name == "" {
			return errors.New("name is required for 'create' command")
		}
		if err := goose.Create(nil, s.dir, name, "sql"); err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		fmt.Printf("Migration created: %s\n", name)
		return nil
	}

	cmd, ok := commands[command]
	if !ok {
		return fmt.Errorf("%w %q; use one of: %s", errUnknownCommand, command, commandNames())
	}

	pool, err := pgxpool.New(ctx, s.dsn)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", config.RedactDSN(s.dsn), err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := cmd.run(ctx, db, s.dir); err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	if cmd.done != "" {
		fmt.Println(cmd.done)
	}
	return nil
}
