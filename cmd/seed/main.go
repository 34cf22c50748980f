package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/config"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/repository"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var file string

	flag.IntVar(&op, "op", 0, "operation to run (1: random users, 2: random companies with departments, 3: random employees, 4: random projects, 5: random performance reviews, 6: import organization CSV)")
	flag.IntVar(&n, "n", 5, "number of records to insert")
	flag.StringVar(&file, "file", "./internal/seed/data/org.csv", "CSV file for the import operation")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open does not connect
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)
	seeder := seed.New(repo, cfg.Seed.User.Password, cfg.Seed.EmailDomain)

	if op >= 1 && op <= 5 && n <= 0 {
		slog.Error("n must be positive")
		return
	}

	bg := context.Background()
	switch op {
	case 0:
		slog.Error("no operation given")
	case 1:
		slog.Info("inserted users", slog.Int("count", seeder.Users(bg, n)))
	case 2:
		slog.Info("inserted companies", slog.Int("count", seeder.Companies(bg, n)))
	case 3:
		report("employees", n)(seeder.Employees(bg, n))
	case 4:
		report("projects", n)(seeder.Projects(bg, n))
	case 5:
		report("performance reviews", n)(seeder.Reviews(bg, n))
	case 6:
		f, err := os.Open(file)
		if err != nil {
			slog.Error("failed to open file", "file", file, "error", err)
			return
		}
		defer f.Close()

		report("csv rows", -1)(seeder.ImportCSV(bg, f))
	default:
		slog.Error("unknown operation", "op", op)
	}
}

func report(what string, requested int) func(int, error) {
	return func(cnt int, err error) {
		if err != nil {
			slog.Error("failed to insert "+what, "inserted", cnt, "error", err)
			return
		}
		slog.Info("inserted "+what, "count", cnt, "requested", requested)
	}
}
