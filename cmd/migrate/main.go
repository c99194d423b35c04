package main

import (
	"flag"
	"os"

	"github.com/Dan9191/bank-portal/internal/repository"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	_ = godotenv.Load()
	dsn := os.Getenv("DB_CONN")
	if dsn == "" {
		logger.Fatal("DB_CONN is required")
	}

	if err := repository.Migrate(dsn, *down, logger); err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}
}
