package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/config"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/repository/postgres"
)

type dbKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string, defaults to the DB_* settings",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	dsn := c.String("db-url")
	if dsn == "" {
		dsn = postgres.DSN(&config.Load().Database)
	}

	// Initialize database connection
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Store the database connection in the context
	c.Context = context.WithValue(c.Context, dbKey{}, postgres.Wrap(sqlx.NewDb(db, "pgx")))
	return nil
}

func closeDB(c *cli.Context) error {
	// Close the database connection when done
	if db, ok := c.Context.Value(dbKey{}).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) (*postgres.DB, error) {
	db, ok := c.Context.Value(dbKey{}).(*postgres.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not initialized")
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Seed reference data for the forecasting service",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create the database schema",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					db, err := dbFrom(c)
					if err != nil {
						return err
					}
					return postgres.Migrate(c.Context, db)
				},
			},
			{
				Name:  "festivals",
				Usage: "Load the festival calendar from a YAML file",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "file",
						Usage:   "Festival calendar YAML file",
						Value:   "./data/seeds/festivals.yaml",
						EnvVars: []string{"FESTIVALS_FILE"},
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: seedFestivals,
			},
			{
				Name:  "sales",
				Usage: "Load daily sales history from a CSV file",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "file",
						Usage:   "CSV with user_id,sku,category,sale_date,quantity_sold columns",
						Value:   "./data/seeds/sales.csv",
						EnvVars: []string{"SALES_FILE"},
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: seedSales,
			},
			{
				Name:  "patterns",
				Usage: "Upload synthetic pattern documents to object storage",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Usage:   "Directory containing pattern JSON documents",
						Value:   "./data/seeds/patterns",
						EnvVars: []string{"PATTERNS_DIR"},
					},
				},
				Action: uploadPatterns,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
