package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/repository/postgres"
)

var salesColumns = []string{"user_id", "sku", "category", "sale_date", "quantity_sold"}

func seedSales(c *cli.Context) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}

	path := c.String("file")
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	byUser, err := readSales(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	users := make([]string, 0, len(byUser))
	for u := range byUser {
		users = append(users, u)
	}
	sort.Strings(users)

	repo := postgres.NewHistoryRepository(db)
	for _, u := range users {
		if err := repo.RecordSales(c.Context, u, byUser[u]); err != nil {
			return fmt.Errorf("failed to seed sales for %s: %w", u, err)
		}
		log.Printf("Seeded %d sales observations for %s\n", len(byUser[u]), u)
	}
	return nil
}

// readSales groups CSV rows by user. Columns are matched by header name.
func readSales(r io.Reader) (map[string][]domain.SalesObservation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	idx := make(map[string]int, len(salesColumns))
	for _, col := range salesColumns {
		i := getColumnIndex(header, col)
		if i < 0 {
			return nil, fmt.Errorf("missing column %q", col)
		}
		idx[col] = i
	}

	out := make(map[string][]domain.SalesObservation)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		date, err := domain.ParseDate(strings.TrimSpace(record[idx["sale_date"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		qty, err := strconv.ParseFloat(strings.TrimSpace(record[idx["quantity_sold"]]), 64)
		if err != nil || qty < 0 {
			return nil, fmt.Errorf("line %d: invalid quantity_sold %q", line, record[idx["quantity_sold"]])
		}
		user := strings.TrimSpace(record[idx["user_id"]])
		if user == "" {
			return nil, fmt.Errorf("line %d: user_id is required", line)
		}

		out[user] = append(out[user], domain.SalesObservation{
			Date:         date,
			SKU:          strings.TrimSpace(record[idx["sku"]]),
			Category:     strings.TrimSpace(record[idx["category"]]),
			QuantitySold: qty,
		})
	}
	return out, nil
}

func getColumnIndex(header []string, column string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			return i
		}
	}
	return -1
}
