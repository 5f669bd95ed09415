// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package batch

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// SQLStore persists batch records in the embedded database. Imported
// records receive generated ids; exports read the canonical columns back
// out as records.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store over an open database connection
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// SaveRecord inserts one normalized record
func (s *SQLStore) SaveRecord(ctx context.Context, dataType DataType, rec Record) error {
	id := uuid.New().String()

	switch dataType {
	case DataCustomers:
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO customers (id, name, email, phone, address) VALUES (?, ?, ?, ?, ?)",
			id, stringField(rec, "name"), stringField(rec, "email"),
			stringField(rec, "phone"), stringField(rec, "address"))
		return err

	case DataProducts:
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO products (id, name, price) VALUES (?, ?, ?)",
			id, stringField(rec, "name"), floatField(rec, "price"))
		return err

	case DataInvoices:
		customer := stringField(rec, "customer_id")
		if customer == "" {
			customer = stringField(rec, "customer_name")
		}
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO invoices (id, customer_id, amount, status) VALUES (?, ?, ?, ?)",
			id, customer, floatField(rec, "amount"), stringField(rec, "status"))
		return err

	case DataTransactions:
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO transactions (id, invoice_id, amount, kind) VALUES (?, ?, ?, ?)",
			id, stringField(rec, "invoice_id"), floatField(rec, "amount"), stringField(rec, "type"))
		return err

	default:
		return fmt.Errorf("%w: %s", ErrUnknownDataType, dataType)
	}
}

// FetchRecords reads every stored record of the given type
func (s *SQLStore) FetchRecords(ctx context.Context, dataType DataType) ([]Record, error) {
	var query string
	switch dataType {
	case DataCustomers:
		query = "SELECT id, name, email, phone, address FROM customers ORDER BY id"
	case DataProducts:
		query = "SELECT id, name, price FROM products ORDER BY id"
	case DataInvoices:
		query = "SELECT id, customer_id, amount, currency, status FROM invoices ORDER BY id"
	case DataTransactions:
		query = "SELECT id, invoice_id, amount, kind FROM transactions ORDER BY id"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataType, dataType)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", dataType, err)
	}
	defer rows.Close() //nolint:errcheck // Best effort cleanup

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var records []Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rec := make(Record, len(cols))
		for i, col := range cols {
			rec[col] = values[i]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return records, nil
}
