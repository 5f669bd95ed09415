// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

/*
validate.go - Per-Record Validation and Normalization

Validation returns the full list of problems for a record rather than
stopping at the first, so import results can report everything wrong
with a row at once. Normalization runs only on records that passed
validation and puts values into canonical form (lowercased emails,
numeric amounts, stripped phone formatting).
*/

//nolint:staticcheck // File documentation, not package doc
package batch

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayout is the accepted date format for imported records
const dateLayout = "2006-01-02"

// ValidateRecord checks one record of the given type and returns every
// problem found. An empty slice means the record is valid.
func ValidateRecord(dataType DataType, rec Record) []string {
	switch dataType {
	case DataInvoices:
		return validateInvoice(rec)
	case DataCustomers:
		return validateCustomer(rec)
	case DataProducts:
		return validateProduct(rec)
	case DataTransactions:
		return validateTransaction(rec)
	default:
		return []string{fmt.Sprintf("no validator for data type: %s", dataType)}
	}
}

// requireFields appends an error for every required field that is missing
// or empty
func requireFields(rec Record, errs []string, fields ...string) []string {
	for _, f := range fields {
		if stringField(rec, f) == "" {
			errs = append(errs, "missing required field: "+f)
		}
	}
	return errs
}

func validateInvoice(rec Record) []string {
	var errs []string
	errs = requireFields(rec, errs, "customer_name", "amount", "date")

	if raw := stringField(rec, "amount"); raw != "" {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, "invalid amount format")
		} else if amount <= 0 {
			errs = append(errs, "amount must be greater than 0")
		}
	}

	if raw := stringField(rec, "date"); raw != "" {
		if _, err := time.Parse(dateLayout, raw); err != nil {
			errs = append(errs, "invalid date format, use YYYY-MM-DD")
		}
	}

	return errs
}

func validateCustomer(rec Record) []string {
	var errs []string
	errs = requireFields(rec, errs, "name", "email")

	if email := stringField(rec, "email"); email != "" && !strings.Contains(email, "@") {
		errs = append(errs, "invalid email format")
	}

	if phone := stringField(rec, "phone"); phone != "" {
		stripped := strings.NewReplacer("+", "", "-", "", " ", "", "(", "", ")", "").Replace(phone)
		if _, err := strconv.ParseUint(stripped, 10, 64); err != nil {
			errs = append(errs, "invalid phone number format")
		}
	}

	return errs
}

func validateProduct(rec Record) []string {
	var errs []string
	errs = requireFields(rec, errs, "name", "price")

	if raw := stringField(rec, "price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, "invalid price format")
		} else if price < 0 {
			errs = append(errs, "price cannot be negative")
		}
	}

	return errs
}

func validateTransaction(rec Record) []string {
	var errs []string
	errs = requireFields(rec, errs, "account", "amount", "date", "type")

	kind := strings.ToLower(stringField(rec, "type"))
	if kind != "" && kind != "debit" && kind != "credit" {
		errs = append(errs, "transaction type must be 'debit' or 'credit'")
	}

	if raw := stringField(rec, "date"); raw != "" {
		if _, err := time.Parse(dateLayout, raw); err != nil {
			errs = append(errs, "invalid date format, use YYYY-MM-DD")
		}
	}

	return errs
}

// NormalizeRecord puts a validated record into canonical form. The input
// is not modified.
func NormalizeRecord(dataType DataType, rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}

	switch dataType {
	case DataInvoices:
		normalizeFloat(out, "amount")
		out["status"] = "draft"
	case DataCustomers:
		if email := stringField(out, "email"); email != "" {
			out["email"] = strings.ToLower(strings.TrimSpace(email))
		}
		if phone := stringField(out, "phone"); phone != "" {
			out["phone"] = strings.NewReplacer("-", "", " ", "", "(", "", ")", "").Replace(phone)
		}
	case DataProducts:
		normalizeFloat(out, "price")
	case DataTransactions:
		normalizeFloat(out, "amount")
		if kind := stringField(out, "type"); kind != "" {
			out["type"] = strings.ToLower(kind)
		}
	}

	return out
}

// normalizeFloat converts a string-typed numeric field in place; values
// that do not parse become zero
func normalizeFloat(rec Record, field string) {
	raw, ok := rec[field]
	if !ok {
		return
	}
	switch v := raw.(type) {
	case float64:
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			parsed = 0
		}
		rec[field] = parsed
	default:
		_ = v
	}
}

// stringField reads a field as a string, stringifying non-string scalars
func stringField(rec Record, field string) string {
	raw, ok := rec[field]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// floatField reads a field as a float64, returning zero when absent or
// unparseable
func floatField(rec Record, field string) float64 {
	raw, ok := rec[field]
	if !ok || raw == nil {
		return 0
	}
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
