// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package batch

import (
	"fmt"
	"path/filepath"
	"time"
)

// templateFields lists the import columns and example values per data type
var templateFields = map[DataType][]struct{ field, example string }{
	DataInvoices: {
		{"customer_name", "Customer name"},
		{"amount", "Amount"},
		{"date", "Date (YYYY-MM-DD)"},
		{"description", "Description"},
	},
	DataCustomers: {
		{"name", "Name"},
		{"email", "Email"},
		{"phone", "Phone number"},
		{"address", "Address"},
		{"company", "Company"},
	},
	DataProducts: {
		{"name", "Product name"},
		{"price", "Price"},
		{"category", "Category"},
		{"description", "Description"},
		{"sku", "SKU"},
	},
	DataTransactions: {
		{"account", "Account"},
		{"amount", "Amount"},
		{"date", "Date (YYYY-MM-DD)"},
		{"type", "debit or credit"},
	},
}

// CreateTemplate writes an import template with a header and one example
// row into dir and returns the file path.
func CreateTemplate(dataType DataType, format Format, dir string) (string, error) {
	fields, ok := templateFields[dataType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDataType, dataType)
	}

	example := make(Record, len(fields))
	for _, f := range fields {
		example[f.field] = f.example
	}

	name := fmt.Sprintf("%s_template_%s.%s", dataType, time.Now().Format(jobIDFormat), format)
	path := filepath.Join(dir, name)
	if err := WriteRecords(path, format, []Record{example}); err != nil {
		return "", err
	}
	return path, nil
}
