package database

import (
	"context"
	"database/sql"
	"fmt"
)

// AuditTableNames are exported in monthly audit workbooks.
var AuditTableNames = []string{
	"customers",
	"services",
	"therapists",
	"bookings",
	"feedback",
}

// GetTableNames returns list of table names to export.
func (db *DB) GetTableNames(_ context.Context) ([]string, error) {
	return AuditTableNames, nil
}

// GetTableData returns all rows from a table as maps.
func (db *DB) GetTableData(ctx context.Context, tableName string) (result []map[string]interface{}, columns []string, err error) {
	if !isAuditTable(tableName) {
		return nil, nil, fmt.Errorf("invalid table name: %s", tableName)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, nil, err
	}
	for rows.Next() {
		var (
			cid         int
			name, typ   string
			notNull, pk int
			dfltValue   sql.NullString
		)
		if errScan := rows.Scan(&cid, &name, &typ, &notNull, &dfltValue, &pk); errScan != nil {
			rows.Close()
			return nil, nil, errScan
		}
		columns = append(columns, name)
	}
	rows.Close()

	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("table %s has no columns", tableName)
	}

	dataRows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY id", tableName))
	if err != nil {
		return nil, nil, err
	}
	defer dataRows.Close()

	for dataRows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if errScan := dataRows.Scan(ptrs...); errScan != nil {
			return nil, nil, errScan
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}

	return result, columns, dataRows.Err()
}

// GetDB returns the underlying sql.DB.
func (db *DB) GetDB() *sql.DB {
	return db.DB
}

func isAuditTable(name string) bool {
	for _, t := range AuditTableNames {
		if t == name {
			return true
		}
	}
	return false
}
