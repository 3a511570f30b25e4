/*
 * Copyright 2025 The BizFlow Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package storage

import (
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/gofrs/uuid/v5"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/utils/str"
)

// SqlConfig configures the SQL-backed tabular store.
type SqlConfig struct {
	// DriverName is the database driver, mysql or postgres.
	DriverName string
	// Dsn is the connection string, see sql.Open.
	Dsn string
	// PoolSize limits open connections. 0 means driver default.
	PoolSize int
}

// SqlStore implements types.Store on a SQL database. Every collection is
// a flat table; nested engine structures arrive already serialized as
// text columns, so the store only moves scalar values. Rows are returned
// ordered by insertion (created_at, then id) where those columns exist.
type SqlStore struct {
	Config SqlConfig
	db     *sql.DB
}

var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewSqlStore opens and verifies the database connection.
func NewSqlStore(config SqlConfig) (*SqlStore, error) {
	if config.DriverName == "" {
		config.DriverName = "mysql"
	}
	db, err := sql.Open(config.DriverName, config.Dsn)
	if err != nil {
		return nil, err
	}
	if config.PoolSize > 0 {
		db.SetMaxOpenConns(config.PoolSize)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SqlStore{Config: config, db: db}, nil
}

// Close releases the connection pool.
func (s *SqlStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ReadAll returns every row of a collection.
func (s *SqlStore) ReadAll(collection string) ([]types.Row, error) {
	if err := checkIdent(collection); err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY created_at, id", collection)
	return s.selectRows(query)
}

// Query returns rows matching the equality filter.
func (s *SqlStore) Query(collection string, filter types.Filter) ([]types.Row, error) {
	if err := checkIdent(collection); err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		return s.ReadAll(collection)
	}
	columns, args, err := sortedColumns(filter)
	if err != nil {
		return nil, err
	}
	var clauses []string
	for _, column := range columns {
		clauses = append(clauses, column+" = ?")
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s ORDER BY created_at, id",
		collection, strings.Join(clauses, " AND "))
	query = str.ConvertDollarPlaceholder(query, s.Config.DriverName)
	return s.selectRows(query, args...)
}

// Create inserts a row, assigning an id when the row carries none.
func (s *SqlStore) Create(collection string, row types.Row) (string, error) {
	if err := checkIdent(collection); err != nil {
		return "", err
	}
	id := str.ToString(row["id"])
	if id == "" {
		uid, err := uuid.NewV4()
		if err != nil {
			return "", err
		}
		id = uid.String()
		row = cloneRow(row)
		row["id"] = id
	}
	columns, args, err := sortedColumns(types.Filter(row))
	if err != nil {
		return "", err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		collection, strings.Join(columns, ", "), placeholders)
	query = str.ConvertDollarPlaceholder(query, s.Config.DriverName)
	if _, err = s.db.Exec(query, args...); err != nil {
		return "", err
	}
	return id, nil
}

// Update applies a partial patch to the row with the given id.
func (s *SqlStore) Update(collection string, id string, patch types.Row) (bool, error) {
	if err := checkIdent(collection); err != nil {
		return false, err
	}
	if len(patch) == 0 {
		return false, nil
	}
	columns, args, err := sortedColumns(types.Filter(patch))
	if err != nil {
		return false, err
	}
	var sets []string
	for _, column := range columns {
		if column == "id" {
			continue
		}
		sets = append(sets, column+" = ?")
	}
	if len(sets) == 0 {
		return false, nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?",
		collection, strings.Join(sets, ", "))
	query = str.ConvertDollarPlaceholder(query, s.Config.DriverName)
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return false, err
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// Delete removes the row with the given id.
func (s *SqlStore) Delete(collection string, id string) (bool, error) {
	if err := checkIdent(collection); err != nil {
		return false, err
	}
	query := str.ConvertDollarPlaceholder(
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", collection), s.Config.DriverName)
	result, err := s.db.Exec(query, id)
	if err != nil {
		return false, err
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

func (s *SqlStore) selectRows(query string, args ...interface{}) ([]types.Row, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []types.Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		scanArgs := make([]interface{}, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}
		if err = rows.Scan(scanArgs...); err != nil {
			return nil, err
		}
		row := make(types.Row, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// sortedColumns returns column names in deterministic order with their
// values, rejecting names that are not plain identifiers.
func sortedColumns(m types.Filter) ([]string, []interface{}, error) {
	columns := make([]string, 0, len(m))
	for column := range m {
		if err := checkIdent(column); err != nil {
			return nil, nil, err
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		args = append(args, m[column])
	}
	return columns, args, nil
}

func checkIdent(name string) error {
	if !identRegex.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}
