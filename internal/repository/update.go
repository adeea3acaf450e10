package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/pedido-service/internal/config"
)

// buildUpdate renders "UPDATE table SET c1=?, c2=? WHERE id=?" for the
// given JSON-field → value map.  Field names are translated through
// columns, so only known columns can ever reach the SQL text.  Keys are
// sorted to keep the statement stable.
func buildUpdate(table string, columns map[string]string, fields map[string]any, id uint64) (string, []any, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if _, ok := columns[k]; !ok {
			return "", nil, fmt.Errorf("%w: %q for %s", ErrUnknownColumn, k, table)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		sets = append(sets, columns[k]+"=?")
		args = append(args, fields[k])
	}
	args = append(args, id)
	return "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE id=?", args, nil
}

// CheckUpdateColumns fails when a configured allow-list names a field the
// update statements cannot write, so a bad PEDIDO_UPDATE_COLUMNS or
// PRODUTO_UPDATE_COLUMNS stops the server at boot.
func CheckUpdateColumns(cols config.ColumnsConfig) error {
	if err := checkColumns("pedidos", cols.Pedido, pedidoColumns); err != nil {
		return err
	}
	return checkColumns("produtos", cols.Produto, productColumns)
}

func checkColumns(table string, set config.ColumnSet, columns map[string]string) error {
	names := make([]string, 0, len(set))
	for k := range set {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if _, ok := columns[k]; !ok {
			return fmt.Errorf("%w: %q for %s", ErrUnknownColumn, k, table)
		}
	}
	return nil
}

// applyUpdate runs a generic update.  MySQL reports zero affected rows
// both for a missing id and for an update that changes nothing, so a
// zero count is confirmed with an existence probe before returning
// ErrNotFound.
func applyUpdate(ctx context.Context, db *sql.DB, table string, columns map[string]string, id uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return exists(ctx, db, table, id)
	}
	q, args, err := buildUpdate(table, columns, fields, id)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return exists(ctx, db, table, id)
	}
	return nil
}

func exists(ctx context.Context, db *sql.DB, table string, id uint64) error {
	var one int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id=?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}
