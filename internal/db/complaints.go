package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/joeblew999/nyc-dob-map/internal/rollup"
)

// Columns read from a complaint export, in scan order.
var Columns = []string{
	"complaint_number",
	"bin",
	"house_number",
	"house_street",
	"zip_code",
	"unit",
	"complaint_category",
	"date_entered",
	"inspection_date",
	"community_board",
	"latitude",
	"longitude",
}

// LoadOptions filters the records read.
type LoadOptions struct {
	// ActiveOnly keeps rows whose status column is ACTIVE, when the export
	// has one.
	ActiveOnly bool
	// Limit caps the rows read; zero reads everything.
	Limit int
}

// TableFunc returns the DuckDB table function reading path, chosen by
// extension.
func TableFunc(path string) (string, error) {
	lit := quote(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return fmt.Sprintf("read_csv_auto(%s, all_varchar=true, header=true)", lit), nil
	case ".parquet":
		return fmt.Sprintf("read_parquet(%s)", lit), nil
	case ".json", ".ndjson":
		return fmt.Sprintf("read_json_auto(%s)", lit), nil
	}
	return "", fmt.Errorf("unsupported complaint export %q", filepath.Base(path))
}

// SelectQuery builds the query reading complaints from source. Columns
// missing from the export read as NULL.
func SelectQuery(source string, present map[string]bool, opts LoadOptions) string {
	exprs := make([]string, len(Columns))
	for i, col := range Columns {
		switch {
		case !present[col]:
			exprs[i] = "NULL"
		case col == "latitude" || col == "longitude":
			exprs[i] = fmt.Sprintf("TRY_CAST(%s AS DOUBLE)", ident(col))
		default:
			exprs[i] = fmt.Sprintf("TRIM(CAST(%s AS VARCHAR))", ident(col))
		}
	}

	q := "SELECT " + strings.Join(exprs, ", ") + " FROM " + source
	if opts.ActiveOnly && present["status"] {
		q += " WHERE UPPER(TRIM(CAST(status AS VARCHAR))) = 'ACTIVE'"
	}
	if opts.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	return q
}

// LoadComplaints reads the export at path.
func LoadComplaints(ctx context.Context, conn *sql.DB, path string, opts LoadOptions) ([]rollup.Complaint, error) {
	source, err := TableFunc(path)
	if err != nil {
		return nil, err
	}
	present, err := describe(ctx, conn, source)
	if err != nil {
		return nil, err
	}
	if !present["bin"] {
		return nil, fmt.Errorf("%s has no bin column", filepath.Base(path))
	}

	rows, err := conn.QueryContext(ctx, SelectQuery(source, present, opts))
	if err != nil {
		return nil, eris.Wrapf(err, "db: query %s", filepath.Base(path))
	}
	defer rows.Close()

	var out []rollup.Complaint
	for rows.Next() {
		var (
			s        [10]sql.NullString
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&s[0], &s[1], &s[2], &s[3], &s[4], &s[5], &s[6], &s[7], &s[8], &s[9], &lat, &lon); err != nil {
			return nil, eris.Wrap(err, "db: scan complaint")
		}
		out = append(out, rollup.Complaint{
			Number:         s[0].String,
			BIN:            s[1].String,
			HouseNumber:    s[2].String,
			HouseStreet:    s[3].String,
			ZipCode:        s[4].String,
			Unit:           s[5].String,
			Category:       s[6].String,
			DateEntered:    s[7].String,
			InspectionDate: s[8].String,
			CommunityBoard: s[9].String,
			Latitude:       lat.Float64,
			Longitude:      lon.Float64,
		})
	}
	return out, eris.Wrap(rows.Err(), "db: read complaints")
}

// CategoryCount is the number of complaints of one category.
type CategoryCount struct {
	Code  string `json:"code" doc:"Complaint category code" example:"41"`
	Count int64  `json:"count" doc:"Complaints in the export"`
}

// CountByCategory tallies the export at path by complaint category, most
// frequent first.
func CountByCategory(ctx context.Context, conn *sql.DB, path string) ([]CategoryCount, error) {
	source, err := TableFunc(path)
	if err != nil {
		return nil, err
	}
	q := "SELECT TRIM(CAST(complaint_category AS VARCHAR)) AS code, COUNT(*) AS n FROM " + source +
		" GROUP BY 1 ORDER BY n DESC, code"
	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return nil, eris.Wrapf(err, "db: count %s", filepath.Base(path))
	}
	defer rows.Close()

	out := []CategoryCount{}
	for rows.Next() {
		var code sql.NullString
		var n int64
		if err := rows.Scan(&code, &n); err != nil {
			return nil, eris.Wrap(err, "db: scan count")
		}
		out = append(out, CategoryCount{Code: code.String, Count: n})
	}
	return out, eris.Wrap(rows.Err(), "db: read counts")
}

func describe(ctx context.Context, conn *sql.DB, source string) (map[string]bool, error) {
	rows, err := conn.QueryContext(ctx, "DESCRIBE SELECT * FROM "+source)
	if err != nil {
		return nil, eris.Wrap(err, "db: describe export")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "db: describe columns")
	}
	present := map[string]bool{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "db: scan describe")
		}
		if name, ok := vals[0].(string); ok {
			present[strings.ToLower(name)] = true
		}
	}
	return present, eris.Wrap(rows.Err(), "db: read describe")
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func ident(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
