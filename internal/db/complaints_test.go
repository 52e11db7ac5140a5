package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableFunc(t *testing.T) {
	src, err := TableFunc("/data/sources/complaints.csv")
	require.NoError(t, err)
	assert.Equal(t, "read_csv_auto('/data/sources/complaints.csv', all_varchar=true, header=true)", src)

	src, err = TableFunc("/data/it's.PARQUET")
	require.NoError(t, err)
	assert.Equal(t, "read_parquet('/data/it''s.PARQUET')", src)

	_, err = TableFunc("complaints.xlsx")
	assert.Error(t, err)
}

func TestSelectQuery(t *testing.T) {
	present := map[string]bool{"bin": true, "complaint_category": true, "latitude": true, "status": true}
	q := SelectQuery("src", present, LoadOptions{ActiveOnly: true, Limit: 10})

	assert.True(t, strings.HasPrefix(q, `SELECT NULL, TRIM(CAST("bin" AS VARCHAR)), NULL`))
	assert.Contains(t, q, `TRIM(CAST("complaint_category" AS VARCHAR))`)
	assert.Contains(t, q, `TRY_CAST("latitude" AS DOUBLE), NULL FROM src`)
	assert.Contains(t, q, "WHERE UPPER(TRIM(CAST(status AS VARCHAR))) = 'ACTIVE'")
	assert.True(t, strings.HasSuffix(q, " LIMIT 10"))
}

func TestSelectQueryWithoutStatus(t *testing.T) {
	q := SelectQuery("src", map[string]bool{"bin": true}, LoadOptions{ActiveOnly: true})
	assert.NotContains(t, q, "WHERE")
	assert.NotContains(t, q, "LIMIT")
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "", Config{DataDir: "/x"}.Path())
	assert.Equal(t, "/x/duckdb/dob.duckdb", Config{DataDir: "/x", DBName: "dob"}.Path())
}
