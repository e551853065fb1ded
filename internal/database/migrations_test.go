package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("predictions table exists", func(t *testing.T) {
		var exists bool
		err := testDB.GetRawConn().QueryRow(`
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = 'public'
				AND table_name = 'predictions'
			)
		`).Scan(&exists)

		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("predictions table has correct columns", func(t *testing.T) {
		expectedColumns := map[string]string{
			"id":              "integer",
			"request_id":      "uuid",
			"session_id":      "character varying",
			"ticker":          "character varying",
			"day1_open":       "numeric",
			"day2_open":       "numeric",
			"day3_open":       "numeric",
			"volume_raw":      "character varying",
			"volume":          "bigint",
			"jobs_report":     "character varying",
			"predicted_price": "numeric",
			"status":          "character varying",
			"failure_kind":    "character varying",
			"model":           "character varying",
			"cached":          "boolean",
			"requested_at":    "timestamp without time zone",
			"created_at":      "timestamp without time zone",
		}

		for colName, expectedType := range expectedColumns {
			var actualType string
			err := testDB.GetRawConn().QueryRow(`
				SELECT data_type
				FROM information_schema.columns
				WHERE table_name = 'predictions' AND column_name = $1
			`, colName).Scan(&actualType)

			require.NoError(t, err, "column %s should exist in predictions table", colName)
			assert.Equal(t, expectedType, actualType, "column %s should have type %s", colName, expectedType)
		}
	})

	t.Run("migrations are idempotent", func(t *testing.T) {
		assert.NoError(t, testDB.RunMigrations())
	})

	t.Run("status check constraint", func(t *testing.T) {
		_, err := testDB.GetRawConn().Exec(`
			INSERT INTO predictions (request_id, ticker, day1_open, day2_open, day3_open,
				volume_raw, volume, jobs_report, status, requested_at)
			VALUES (gen_random_uuid(), 'X', 1, 1, 1, '1', 1, 'Strong', 'PENDING', NOW())
		`)
		assert.Error(t, err)
	})
}
