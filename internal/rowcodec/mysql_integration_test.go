package rowcodec_test

// Opt-in integration test mirroring the teacher's types_test.go: it
// creates a table against a live server, inserts known values, then
// reads the resulting local binlog file through the same
// binlogstream -> ddltrack -> tablemap -> rowcodec pipeline the
// converter uses in production, rather than the teacher's live
// replication (Remote) connection — this product never speaks the
// MySQL replication wire protocol, it only tails files a housekeeper
// writes to disk, so that's what the test exercises.
//
// Run with MAXSCALE_TEST_DSN set to a DSN for a server whose binlog
// directory MAXSCALE_TEST_BINLOG_DIR is readable from this host, e.g.:
//
//	MAXSCALE_TEST_DSN='root:pw@tcp(127.0.0.1:3306)/' \
//	MAXSCALE_TEST_BINLOG_DIR=/var/lib/mysql \
//	go test ./internal/rowcodec/... -run MySQLIntegration

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ghc888/MaxScale/internal/binlogstream"
	"github.com/ghc888/MaxScale/internal/codec"
	"github.com/ghc888/MaxScale/internal/ddltrack"
	"github.com/ghc888/MaxScale/internal/gtid"
	"github.com/ghc888/MaxScale/internal/rowcodec"
	"github.com/ghc888/MaxScale/internal/tablemap"
	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func tableIDSizeFor(fde binlogstream.FormatDescriptionEvent, typ binlogstream.EventType) int {
	if fde.PostHeaderLength(typ, 8) >= 8 {
		return 6
	}
	return 4
}

func TestMySQLIntegrationRowDecode(t *testing.T) {
	dsn := os.Getenv("MAXSCALE_TEST_DSN")
	binlogDir := os.Getenv("MAXSCALE_TEST_BINLOG_DIR")
	if dsn == "" || binlogDir == "" {
		t.Skip("SKIPPED: set MAXSCALE_TEST_DSN and MAXSCALE_TEST_BINLOG_DIR to run against a live server")
	}

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())

	_, err = db.Exec("FLUSH LOGS")
	require.NoError(t, err)

	var file string
	var pos int64
	row := db.QueryRow("SHOW MASTER STATUS")
	require.NoError(t, row.Scan(&file, &pos, new(sql.RawBytes), new(sql.RawBytes), new(sql.RawBytes)))

	const schema = "maxscale_it"
	const table = "rowdecode_it"
	_, err = db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", schema))
	require.NoError(t, err)
	_, err = db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s.%s", schema, table))
	require.NoError(t, err)
	createSQL := fmt.Sprintf(
		"CREATE TABLE %s.%s (id INT, name VARCHAR(32), price DECIMAL(8,2), info JSON)",
		schema, table)
	_, err = db.Exec(createSQL)
	require.NoError(t, err)
	_, err = db.Exec(fmt.Sprintf(
		`INSERT INTO %s.%s (id, name, price, info) VALUES (7, 'widget', 19.99, '{"color":"red"}')`,
		schema, table))
	require.NoError(t, err)

	fr, err := binlogstream.OpenFramer(filepath.Join(binlogDir, file))
	require.NoError(t, err)
	defer fr.Close()

	tracker := ddltrack.NewTracker(nil)
	registry := tablemap.NewRegistry()
	var g gtid.GTID
	var records []rowcodec.Record

	for {
		raw, err := fr.NextEvent()
		if err != nil {
			break
		}
		fde := fr.FormatDescription()
		switch raw.Header.EventType {
		case binlogstream.QueryEvent:
			body, err := binlogstream.ParseQueryEvent(raw.Payload)
			require.NoError(t, err)
			tracker.HandleQuery(body.Schema, body.Query, g)
		case binlogstream.TableMapEvent:
			body, err := tablemap.DecodeTableMapEvent(raw.Payload, tableIDSizeFor(fde, raw.Header.EventType))
			require.NoError(t, err)
			if body.SchemaName == schema && body.TableName == table {
				_, _, err := registry.Bind(body, g, tracker.Lookup)
				require.NoError(t, err)
			}
		default:
			if raw.Header.EventType.IsRowsEvent() {
				c := codec.NewCursor(raw.Payload)
				hdr, err := rowcodec.DecodeRowsHeader(c, raw.Header.EventType, tableIDSizeFor(fde, raw.Header.EventType))
				require.NoError(t, err)
				tm, ok := registry.Lookup(hdr.TableID)
				if !ok {
					continue
				}
				recs, err := rowcodec.DecodeRows(c, tm, raw.Header.EventType, g)
				require.NoError(t, err)
				records = append(records, recs...)
			}
		}
	}

	require.NotEmpty(t, records, "expected at least one decoded row for %s.%s", schema, table)
	last := records[len(records)-1]
	require.Equal(t, int64(7), last.Values[0])
	require.Equal(t, "widget", last.Values[1])
	require.Equal(t, `{"color":"red"}`, last.Values[3])
}
