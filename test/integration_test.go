package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/sqlcmd"
	"github.com/pthm/sqlcmd/internal/doctor"
	"github.com/pthm/sqlcmd/test/testutil"
)

// factories lists the PostgreSQL factories every integration test runs
// against.
var factories = []struct {
	name    string
	factory sqlcmd.Factory
}{
	{"pgx", sqlcmd.Pgx()},
	{"pq", sqlcmd.PQ()},
}

func forEachFactory(t *testing.T, fn func(t *testing.T, conn *sqlcmd.Connection, dsn string)) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	for _, f := range factories {
		t.Run(f.name, func(t *testing.T) {
			dsn := testutil.DSN(t)
			conn, err := sqlcmd.Open(context.Background(), f.factory, dsn)
			require.NoError(t, err)
			fn(t, conn, dsn)
		})
	}
}

func command(t *testing.T, query string, opts ...sqlcmd.CommandOption) *sqlcmd.Command {
	t.Helper()
	cmd, err := sqlcmd.NewCommand(query, opts...)
	require.NoError(t, err)
	return cmd
}

func TestScalar_Integration(t *testing.T) {
	forEachFactory(t, func(t *testing.T, conn *sqlcmd.Connection, _ string) {
		ctx := context.Background()

		v, err := conn.ExecuteScalar(ctx, command(t, "SELECT 1"))
		require.NoError(t, err)
		assert.EqualValues(t, 1, v)

		v, err = conn.ExecuteScalar(ctx, command(t, "SELECT NULL"))
		require.NoError(t, err)
		assert.Nil(t, v)

		v, err = conn.ExecuteScalar(ctx, command(t, "SELECT x FROM t WHERE id = 99"))
		require.NoError(t, err)
		assert.Nil(t, v)

		v, err = conn.ExecuteScalar(ctx, command(t, "SELECT username FROM users WHERE id = @id",
			sqlcmd.WithParameter("id", 2),
		))
		require.NoError(t, err)
		assert.Equal(t, "grace", v)
	})
}

func TestNonQuery_Integration(t *testing.T) {
	forEachFactory(t, func(t *testing.T, conn *sqlcmd.Connection, _ string) {
		ctx := context.Background()

		n, err := conn.ExecuteNonQuery(ctx, command(t, "UPDATE t SET x = @v WHERE id = @id",
			sqlcmd.WithParameter("v", 5),
			sqlcmd.WithParameter("id", 1),
		))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		v, err := conn.ExecuteScalar(ctx, command(t, "SELECT x FROM t WHERE id = 1"))
		require.NoError(t, err)
		assert.EqualValues(t, 5, v)

		n, err = conn.ExecuteNonQuery(ctx, command(t, "UPDATE t SET x = @v WHERE x IS NULL",
			sqlcmd.WithParameter("v", sqlcmd.Null),
		))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = conn.ExecuteNonQuery(ctx, command(t, "CREATE TABLE scratch (id int)"))
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestDataTable_Integration(t *testing.T) {
	forEachFactory(t, func(t *testing.T, conn *sqlcmd.Connection, _ string) {
		table, err := conn.GetDataTable(context.Background(), command(t, "SELECT id, x FROM t ORDER BY id"))
		require.NoError(t, err)

		assert.Equal(t, "Table", table.Name)
		assert.Equal(t, []string{"id", "x"}, table.ColumnNames())
		require.Equal(t, 3, table.Len())

		x, err := table.Value(1, "x")
		require.NoError(t, err)
		assert.EqualValues(t, 20, x)

		x, err = table.Value(2, "x")
		require.NoError(t, err)
		assert.Nil(t, x)

		assert.Equal(t, "INT4", table.Columns[0].DatabaseType)
	})
}

type user struct {
	ID       int64
	Username string
	Nickname *string
}

func scanUser(r sqlcmd.Record) (user, error) {
	var u user
	return u, r.Scan(&u.ID, &u.Username, &u.Nickname)
}

func TestReader_Integration(t *testing.T) {
	forEachFactory(t, func(t *testing.T, conn *sqlcmd.Connection, dsn string) {
		ctx := context.Background()
		cmd := command(t, "SELECT id, username, nickname FROM users ORDER BY id")

		t.Run("all rows", func(t *testing.T) {
			seq, err := sqlcmd.ExecuteReader(ctx, conn, cmd, scanUser)
			require.NoError(t, err)

			var names []string
			for u, err := range seq {
				require.NoError(t, err)
				names = append(names, u.Username)
			}
			assert.Equal(t, []string{"ada", "grace", "barbara"}, names)
		})

		t.Run("early break releases the connection", func(t *testing.T) {
			seq, err := sqlcmd.ExecuteReader(ctx, conn, cmd, scanUser)
			require.NoError(t, err)

			for u, err := range seq {
				require.NoError(t, err)
				assert.Equal(t, "ada", u.Username)
				assert.GreaterOrEqual(t, testutil.ActiveConnections(t, dsn), 1)
				break
			}

			require.Eventually(t, func() bool {
				return testutil.ActiveConnections(t, dsn) == 0
			}, 5*time.Second, 50*time.Millisecond)
		})

		t.Run("record values", func(t *testing.T) {
			seq, err := sqlcmd.ExecuteReader(ctx, conn,
				command(t, "SELECT nickname FROM users WHERE username = @name", sqlcmd.WithParameter("name", "grace")),
				func(r sqlcmd.Record) (bool, error) { return r.IsNull("nickname") },
			)
			require.NoError(t, err)

			var got []bool
			for isNull, err := range seq {
				require.NoError(t, err)
				got = append(got, isNull)
			}
			assert.Equal(t, []bool{true}, got)
		})
	})
}

func TestStoredProcedure_Integration(t *testing.T) {
	forEachFactory(t, func(t *testing.T, conn *sqlcmd.Connection, _ string) {
		ctx := context.Background()

		proc, err := sqlcmd.NewProcedure("log_action",
			sqlcmd.WithParameter("action", "login"),
			sqlcmd.WithParameter("user_id", 1),
		)
		require.NoError(t, err)
		_, err = conn.ExecuteNonQuery(ctx, proc)
		require.NoError(t, err)

		v, err := conn.ExecuteScalar(ctx, command(t, "SELECT action FROM audit_log WHERE user_id = 1"))
		require.NoError(t, err)
		assert.Equal(t, "login", v)

		count, err := sqlcmd.NewProcedure("count_users", sqlcmd.WithParameter("total", sqlcmd.Null))
		require.NoError(t, err)
		v, err = conn.ExecuteScalar(ctx, count)
		require.NoError(t, err)
		assert.EqualValues(t, 3, v)
	})
}

func TestDriverErrors_Integration(t *testing.T) {
	forEachFactory(t, func(t *testing.T, conn *sqlcmd.Connection, _ string) {
		_, err := conn.ExecuteScalar(context.Background(), command(t, "SELECT * FROM missing_table"))
		require.Error(t, err)
		assert.Equal(t, sqlcmd.PgUndefinedTable, sqlcmd.SQLState(err))
		assert.False(t, sqlcmd.IsInvalidConfigurationErr(err))
	})
}

func TestOpen_Integration(t *testing.T) {
	forEachFactory(t, func(t *testing.T, _ *sqlcmd.Connection, dsn string) {
		bad := testutil.ReplaceDBName(dsn, "does_not_exist")

		_, err := sqlcmd.Open(context.Background(), sqlcmd.Pgx(), bad)
		require.Error(t, err)
		assert.True(t, sqlcmd.IsInvalidConfigurationErr(err))
		assert.Equal(t, sqlcmd.PgInvalidCatalogName, sqlcmd.SQLState(err))

		_, err = sqlcmd.Open(context.Background(), sqlcmd.PQ(), bad)
		require.Error(t, err)
		assert.True(t, sqlcmd.IsInvalidConfigurationErr(err))
		assert.Equal(t, sqlcmd.PgInvalidCatalogName, sqlcmd.SQLState(err))
	})
}

// lib/pq runs parameterless queries through the simple protocol, which
// returns one result set per statement.
func TestDataSet_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	conn, err := sqlcmd.Open(ctx, sqlcmd.PQ(), testutil.DSN(t))
	require.NoError(t, err)

	ds, err := conn.GetDataSet(ctx, command(t, "SELECT id FROM t ORDER BY id; SELECT username FROM users ORDER BY id; SELECT 1 AS one"))
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	assert.Equal(t, "Table", ds.Table(0).Name)
	assert.Equal(t, "Table1", ds.Table(1).Name)
	assert.Equal(t, "Table2", ds.Table(2).Name)
	assert.Equal(t, 3, ds.Table(0).Len())
	assert.Equal(t, []string{"username"}, ds.Table(1).ColumnNames())
	assert.Equal(t, 1, ds.Table(2).Len())
}

func TestDoctor_Integration(t *testing.T) {
	forEachFactory(t, func(t *testing.T, conn *sqlcmd.Connection, dsn string) {
		report := doctor.New(conn.Factory(), dsn, nil).Run(context.Background())

		assert.False(t, report.HasErrors(), "%+v", report.Checks)
		assert.Len(t, report.Checks, 5)
	})
}
