package sqlcmd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/sqlcmd"
)

func TestNewCommand(t *testing.T) {
	t.Run("keeps query and mode", func(t *testing.T) {
		for _, query := range []string{"SELECT 1", "  SELECT 1  ", "x"} {
			cmd, err := sqlcmd.NewCommand(query)
			require.NoError(t, err)
			assert.Equal(t, query, cmd.Query())
			assert.Equal(t, sqlcmd.PlainText, cmd.Mode())
			assert.False(t, cmd.IsStoredProcedure())
			assert.Zero(t, cmd.Len())
		}
	})

	t.Run("procedure", func(t *testing.T) {
		cmd, err := sqlcmd.NewProcedure("refresh_stats")
		require.NoError(t, err)
		assert.Equal(t, "refresh_stats", cmd.Query())
		assert.Equal(t, sqlcmd.StoredProcedure, cmd.Mode())
		assert.True(t, cmd.IsStoredProcedure())

		cmd, err = sqlcmd.NewCommand("refresh_stats", sqlcmd.AsProcedure())
		require.NoError(t, err)
		assert.True(t, cmd.IsStoredProcedure())
	})

	t.Run("rejects blank query", func(t *testing.T) {
		for _, query := range []string{"", " ", "\t\n  "} {
			cmd, err := sqlcmd.NewCommand(query)
			assert.Nil(t, cmd)
			assert.True(t, sqlcmd.IsInvalidArgumentErr(err), "query %q: %v", query, err)
		}
		_, err := sqlcmd.NewProcedure(" ")
		assert.True(t, sqlcmd.IsInvalidArgumentErr(err))
	})

	t.Run("parameter options", func(t *testing.T) {
		cmd, err := sqlcmd.NewCommand("UPDATE t SET x = @v WHERE id = @id",
			sqlcmd.WithParameter("v", 5),
			sqlcmd.WithParameter("id", 1),
		)
		require.NoError(t, err)
		assert.Equal(t, []sqlcmd.Parameter{{Name: "v", Value: 5}, {Name: "id", Value: 1}}, cmd.Parameters())
	})

	t.Run("parameter option errors fail construction", func(t *testing.T) {
		cmd, err := sqlcmd.NewCommand("SELECT @a",
			sqlcmd.WithParameter("a", 1),
			sqlcmd.WithParameter("a", 2),
		)
		assert.Nil(t, cmd)
		assert.True(t, sqlcmd.IsDuplicateParameterErr(err))
	})
}

func TestCommand_AddParameter(t *testing.T) {
	t.Run("duplicate keeps first value", func(t *testing.T) {
		cmd, err := sqlcmd.NewCommand("SELECT @id")
		require.NoError(t, err)

		require.NoError(t, cmd.AddParameter("id", 1))
		err = cmd.AddParameter("id", 2)
		require.Error(t, err)
		assert.True(t, sqlcmd.IsDuplicateParameterErr(err))
		assert.Contains(t, err.Error(), "id")

		v, ok := cmd.Parameter("id")
		require.True(t, ok)
		assert.Equal(t, 1, v)
		assert.Equal(t, 1, cmd.Len())
	})

	t.Run("marker prefix is the same name", func(t *testing.T) {
		cmd, err := sqlcmd.NewCommand("SELECT @id")
		require.NoError(t, err)

		require.NoError(t, cmd.AddParameter("@id", 1))
		assert.True(t, sqlcmd.IsDuplicateParameterErr(cmd.AddParameter("id", 2)))
		assert.True(t, sqlcmd.IsDuplicateParameterErr(cmd.AddParameter(":id", 3)))

		v, ok := cmd.Parameter("@id")
		require.True(t, ok)
		assert.Equal(t, 1, v)
		assert.Equal(t, "id", cmd.Parameters()[0].Name)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		cmd, err := sqlcmd.NewCommand("SELECT 1")
		require.NoError(t, err)

		for _, name := range []string{"", " ", "@", "@ "} {
			err := cmd.AddParameter(name, 1)
			assert.True(t, sqlcmd.IsInvalidArgumentErr(err), "name %q: %v", name, err)
		}
		assert.Zero(t, cmd.Len())
	})

	t.Run("nil is stored as Null", func(t *testing.T) {
		cmd, err := sqlcmd.NewCommand("SELECT @a")
		require.NoError(t, err)
		require.NoError(t, cmd.AddParameter("a", nil))

		v, ok := cmd.Parameter("a")
		require.True(t, ok)
		assert.Equal(t, sqlcmd.Null, v)
		assert.True(t, sqlcmd.IsNull(v))
	})

	t.Run("explicit Null", func(t *testing.T) {
		cmd, err := sqlcmd.NewCommand("SELECT @a")
		require.NoError(t, err)
		require.NoError(t, cmd.AddParameter("a", sqlcmd.Null))

		v, _ := cmd.Parameter("a")
		assert.True(t, sqlcmd.IsNull(v))
	})

	t.Run("parameters view is a copy", func(t *testing.T) {
		cmd, err := sqlcmd.NewCommand("SELECT @a")
		require.NoError(t, err)
		require.NoError(t, cmd.AddParameter("a", 1))

		params := cmd.Parameters()
		params[0].Value = 99

		v, _ := cmd.Parameter("a")
		assert.Equal(t, 1, v)
		assert.Equal(t, 1, cmd.Len())
	})

	t.Run("insertion order", func(t *testing.T) {
		cmd, err := sqlcmd.NewCommand("SELECT 1")
		require.NoError(t, err)
		for _, name := range []string{"c", "a", "b"} {
			require.NoError(t, cmd.AddParameter(name, name))
		}

		var names []string
		for _, p := range cmd.Parameters() {
			names = append(names, p.Name)
		}
		assert.Equal(t, []string{"c", "a", "b"}, names)
	})
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "text", sqlcmd.PlainText.String())
	assert.Equal(t, "procedure", sqlcmd.StoredProcedure.String())
	assert.Equal(t, "Mode(7)", sqlcmd.Mode(7).String())
}

func TestNull(t *testing.T) {
	v, err := sqlcmd.Null.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.True(t, sqlcmd.IsNull(nil))
	assert.False(t, sqlcmd.IsNull(0))
	assert.False(t, sqlcmd.IsNull(""))
	assert.Equal(t, "NULL", sqlcmd.Null.(interface{ String() string }).String())
}
