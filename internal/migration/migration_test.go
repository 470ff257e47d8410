package migration

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	paymentdomain "github.com/railzwaylabs/payments/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestDescribeEmbedded(t *testing.T) {
	state, err := Describe()
	require.NoError(t, err)
	assert.Equal(t, uint(1), state.Latest)
	assert.Len(t, state.Checksum, 64)
}

func TestDescribeIgnoresDownFilesInChecksum(t *testing.T) {
	base := fstest.MapFS{
		"sql/000001_init.up.sql":   {Data: []byte("CREATE TABLE a (id INT);")},
		"sql/000002_more.up.sql":   {Data: []byte("CREATE TABLE b (id INT);")},
		"sql/000001_init.down.sql": {Data: []byte("DROP TABLE a;")},
	}
	first, err := describe(base, "sql")
	require.NoError(t, err)
	assert.Equal(t, uint(2), first.Latest)

	base["sql/000001_init.down.sql"] = &fstest.MapFile{Data: []byte("DROP TABLE IF EXISTS a;")}
	second, err := describe(base, "sql")
	require.NoError(t, err)
	assert.Equal(t, first.Checksum, second.Checksum)

	base["sql/000002_more.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE c (id INT);")}
	third, err := describe(base, "sql")
	require.NoError(t, err)
	assert.NotEqual(t, first.Checksum, third.Checksum)
}

func TestDescribeRejectsBadNames(t *testing.T) {
	_, err := describe(fstest.MapFS{"sql/init.up.sql": {Data: []byte("")}}, "sql")
	assert.Error(t, err)

	_, err = describe(fstest.MapFS{"sql/README.md": {Data: []byte("")}}, "sql")
	assert.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	v, ok := parseVersion("000012_add_index.up.sql")
	assert.True(t, ok)
	assert.Equal(t, uint(12), v)

	_, ok = parseVersion("abc_init.up.sql")
	assert.False(t, ok)
	_, ok = parseVersion("000000_zero.up.sql")
	assert.False(t, ok)
}

func TestRunAutoMigratesSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Run(context.Background(), conn, "sqlite", zap.NewNop()))

	for _, table := range []string{"plans", "subscriptions", "payments", "payment_methods"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	assert.NoError(t, CheckSchema(context.Background(), conn, "sqlite"))
	assert.True(t, conn.Migrator().HasIndex(&paymentdomain.PaymentMethod{}, defaultMethodIndex))

	// A second run finds the index and leaves it alone.
	require.NoError(t, Run(context.Background(), conn, "sqlite", zap.NewNop()))
}

func TestSQLiteAllowsOneDefaultMethodPerUser(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Run(context.Background(), conn, "sqlite", zap.NewNop()))

	method := func(id int64, userID string, isDefault bool) *paymentdomain.PaymentMethod {
		return &paymentdomain.PaymentMethod{
			ID:          snowflake.ID(id),
			UserID:      userID,
			Gateway:     paymentdomain.GatewayMercadoPago,
			CardTokenID: "tok",
			IsDefault:   isDefault,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
	}

	require.NoError(t, conn.Create(method(1, "u1", true)).Error)
	require.NoError(t, conn.Create(method(2, "u1", false)).Error)
	require.NoError(t, conn.Create(method(3, "u1", false)).Error)
	require.NoError(t, conn.Create(method(4, "u2", true)).Error)

	assert.Error(t, conn.Create(method(5, "u1", true)).Error)
}
