package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/snowflakedb/gosnowflake"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/BartekS5/npiload/internal/config"
)

const pingTimeout = 30 * time.Second

// DriverAndDSN returns the database/sql driver name and DSN for the
// configured warehouse.
func DriverAndDSN(w config.WarehouseConfig) (string, string, error) {
	switch w.Driver {
	case config.DriverSnowflake:
		dsn, err := gosnowflake.DSN(&gosnowflake.Config{
			Account:   w.Account,
			User:      w.User,
			Password:  w.Password,
			Database:  w.Database,
			Schema:    w.Schema,
			Warehouse: w.Warehouse,
			Role:      w.Role,
		})
		if err != nil {
			return "", "", fmt.Errorf("error building Snowflake DSN: %w", err)
		}
		return "snowflake", dsn, nil
	case config.DriverSQLServer:
		return "sqlserver", w.ConnString, nil
	case config.DriverDuckDB:
		return "duckdb", w.DuckDBPath, nil
	default:
		return "", "", fmt.Errorf("unsupported warehouse driver %q", w.Driver)
	}
}

// ConnectWarehouse opens and pings the configured warehouse.
func ConnectWarehouse(ctx context.Context, w config.WarehouseConfig) (*sql.DB, error) {
	driver, dsn, err := DriverAndDSN(w)
	if err != nil {
		return nil, err
	}
	return ConnectSQL(ctx, driver, dsn)
}

// ConnectSQL opens a database/sql handle and pings it so credential or
// network problems surface before any other work starts.
func ConnectSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err = db.PingContext(pingCtx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to %s database (ping failed): %w", driver, err)
	}

	return db, nil
}

// ConnectMongo connects to MongoDB and pings the primary.
func ConnectMongo(ctx context.Context, connString string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(connString))
	if err != nil {
		return nil, fmt.Errorf("error creating MongoDB client: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	err = client.Ping(pingCtx, readpref.Primary())
	if err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)

		return nil, fmt.Errorf("error connecting to MongoDB (ping failed): %w", err)
	}

	return client, nil
}
