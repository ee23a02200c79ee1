package engine

import (
	"context"
	"database/sql/driver"
)

// Compile-time interface checks.
var (
	_ driver.Driver        = (*hookDriver)(nil)
	_ driver.DriverContext = (*hookDriver)(nil)
	_ driver.Connector     = (*hookConnector)(nil)
	_ driver.Connector     = (*dsnConnector)(nil)
)

// hookDriver wraps a driver.Driver so every connection it opens reports
// statement executions to the engine's event bus.
type hookDriver struct {
	driver driver.Driver
	events *Events
}

// Open implements driver.Driver.
func (d *hookDriver) Open(name string) (driver.Conn, error) {
	conn, err := d.driver.Open(name)
	if err != nil {
		return nil, err
	}
	return newHookConn(conn, d.events), nil
}

// OpenConnector implements driver.DriverContext.
func (d *hookDriver) OpenConnector(name string) (driver.Connector, error) {
	if dc, ok := d.driver.(driver.DriverContext); ok {
		connector, err := dc.OpenConnector(name)
		if err != nil {
			return nil, err
		}
		return &hookConnector{
			connector: connector,
			driver:    d,
			events:    d.events,
		}, nil
	}
	// Drivers without DriverContext fall back to DSN-based opens.
	return &dsnConnector{
		dsn:    name,
		driver: d,
	}, nil
}

// hookConnector wraps a driver.Connector so connections fire events.
type hookConnector struct {
	connector driver.Connector
	driver    *hookDriver
	events    *Events
}

// Connect implements driver.Connector.
func (c *hookConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return newHookConn(conn, c.events), nil
}

// Driver implements driver.Connector.
func (c *hookConnector) Driver() driver.Driver {
	return c.driver
}

// dsnConnector is the fallback connector for drivers that do not implement
// driver.DriverContext.
type dsnConnector struct {
	dsn    string
	driver *hookDriver
}

// Connect implements driver.Connector.
func (c *dsnConnector) Connect(_ context.Context) (driver.Conn, error) {
	conn, err := c.driver.driver.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return newHookConn(conn, c.driver.events), nil
}

// Driver implements driver.Connector.
func (c *dsnConnector) Driver() driver.Driver {
	return c.driver
}
