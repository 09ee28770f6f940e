package influxdb

import "errors"

// Errors returned by the InfluxDB client. Write failures are reported
// asynchronously through SetOnError instead.
var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
)
