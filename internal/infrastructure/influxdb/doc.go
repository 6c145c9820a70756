// Package influxdb provides InfluxDB connectivity for the ZenControl gateway.
//
// It wraps the official influxdb-client-go v2 library with gateway-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series state history for:
//   - Light state changes (on/off, brightness over time)
//   - Motion and occupancy sensor transitions
//   - Controller availability
//   - Button press analytics
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "zencontrol",
//	    Bucket: "lighting",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteLightState("light-lobby-1", true, 180)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are batched by the
// underlying non-blocking write API and flushed asynchronously.
package influxdb
