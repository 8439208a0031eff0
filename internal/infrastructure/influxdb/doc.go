// Package influxdb writes access telemetry to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and a health check. Two
// measurements are written:
//
//   - access_events: one point per decoded card or PIN, tagged by reader
//   - command_latency: round trip of every device command sent through the API
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteCommandLatency("front-led", "BLINK", true, 4*time.Millisecond)
//
// Writes on a disconnected client are dropped. Batch errors are delivered to
// the callback set with SetOnError.
package influxdb
