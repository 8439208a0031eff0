// Package health publishes the access daemon's operational status on MQTT.
//
// A Reporter runs a set of named checks (database, MQTT, InfluxDB, API) on
// every interval and publishes one retained JSON message on
// graylogic/access/health. A failed check degrades the status; the reason
// names the first failing check.
package health
