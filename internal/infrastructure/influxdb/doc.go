// Package influxdb persists synthesized device telemetry as time-series
// points, one measurement tagged by device id, for offline inspection of
// what the simulation produced.
package influxdb
