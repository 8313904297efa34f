package influxdb

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// measurementTelemetry is the measurement name for device sensor points.
const measurementTelemetry = "device_telemetry"

// WriteDeviceMetric records one telemetry frame as a point tagged with the
// device id. The write is buffered; this never blocks the telemetry path.
func (c *Client) WriteDeviceMetric(_ context.Context, deviceID string, fields map[string]any) {
	if len(fields) == 0 {
		return
	}

	point := influxdb2.NewPoint(
		measurementTelemetry,
		map[string]string{"device_id": deviceID},
		fields,
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}
