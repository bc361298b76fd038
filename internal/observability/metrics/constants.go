// Package metrics defines the Prometheus collectors of each component.
package metrics

// Operation label values shared by components that report through Recorder.
const (
	// OpSave is a capture buffer save, MP4 or WAV.
	OpSave = "save"
	// OpCatalogInsert stores a recording in the catalog.
	OpCatalogInsert = "catalog_insert"
	// OpCatalogGet reads one catalog entry.
	OpCatalogGet = "catalog_get"
	// OpCatalogList lists catalog entries.
	OpCatalogList = "catalog_list"
	// OpCatalogDelete removes a catalog entry.
	OpCatalogDelete = "catalog_delete"
	// OpDiskCheck samples output disk usage.
	OpDiskCheck = "disk_check"
	// OpPublish publishes a recording event over MQTT.
	OpPublish = "publish"
	// OpNotify sends a push notification.
	OpNotify = "notify"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Histogram bucket layouts, used with prometheus.ExponentialBuckets.
const (
	BucketStart1ms  = 0.001 // with factor 2 and 10 buckets: 1ms to ~0.5s
	BucketStart10ms = 0.01  // with factor 2 and 12 buckets: 10ms to ~20s
	BucketStart64B  = 64.0

	BucketFactor2 = 2
	BucketFactor4 = 4 // byte sizes spanning several orders of magnitude

	BucketCount10 = 10
	BucketCount12 = 12
)

// PercentageFactor converts a ratio to percent.
const PercentageFactor = 100.0
