// Package sessiondata holds the value types shared by the recording pipeline:
// stream and click classifications, participant details, calibration points,
// card layouts, click records, and aggregated game metadata.
//
// JSON tags follow the exported metadata.json layout exactly (camelCase,
// epoch-millisecond integers for timestamps), so these types can be written
// into archives and session records without an intermediate DTO layer.
package sessiondata
