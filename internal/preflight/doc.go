// Package preflight provides readiness checks for the capture devices,
// binaries and filesystem paths gazerec depends on.
//
// These checks run in two contexts:
//   - `gazerec record` runs RunAll before acquiring devices so a missing
//     camera or unwritable data directory fails before the participant
//     starts the experiment, and warns when disk usage is high.
//   - `gazerec doctor` prints every result as a table.
//
// StorageEstimate reports usage and capacity of the filesystem holding the
// chunk database.
package preflight
