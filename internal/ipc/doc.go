// Package ipc exposes a running recording over JSON-RPC on a Unix domain
// socket and ships the matching client used by `gazerec ctl`.
//
// The presentation layer (game board, calibration overlay) lives outside
// this process and forwards its calls here: calibration results, card
// layout, game start/end, pointer clicks with their element path and
// fullscreen changes. The server owns the socket lifecycle; the request and
// response DTOs in types.go are the wire contract.
package ipc
