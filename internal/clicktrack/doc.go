// Package clicktrack captures and classifies every pointer click during
// gameplay.
//
// The presentation layer dispatches PointerEvents into a Root, which calls
// its capture listeners synchronously in click order. A Tracker registers
// one listener, walks the target's ancestry through an injected HitTester
// and reports each classified click to a callback. The tracker keeps no
// buffer of its own.
package clicktrack
