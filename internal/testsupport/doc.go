// Package testsupport builds temp-dir rooted configs and seeded chunk stores
// for package tests.
package testsupport
