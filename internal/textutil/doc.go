// Package textutil provides filename sanitization helpers.
//
// Export archive names embed the participant's name, so names are folded to
// ASCII (diacritics removed) and reduced to a filesystem-safe alphabet before
// use.
package textutil
