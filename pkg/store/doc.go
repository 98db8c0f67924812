// Package store persists installation records, one TOML manifest per
// installed package under the records directory. It abstracts away the
// physical layout so the pipeline only deals in types.InstallationRecord.
//
// Records are replaced atomically: a reader sees either the previous
// manifest or the new one. Lookups always go by name against the current
// contents of the store; nothing holds a reference to a record.
package store
