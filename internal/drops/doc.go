// Package drops defines the domain model shared by the dropscout pipeline:
// raw candidates pulled from the upstream source, the records persisted by the
// state store, the threads handed to publishers and the interfaces that glue
// the evaluation pipeline to its collaborators.
package drops
