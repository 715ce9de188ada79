// Package archive implements the archival serialization protocol.
//
// A Serializer drives the generic codec over a value graph, intercepting
// externally archivable objects: each one saves itself to a side file in
// the staging directory and a reference tuple is written inline in its
// place. References to the same instance are memoized so a shared object
// is saved once. Close commits the staging directory through the storage
// backend the target string addresses (local path, s3://, gs://).
//
// A Deserializer reverses the process. It stages the source locally,
// classifies it (directory archive, legacy zip bundle, or plain stream),
// validates the format version, and resolves reference tuples back into
// reconstructed objects, memoized by identity so shared references decode
// to one instance.
package archive
