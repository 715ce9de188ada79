/*
Package glarchive archives mixed object graphs.

A graph may contain ordinary values alongside heavy domain objects that
serialize themselves to their own files. glarchive packs both into one
transportable unit: a directory archive with a version marker, a main
stream, and one side artifact per heavy object. It reads such units back,
including legacy zip bundles, from local disk, S3 or GCS.
*/
package glarchive
