// Package connectors provides the sources documents are ingested from.
// The filesystem connector watches a local folder.
package connectors
