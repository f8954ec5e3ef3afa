// Package normalisers turns source files into plain text documents.
// Each normaliser handles a set of file extensions; the Registry picks
// the highest-priority normaliser for a path.
package normalisers
