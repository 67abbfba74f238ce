// Package watcher watches the small set of configuration files whose
// on-disk content defines server state outside the metadata store: the
// WordNet synset dataset and the category taxonomy seed. Unlike the
// teacher's project-tree watcher (gitignore-aware, recursive, built for a
// codebase's thousands of source files), this only ever watches a
// handful of named paths and debounces writes to each into a single
// refresh trigger.
package watcher
