// Package sources reads package records from a project's dependency metadata.
//
// A SourceHandler turns project metadata into a FetchResult: the root package,
// the installed dependency packages in installation order, and a hash of the
// raw inputs used for change detection. Each PackageRecord carries its
// service provider declarations (the "extra.spi" metadata), its autoload rules
// and its requirements.
//
// Current implementations:
//   - composer: reads composer.json and <vendor-dir>/composer/installed.json
//   - manifest: reads a YAML package manifest, for projects that do not use composer
//
// Handlers are created through SourceHandlerFactory based on the configured
// source type.
package sources
