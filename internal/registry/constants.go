package registry

// SchemaVersion is the version of the lookup table layout embedded in generated artifacts
const SchemaVersion = 1
