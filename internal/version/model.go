package version

import "time"

// Version represents a row in the versions table. Num is the exact
// semver string as published; Features maps feature names to the
// features they enable; Checksum is the lowercase hex SHA-256 of the
// stored artifact.
type Version struct {
	ID        int64
	CrateID   int64
	Num       string
	UpdatedAt time.Time
	CreatedAt time.Time
	Downloads int64
	Features  map[string][]string
	Yanked    bool
	Checksum  string
}

// Dependency belongs to a Version and references a target crate by id.
type Dependency struct {
	ID              int64
	VersionID       int64
	CrateID         int64
	Req             string
	Optional        bool
	DefaultFeatures bool
	Features        []string
	Target          *string
	Kind            string
}
