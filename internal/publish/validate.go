package publish

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/github/go-spdx/v2/spdxexp"

	"github.com/crateport/crateport/internal/crate"
	"github.com/crateport/crateport/internal/keyword"
)

// nonStandardLicense marks crates that ship a license file instead of a
// recognized expression.
const nonStandardLicense = "non-standard"

// validate checks the metadata block before anything touches a store.
// It returns the parsed semver on success. Missing required fields are
// aggregated into one MissingFieldsError; structural problems are
// aggregated into one ValidationError.
func validate(meta *Metadata) (*semver.Version, error) {
	if missing := missingFields(meta); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	var problems []string

	if !crate.ValidName(meta.Name) {
		problems = append(problems, fmt.Sprintf("invalid crate name `%s`", meta.Name))
	}

	vers, err := semver.StrictNewVersion(meta.Vers)
	if err != nil {
		problems = append(problems, fmt.Sprintf("`%s` is not a valid semver version", meta.Vers))
	}

	for _, kw := range meta.Keywords {
		if !keyword.Valid(kw) {
			problems = append(problems, fmt.Sprintf("invalid keyword `%s`", kw))
		}
	}

	for feature, enables := range meta.Features {
		if !crate.ValidName(feature) {
			problems = append(problems, fmt.Sprintf("invalid feature name `%s`", feature))
			continue
		}
		for _, enabled := range enables {
			if !crate.ValidFeatureName(enabled) {
				problems = append(problems, fmt.Sprintf("invalid feature name `%s`", enabled))
			}
		}
	}

	for _, dep := range meta.Deps {
		if !crate.ValidName(dep.Name) {
			problems = append(problems, fmt.Sprintf("invalid dependency name `%s`", dep.Name))
		}
	}

	problems = append(problems, validateURL(meta.Homepage, "homepage")...)
	problems = append(problems, validateURL(meta.Documentation, "documentation")...)
	problems = append(problems, validateURL(meta.Repository, "repository")...)

	if meta.License != nil && *meta.License != "" {
		problems = append(problems, validateLicense(*meta.License)...)
	} else if meta.LicenseFile != nil && *meta.LicenseFile != "" {
		// A bundled license file is accepted but flagged rather than
		// validated.
		lic := nonStandardLicense
		meta.License = &lic
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return vers, nil
}

func missingFields(meta *Metadata) []string {
	empty := func(s *string) bool { return s == nil || *s == "" }

	var missing []string
	if empty(meta.Description) {
		missing = append(missing, "description")
	}
	if empty(meta.License) && empty(meta.LicenseFile) {
		missing = append(missing, "license")
	}
	allEmpty := true
	for _, a := range meta.Authors {
		if a != "" {
			allEmpty = false
			break
		}
	}
	if allEmpty {
		missing = append(missing, "authors")
	}
	return missing
}

func validateURL(raw *string, field string) []string {
	if raw == nil || *raw == "" {
		return nil
	}
	u, err := url.Parse(*raw)
	if err != nil {
		return []string{fmt.Sprintf("`%s` is not a valid url: `%s`", field, *raw)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []string{fmt.Sprintf("`%s` has an invalid url scheme: `%s`", field, u.Scheme)}
	}
	if u.Host == "" {
		return []string{fmt.Sprintf("`%s` must have a host: `%s`", field, *raw)}
	}
	return nil
}

// validateLicense accepts slash-separated SPDX license expressions, the
// historical shorthand for "any of these".
func validateLicense(license string) []string {
	exprs := strings.Split(license, "/")
	valid, invalid := spdxexp.ValidateLicenses(exprs)
	if valid {
		return nil
	}
	return []string{fmt.Sprintf(
		"unknown license expression(s): %s; see https://spdx.org/licenses/ for identifiers",
		strings.Join(invalid, ", "))}
}
