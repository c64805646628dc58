package model

// Source is an external system reviews are ingested from.
type Source struct {
	ID   int64
	Name string
	Slug string
}

// Well-known source slugs seeded by the migrations.
const (
	SourceLaunchpad = "lp"
	SourceAskUbuntu = "askubuntu"
	SourceGitHub    = "github"
)

// Series is a release series (e.g. a distro series) a review targets.
// Reviews against inactive series are abandoned on reconciliation.
type Series struct {
	ID     int64
	Name   string
	Slug   string
	Active bool
}

// Project is the upstream project a review belongs to.
type Project struct {
	ID   int64
	Name string
	URL  string
}

// ReviewCategory groups reviews on the dashboard.
type ReviewCategory struct {
	ID   int64
	Name string
	Slug string
}
