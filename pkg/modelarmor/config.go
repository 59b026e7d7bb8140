package modelarmor

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLocation is used when no location is configured
const DefaultLocation = "us-central1"

// DefaultTimeout bounds a single sanitize call
const DefaultTimeout = 10 * time.Second

// FailurePolicy decides what a failed classifier call means
type FailurePolicy string

const (
	// FailOpen treats an unreachable classifier as "no findings"
	FailOpen FailurePolicy = "open"
	// FailClosed treats an unreachable classifier as an unsafe verdict
	FailClosed FailurePolicy = "closed"
)

// DefaultFailurePolicy keeps conversations flowing when Model Armor is down.
// Deployments that must never emit unchecked content set FailClosed.
const DefaultFailurePolicy = FailOpen

// ParseFailurePolicy parses "open" or "closed"; empty selects the default
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultFailurePolicy, nil
	case string(FailOpen):
		return FailOpen, nil
	case string(FailClosed):
		return FailClosed, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (want %q or %q)", s, FailOpen, FailClosed)
	}
}

// Config holds the settings of a Client. It is copied into the client at
// construction and never changes afterwards.
type Config struct {
	ProjectID string
	Location  string

	// TemplateID is either a bare template id or a full resource name
	// ("projects/.../locations/.../templates/...")
	TemplateID string

	// Endpoint overrides the regional endpoint derived from Location
	Endpoint        string
	CredentialsFile string
	Timeout         time.Duration
	FailurePolicy   FailurePolicy
}

func (c Config) withDefaults() Config {
	if c.Location == "" {
		c.Location = DefaultLocation
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.FailurePolicy == "" {
		c.FailurePolicy = DefaultFailurePolicy
	}
	return c
}

// TemplatePath returns the resource name requests are addressed to
func (c Config) TemplatePath() string {
	return TemplatePath(c.ProjectID, c.Location, c.TemplateID)
}

// RegionalEndpoint returns the host:port of the Model Armor endpoint for the
// configured location
func (c Config) RegionalEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	location := c.Location
	if location == "" {
		location = DefaultLocation
	}
	return fmt.Sprintf("modelarmor.%s.rep.googleapis.com:443", location)
}

// TemplatePath composes a template resource name. A template that already
// starts with "projects/" is returned unchanged.
func TemplatePath(projectID, location, templateID string) string {
	if strings.HasPrefix(templateID, "projects/") {
		return templateID
	}
	if location == "" {
		location = DefaultLocation
	}
	return fmt.Sprintf("projects/%s/locations/%s/templates/%s", projectID, location, templateID)
}
