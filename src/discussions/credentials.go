package discussions

import (
	"strings"

	"github.com/cdil-bc/canvas-discussions/src/config"
	"github.com/cdil-bc/canvas-discussions/src/oops"
)

type Credentials struct {
	APIURL   string
	APIKey   string
	CourseID string
}

var ErrMissingCredentials = oops.New(nil, "Canvas API URL, API key, and course id are all required")

func CredentialsFromConfig(cfg config.CanvasConfig) Credentials {
	return Credentials{
		APIURL:   cfg.APIURL,
		APIKey:   cfg.APIKey,
		CourseID: cfg.CourseID,
	}
}

// Returns ErrMissingCredentials, wrapped with the names of the missing
// fields, if anything needed to talk to Canvas is blank.
func (c Credentials) Check() error {
	var missing []string
	if strings.TrimSpace(c.APIURL) == "" {
		missing = append(missing, "API URL")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "API key")
	}
	if strings.TrimSpace(c.CourseID) == "" {
		missing = append(missing, "course id")
	}
	if len(missing) > 0 {
		return oops.New(ErrMissingCredentials, "missing %s", strings.Join(missing, ", "))
	}
	return nil
}
