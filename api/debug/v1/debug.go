package v1

import (
	"net/http"
	"strings"

	"github.com/jdholdren/herald/internal/debuginfo"
	herrs "github.com/jdholdren/herald/internal/errors"
)

type (
	// CreateReportRequest is what the client knows about a failure. The
	// server fills in the rest.
	CreateReportRequest struct {
		debuginfo.Report
	}

	CreateReportResponse struct {
		Report debuginfo.Report `json:"report"`
		Text   string           `json:"text"`
	}
)

func (c CreateReportRequest) Validate() error {
	var errs []herrs.Detail
	if strings.TrimSpace(c.Error.Message) == "" {
		errs = append(errs, herrs.Detail{Field: "error.message", Error: "required"})
	}
	if c.Player.Status == "" {
		errs = append(errs, herrs.Detail{Field: "player.status", Error: "required"})
	}
	if len(errs) > 0 {
		return herrs.E("invalid request", http.StatusBadRequest, errs)
	}

	return nil
}
