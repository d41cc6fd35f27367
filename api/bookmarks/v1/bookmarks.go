package v1

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jdholdren/herald/internal/bookmarks"
	herrs "github.com/jdholdren/herald/internal/errors"
)

type (
	SectionsRequest struct {
		Bookmarks []bookmarks.Bookmark `json:"bookmarks"`
		// Watch progress update times in unix milliseconds, by media id.
		Progress map[string]int64 `json:"progress"`
	}

	SectionsResponse struct {
		Sections []bookmarks.Section `json:"sections"`
		Groups   []string            `json:"groups"`
	}

	GroupOrder struct {
		Order []string `json:"order"`
	}

	// CreateGroupRequest adds a new group to the groups a bookmark is in.
	CreateGroupRequest struct {
		Icon    string   `json:"icon"`
		Name    string   `json:"name"`
		Current []string `json:"current"`
	}

	CreateGroupResponse struct {
		Group  string   `json:"group"`
		Groups []string `json:"groups"`
	}
)

func (s SectionsRequest) Validate() error {
	var errs []herrs.Detail
	for i, b := range s.Bookmarks {
		if b.ID == "" {
			errs = append(errs, herrs.Detail{Field: fmt.Sprintf("bookmarks[%d].id", i), Error: "required"})
		}
	}
	if len(errs) > 0 {
		return herrs.E("invalid request", http.StatusBadRequest, errs)
	}

	return nil
}

func (g GroupOrder) Validate() error {
	seen := make(map[string]bool, len(g.Order))
	for i, group := range g.Order {
		if group == "" || seen[group] {
			return herrs.E("invalid request", http.StatusBadRequest, herrs.Detail{
				Field: fmt.Sprintf("order[%d]", i),
				Error: "must be a unique, non-empty group",
			})
		}
		seen[group] = true
	}

	return nil
}

func (c CreateGroupRequest) Validate() error {
	var errs []herrs.Detail
	if c.Icon != "" {
		if _, ok := bookmarks.ParseIcon(c.Icon); !ok {
			errs = append(errs, herrs.Detail{Field: "icon", Error: "unknown icon, expected one of " + iconNames()})
		}
	}
	if err := bookmarks.ValidateGroupName(c.Name); err != nil {
		errs = append(errs, herrs.Detail{Field: "name", Error: err.Error()})
	}
	if len(errs) > 0 {
		return herrs.E("invalid request", http.StatusBadRequest, errs)
	}

	return nil
}

func iconNames() string {
	var names []string
	for _, icon := range bookmarks.Icons() {
		names = append(names, string(icon))
	}
	return strings.Join(names, ", ")
}
