package api

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	v1 "github.com/jdholdren/herald/api/bookmarks/v1"
	"github.com/jdholdren/herald/internal/bookmarks"
	"github.com/jdholdren/herald/internal/serverutil"
)

// Sections are laid out with the profile's saved group order.
func (s *Server) postSections(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	body, err := serverutil.DecodeValid[v1.SectionsRequest](r.Body)
	if err != nil {
		return err
	}

	order, err := s.groupOrder.LoadGroupOrder(ctx, profileFrom(ctx))
	if err != nil {
		slog.WarnContext(ctx, "using default group order", "error", err)
		order = nil
	}

	sections := bookmarks.Sections(body.Bookmarks, body.Progress, order)
	if sections == nil {
		sections = []bookmarks.Section{}
	}

	return serverutil.WriteJSON(w, http.StatusOK, v1.SectionsResponse{
		Sections: sections,
		Groups:   bookmarks.AllGroups(body.Bookmarks),
	})
}

func (s *Server) getGroupOrder(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	order, err := s.groupOrder.LoadGroupOrder(ctx, profileFrom(ctx))
	if err != nil {
		slog.WarnContext(ctx, "using default group order", "error", err)
		order = []string{}
	}

	return serverutil.WriteJSON(w, http.StatusOK, v1.GroupOrder{Order: order})
}

func (s *Server) putGroupOrder(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	body, err := serverutil.DecodeValid[v1.GroupOrder](r.Body)
	if err != nil {
		return err
	}
	if body.Order == nil {
		body.Order = []string{}
	}

	if err := s.groupOrder.SaveGroupOrder(ctx, profileFrom(ctx), body.Order); err != nil {
		return toHTTP(err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, body)
}

// postGroup builds the stored form of a new group and adds it to the
// groups the bookmark is already in.
func (s *Server) postGroup(w http.ResponseWriter, r *http.Request) error {
	body, err := serverutil.DecodeValid[v1.CreateGroupRequest](r.Body)
	if err != nil {
		return err
	}

	icon := bookmarks.IconBookmark
	if body.Icon != "" {
		icon, _ = bookmarks.ParseIcon(body.Icon)
	}
	group := bookmarks.FormatGroup(icon, strings.TrimSpace(body.Name))

	groups := body.Current
	if !slices.Contains(groups, group) {
		groups = bookmarks.ToggleGroup(groups, group)
	}
	if groups == nil {
		groups = []string{}
	}

	return serverutil.WriteJSON(w, http.StatusCreated, v1.CreateGroupResponse{Group: group, Groups: groups})
}
