// Package bookmarks arranges a profile's bookmarks into the sections of the
// home page carousel.
package bookmarks

import (
	"cmp"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	goaway "github.com/TwiN/go-away"

	"github.com/jdholdren/herald/internal/herald"
)

// RegularGroup is the section holding bookmarks that are in no group.
const RegularGroup = "bookmarks"

const maxGroupNameLen = 64

type Icon string

const (
	IconBookmark Icon = "BOOKMARK"
	IconUser     Icon = "USER"
	IconClock    Icon = "CLOCK"
	IconEye      Icon = "EYE"
	IconFilm     Icon = "FILM"
	IconTV       Icon = "TV"
	IconHeart    Icon = "HEART"
	IconStar     Icon = "STAR"
	IconFire     Icon = "FIRE"
	IconGhost    Icon = "GHOST"
	IconMusic    Icon = "MUSIC"
	IconRocket   Icon = "ROCKET"
	IconSmile    Icon = "SMILE"
	IconSkull    Icon = "SKULL"
)

var (
	icons = []Icon{
		IconBookmark, IconUser, IconClock, IconEye, IconFilm, IconTV, IconHeart,
		IconStar, IconFire, IconGhost, IconMusic, IconRocket, IconSmile, IconSkull,
	}

	groupPattern = regexp.MustCompile(`^\[([a-zA-Z0-9_]+)\](.*)$`)
)

type (
	Bookmark struct {
		ID     string   `json:"id"`
		Title  string   `json:"title"`
		Type   string   `json:"type"`
		Year   int      `json:"year,omitempty"`
		Poster string   `json:"poster,omitempty"`
		Groups []string `json:"group,omitempty"`
		// Unix milliseconds.
		UpdatedAt int64 `json:"updated_at"`
	}

	Section struct {
		Group   string     `json:"group"`
		Regular bool       `json:"regular"`
		Icon    Icon       `json:"icon"`
		Name    string     `json:"name"`
		Items   []Bookmark `json:"items"`
	}
)

// ParseIcon looks up an icon by name, case-insensitively.
func ParseIcon(s string) (Icon, bool) {
	icon := Icon(strings.ToUpper(s))
	return icon, slices.Contains(icons, icon)
}

// Icons lists every icon a group can carry.
func Icons() []Icon {
	return slices.Clone(icons)
}

// ParseGroup splits a stored group string of the form "[ICON]name".
func ParseGroup(group string) (Icon, string) {
	m := groupPattern.FindStringSubmatch(group)
	if m == nil {
		return IconBookmark, group
	}

	icon, ok := ParseIcon(m[1])
	if !ok {
		icon = IconBookmark
	}
	return icon, strings.TrimSpace(m[2])
}

func FormatGroup(icon Icon, name string) string {
	return fmt.Sprintf("[%s]%s", icon, name)
}

// ToggleGroup removes group from current when present and appends it otherwise.
func ToggleGroup(current []string, group string) []string {
	if slices.Contains(current, group) {
		return slices.DeleteFunc(slices.Clone(current), func(g string) bool { return g == group })
	}
	return append(slices.Clone(current), group)
}

func ValidateGroupName(name string) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return fmt.Errorf("%w: group name is empty", herald.ErrInvalid)
	case utf8.RuneCountInString(name) > maxGroupNameLen:
		return fmt.Errorf("%w: group name is longer than %d characters", herald.ErrInvalid, maxGroupNameLen)
	case goaway.IsProfane(name):
		return fmt.Errorf("%w: group name is inappropriate", herald.ErrInvalid)
	}
	return nil
}

// AllGroups lists group names in the order they first appear, followed by
// the regular group.
func AllGroups(bookmarks []Bookmark) []string {
	var groups []string
	for _, b := range bookmarks {
		for _, g := range b.Groups {
			if !slices.Contains(groups, g) {
				groups = append(groups, g)
			}
		}
	}
	return append(groups, RegularGroup)
}

// Sections groups bookmarks for display. Items are ordered by the later of
// their bookmark time and their watch progress time, newest first. A bookmark
// shows up in each of its groups. Bookmarks with no groups form the regular
// section, which only exists when it has items.
//
// With an empty order, sections come in the order their groups first appear
// and the regular section is last. Otherwise sections follow order, and those
// missing from it go last.
func Sections(bookmarks []Bookmark, progress map[string]int64, order []string) []Section {
	sorted := slices.Clone(bookmarks)
	slices.SortStableFunc(sorted, func(a, b Bookmark) int {
		return cmp.Compare(lastActivity(b, progress), lastActivity(a, progress))
	})

	var (
		sections []Section
		index    = map[string]int{}
		regular  []Bookmark
	)
	for _, b := range sorted {
		if len(b.Groups) == 0 {
			regular = append(regular, b)
			continue
		}
		for _, g := range b.Groups {
			i, ok := index[g]
			if !ok {
				icon, name := ParseGroup(g)
				i = len(sections)
				index[g] = i
				sections = append(sections, Section{Group: g, Icon: icon, Name: name})
			}
			sections[i].Items = append(sections[i].Items, b)
		}
	}
	if len(regular) > 0 {
		sections = append(sections, Section{
			Group:   RegularGroup,
			Regular: true,
			Icon:    IconBookmark,
			Name:    RegularGroup,
			Items:   regular,
		})
	}

	if len(order) == 0 {
		return sections
	}

	position := make(map[string]int, len(order))
	for i, g := range order {
		if _, ok := position[g]; !ok {
			position[g] = i
		}
	}
	rank := func(s Section) int {
		if p, ok := position[s.Group]; ok {
			return p
		}
		return math.MaxInt
	}
	slices.SortStableFunc(sections, func(a, b Section) int {
		return cmp.Compare(rank(a), rank(b))
	})

	return sections
}

func lastActivity(b Bookmark, progress map[string]int64) int64 {
	return max(b.UpdatedAt, progress[b.ID])
}
