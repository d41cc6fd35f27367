package herald

import "strings"

// Category is the closed set of notification kinds that get a badge style.
type Category int

const (
	CategoryOther Category = iota
	CategoryAnnouncement
	CategoryFeature
	CategoryUpdate
	CategoryBugfix
)

// CategoryStyle is how a category badge is shown.
type CategoryStyle struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

var (
	categoryKeys = map[string]Category{
		"announcement": CategoryAnnouncement,
		"feature":      CategoryFeature,
		"update":       CategoryUpdate,
		"bugfix":       CategoryBugfix,
	}

	categoryStyles = map[Category]CategoryStyle{
		CategoryAnnouncement: {Color: "bg-blue-500", Label: "Announcement"},
		CategoryFeature:      {Color: "bg-green-500", Label: "New Feature"},
		CategoryUpdate:       {Color: "bg-yellow-500", Label: "Update"},
		CategoryBugfix:       {Color: "bg-red-500", Label: "Bug Fix"},
	}
)

// ParseCategory maps raw feed text onto a Category, ignoring case.
func ParseCategory(raw string) Category {
	if c, ok := categoryKeys[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return c
	}
	return CategoryOther
}

func (c Category) String() string {
	for k, v := range categoryKeys {
		if v == c {
			return k
		}
	}
	return "other"
}

// StyleFor returns the badge style for a raw category. Unknown categories
// pass their text through as the label, with no color.
func StyleFor(raw string) CategoryStyle {
	if style, ok := categoryStyles[ParseCategory(raw)]; ok {
		return style
	}
	return CategoryStyle{Label: raw}
}
