package mdconverter

import "golang.org/x/net/html/atom"

// tagKind is the closed set of element kinds the renderer distinguishes.
// Every element maps to exactly one kind; tagOther is the passthrough arm.
type tagKind int

const (
	tagOther tagKind = iota
	tagHeading
	tagParagraph
	tagStrong
	tagEmphasis
	tagCode
	tagPre
	tagAnchor
	tagImage
	tagList
	tagListItem
	tagBreak
)

var tagKindNames = [...]string{
	tagOther:     "other",
	tagHeading:   "heading",
	tagParagraph: "paragraph",
	tagStrong:    "strong",
	tagEmphasis:  "emphasis",
	tagCode:      "code",
	tagPre:       "pre",
	tagAnchor:    "anchor",
	tagImage:     "image",
	tagList:      "list",
	tagListItem:  "listItem",
	tagBreak:     "break",
}

func (k tagKind) String() string {
	if k < 0 || int(k) >= len(tagKindNames) {
		return "unknown"
	}
	return tagKindNames[k]
}

// classify maps an element atom to its kind. For headings the level (1-6) is
// returned as well; it is zero for every other kind.
func classify(a atom.Atom) (tagKind, int) {
	switch a {
	case atom.H1:
		return tagHeading, 1
	case atom.H2:
		return tagHeading, 2
	case atom.H3:
		return tagHeading, 3
	case atom.H4:
		return tagHeading, 4
	case atom.H5:
		return tagHeading, 5
	case atom.H6:
		return tagHeading, 6
	case atom.P:
		return tagParagraph, 0
	case atom.Strong, atom.B:
		return tagStrong, 0
	case atom.Em, atom.I:
		return tagEmphasis, 0
	case atom.Code:
		return tagCode, 0
	case atom.Pre:
		return tagPre, 0
	case atom.A:
		return tagAnchor, 0
	case atom.Img:
		return tagImage, 0
	case atom.Ul, atom.Ol:
		return tagList, 0
	case atom.Li:
		return tagListItem, 0
	case atom.Br:
		return tagBreak, 0
	default:
		return tagOther, 0
	}
}
