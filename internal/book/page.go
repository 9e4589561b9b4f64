package book

type PageKind int

const (
	PageBlank PageKind = iota
	PageImage
	PageFrame
)

func (k PageKind) String() string {
	switch k {
	case PageImage:
		return "image"
	case PageFrame:
		return "frame"
	default:
		return "blank"
	}
}

// Page is one addressable resource of a loaded session. Locator is an
// absolute image URL for PageImage and a proxied URL for PageFrame.
type Page struct {
	Kind    PageKind
	Locator string
}

func Blank() Page {
	return Page{Kind: PageBlank}
}

func (p Page) IsBlank() bool {
	return p.Kind == PageBlank
}
