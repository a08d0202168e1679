package theme

// Palette is a named color scheme a reader can pick for their profile.
type Palette struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Background string `json:"background"`
	Foreground string `json:"foreground"`
	Card       string `json:"card"`
	Muted      string `json:"muted"`
	Accent     string `json:"accent"`
	AccentSoft string `json:"accentSoft"`
}

const Default = "classic-paper"

var palettes = []Palette{
	{ID: "classic-paper", Label: "Classic Paper", Background: "#f4f1ea", Foreground: "#1d1a17", Card: "#fffdf8", Muted: "#6b655f", Accent: "#264653", AccentSoft: "#d9e4ea"},
	{ID: "dune-sand", Label: "Dune Sand", Background: "#1f150f", Foreground: "#f5dcc0", Card: "#2b1d15", Muted: "#c39a73", Accent: "#d87a2e", AccentSoft: "#4a2d1b"},
	{ID: "twilight-mist", Label: "Twilight Mist", Background: "#15131f", Foreground: "#e6e1f2", Card: "#221d33", Muted: "#a59bbb", Accent: "#8b7ad9", AccentSoft: "#342d4d"},
	{ID: "vampire-crimson", Label: "Vampire Crimson", Background: "#140d10", Foreground: "#f2dbe1", Card: "#231419", Muted: "#b98b98", Accent: "#b53a4f", AccentSoft: "#3a1c24"},
	{ID: "throne-iron", Label: "Throne Iron", Background: "#111216", Foreground: "#e0ded8", Card: "#1a1c22", Muted: "#9d9a91", Accent: "#9f8664", AccentSoft: "#2a2d36"},
	{ID: "forest-mint", Label: "Forest Mint", Background: "#0f1c1c", Foreground: "#d9e7df", Card: "#172827", Muted: "#8aa098", Accent: "#5f8f82", AccentSoft: "#213936"},
	{ID: "sunset-ink", Label: "Sunset Ink", Background: "#faf0e7", Foreground: "#2a1d1a", Card: "#fffbf8", Muted: "#7a5f57", Accent: "#b85042", AccentSoft: "#f5ddd7"},
	{ID: "night-ocean", Label: "Night Ocean", Background: "#070c12", Foreground: "#dce9f7", Card: "#101b27", Muted: "#8ea5bf", Accent: "#5bb0df", AccentSoft: "#1b3142"},
}

// All returns a copy of the catalog in display order.
func All() []Palette {
	out := make([]Palette, len(palettes))
	copy(out, palettes)
	return out
}

// Valid reports whether id names a known palette.
func Valid(id string) bool {
	_, ok := find(id)
	return ok
}

// Lookup returns the palette for id, falling back to the default palette.
func Lookup(id string) Palette {
	if p, ok := find(id); ok {
		return p
	}
	return palettes[0]
}

func find(id string) (Palette, bool) {
	for _, p := range palettes {
		if p.ID == id {
			return p, true
		}
	}
	return Palette{}, false
}
