package profile

import (
	"time"

	"bookcrew/internal/platform/docstore"
	"bookcrew/internal/theme"
)

const (
	DefaultDisplayName = "Reader"
	DefaultReadingGoal = 24
	MinReadingGoal     = 1
	MaxReadingGoal     = 300
	MaxDisplayName     = 60
	MaxBio             = 500
)

// Identity is the signed-in account a profile belongs to.
type Identity struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName"`
}

type Profile struct {
	UID                string     `json:"uid"`
	Email              string     `json:"email"`
	DisplayName        string     `json:"displayName"`
	Bio                string     `json:"bio"`
	ProfileImageBase64 string     `json:"profileImageBase64,omitempty"`
	BannerImageBase64  string     `json:"bannerImageBase64,omitempty"`
	ReadingGoal        int        `json:"readingGoal"`
	ThemeID            string     `json:"themeId"`
	EmailVerified      bool       `json:"emailVerified"`
	CreatedAt          *time.Time `json:"createdAt,omitempty"`
	UpdatedAt          *time.Time `json:"updatedAt,omitempty"`
}

// FromDocument reads a users/{uid} document, substituting defaults for
// fields that are missing or have the wrong type.
func FromDocument(doc docstore.Document) Profile {
	p := Profile{
		UID:         doc.ID,
		DisplayName: DefaultDisplayName,
		ReadingGoal: DefaultReadingGoal,
		ThemeID:     theme.Default,
	}
	if v, ok := docstore.String(doc.Data, "uid"); ok && v != "" {
		p.UID = v
	}
	if v, ok := docstore.String(doc.Data, "email"); ok {
		p.Email = v
	}
	if v, ok := docstore.String(doc.Data, "displayName"); ok {
		p.DisplayName = v
	}
	if v, ok := docstore.String(doc.Data, "bio"); ok {
		p.Bio = v
	}
	if v, ok := docstore.String(doc.Data, "profileImageBase64"); ok {
		p.ProfileImageBase64 = v
	}
	if v, ok := docstore.String(doc.Data, "bannerImageBase64"); ok {
		p.BannerImageBase64 = v
	}
	if v, ok := docstore.Int(doc.Data, "readingGoal"); ok && v > 0 {
		p.ReadingGoal = v
	}
	if v, ok := docstore.String(doc.Data, "themeId"); ok && theme.Valid(v) {
		p.ThemeID = v
	}
	if v, ok := docstore.Bool(doc.Data, "emailVerified"); ok {
		p.EmailVerified = v
	}
	if t, ok := docstore.Time(doc.Data, "createdAt"); ok {
		p.CreatedAt = &t
	}
	if t, ok := docstore.Time(doc.Data, "updatedAt"); ok {
		p.UpdatedAt = &t
	}
	return p
}

// UpdateCommand is a partial profile edit. Nil fields are left untouched.
type UpdateCommand struct {
	DisplayName        *string `json:"displayName" validate:"omitempty,max=60"`
	Bio                *string `json:"bio" validate:"omitempty,max=500"`
	ProfileImageBase64 *string `json:"profileImageBase64"`
	BannerImageBase64  *string `json:"bannerImageBase64"`
	ReadingGoal        *int    `json:"readingGoal"`
	ThemeID            *string `json:"themeId"`
}

func (c *UpdateCommand) Empty() bool {
	return c.DisplayName == nil && c.Bio == nil && c.ProfileImageBase64 == nil &&
		c.BannerImageBase64 == nil && c.ReadingGoal == nil && c.ThemeID == nil
}

// ToMap returns the document fields for the set values. Values must already
// be normalized.
func (c *UpdateCommand) ToMap() map[string]any {
	updates := make(map[string]any)
	if c.DisplayName != nil {
		updates["displayName"] = *c.DisplayName
	}
	if c.Bio != nil {
		updates["bio"] = *c.Bio
	}
	if c.ProfileImageBase64 != nil {
		updates["profileImageBase64"] = *c.ProfileImageBase64
	}
	if c.BannerImageBase64 != nil {
		updates["bannerImageBase64"] = *c.BannerImageBase64
	}
	if c.ReadingGoal != nil {
		updates["readingGoal"] = *c.ReadingGoal
	}
	if c.ThemeID != nil {
		updates["themeId"] = *c.ThemeID
	}
	return updates
}
