package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bookcrew/internal/platform/docstore"
	"bookcrew/internal/theme"
)

var (
	ErrNotFound      = errors.New("profile not found")
	ErrEmptyUpdate   = errors.New("no profile fields to update")
	ErrInvalidImage  = errors.New("image must be a base64 png, jpeg, gif or webp data URL")
	ErrImageTooLarge = fmt.Errorf("image exceeds %d KiB", MaxImageBytes>>10)
	ErrUnknownTheme  = errors.New("unknown theme")
)

// Path is the document holding a user's profile.
func Path(uid string) string {
	return docstore.UserRoot(uid)
}

type Service struct {
	store  docstore.Store
	logger *slog.Logger
}

func NewService(store docstore.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger.With("component", "profile")}
}

func (s *Service) Get(ctx context.Context, uid string) (Profile, error) {
	doc, err := docstore.Scoped(s.store, uid).Get(ctx, Path(uid))
	if errors.Is(err, docstore.ErrNotFound) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return FromDocument(doc), nil
}

// Upsert records the account on its profile document after sign-up or
// sign-in. A previously chosen theme and the original creation time survive.
func (s *Service) Upsert(ctx context.Context, id Identity, preferredDisplayName string) error {
	st := docstore.Scoped(s.store, id.UID)
	p := Path(id.UID)

	existing, err := st.Get(ctx, p)
	found := err == nil
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("read profile: %w", err)
	}

	displayName := strings.TrimSpace(preferredDisplayName)
	if displayName == "" {
		displayName = strings.TrimSpace(id.DisplayName)
	}
	if displayName == "" {
		displayName = DefaultDisplayName
	}

	data := map[string]any{
		"uid":           id.UID,
		"email":         id.Email,
		"displayName":   displayName,
		"emailVerified": id.EmailVerified,
		"themeId":       theme.Default,
		"createdAt":     docstore.ServerTimestamp,
		"updatedAt":     docstore.ServerTimestamp,
	}
	if found {
		if v, ok := existing.Data["themeId"]; ok && v != nil {
			data["themeId"] = v
		}
		if v, ok := existing.Data["createdAt"]; ok && v != nil {
			data["createdAt"] = v
		}
	}

	if err := st.Set(ctx, p, data, docstore.Merge()); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// SetEmail mirrors an account email change onto the profile.
func (s *Service) SetEmail(ctx context.Context, uid, email string, verified bool) error {
	err := docstore.Scoped(s.store, uid).Set(ctx, Path(uid), map[string]any{
		"email":         email,
		"emailVerified": verified,
		"updatedAt":     docstore.ServerTimestamp,
	}, docstore.Merge())
	if err != nil {
		return fmt.Errorf("set profile email: %w", err)
	}
	return nil
}

func (s *Service) Update(ctx context.Context, uid string, cmd UpdateCommand) (Profile, error) {
	if cmd.Empty() {
		return Profile{}, ErrEmptyUpdate
	}
	if err := normalize(&cmd); err != nil {
		return Profile{}, err
	}

	updates := cmd.ToMap()
	updates["updatedAt"] = docstore.ServerTimestamp
	if err := docstore.Scoped(s.store, uid).Set(ctx, Path(uid), updates, docstore.Merge()); err != nil {
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}

	return s.Get(ctx, uid)
}

func normalize(cmd *UpdateCommand) error {
	if cmd.DisplayName != nil {
		name := strings.TrimSpace(*cmd.DisplayName)
		if name == "" {
			name = DefaultDisplayName
		}
		cmd.DisplayName = &name
	}
	if cmd.Bio != nil {
		bio := strings.TrimSpace(*cmd.Bio)
		cmd.Bio = &bio
	}
	for _, img := range []*string{cmd.ProfileImageBase64, cmd.BannerImageBase64} {
		if img == nil {
			continue
		}
		v, err := normalizeImage(*img)
		if err != nil {
			return err
		}
		*img = v
	}
	if cmd.ReadingGoal != nil {
		goal := min(MaxReadingGoal, max(MinReadingGoal, *cmd.ReadingGoal))
		cmd.ReadingGoal = &goal
	}
	if cmd.ThemeID != nil && !theme.Valid(*cmd.ThemeID) {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, *cmd.ThemeID)
	}
	return nil
}
