package shelf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"bookcrew/internal/platform/docstore"
)

const (
	MsgSignInToSetStatus  = "Sign in to set reading status."
	MsgSignInToEditStatus = "Sign in to edit reading status."
	MsgSignInForFavorites = "Sign in to use favorites."
	MsgNoStatus           = "No status is currently set for this book."
	MsgFavoriteRemoved    = "Removed from favorites."
	MsgFavoriteAdded      = "Added to favorites."
	MsgPermissionDenied   = "Access rules blocked this action. Update the rules for users/{uid}/books/{status}/items/{docId}."
	MsgShelfUnavailable   = "Could not update your shelves right now."
)

type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is the user-facing outcome of a shelf mutation.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

type Selection struct {
	Status   *Status `json:"status"`
	Favorite bool    `json:"favorite"`
}

type Outcome struct {
	Notice    Notice    `json:"notice"`
	Selection Selection `json:"selection"`
}

// Service mutates a reader's shelves. Every call is confined to the
// caller's own subtree of the store.
type Service struct {
	store  docstore.Store
	logger *slog.Logger
}

func NewService(store docstore.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger.With("component", "shelf")}
}

func (s *Service) scoped(uid string) docstore.Store {
	return docstore.Scoped(s.store, uid)
}

func exists(ctx context.Context, st docstore.Store, p string) (bool, error) {
	_, err := st.Get(ctx, p)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Selection reports the book's current status and favorite flag. Current
// layout documents take precedence over legacy ones; within a layout the
// first status in Statuses order wins.
func (s *Service) Selection(ctx context.Context, uid string, book BookRef) (Selection, error) {
	var sel Selection
	if uid == "" {
		return sel, nil
	}
	if err := book.check(); err != nil {
		return sel, err
	}
	st := s.scoped(uid)
	docID := book.DocID()

	current := make([]bool, len(Statuses))
	legacy := make([]bool, len(Statuses))
	g, gctx := errgroup.WithContext(ctx)
	for i, status := range Statuses {
		g.Go(func() error {
			ok, err := exists(gctx, st, docstore.Join(StatusCollection(uid, status), docID))
			current[i] = ok
			return err
		})
		g.Go(func() error {
			ok, err := exists(gctx, st, docstore.Join(LegacyStatusCollection(uid, status), docID))
			legacy[i] = ok
			return err
		})
	}
	g.Go(func() error {
		ok, err := exists(gctx, st, docstore.Join(FavoritesCollection(uid), docID))
		sel.Favorite = ok
		return err
	})
	if err := g.Wait(); err != nil {
		return Selection{}, fmt.Errorf("load selection: %w", err)
	}

	for _, found := range [][]bool{current, legacy} {
		for i, ok := range found {
			if ok {
				status := Statuses[i]
				sel.Status = &status
				return sel, nil
			}
		}
	}
	return sel, nil
}

// SetStatus moves the book onto one shelf. Copies on other shelves, and any
// legacy-layout copy, are deleted before the target document is written.
func (s *Service) SetStatus(ctx context.Context, uid string, book BookRef, status Status) (Outcome, error) {
	if uid == "" {
		return Outcome{Notice: info(MsgSignInToSetStatus)}, nil
	}
	if err := book.check(); err != nil {
		return Outcome{}, err
	}
	if !status.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}

	sel, err := s.Selection(ctx, uid, book)
	if err != nil {
		return s.failure(uid, err)
	}
	if sel.Status != nil && *sel.Status == status {
		return Outcome{
			Notice:    info(fmt.Sprintf("%s is already set as %s.", book.Title, status.Label())),
			Selection: sel,
		}, nil
	}

	st := s.scoped(uid)
	docID := book.DocID()
	var stale []string
	for _, other := range Statuses {
		if other != status {
			stale = append(stale, docstore.Join(StatusCollection(uid, other), docID))
		}
		stale = append(stale, docstore.Join(LegacyStatusCollection(uid, other), docID))
	}
	if err := deleteAll(ctx, st, stale); err != nil {
		return s.failure(uid, err)
	}

	data := book.fields()
	data["statusId"] = string(status)
	data["updatedAt"] = docstore.ServerTimestamp
	if err := st.Set(ctx, docstore.Join(StatusCollection(uid, status), docID), data, docstore.Merge()); err != nil {
		return s.failure(uid, err)
	}

	sel.Status = &status
	return Outcome{
		Notice:    success(fmt.Sprintf("%s saved as %s.", book.Title, status.Label())),
		Selection: sel,
	}, nil
}

// ClearStatus removes the book from every shelf in both layouts.
func (s *Service) ClearStatus(ctx context.Context, uid string, book BookRef) (Outcome, error) {
	if uid == "" {
		return Outcome{Notice: info(MsgSignInToEditStatus)}, nil
	}
	if err := book.check(); err != nil {
		return Outcome{}, err
	}

	sel, err := s.Selection(ctx, uid, book)
	if err != nil {
		return s.failure(uid, err)
	}
	if sel.Status == nil {
		return Outcome{Notice: info(MsgNoStatus), Selection: sel}, nil
	}

	docID := book.DocID()
	paths := make([]string, 0, 2*len(Statuses))
	for _, status := range Statuses {
		paths = append(paths,
			docstore.Join(StatusCollection(uid, status), docID),
			docstore.Join(LegacyStatusCollection(uid, status), docID),
		)
	}
	if err := deleteAll(ctx, s.scoped(uid), paths); err != nil {
		return s.failure(uid, err)
	}

	sel.Status = nil
	return Outcome{
		Notice:    success(fmt.Sprintf("%s removed from your lists.", book.Title)),
		Selection: sel,
	}, nil
}

func (s *Service) ToggleFavorite(ctx context.Context, uid string, book BookRef) (Outcome, error) {
	if uid == "" {
		return Outcome{Notice: info(MsgSignInForFavorites)}, nil
	}
	if err := book.check(); err != nil {
		return Outcome{}, err
	}

	sel, err := s.Selection(ctx, uid, book)
	if err != nil {
		return s.failure(uid, err)
	}

	st := s.scoped(uid)
	p := docstore.Join(FavoritesCollection(uid), book.DocID())
	if sel.Favorite {
		if err := st.Delete(ctx, p); err != nil {
			return s.failure(uid, err)
		}
		sel.Favorite = false
		return Outcome{Notice: success(MsgFavoriteRemoved), Selection: sel}, nil
	}

	data := book.fields()
	data["createdAt"] = docstore.ServerTimestamp
	data["updatedAt"] = docstore.ServerTimestamp
	if err := st.Set(ctx, p, data, docstore.Merge()); err != nil {
		return s.failure(uid, err)
	}
	sel.Favorite = true
	return Outcome{Notice: success(MsgFavoriteAdded), Selection: sel}, nil
}

// check rejects ids that would add path segments to the shelf document.
func (b BookRef) check() error {
	if strings.TrimSpace(b.ID) == "" || strings.Contains(b.ID, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidBook, b.ID)
	}
	return nil
}

func deleteAll(ctx context.Context, st docstore.Store, paths []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range paths {
		g.Go(func() error {
			return st.Delete(gctx, p)
		})
	}
	return g.Wait()
}

func (s *Service) failure(uid string, err error) (Outcome, error) {
	n := NoticeFor(err)
	if !errors.Is(err, docstore.ErrPermissionDenied) {
		s.logger.Error("shelf write failed", "user_id", uid, "error", err)
	}
	return Outcome{Notice: n}, fmt.Errorf("update shelves: %w", err)
}

// NoticeFor classifies a store error into the message shown to the reader.
func NoticeFor(err error) Notice {
	if errors.Is(err, docstore.ErrPermissionDenied) {
		return Notice{Kind: NoticeError, Message: MsgPermissionDenied}
	}
	return Notice{Kind: NoticeError, Message: MsgShelfUnavailable}
}

func info(msg string) Notice {
	return Notice{Kind: NoticeInfo, Message: msg}
}

func success(msg string) Notice {
	return Notice{Kind: NoticeSuccess, Message: msg}
}
