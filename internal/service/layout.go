package service

import (
	"context"
	"errors"

	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
	"github.com/listenupapp/showcase-server/internal/store"
)

// Collection names of the persisted layout.
const (
	colUsers           = "users"
	colShowcases       = "showcases"
	colPublicShowcases = "publicShowcases"
	colLegacyShowcases = "legacyShowcases"
	colItems           = "items"
	colItemsAlt        = "itemsAlt"
	colGlobalItems     = "globalItems"
	colLikes           = "likes"
	colUserActions     = "userActions"
)

// LegacyCollection is the read-only pre-migration showcase collection.
const LegacyCollection = colLegacyShowcases

// PublicCollection holds the public mirrors.
const PublicCollection = colPublicShowcases

// SystemOwner is recorded on mirrors synthesized without any known owner.
const SystemOwner = "system"

func privateShowcases(ownerID string) store.Path {
	return store.Collection(colUsers, ownerID, colShowcases)
}

func privateShowcasePath(ownerID, showcaseID string) store.Path {
	return privateShowcases(ownerID).Child(showcaseID)
}

func publicShowcases() store.Path { return store.Collection(colPublicShowcases) }

func publicShowcasePath(showcaseID string) store.Path {
	return publicShowcases().Child(showcaseID)
}

func legacyShowcasePath(showcaseID string) store.Path {
	return store.Doc(colLegacyShowcases, showcaseID)
}

func primaryItems(ownerID string) store.Path {
	return store.Collection(colUsers, ownerID, colItems)
}

func secondaryItems(ownerID string) store.Path {
	return store.Collection(colUsers, ownerID, colItemsAlt)
}

func globalItemPath(itemID string) store.Path {
	return store.Doc(colGlobalItems, itemID)
}

func likesCollection() store.Path { return store.Collection(colLikes) }

func userActionsCollection() store.Path { return store.Collection(colUserActions) }

// ownerFromPrivatePath extracts the owner id from users/<owner>/showcases/<id>.
func ownerFromPrivatePath(p store.Path) (string, bool) {
	segs := p.Segments()
	if len(segs) != 4 || segs[0] != colUsers || segs[2] != colShowcases {
		return "", false
	}
	return segs[1], true
}

// isMiss reports whether err is the store's normal negative result.
func isMiss(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// translate maps store failures onto domain error codes.
func translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.Wrap(err, domainerrors.CodeNotFound, msg)
	case errors.Is(err, store.ErrPermissionDenied):
		return domainerrors.Wrap(err, domainerrors.CodeForbidden, msg+": location is read-only")
	case errors.Is(err, store.ErrInvalidPath), errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Wrap(err, domainerrors.CodeValidation, msg)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Wrap(err, domainerrors.CodeAlreadyExists, msg)
	default:
		return domainerrors.Wrap(err, domainerrors.CodeUnavailable, msg)
	}
}

// PrivateShowcasePath is where the owner's instance of a showcase lives.
func PrivateShowcasePath(ownerID, showcaseID string) store.Path {
	return privateShowcasePath(ownerID, showcaseID)
}

// PublicShowcasePath is where the public mirror of a showcase lives.
func PublicShowcasePath(showcaseID string) store.Path { return publicShowcasePath(showcaseID) }

// LegacyShowcasePath is where a pre-migration showcase lives.
func LegacyShowcasePath(showcaseID string) store.Path { return legacyShowcasePath(showcaseID) }

// PrimaryItemPath addresses an item in the owner's primary item store.
func PrimaryItemPath(ownerID, itemID string) store.Path {
	return primaryItems(ownerID).Child(itemID)
}

// SecondaryItemPath addresses an item in the owner's secondary item store.
func SecondaryItemPath(ownerID, itemID string) store.Path {
	return secondaryItems(ownerID).Child(itemID)
}

// GlobalItemPath addresses an item in the shared catalogue.
func GlobalItemPath(itemID string) store.Path { return globalItemPath(itemID) }

// LikesCollection holds the like ledger.
func LikesCollection() store.Path { return likesCollection() }
