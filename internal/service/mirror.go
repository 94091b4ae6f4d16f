package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/listenupapp/showcase-server/internal/domain"
	domainerrors "github.com/listenupapp/showcase-server/internal/errors"
	"github.com/listenupapp/showcase-server/internal/store"
)

// MirrorState classifies a public mirror for reconciliation.
type MirrorState int

const (
	MirrorAbsent MirrorState = iota
	MirrorComplete
	MirrorMissingOwner
	MirrorMissingMembership
)

func (s MirrorState) String() string {
	switch s {
	case MirrorAbsent:
		return "absent"
	case MirrorComplete:
		return "complete"
	case MirrorMissingOwner:
		return "missing-owner"
	case MirrorMissingMembership:
		return "missing-membership"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s MirrorState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *MirrorState) UnmarshalText(text []byte) error {
	for _, st := range []MirrorState{MirrorAbsent, MirrorComplete, MirrorMissingOwner, MirrorMissingMembership} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown mirror state %q", text)
}

// ClassifyMirror returns the state of a public record (nil means absent).
// A record missing both owner and membership reports the owner first; one
// EnsurePublic call repairs both. Membership means explicit item ids: a
// tag-only mirror still resolves at read time but reports missing membership
// so EnsurePublic can pick up ids the private record holds.
func ClassifyMirror(mirror *domain.Showcase) MirrorState {
	switch {
	case mirror == nil:
		return MirrorAbsent
	case !mirror.HasOwner():
		return MirrorMissingOwner
	case !mirror.HasMembership():
		return MirrorMissingMembership
	default:
		return MirrorComplete
	}
}

func resolvable(sc *domain.Showcase) bool {
	return sc.HasMembership() || len(foldTags(sc.Tags)) > 0
}

// Repair actions reported by EnsurePublic.
const (
	ActionCreateMirror      = "create-mirror"
	ActionRecoverOwner      = "recover-owner"
	ActionRepairMembership  = "repair-membership"
	ActionPlaceholderMember = "placeholder-membership"
)

// EnsureResult describes what EnsurePublic found and did.
type EnsureResult struct {
	Before  MirrorState      `json:"before"`
	Actions []string         `json:"actions"`
	Wrote   bool             `json:"wrote"`
	Partial bool             `json:"partial"`
	Mirror  *domain.Showcase `json:"mirror,omitempty"`
}

// Delta is a private-side change to replay on the mirror.
type Delta struct {
	Likes    int
	Visits   int
	Comments []domain.Comment
	// SetLikes overwrites the cached counter instead of incrementing it.
	SetLikes *int
}

func (d Delta) fields() store.Fields {
	f := store.Fields{}
	if d.SetLikes != nil {
		f["likes"] = *d.SetLikes
	} else if d.Likes != 0 {
		f["likes"] = store.Increment(int64(d.Likes))
	}
	if d.Visits != 0 {
		f["visits"] = store.Increment(int64(d.Visits))
	}
	if len(d.Comments) > 0 {
		values := make([]any, len(d.Comments))
		for i, c := range d.Comments {
			values[i] = c
		}
		f["comments"] = store.ArrayUnion(values...)
	}
	return f
}

// MirrorIndexer is notified when a mirror is written or removed.
type MirrorIndexer interface {
	IndexShowcase(ctx context.Context, sc *domain.Showcase) error
	RemoveShowcase(ctx context.Context, showcaseID string) error
}

// MirrorSync keeps the public mirror of a showcase consistent with its
// private source. All of its recovery paths are idempotent.
type MirrorSync struct {
	docs        store.DocumentStore
	logger      *slog.Logger
	placeholder []string
	indexer     MirrorIndexer
	now         func() time.Time
}

// NewMirrorSync creates a new mirror synchronizer.
func NewMirrorSync(docs store.DocumentStore, cfg EngineConfig, logger *slog.Logger) *MirrorSync {
	return &MirrorSync{
		docs:        docs,
		logger:      logger,
		placeholder: domain.NewItemIDs(cfg.PlaceholderItemIDs...).Strings(),
		now:         time.Now,
	}
}

// SetIndexer sets the search indexer notified of mirror writes.
func (m *MirrorSync) SetIndexer(indexer MirrorIndexer) {
	m.indexer = indexer
}

// EnsurePublic brings the public mirror of showcaseID to the complete state.
// ownerID is optional and doubles as the fallback owner for a mirror that
// lost its userId.
func (m *MirrorSync) EnsurePublic(ctx context.Context, showcaseID, ownerID string) (*EnsureResult, error) {
	return m.ensure(ctx, showcaseID, ownerID, false)
}

// Inspect reports what EnsurePublic would do without writing.
func (m *MirrorSync) Inspect(ctx context.Context, showcaseID, ownerID string) (*EnsureResult, error) {
	return m.ensure(ctx, showcaseID, ownerID, true)
}

func (m *MirrorSync) ensure(ctx context.Context, showcaseID, ownerID string, dryRun bool) (*EnsureResult, error) {
	if strings.TrimSpace(showcaseID) == "" {
		return nil, domainerrors.Validation("showcase id is required")
	}
	ownerID = strings.TrimSpace(ownerID)

	mirror, err := m.readMirror(ctx, showcaseID)
	if err != nil {
		return nil, translate(err, "failed to read public showcase")
	}

	res := &EnsureResult{Before: ClassifyMirror(mirror), Actions: []string{}}
	switch res.Before {
	case MirrorComplete:
		res.Mirror = mirror
		return res, nil
	case MirrorAbsent:
		return m.createMirror(ctx, showcaseID, ownerID, dryRun, res)
	default:
		return m.repairMirror(ctx, mirror, ownerID, dryRun, res)
	}
}

// createMirror synthesizes a mirror from the private record (known owner) or
// the legacy record. A private record is only mirrored when its owner marked
// it public.
func (m *MirrorSync) createMirror(ctx context.Context, showcaseID, ownerID string, dryRun bool, res *EnsureResult) (*EnsureResult, error) {
	source, owner, err := m.findSource(ctx, showcaseID, ownerID)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	pub := *source
	pub.ID = showcaseID
	pub.OwnerID = owner
	pub.IsPublic = true
	pub.Recovered = true
	pub.Theme = pub.Theme.OrDefault()
	pub.UpdatedAt = now
	if pub.CreatedAt.IsZero() {
		pub.CreatedAt = now
	}
	if pub.Tags == nil {
		pub.Tags = []string{}
	}

	res.Actions = append(res.Actions, ActionCreateMirror)
	if !resolvable(&pub) {
		pub.ItemIDs = domain.NewItemIDs(m.placeholder...)
		res.Actions = append(res.Actions, ActionPlaceholderMember)
	}
	res.Mirror = &pub
	if dryRun {
		return res, nil
	}

	if err := m.docs.Set(ctx, publicShowcasePath(showcaseID), &pub); err != nil {
		return nil, translate(err, "failed to create public showcase")
	}
	res.Wrote = true

	m.logger.Info("public showcase recovered",
		"showcase_id", showcaseID,
		"owner_id", owner,
		"items", len(pub.ItemIDs),
	)
	m.index(ctx, &pub)
	return res, nil
}

// findSource returns the record a missing mirror is rebuilt from and the
// owner the mirror should carry.
func (m *MirrorSync) findSource(ctx context.Context, showcaseID, ownerID string) (*domain.Showcase, string, error) {
	failed := false

	if ownerID != "" {
		sc, err := m.readShowcase(ctx, privateShowcasePath(ownerID, showcaseID))
		switch {
		case err != nil:
			failed = true
			m.logger.Warn("private source read failed", "showcase_id", showcaseID, "owner_id", ownerID, "error", err)
		case sc != nil && !sc.IsPublic:
			return nil, "", domainerrors.NotFoundf("showcase %s not found", showcaseID)
		case sc != nil:
			return sc, ownerID, nil
		}
	}

	sc, err := m.readShowcase(ctx, legacyShowcasePath(showcaseID))
	switch {
	case err != nil:
		failed = true
		m.logger.Warn("legacy source read failed", "showcase_id", showcaseID, "error", err)
	case sc != nil:
		owner := strings.TrimSpace(sc.OwnerID)
		if owner == "" {
			owner = ownerID
		}
		if owner == "" {
			owner = SystemOwner
		}
		return sc, owner, nil
	}

	if failed {
		return nil, "", domainerrors.Unavailable("showcase storage is unreachable, try again")
	}
	return nil, "", domainerrors.NotFoundf("showcase %s has no private or legacy source", showcaseID)
}

// repairMirror patches a present but incomplete mirror in a single write.
func (m *MirrorSync) repairMirror(ctx context.Context, mirror *domain.Showcase, fallbackOwner string, dryRun bool, res *EnsureResult) (*EnsureResult, error) {
	showcaseID := mirror.ID
	repaired := *mirror
	fields := store.Fields{}

	if !mirror.HasOwner() {
		if owner := m.recoverOwner(ctx, showcaseID, fallbackOwner); owner != "" {
			fields["userId"] = owner
			repaired.OwnerID = owner
			res.Actions = append(res.Actions, ActionRecoverOwner)
		} else {
			res.Partial = true
			m.logger.Warn("public showcase owner not recoverable", "showcase_id", showcaseID)
		}
	}

	if !mirror.HasMembership() {
		ids, tags := m.privateMembership(ctx, showcaseID, repaired.OwnerID)
		switch {
		case len(ids) > 0:
			fields["itemIds"] = ids
			repaired.ItemIDs = domain.NewItemIDs(ids...)
			res.Actions = append(res.Actions, ActionRepairMembership)
		case resolvable(mirror):
			// The mirror's own tags resolve at read time.
		case len(tags) > 0:
			fields["tags"] = tags
			repaired.Tags = tags
			res.Actions = append(res.Actions, ActionRepairMembership)
		default:
			fields["itemIds"] = m.placeholder
			repaired.ItemIDs = domain.NewItemIDs(m.placeholder...)
			res.Actions = append(res.Actions, ActionPlaceholderMember)
		}
	}

	res.Mirror = &repaired
	if len(fields) == 0 || dryRun {
		return res, nil
	}

	now := m.now().UTC()
	fields["recovered"] = true
	fields["updatedAt"] = now
	repaired.Recovered = true
	repaired.UpdatedAt = now

	if err := m.docs.Update(ctx, publicShowcasePath(showcaseID), fields); err != nil {
		return nil, translate(err, "failed to repair public showcase")
	}
	res.Wrote = true

	m.logger.Info("public showcase repaired",
		"showcase_id", showcaseID,
		"actions", res.Actions,
		"partial", res.Partial,
	)
	m.index(ctx, &repaired)
	return res, nil
}

// recoverOwner looks for the owner in the legacy record, then falls back to
// the supplied owner.
func (m *MirrorSync) recoverOwner(ctx context.Context, showcaseID, fallbackOwner string) string {
	legacy, err := m.readShowcase(ctx, legacyShowcasePath(showcaseID))
	if err != nil {
		m.logger.Warn("legacy owner lookup failed", "showcase_id", showcaseID, "error", err)
	} else if legacy != nil && legacy.HasOwner() {
		return strings.TrimSpace(legacy.OwnerID)
	}
	return fallbackOwner
}

// privateMembership returns the private record's item ids and tags, or
// nothing when the owner is unknown or the record unreadable.
func (m *MirrorSync) privateMembership(ctx context.Context, showcaseID, ownerID string) ([]string, []string) {
	if ownerID == "" || ownerID == SystemOwner {
		return nil, nil
	}
	sc, err := m.readShowcase(ctx, privateShowcasePath(ownerID, showcaseID))
	if err != nil {
		m.logger.Warn("private membership lookup failed", "showcase_id", showcaseID, "owner_id", ownerID, "error", err)
		return nil, nil
	}
	if sc == nil {
		return nil, nil
	}
	if sc.HasMembership() {
		return sc.ItemIDs.Strings(), nil
	}
	return nil, slices.Clone(sc.Tags)
}

// Publish copies the owner's private record to the public location and
// flags the private record public. It is only invoked on explicit owner
// intent, never by read-time recovery.
func (m *MirrorSync) Publish(ctx context.Context, ownerID, showcaseID string) (*domain.Showcase, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, domainerrors.Unauthorized("publishing requires an owner")
	}
	if strings.TrimSpace(showcaseID) == "" {
		return nil, domainerrors.Validation("showcase id is required")
	}

	priv, err := m.readShowcase(ctx, privateShowcasePath(ownerID, showcaseID))
	if err != nil {
		return nil, translate(err, "failed to read showcase")
	}
	if priv == nil {
		return nil, domainerrors.NotFoundf("showcase %s not found", showcaseID)
	}
	if priv.HasOwner() && strings.TrimSpace(priv.OwnerID) != ownerID {
		return nil, domainerrors.Forbidden("only the owner can publish this showcase")
	}

	now := m.now().UTC()
	pub := *priv
	pub.ID = showcaseID
	pub.OwnerID = ownerID
	pub.IsPublic = true
	pub.Recovered = false
	pub.Theme = pub.Theme.OrDefault()
	pub.UpdatedAt = now
	if pub.CreatedAt.IsZero() {
		pub.CreatedAt = now
	}
	if pub.Tags == nil {
		pub.Tags = []string{}
	}

	if err := m.docs.Set(ctx, publicShowcasePath(showcaseID), &pub); err != nil {
		return nil, translate(err, "failed to publish showcase")
	}

	if err := m.docs.Update(ctx, privateShowcasePath(ownerID, showcaseID), store.Fields{
		"isPublic":  true,
		"updatedAt": now,
	}); err != nil {
		return nil, translate(err, "failed to flag showcase public")
	}

	m.logger.Info("showcase published", "showcase_id", showcaseID, "owner_id", ownerID)
	m.index(ctx, &pub)
	return &pub, nil
}

// Unpublish removes the mirror and flags the private record private again.
func (m *MirrorSync) Unpublish(ctx context.Context, ownerID, showcaseID string) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return domainerrors.Unauthorized("unpublishing requires an owner")
	}

	privPath := privateShowcasePath(ownerID, showcaseID)
	priv, err := m.readShowcase(ctx, privPath)
	if err != nil {
		return translate(err, "failed to read showcase")
	}
	if priv == nil {
		return domainerrors.NotFoundf("showcase %s not found", showcaseID)
	}

	if err := m.docs.Delete(ctx, publicShowcasePath(showcaseID)); err != nil {
		return translate(err, "failed to remove public showcase")
	}
	if err := m.docs.Update(ctx, privPath, store.Fields{
		"isPublic":  false,
		"updatedAt": m.now().UTC(),
	}); err != nil {
		return translate(err, "failed to flag showcase private")
	}

	m.logger.Info("showcase unpublished", "showcase_id", showcaseID, "owner_id", ownerID)
	m.unindex(ctx, showcaseID)
	return nil
}

// Propagate replays a private-side delta on the mirror if one exists. The
// private write is already committed; failures here are logged and
// swallowed. It reports whether the mirror was updated.
func (m *MirrorSync) Propagate(ctx context.Context, ownerID, showcaseID string, delta Delta) bool {
	fields := delta.fields()
	if len(fields) == 0 {
		return false
	}

	path := publicShowcasePath(showcaseID)
	if _, err := m.docs.Get(ctx, path); err != nil {
		if isMiss(err) {
			m.logger.Debug("no public mirror to propagate to", "showcase_id", showcaseID)
		} else {
			m.logger.Warn("mirror read failed, change not propagated",
				"showcase_id", showcaseID,
				"owner_id", ownerID,
				"error", err,
			)
		}
		return false
	}

	if err := m.docs.Update(ctx, path, fields); err != nil {
		m.logger.Warn("mirror update failed, change not propagated",
			"showcase_id", showcaseID,
			"owner_id", ownerID,
			"error", err,
		)
		return false
	}
	return true
}

func (m *MirrorSync) index(ctx context.Context, sc *domain.Showcase) {
	if m.indexer == nil {
		return
	}
	if err := m.indexer.IndexShowcase(ctx, sc); err != nil {
		m.logger.Warn("failed to index showcase", "showcase_id", sc.ID, "error", err)
	}
}

func (m *MirrorSync) unindex(ctx context.Context, showcaseID string) {
	if m.indexer == nil {
		return
	}
	if err := m.indexer.RemoveShowcase(ctx, showcaseID); err != nil {
		m.logger.Warn("failed to remove showcase from index", "showcase_id", showcaseID, "error", err)
	}
}

func (m *MirrorSync) readMirror(ctx context.Context, showcaseID string) (*domain.Showcase, error) {
	return m.readShowcase(ctx, publicShowcasePath(showcaseID))
}

// readShowcase returns (nil, nil) on a miss.
func (m *MirrorSync) readShowcase(ctx context.Context, p store.Path) (*domain.Showcase, error) {
	doc, err := m.docs.Get(ctx, p)
	if isMiss(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeShowcase(doc)
}

// RemoveMirror deletes the mirror of a showcase owned by ownerID. A mirror
// naming another owner is left in place. Removing an absent mirror is a no-op.
func (m *MirrorSync) RemoveMirror(ctx context.Context, ownerID, showcaseID string) error {
	mirror, err := m.readMirror(ctx, showcaseID)
	if err != nil {
		return translate(err, "failed to read public showcase")
	}
	if mirror == nil {
		return nil
	}
	if mirror.HasOwner() && strings.TrimSpace(mirror.OwnerID) != ownerID {
		m.logger.Warn("public showcase belongs to another owner, not removed",
			"showcase_id", showcaseID,
			"owner_id", ownerID,
			"mirror_owner_id", mirror.OwnerID,
		)
		return nil
	}

	if err := m.docs.Delete(ctx, publicShowcasePath(showcaseID)); err != nil {
		return translate(err, "failed to remove public showcase")
	}
	m.unindex(ctx, showcaseID)
	return nil
}
