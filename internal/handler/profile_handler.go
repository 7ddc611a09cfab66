package handler

import (
	"errors"
	"net/http"
	"sync"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/port"
	"github.com/boddenberg/artfy-client-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Profile edit drafts
// ============================================================

type submitResponse struct {
	User  domain.UserProfile   `json:"user"`
	Draft *domain.ProfileDraft `json:"draft"`
}

// draftStore keeps open drafts and serializes requests that touch the same
// draft.
type draftStore struct {
	cache port.Cache[*domain.ProfileDraft]

	mu    sync.Mutex
	locks map[string]*draftLock
}

type draftLock struct {
	sync.Mutex
	refs int
}

func newDraftStore(cache port.Cache[*domain.ProfileDraft]) *draftStore {
	return &draftStore{cache: cache, locks: make(map[string]*draftLock)}
}

// lock holds the draft id until the returned func is called.
func (s *draftStore) lock(id string) func() {
	s.mu.Lock()
	dl, ok := s.locks[id]
	if !ok {
		dl = &draftLock{}
		s.locks[id] = dl
	}
	dl.refs++
	s.mu.Unlock()

	dl.Lock()
	return func() {
		dl.Unlock()
		s.mu.Lock()
		if dl.refs--; dl.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// checkout locks the draft named in the URL and checks it belongs to the
// session's user. On success the caller owns the draft until release.
func (s *draftStore) checkout(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (draft *domain.ProfileDraft, release func(), ok bool) {
	id := chi.URLParam(r, "draftId")
	release = s.lock(id)

	draft, found := s.cache.Get(id)
	if !found || draft.UserID.String() != UserIDFromContext(r.Context()) {
		release()
		handleServiceError(w, &domain.ErrNotFound{Resource: "profile draft", ID: id}, logger)
		return nil, nil, false
	}
	return draft, release, true
}

func openDraftHandler(profile *service.ProfileEditPipeline, drafts *draftStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/profile/drafts")
		defer span.End()

		draft, err := profile.Open(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		drafts.cache.Set(draft.ID, draft)
		span.SetAttributes(attribute.String("draft.id", draft.ID))

		writeJSON(w, http.StatusCreated, draft)
	}
}

// changeDraftHandler applies a field -> raw value map. Fields are applied in
// form order; a rejected field does not stop the others.
func changeDraftHandler(profile *service.ProfileEditPipeline, drafts *draftStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "PATCH /v1/profile/drafts/{draftId}")
		defer span.End()

		draft, release, ok := drafts.checkout(w, r, logger)
		if !ok {
			return
		}
		defer release()

		var changes map[string]string
		if !decodeBody(w, r, &changes) {
			return
		}

		rejected := make(map[string]string)
		apply := func(field, raw string) {
			if _, err := profile.Change(draft, field, raw); err != nil {
				var ve *domain.ErrValidation
				if errors.As(err, &ve) {
					for k, v := range ve.Fields {
						rejected[k] = v
					}
				}
			}
		}
		for _, field := range domain.ProfileFields {
			if raw, ok := changes[field]; ok {
				apply(field, raw)
				delete(changes, field)
			}
		}
		for field, raw := range changes {
			apply(field, raw)
		}
		drafts.cache.Set(draft.ID, draft)

		if len(rejected) > 0 {
			handleServiceError(w, &domain.ErrValidation{Fields: rejected}, logger)
			return
		}
		writeJSON(w, http.StatusOK, draft)
	}
}

func submitDraftHandler(profile *service.ProfileEditPipeline, drafts *draftStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/profile/drafts/{draftId}/submit")
		defer span.End()

		draft, release, ok := drafts.checkout(w, r, logger)
		if !ok {
			return
		}
		defer release()

		user, err := profile.Submit(ctx, draft)
		drafts.cache.Set(draft.ID, draft)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, submitResponse{User: *user, Draft: draft})
	}
}

func discardDraftHandler(drafts *draftStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, release, ok := drafts.checkout(w, r, logger)
		if !ok {
			return
		}
		defer release()

		drafts.cache.Delete(draft.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}
