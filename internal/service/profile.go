package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/format"
	"github.com/boddenberg/artfy-client-go/internal/infra/observability"
	"github.com/boddenberg/artfy-client-go/internal/port"
	"github.com/boddenberg/artfy-client-go/internal/validation"
)

var profileTracer = otel.Tracer("service/profile")

// Messages for edits the form does not allow.
const (
	MsgEmailReadOnly = "O e-mail não pode ser alterado."
	MsgUnknownField  = "Campo desconhecido."
	MsgDraftStale    = "Sua sessão mudou. Abra a edição novamente."
)

// ProfileEditPipeline runs profile edits through format, validate, diff and
// submit, in that order.
type ProfileEditPipeline struct {
	api      port.UserAPI
	sessions *SessionStore
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewProfileEditPipeline creates a ProfileEditPipeline.
func NewProfileEditPipeline(
	api port.UserAPI,
	sessions *SessionStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ProfileEditPipeline {
	return &ProfileEditPipeline{
		api:      api,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

// Open starts a draft from the cached profile.
func (p *ProfileEditPipeline) Open(ctx context.Context) (*domain.ProfileDraft, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileEditPipeline.Open")
	defer span.End()

	sess, err := p.sessions.Require(ctx, domain.OpUpdateProfile)
	if err != nil {
		return nil, err
	}

	form := format.ToDisplay(sess.User)
	return &domain.ProfileDraft{
		ID:       uuid.NewString(),
		UserID:   sess.User.ID,
		Values:   form,
		Original: form,
		Errors:   map[string]string{},
		OpenedAt: time.Now(),
	}, nil
}

// Change formats raw for field, stores it on the draft and returns the
// formatted value. Email is shown but cannot be edited.
func (p *ProfileEditPipeline) Change(draft *domain.ProfileDraft, field, raw string) (string, error) {
	if field == domain.FieldEmail {
		return draft.Values.Email, domain.NewValidationError(field, MsgEmailReadOnly)
	}

	value := format.Field(field, raw)
	if !draft.Values.Set(field, value) {
		return "", domain.NewValidationError(field, MsgUnknownField)
	}
	return value, nil
}

// Validate replaces the draft's error map and reports whether it is empty.
// Values are left untouched.
func (p *ProfileEditPipeline) Validate(draft *domain.ProfileDraft) bool {
	draft.Errors = validation.Profile(draft.Values)
	return draft.Valid()
}

// Submit sends the fields that changed since Open. On success the cached
// profile and the draft both take the server's version. On failure the
// draft keeps the user's edits.
func (p *ProfileEditPipeline) Submit(ctx context.Context, draft *domain.ProfileDraft) (*domain.UserProfile, error) {
	ctx, span := profileTracer.Start(ctx, "ProfileEditPipeline.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("draft.id", draft.ID))

	if !p.Validate(draft) {
		fields := make(map[string]string, len(draft.Errors))
		for k, v := range draft.Errors {
			fields[k] = v
		}
		return nil, &domain.ErrValidation{Fields: fields}
	}

	sess, err := p.sessions.Require(ctx, domain.OpUpdateProfile)
	if err != nil {
		return nil, err
	}
	if sess.User.ID != draft.UserID {
		return nil, &domain.ErrOperationFailed{Operation: domain.OpUpdateProfile, Message: MsgDraftStale}
	}

	patch := Diff(format.ToWire(draft.Original, sess.User), format.ToWire(draft.Values, sess.User))
	if patch.Empty() {
		p.logger.Debug("profile submit without changes", zap.String("draft_id", draft.ID))
		user := sess.User
		return &user, nil
	}

	updated, err := p.api.UpdateUser(ctx, sess.Token, sess.User.ID, patch)
	if err != nil {
		span.SetStatus(codes.Error, "update failed")
		err = authFailure(ctx, p.sessions, sess, domain.OpUpdateProfile, err)
		p.logger.Warn("profile update failed", zap.Error(err))
		return nil, err
	}

	if err := p.sessions.UpdateProfile(ctx, *updated); err != nil {
		return nil, err
	}
	if updated.ID.IsZero() {
		updated.ID = sess.User.ID
	}

	form := format.ToDisplay(*updated)
	draft.Values = form
	draft.Original = form
	draft.Errors = map[string]string{}

	p.metrics.IncrSessionEvent(observability.EventProfileUpdate)
	p.logger.Info("profile updated", zap.String("user_id", updated.ID.String()))
	return updated, nil
}

// Diff builds a patch holding the editable fields of next that differ from
// prev. Email is never included.
func Diff(prev, next domain.UserProfile) domain.ProfilePatch {
	var patch domain.ProfilePatch
	changed := func(a, b string) *string {
		if a == b {
			return nil
		}
		return &b
	}
	patch.Name = changed(prev.Name, next.Name)
	patch.CPF = changed(prev.CPF, next.CPF)
	patch.BirthDate = changed(prev.BirthDate, next.BirthDate)
	patch.Phone = changed(prev.Phone, next.Phone)
	patch.Address = changed(prev.Address, next.Address)
	return patch
}
