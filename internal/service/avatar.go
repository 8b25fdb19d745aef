package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sultanmr/aws-grocery/internal/avatar"
	"github.com/sultanmr/aws-grocery/internal/domain"
	"github.com/sultanmr/aws-grocery/internal/event"
	"github.com/sultanmr/aws-grocery/internal/repository"
	"github.com/sultanmr/aws-grocery/pkg/tracing"
)

// AvatarUpload is one uploaded image file.
type AvatarUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadAvatar stores a new avatar, points the user at it and then removes
// the image it replaced. It returns the URL the new avatar is served from.
func (s *AccountService) UploadAvatar(ctx context.Context, userID int64, up AvatarUpload) (string, error) {
	ctx, span := tracing.Start(ctx, "account.UploadAvatar",
		attribute.Int64("user.id", userID),
		attribute.Int("avatar.bytes", len(up.Data)),
	)
	url, err := s.uploadAvatar(ctx, userID, up)
	tracing.End(span, err)
	return url, err
}

func (s *AccountService) uploadAvatar(ctx context.Context, userID int64, up AvatarUpload) (string, error) {
	if err := s.avatars.Validate(up.Filename, int64(len(up.Data))); err != nil {
		return "", err
	}
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return "", fail("save avatar", err)
	}

	commit := func(ctx context.Context, newRef string) (string, error) {
		var previous string
		err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
			user, err := tx.Users().GetForUpdate(ctx, userID)
			if err != nil {
				return err
			}
			previous = user.Avatar
			return tx.Users().UpdateAvatar(ctx, userID, newRef)
		})
		return previous, err
	}

	ref, err := s.avatars.Replace(ctx, avatar.Upload{
		UserID:      userID,
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Data:        up.Data,
	}, commit)
	if err != nil {
		return "", err
	}

	s.log(ctx).InfoContext(ctx, "avatar updated",
		slog.String("backend", s.avatars.BackendName()),
		slog.String("ref", ref),
	)
	s.publish(ctx, event.TopicAvatarUpdated, func(p EventPublisher) error {
		return p.PublishAvatarUpdated(ctx, event.AvatarUpdatedData{
			UserID:  userID,
			Backend: s.avatars.BackendName(),
			Ref:     ref,
		})
	})

	u := domain.User{Avatar: ref}
	return u.AvatarURL(), nil
}

// FetchAvatar serves an avatar by its public filename through the fallback
// chain.
func (s *AccountService) FetchAvatar(ctx context.Context, filename string) (*avatar.Object, error) {
	return s.avatars.FetchByName(ctx, filename)
}
