package services

import (
	"context"
	"errors"
	"fmt"
	"inkblog/internal/events"
	"inkblog/internal/idem"
	"inkblog/internal/metrics"
	"inkblog/internal/models"
	"inkblog/internal/repositories"
	"inkblog/internal/utils"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Limits struct {
	DefaultLimit  int
	MaxLimit      int
	MaxBodyLength int
}

// CommentService is the comment and reaction engine. Every write runs in one
// transaction; counts are always computed from the stores at read time.
type CommentService struct {
	store    *repositories.Store
	cursors  *CursorCodec
	limits   Limits
	validate *validator.Validate
	idem     idem.Store
	idemTTL  time.Duration
	events   events.Publisher
	log      *zap.Logger
	now      func() time.Time
}

type Option func(*CommentService)

// WithIdempotency enables Idempotency-Key handling on Create.
func WithIdempotency(store idem.Store, ttl time.Duration) Option {
	return func(s *CommentService) {
		s.idem = store
		s.idemTTL = ttl
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *CommentService) { s.events = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *CommentService) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *CommentService) { s.now = now }
}

func NewCommentService(store *repositories.Store, cursors *CursorCodec, limits Limits, opts ...Option) *CommentService {
	s := &CommentService{
		store:    store,
		cursors:  cursors,
		limits:   limits,
		validate: validator.New(),
		events:   events.Nop{},
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clock 统一为 UTC 微秒精度，和 Postgres timestamptz 一致，游标往返不丢精度
func (s *CommentService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

type CreateInput struct {
	AuthorID       uint
	PostID         uint `validate:"required"`
	ParentID       *string
	Body           string
	IdempotencyKey string `validate:"max=128"`
}

func (s *CommentService) Create(ctx context.Context, in CreateInput) (*models.Comment, error) {
	if in.AuthorID == 0 {
		return nil, ErrUnauthorized
	}
	if in.ParentID != nil && *in.ParentID == "" {
		in.ParentID = nil
	}
	// Postgres text 不接受 NUL 和非法 UTF-8
	if !utf8.ValidString(in.Body) || strings.ContainsRune(in.Body, 0) {
		return nil, invalid("Body", "malformed")
	}
	in.Body = utils.PlainText(in.Body)
	if err := s.validate.Struct(in); err != nil {
		return nil, fromValidator(err)
	}
	if err := s.validate.Var(in.Body, fmt.Sprintf("required,max=%d", s.limits.MaxBodyLength)); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && fieldErrs[0].Tag() == "max" {
			return nil, invalid("Body", fmt.Sprintf("max=%d", s.limits.MaxBodyLength))
		}
		return nil, invalid("Body", "required")
	}

	if s.idem == nil || in.IdempotencyKey == "" {
		return s.create(ctx, in)
	}
	return s.createOnce(ctx, in)
}

// createOnce 同一个 Idempotency-Key 只创建一次，重放时返回第一次的结果
func (s *CommentService) createOnce(ctx context.Context, in CreateInput) (*models.Comment, error) {
	key := fmt.Sprintf("comment:%d:%s", in.AuthorID, in.IdempotencyKey)
	claimed, err := s.idem.Claim(ctx, key, s.idemTTL)
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}
	if !claimed {
		return s.replay(ctx, key)
	}

	c, err := s.create(ctx, in)
	if err != nil {
		if relErr := s.idem.Release(context.WithoutCancel(ctx), key); relErr != nil {
			s.log.Warn("release idempotency key", zap.String("key", key), zap.Error(relErr))
		}
		return nil, err
	}
	s.complete(context.WithoutCancel(ctx), key, c.ID)
	return c, nil
}

// complete records the created id, retrying once; a key left pending would
// answer every retry with ErrRequestInFlight until it expires.
func (s *CommentService) complete(ctx context.Context, key, id string) {
	err := s.idem.Complete(ctx, key, id, s.idemTTL)
	if err == nil {
		return
	}
	if err = s.idem.Complete(ctx, key, id, s.idemTTL); err != nil {
		s.log.Warn("complete idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func (s *CommentService) replay(ctx context.Context, key string) (*models.Comment, error) {
	id, err := s.idem.Lookup(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}
	if id == "" || id == idem.Pending {
		return nil, ErrRequestInFlight
	}
	c, err := s.store.WithContext(ctx).Comments().FindByID(id)
	if err != nil {
		// the first result was deleted since
		return nil, notFound("comment", err)
	}
	return c, nil
}

func (s *CommentService) create(ctx context.Context, in CreateInput) (*models.Comment, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now := s.clock()
	c := &models.Comment{
		ID:        id.String(),
		PostID:    in.PostID,
		UserID:    in.AuthorID,
		ParentID:  in.ParentID,
		Body:      in.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.store.Begin(ctx, func(tx *repositories.Store) error {
		if c.ParentID != nil {
			parent, err := tx.Comments().FindByID(*c.ParentID)
			if err != nil {
				return notFound("parent comment", err)
			}
			if parent.PostID != c.PostID {
				return fmt.Errorf("%w: parent comment", ErrNotFound)
			}
			if parent.IsReply() {
				return ErrInvalidNesting
			}
		}
		// 父评论在检查之后被并发删除时，外键冲突同样映射为 NotFound
		if err := tx.Comments().Insert(c); err != nil {
			return notFound("parent comment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.CommentsCreated.Inc()
	s.log.Debug("comment created",
		zap.String("id", c.ID),
		zap.Uint("post_id", c.PostID),
		zap.Bool("reply", c.IsReply()),
	)
	s.publish(ctx, events.Event{
		Type:      events.TypeCommentCreated,
		CommentID: c.ID,
		PostID:    c.PostID,
		ParentID:  c.ParentID,
		UserID:    c.UserID,
		At:        now,
	})
	return c, nil
}

// Delete removes a comment owned by requesterID together with its reactions
// and, for a top-level comment, its replies and their reactions. A comment
// that does not exist and one owned by someone else are both ErrNotFound.
func (s *CommentService) Delete(ctx context.Context, requesterID uint, commentID string) (*models.Comment, error) {
	if requesterID == 0 {
		return nil, ErrUnauthorized
	}

	var (
		deleted *models.Comment
		replies []string
	)
	err := s.store.Begin(ctx, func(tx *repositories.Store) error {
		c, err := tx.Comments().FindOwned(commentID, requesterID)
		if err != nil {
			return notFound("comment", err)
		}
		ids := []string{c.ID}
		if !c.IsReply() {
			if replies, err = tx.Comments().ReplyIDs(c.ID); err != nil {
				return err
			}
			ids = append(ids, replies...)
		}

		if _, err := tx.Reactions().DeleteByComments(ids); err != nil {
			return err
		}
		if _, err := tx.Comments().DeleteByIDs(replies); err != nil {
			return err
		}
		n, err := tx.Comments().DeleteByIDs([]string{c.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: comment", ErrNotFound)
		}
		deleted = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.CommentsDeleted.Add(float64(1 + len(replies)))
	s.log.Debug("comment deleted", zap.String("id", deleted.ID), zap.Int("replies", len(replies)))
	s.publish(ctx, events.Event{
		Type:      events.TypeCommentDeleted,
		CommentID: deleted.ID,
		PostID:    deleted.PostID,
		ParentID:  deleted.ParentID,
		UserID:    requesterID,
		Cascade:   replies,
		At:        s.clock(),
	})
	return deleted, nil
}

// Get returns one comment with its counts as seen by viewerID (0 = anonymous).
func (s *CommentService) Get(ctx context.Context, viewerID uint, commentID string) (*models.CommentView, error) {
	var view *models.CommentView
	err := s.store.Snapshot(ctx, func(tx *repositories.Store) error {
		c, err := tx.Comments().FindByID(commentID)
		if err != nil {
			return notFound("comment", err)
		}
		views, err := decorate(tx, viewerID, []models.Comment{*c})
		if err != nil {
			return err
		}
		view = &views[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// publish 事件发送失败不影响已提交的写入，只记日志
func (s *CommentService) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.log.Warn("publish event",
			zap.String("type", e.Type),
			zap.String("comment_id", e.CommentID),
			zap.Error(err),
		)
	}
}
