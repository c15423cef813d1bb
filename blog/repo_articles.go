package blog

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	sluggen "github.com/Endy02/microservice/slug"
)

// NewArticle carries the attributes needed to publish an article.
type NewArticle struct {
	Title       string
	Description string
	ShortDesc   string
	Link        string
	Thumbnail   string
}

type Articles interface {
	repository.Repository[*Article]

	Publish(ctx context.Context, input NewArticle) (*Article, error)
	PublishTx(ctx context.Context, tx bun.IDB, input NewArticle) (*Article, error)

	GetBySlug(ctx context.Context, slug string) (*Article, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (*Article, error)
	ListRecent(ctx context.Context, limit int) ([]*Article, error)

	Save(ctx context.Context, article *Article) (*Article, error)
	SaveTx(ctx context.Context, tx bun.IDB, article *Article) (*Article, error)

	Remove(ctx context.Context, id uuid.UUID) error

	AttachImage(ctx context.Context, articleID uuid.UUID, media string) (*ArticleImage, error)
	AttachImageTx(ctx context.Context, tx bun.IDB, articleID uuid.UUID, media string) (*ArticleImage, error)
}

type articles struct {
	repository.Repository[*Article]
	db    *bun.DB
	slugs *sluggen.Generator
}

var (
	_ Articles                        = (*articles)(nil)
	_ repository.Repository[*Article] = (*articles)(nil)
)

type ArticlesOption func(*articles)

func NewArticlesRepository(db *bun.DB, opts ...ArticlesOption) Articles {
	repo := repository.NewRepository[*Article](db, repository.ModelHandlers[*Article]{
		NewRecord: func() *Article { return &Article{} },
		GetID: func(a *Article) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Article, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "slug"
		},
	})

	repoArticles := &articles{
		Repository: repo,
		db:         db,
		slugs:      sluggen.NewGenerator(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoArticles)
		}
	}

	return repoArticles
}

// WithArticlesSlugGenerator overrides the slug generator, mostly for tests.
func WithArticlesSlugGenerator(g *sluggen.Generator) ArticlesOption {
	return func(a *articles) {
		if g != nil {
			a.slugs = g
		}
	}
}

func (a *articles) Publish(ctx context.Context, input NewArticle) (*Article, error) {
	return a.PublishTx(ctx, a.db, input)
}

func (a *articles) PublishTx(ctx context.Context, tx bun.IDB, input NewArticle) (*Article, error) {
	article, err := buildArticle(input)
	if err != nil {
		return nil, err
	}

	if article.ID == uuid.Nil {
		article.ID = uuid.New()
	}

	if err := a.ensureSlugTx(ctx, tx, article); err != nil {
		return nil, err
	}

	record, err := a.Repository.CreateTx(ctx, tx, article)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create article")
	}

	return record, nil
}

func (a *articles) GetBySlug(ctx context.Context, slug string) (*Article, error) {
	record := &Article{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Images").
		Where("?TableAlias.slug = ?", slug).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"slug": slug})
		}
		return nil, err
	}

	return record, nil
}

func (a *articles) GetByUUID(ctx context.Context, id uuid.UUID) (*Article, error) {
	return a.Repository.GetByID(ctx, id.String())
}

func (a *articles) ListRecent(ctx context.Context, limit int) ([]*Article, error) {
	if limit <= 0 {
		limit = 20
	}

	records := []*Article{}
	err := a.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Save persists mutations on an existing article. The slug is assigned on
// the first save and left alone afterwards, even when the title changes.
func (a *articles) Save(ctx context.Context, article *Article) (*Article, error) {
	return a.SaveTx(ctx, a.db, article)
}

func (a *articles) SaveTx(ctx context.Context, tx bun.IDB, article *Article) (*Article, error) {
	if err := ValidateMedia(article.Thumbnail); err != nil {
		return nil, err
	}

	if err := a.ensureSlugTx(ctx, tx, article); err != nil {
		return nil, err
	}

	now := time.Now()
	article.UpdatedAt = &now

	return a.Repository.UpdateTx(ctx, tx, article, repository.UpdateByID(article.ID.String()))
}

// Remove deletes the article and its images in one transaction, so a
// failed article delete never leaves the images gone.
func (a *articles) Remove(ctx context.Context, id uuid.UUID) error {
	return a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*ArticleImage)(nil)).
			Where("?TableAlias.article_id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*Article)(nil)).
			Where("?TableAlias.id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}

		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}

		return nil
	})
}

func (a *articles) AttachImage(ctx context.Context, articleID uuid.UUID, media string) (*ArticleImage, error) {
	return a.AttachImageTx(ctx, a.db, articleID, media)
}

func (a *articles) AttachImageTx(ctx context.Context, tx bun.IDB, articleID uuid.UUID, media string) (*ArticleImage, error) {
	if err := validation.Validate(media, validation.Required); err != nil {
		return nil, goerrors.New("media path is required", goerrors.CategoryValidation).
			WithTextCode("INVALID_MEDIA")
	}

	if err := ValidateMedia(media); err != nil {
		return nil, err
	}

	image := &ArticleImage{
		ID:        uuid.New(),
		Media:     media,
		ArticleID: articleID,
	}

	_, err := tx.NewInsert().
		Model(image).
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not attach image")
	}

	return image, nil
}

func (a *articles) ensureSlugTx(ctx context.Context, tx bun.IDB, article *Article) error {
	if article.Slug != "" {
		return nil
	}

	generated, err := a.slugs.Generate(ctx, article.Title, func(ctx context.Context, candidate string) (bool, error) {
		count, err := tx.NewSelect().
			Model((*Article)(nil)).
			Where("?TableAlias.slug = ?", candidate).
			Count(ctx)
		if err != nil {
			return false, err
		}
		return count > 0, nil
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate article slug")
	}

	article.Slug = generated
	return nil
}

func buildArticle(input NewArticle) (*Article, error) {
	if err := validation.Validate(input.Title, validation.Required, validation.Length(1, 150)); err != nil {
		return nil, goerrors.New("a title is required to publish an article", goerrors.CategoryValidation).
			WithTextCode("INVALID_TITLE").
			WithMetadata(map[string]any{"title": input.Title})
	}

	if err := validation.Validate(input.ShortDesc, validation.Length(0, 255)); err != nil {
		return nil, goerrors.New("short description is too long", goerrors.CategoryValidation).
			WithTextCode("INVALID_SHORT_DESC")
	}

	if err := ValidateMedia(input.Thumbnail); err != nil {
		return nil, err
	}

	return &Article{
		Title:       input.Title,
		Description: input.Description,
		ShortDesc:   input.ShortDesc,
		Link:        input.Link,
		Thumbnail:   input.Thumbnail,
	}, nil
}
