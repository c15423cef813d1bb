package blog

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Article is a published content entry. The slug is assigned on first
// save from the title and never changes afterwards.
type Article struct {
	bun.BaseModel `bun:"table:articles,alias:art"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid" json:"uuid"`
	Title       string     `bun:"title,notnull" json:"title"`
	Description string     `bun:"description,nullzero" json:"description,omitempty"`
	ShortDesc   string     `bun:"short_desc,nullzero" json:"short_desc,omitempty"`
	Link        string     `bun:"link,nullzero" json:"link,omitempty"`
	Thumbnail   string     `bun:"thumbnail,nullzero" json:"thumbnail,omitempty"`
	Slug        string     `bun:"slug,nullzero,unique" json:"slug,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   *time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`

	Images []*ArticleImage `bun:"rel:has-many,join:id=article_id" json:"images,omitempty"`
}

// ArticleImage is an additional media attachment on an article.
type ArticleImage struct {
	bun.BaseModel `bun:"table:article_images,alias:img"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid" json:"uuid"`
	Media     string     `bun:"media,notnull" json:"media"`
	ArticleID uuid.UUID  `bun:"article_id,notnull,type:uuid" json:"article_uuid"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}
