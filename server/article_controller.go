package server

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/Endy02/microservice/auth"
	"github.com/Endy02/microservice/blog"
)

type ArticleControllerRoutes struct {
	List   string
	Single string
	Create string
	Update string
	Delete string
	Images string
}

// ArticleController serves the content endpoints. Reads are public,
// writes are staff only.
type ArticleController struct {
	Logger   auth.Logger
	Articles blog.Articles
	Routes   *ArticleControllerRoutes
}

func NewArticleController(articles blog.Articles) *ArticleController {
	return &ArticleController{
		Logger:   defControllerLogger{},
		Articles: articles,
		Routes: &ArticleControllerRoutes{
			List:   "/articles",
			Single: "/articles/:slug",
			Create: "/articles",
			Update: "/articles/:uuid",
			Delete: "/articles/:uuid",
			Images: "/articles/:uuid/images",
		},
	}
}

// RegisterArticleRoutes mounts the content endpoints on the given router.
func RegisterArticleRoutes(app fiber.Router, controller *ArticleController, tokens *auth.TokenService, cfg auth.Config) {
	requireAuth := RequireAuth(tokens, cfg)
	requireStaff := RequireStaff(cfg)

	app.Get(controller.Routes.List, controller.List)
	app.Get(controller.Routes.Single, controller.Single)

	app.Post(controller.Routes.Create, requireAuth, requireStaff, controller.Create)
	app.Put(controller.Routes.Update, requireAuth, requireStaff, controller.Update)
	app.Delete(controller.Routes.Delete, requireAuth, requireStaff, controller.Delete)
	app.Post(controller.Routes.Images, requireAuth, requireStaff, controller.AttachImage)
}

func (a *ArticleController) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	articles, err := a.Articles.ListRecent(c.UserContext(), limit)
	if err != nil {
		a.Logger.Error("article list: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(articles)
}

func (a *ArticleController) Single(c *fiber.Ctx) error {
	article, err := a.Articles.GetBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return a.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(article)
}

// ArticlePayload is the article create/update body.
type ArticlePayload struct {
	Title       string `form:"title" json:"title"`
	Description string `form:"description" json:"description"`
	ShortDesc   string `form:"short_desc" json:"short_desc"`
	Link        string `form:"link" json:"link"`
	Thumbnail   string `form:"thumbnail" json:"thumbnail"`
}

// Validate will validate the payload
func (r ArticlePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 150)),
		validation.Field(&r.ShortDesc, validation.Length(0, 255)),
	)
}

func (a *ArticleController) Create(c *fiber.Ctx) error {
	payload := new(ArticlePayload)

	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "malformed request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": err.Error(),
		})
	}

	article, err := a.Articles.Publish(c.UserContext(), blog.NewArticle{
		Title:       payload.Title,
		Description: payload.Description,
		ShortDesc:   payload.ShortDesc,
		Link:        payload.Link,
		Thumbnail:   payload.Thumbnail,
	})
	if err != nil {
		return a.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(article)
}

func (a *ArticleController) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	payload := new(ArticlePayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "malformed request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": err.Error(),
		})
	}

	article, err := a.Articles.GetByUUID(c.UserContext(), id)
	if err != nil {
		return a.fail(c, err)
	}

	article.Title = payload.Title
	article.Description = payload.Description
	article.ShortDesc = payload.ShortDesc
	article.Link = payload.Link
	article.Thumbnail = payload.Thumbnail

	updated, err := a.Articles.Save(c.UserContext(), article)
	if err != nil {
		return a.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(updated)
}

func (a *ArticleController) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	if err := a.Articles.Remove(c.UserContext(), id); err != nil {
		return a.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ImagePayload carries the media path to attach.
type ImagePayload struct {
	Media string `form:"media" json:"media"`
}

func (a *ArticleController) AttachImage(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	payload := new(ImagePayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "malformed request body",
		})
	}

	if _, err := a.Articles.GetByUUID(c.UserContext(), id); err != nil {
		return a.fail(c, err)
	}

	image, err := a.Articles.AttachImage(c.UserContext(), id, payload.Media)
	if err != nil {
		return a.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(image)
}

func (a *ArticleController) fail(c *fiber.Ctx, err error) error {
	if goerrors.IsNotFound(err) {
		return c.SendStatus(fiber.StatusNotFound)
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"detail": richErr.Message,
				"code":   richErr.TextCode,
			})
		case goerrors.CategoryConflict:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"detail": richErr.Message,
			})
		}
	}

	a.Logger.Error("article request failed: %v", err)
	return c.SendStatus(fiber.StatusInternalServerError)
}
