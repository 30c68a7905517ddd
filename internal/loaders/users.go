// Package loaders batches the user lookups made while rendering a response.
package loaders

import (
	"context"
	"time"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/graph-gophers/dataloader"
	"github.com/labstack/echo/v4"
)

type contextKey string

const key = contextKey("loaders")

// UserSource fetches users in one query.
type UserSource interface {
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// UserLoader resolves user ids to profiles, coalescing lookups issued within
// the batch window into a single query and caching them per request.
type UserLoader struct {
	loader *dataloader.Loader
}

func NewUserLoader(source UserSource) *UserLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := keys.Keys()

		users, err := source.GetUsersByIDs(ctx, ids)
		results := make([]*dataloader.Result, len(keys))
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		byID := make(map[string]*models.User, len(users))
		for i := range users {
			byID[users[i].ID] = &users[i]
		}
		for i, id := range ids {
			results[i] = &dataloader.Result{Data: byID[id]}
		}
		return results
	}

	return &UserLoader{loader: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond))}
}

// Load returns the user with id, or nil when there is none.
func (l *UserLoader) Load(ctx context.Context, id string) (*models.User, error) {
	data, err := l.loader.Load(ctx, dataloader.StringKey(id))()
	if err != nil {
		return nil, err
	}
	user, _ := data.(*models.User)
	return user, nil
}

// LoadMany resolves ids and returns the users found, keyed by id.
func (l *UserLoader) LoadMany(ctx context.Context, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	data, errs := l.loader.LoadMany(ctx, dataloader.NewKeysFromStrings(ids))()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	for i, d := range data {
		if user, ok := d.(*models.User); ok && user != nil {
			out[ids[i]] = user
		}
	}
	return out, nil
}

// Loaders holds the request-scoped loaders.
type Loaders struct {
	Users *UserLoader
}

// Middleware attaches fresh loaders to every request.
func Middleware(users UserSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := &Loaders{Users: NewUserLoader(users)}
			c.SetRequest(c.Request().WithContext(NewContext(c.Request().Context(), l)))
			return next(c)
		}
	}
}

func NewContext(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, key, l)
}

// For returns the loaders on ctx, or nil outside a request.
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(key).(*Loaders)
	return l
}
