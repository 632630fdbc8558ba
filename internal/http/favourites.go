package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/booklook/internal/apperr"
	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/entities"
	"github.com/mrlokans/booklook/internal/pagination"
)

// FavouritesStore defines database operations for favourites management.
type FavouritesStore interface {
	Add(ctx context.Context, userID, bookID uint) error
	Remove(ctx context.Context, userID, bookID uint) (bool, error)
	IsFavourite(ctx context.Context, userID, bookID uint) (bool, error)
	List(ctx context.Context, userID uint, limit, offset int) ([]entities.Favourite, int64, error)
}

type FavouritesController struct {
	store  FavouritesStore
	books  BookGetter
	paging config.Catalog
}

func NewFavouritesController(store FavouritesStore, books BookGetter, paging config.Catalog) *FavouritesController {
	return &FavouritesController{store: store, books: books, paging: paging}
}

type favouriteListResponse struct {
	Items []entities.Favourite `json:"items"`
	pagination.Listing
}

// AddFavourite marks a book as favourite. Adding twice is not an error.
// POST /user/favorites/:book_id
func (fc *FavouritesController) AddFavourite(c *gin.Context) {
	bookID, ok := parseIDParam(c, "book_id")
	if !ok {
		return
	}
	if _, err := fc.books.Get(c.Request.Context(), bookID); err != nil {
		respondError(c, err)
		return
	}

	if err := fc.store.Add(c.Request.Context(), currentUser(c), bookID); err != nil {
		respondError(c, apperr.FromDB(err, "BOOK_NOT_FOUND", ""))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "favourite added", "book_id": bookID, "is_favorite": true})
}

// RemoveFavourite unmarks a book. Removing a missing favourite is not an error.
// DELETE /user/favorites/:book_id
func (fc *FavouritesController) RemoveFavourite(c *gin.Context) {
	bookID, ok := parseIDParam(c, "book_id")
	if !ok {
		return
	}

	if _, err := fc.store.Remove(c.Request.Context(), currentUser(c), bookID); err != nil {
		respondError(c, apperr.FromDB(err, "", ""))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "favourite removed", "book_id": bookID, "is_favorite": false})
}

// IsFavourite reports whether the user marked the book.
// GET /user/favorites/:book_id
func (fc *FavouritesController) IsFavourite(c *gin.Context) {
	bookID, ok := parseIDParam(c, "book_id")
	if !ok {
		return
	}

	isFavourite, err := fc.store.IsFavourite(c.Request.Context(), currentUser(c), bookID)
	if err != nil {
		respondError(c, apperr.FromDB(err, "", ""))
		return
	}
	c.JSON(http.StatusOK, gin.H{"book_id": bookID, "is_favorite": isFavourite})
}

// ListFavourites returns the user's favourite books with pagination.
// GET /user/favorites?page=&page_size=
func (fc *FavouritesController) ListFavourites(c *gin.Context) {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	size, ok := queryInt(c, "page_size", 0)
	if !ok {
		return
	}
	page, size, offset := pagination.Window(page, size, fc.paging.DefaultPageSize, fc.paging.MaxPageSize)

	items, total, err := fc.store.List(c.Request.Context(), currentUser(c), size, offset)
	if err != nil {
		respondError(c, apperr.FromDB(err, "", ""))
		return
	}
	if items == nil {
		items = []entities.Favourite{}
	}
	c.JSON(http.StatusOK, favouriteListResponse{Items: items, Listing: pagination.NewListing(total, page, size)})
}
