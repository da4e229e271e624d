package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-service/internal/domain"
)

var productRowColumns = []string{
	"id", "name", "description", "price", "size_unit", "stock_quantity",
	"seller_id", "category_id", "created_at", "updated_at",
}

func TestPostgresStore_CreateProduct(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now()
	product := &domain.Product{
		Name:          "Runner",
		Description:   PtrTo("Light running shoe"),
		Price:         decimal.RequireFromString("59.90"),
		SizeUnit:      PtrTo("EU"),
		StockQuantity: 12,
		SellerID:      7,
		CategoryID:    PtrTo(int64(3)),
	}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO marketplace.products`)).
		WithArgs(product.Name, product.Description, sqlmock.AnyArg(), product.SizeUnit, product.StockQuantity,
			product.SellerID, product.CategoryID).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(int64(21), "Runner", "Light running shoe", "59.90", "EU", int64(12), int64(7), int64(3), now, now))

	created, err := store.CreateProduct(context.Background(), product)

	require.NoError(t, err)
	assert.Equal(t, int64(21), created.ID)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("59.9")))
	assert.Equal(t, int32(12), created.StockQuantity)
	assert.Equal(t, PtrTo(int64(3)), created.CategoryID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProductByID_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM marketplace.products`)).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	product, err := store.GetProductByID(context.Background(), 404)

	assert.Nil(t, product)
	assert.True(t, errors.Is(err, ErrProductNotFound))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProductsByIDs(t *testing.T) {
	t.Run("empty id list does not query", func(t *testing.T) {
		db, mock, store := newMockDBAndStore(t)
		defer db.Close()

		products, err := store.ListProductsByIDs(context.Background(), nil)

		require.NoError(t, err)
		assert.Empty(t, products)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ids are passed as an array", func(t *testing.T) {
		db, mock, store := newMockDBAndStore(t)
		defer db.Close()

		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = ANY($1)`)).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(productRowColumns).
				AddRow(int64(1), "A", nil, "10.00", nil, int64(1), int64(7), nil, now, now).
				AddRow(int64(2), "B", nil, "0", nil, int64(0), int64(7), int64(4), now, now))

		products, err := store.ListProductsByIDs(context.Background(), []int64{2, 1})

		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Nil(t, products[0].Description)
		assert.Nil(t, products[0].CategoryID)
		assert.True(t, products[1].Price.IsZero())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_UpdateProduct_ClearsCategory(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now()
	product := &domain.Product{ID: 21, Name: "Runner", Price: decimal.NewFromInt(40), StockQuantity: 2}

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE marketplace.products`)).
		WithArgs(product.Name, product.Description, sqlmock.AnyArg(), product.SizeUnit, product.StockQuantity,
			nil, product.ID).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(int64(21), "Runner", nil, "40", nil, int64(2), int64(7), nil, now, now))

	updated, err := store.UpdateProduct(context.Background(), product)

	require.NoError(t, err)
	assert.Nil(t, updated.CategoryID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteProduct_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM marketplace.products WHERE id = $1;`)).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteProduct(context.Background(), 8)

	assert.True(t, errors.Is(err, ErrProductNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ProductImages(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now()
	imageColumns := []string{"id", "product_id", "image_url", "public_id", "description", "created_at"}

	mock.ExpectQuery(`FROM marketplace.product_images\s+WHERE product_id = \$1\s+ORDER BY id ASC`).
		WithArgs(int64(21)).
		WillReturnRows(sqlmock.NewRows(imageColumns).
			AddRow(int64(1), int64(21), "/media/products/a.jpg", "products/a", nil, now).
			AddRow(int64(2), int64(21), "/media/products/b.jpg", nil, nil, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE marketplace.product_images SET image_url = $1, public_id = $2 WHERE id = $3;`)).
		WithArgs("/media/products/c.jpg", "products/c", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	images, err := store.ListProductImages(context.Background(), 21)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, PtrTo("products/a"), images[0].PublicID)
	assert.Nil(t, images[1].PublicID)

	err = store.UpdateProductImage(context.Background(), &domain.ProductImage{
		ID: 2, ImageURL: "/media/products/c.jpg", PublicID: PtrTo("products/c"),
	})
	require.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}
