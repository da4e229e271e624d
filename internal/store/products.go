package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"marketplace-service/internal/domain"
)

func scanProduct(row interface{ Scan(...any) error }, p *domain.Product) error {
	return row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.SizeUnit, &p.StockQuantity,
		&p.SellerID, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt,
	)
}

// collectProducts drains rows into a slice; op names the caller in errors.
func collectProducts(rows *sql.Rows, op string) ([]domain.Product, error) {
	defer rows.Close()
	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("store: %s failed to scan product row: %w", op, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: %s iteration error: %w", op, err)
	}
	return products, nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		INSERT INTO marketplace.products
			(name, description, price, size_unit, stock_quantity, seller_id, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, name, description, price, size_unit, stock_quantity, seller_id, category_id, created_at, updated_at;
	`
	row := s.q.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Price, product.SizeUnit, product.StockQuantity,
		product.SellerID, product.CategoryID,
	)
	var created domain.Product
	if err := scanProduct(row, &created); err != nil {
		return nil, fmt.Errorf("store: CreateProduct failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, name, description, price, size_unit, stock_quantity, seller_id, category_id, created_at, updated_at
		FROM marketplace.products
		WHERE id = $1;
	`
	var product domain.Product
	if err := scanProduct(s.q.QueryRowContext(ctx, query, id), &product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductByID failed to scan row: %w", err)
	}
	return &product, nil
}

func (s *PostgresStore) ListProductsBySeller(ctx context.Context, sellerID int64) ([]domain.Product, error) {
	query := `
		SELECT id, name, description, price, size_unit, stock_quantity, seller_id, category_id, created_at, updated_at
		FROM marketplace.products
		WHERE seller_id = $1
		ORDER BY id ASC;
	`
	rows, err := s.q.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("store: ListProductsBySeller failed to query products: %w", err)
	}
	return collectProducts(rows, "ListProductsBySeller")
}

func (s *PostgresStore) ListProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	query := `
		SELECT id, name, description, price, size_unit, stock_quantity, seller_id, category_id, created_at, updated_at
		FROM marketplace.products
		WHERE id = ANY($1)
		ORDER BY id ASC;
	`
	rows, err := s.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("store: ListProductsByIDs failed to query products: %w", err)
	}
	return collectProducts(rows, "ListProductsByIDs")
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		UPDATE marketplace.products
		SET name = $1, description = $2, price = $3, size_unit = $4, stock_quantity = $5,
			category_id = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $7
		RETURNING id, name, description, price, size_unit, stock_quantity, seller_id, category_id, created_at, updated_at;
	`
	row := s.q.QueryRowContext(ctx, query,
		product.Name, product.Description, product.Price, product.SizeUnit, product.StockQuantity,
		product.CategoryID, product.ID,
	)
	var updated domain.Product
	if err := scanProduct(row, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: UpdateProduct failed to scan row: %w", err)
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	query := `DELETE FROM marketplace.products WHERE id = $1;`
	result, err := s.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to execute delete: %w", err)
	}
	return rowsAffected(result, "DeleteProduct", ErrProductNotFound)
}

// --- Product images ---

func scanProductImage(row interface{ Scan(...any) error }, img *domain.ProductImage) error {
	return row.Scan(&img.ID, &img.ProductID, &img.ImageURL, &img.PublicID, &img.Description, &img.CreatedAt)
}

func (s *PostgresStore) ListProductImages(ctx context.Context, productID int64) ([]domain.ProductImage, error) {
	query := `
		SELECT id, product_id, image_url, public_id, description, created_at
		FROM marketplace.product_images
		WHERE product_id = $1
		ORDER BY id ASC;
	`
	rows, err := s.q.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("store: ListProductImages failed to query images: %w", err)
	}
	defer rows.Close()

	images := []domain.ProductImage{}
	for rows.Next() {
		var img domain.ProductImage
		if err := scanProductImage(rows, &img); err != nil {
			return nil, fmt.Errorf("store: ListProductImages failed to scan image row: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListProductImages iteration error: %w", err)
	}
	return images, nil
}

func (s *PostgresStore) GetProductImageByID(ctx context.Context, id int64) (*domain.ProductImage, error) {
	query := `
		SELECT id, product_id, image_url, public_id, description, created_at
		FROM marketplace.product_images
		WHERE id = $1;
	`
	var img domain.ProductImage
	if err := scanProductImage(s.q.QueryRowContext(ctx, query, id), &img); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductImageNotFound
		}
		return nil, fmt.Errorf("store: GetProductImageByID failed to scan row: %w", err)
	}
	return &img, nil
}

func (s *PostgresStore) CreateProductImage(ctx context.Context, image *domain.ProductImage) (*domain.ProductImage, error) {
	query := `
		INSERT INTO marketplace.product_images (product_id, image_url, public_id, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, product_id, image_url, public_id, description, created_at;
	`
	var created domain.ProductImage
	row := s.q.QueryRowContext(ctx, query, image.ProductID, image.ImageURL, image.PublicID, image.Description)
	if err := scanProductImage(row, &created); err != nil {
		return nil, fmt.Errorf("store: CreateProductImage failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) UpdateProductImage(ctx context.Context, image *domain.ProductImage) error {
	query := `UPDATE marketplace.product_images SET image_url = $1, public_id = $2 WHERE id = $3;`
	result, err := s.q.ExecContext(ctx, query, image.ImageURL, image.PublicID, image.ID)
	if err != nil {
		return fmt.Errorf("store: UpdateProductImage failed to execute update: %w", err)
	}
	return rowsAffected(result, "UpdateProductImage", ErrProductImageNotFound)
}

func (s *PostgresStore) DeleteProductImage(ctx context.Context, id int64) error {
	query := `DELETE FROM marketplace.product_images WHERE id = $1;`
	result, err := s.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteProductImage failed to execute delete: %w", err)
	}
	return rowsAffected(result, "DeleteProductImage", ErrProductImageNotFound)
}
