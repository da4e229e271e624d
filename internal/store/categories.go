package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace-service/internal/domain"
)

func scanCategory(row interface{ Scan(...any) error }, c *domain.Category) error {
	return row.Scan(&c.ID, &c.Name, &c.SellerID, &c.ParentID, &c.CreatedAt, &c.UpdatedAt)
}

func (s *PostgresStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		INSERT INTO marketplace.categories (name, seller_id, parent_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, seller_id, parent_id, created_at, updated_at;
	`
	var created domain.Category
	err := scanCategory(s.q.QueryRowContext(ctx, query, category.Name, category.SellerID, category.ParentID), &created)
	if err != nil {
		if constraintViolated(err, "categories_seller_uncategorized_key", "seller_id") {
			return nil, ErrCategoryNameExists
		}
		return nil, fmt.Errorf("store: CreateCategory failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `
		SELECT id, name, seller_id, parent_id, created_at, updated_at
		FROM marketplace.categories
		WHERE id = $1;
	`
	var category domain.Category
	if err := scanCategory(s.q.QueryRowContext(ctx, query, id), &category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: GetCategoryByID failed to scan row: %w", err)
	}
	return &category, nil
}

func (s *PostgresStore) ListCategoriesBySeller(ctx context.Context, sellerID int64) ([]domain.Category, error) {
	query := `
		SELECT id, name, seller_id, parent_id, created_at, updated_at
		FROM marketplace.categories
		WHERE seller_id = $1
		ORDER BY id ASC;
	`
	rows, err := s.q.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("store: ListCategoriesBySeller failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := scanCategory(rows, &c); err != nil {
			return nil, fmt.Errorf("store: ListCategoriesBySeller failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListCategoriesBySeller iteration error: %w", err)
	}
	return categories, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
		UPDATE marketplace.categories
		SET name = $1, parent_id = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
		RETURNING id, name, seller_id, parent_id, created_at, updated_at;
	`
	var updated domain.Category
	err := scanCategory(s.q.QueryRowContext(ctx, query, category.Name, category.ParentID, category.ID), &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		if constraintViolated(err, "categories_seller_uncategorized_key", "seller_id") {
			return nil, ErrCategoryNameExists
		}
		return nil, fmt.Errorf("store: UpdateCategory failed to scan row: %w", err)
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	query := `DELETE FROM marketplace.categories WHERE id = $1;`
	result, err := s.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to execute delete: %w", err)
	}
	return rowsAffected(result, "DeleteCategory", ErrCategoryNotFound)
}

func (s *PostgresStore) GetOrCreateSentinelCategory(ctx context.Context, sellerID int64) (*domain.Category, error) {
	selectQuery := `
		SELECT id, name, seller_id, parent_id, created_at, updated_at
		FROM marketplace.categories
		WHERE seller_id = $1 AND name = 'Uncategorized'
		ORDER BY id ASC
		LIMIT 1;
	`
	var sentinel domain.Category
	err := scanCategory(s.q.QueryRowContext(ctx, selectQuery, sellerID), &sentinel)
	if err == nil {
		return &sentinel, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: GetOrCreateSentinelCategory failed to look up sentinel: %w", err)
	}

	// A concurrent request may insert first; the partial unique index turns
	// the second insert into a no-op and the re-select below finds the winner.
	insertQuery := `
		INSERT INTO marketplace.categories (name, seller_id)
		VALUES ('Uncategorized', $1)
		ON CONFLICT (seller_id) WHERE name = 'Uncategorized' DO NOTHING;
	`
	if _, err := s.q.ExecContext(ctx, insertQuery, sellerID); err != nil {
		return nil, fmt.Errorf("store: GetOrCreateSentinelCategory failed to insert sentinel: %w", err)
	}
	if err := scanCategory(s.q.QueryRowContext(ctx, selectQuery, sellerID), &sentinel); err != nil {
		return nil, fmt.Errorf("store: GetOrCreateSentinelCategory failed to read sentinel: %w", err)
	}
	return &sentinel, nil
}

func (s *PostgresStore) ReassignProducts(ctx context.Context, fromCategoryID, toCategoryID int64) (int64, error) {
	query := `
		UPDATE marketplace.products
		SET category_id = $1, updated_at = CURRENT_TIMESTAMP
		WHERE category_id = $2;
	`
	result, err := s.q.ExecContext(ctx, query, toCategoryID, fromCategoryID)
	if err != nil {
		return 0, fmt.Errorf("store: ReassignProducts failed to execute update: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: ReassignProducts failed to get rows affected: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ReparentChildren(ctx context.Context, fromParentID int64, toParentID *int64) (int64, error) {
	query := `
		UPDATE marketplace.categories
		SET parent_id = $1, updated_at = CURRENT_TIMESTAMP
		WHERE parent_id = $2;
	`
	result, err := s.q.ExecContext(ctx, query, toParentID, fromParentID)
	if err != nil {
		return 0, fmt.Errorf("store: ReparentChildren failed to execute update: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: ReparentChildren failed to get rows affected: %w", err)
	}
	return n, nil
}
